package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/nfrund/taskmanager/internal/topicmgr"
)

// Event[T] pairs a topic name with its payload type so publishers and
// subscribers cannot disagree about the payload shape.
type Event[T any] struct {
	topic topicmgr.Topic
}

// NewEvent creates a typed event and registers it with the default topic manager.
// The payload's JSON field names are recorded for discovery.
func NewEvent[T any](name, description string) Event[T] {
	return NewEventIn[T](topicmgr.Default(), name, description)
}

// NewEventIn is NewEvent against a specific manager.
func NewEventIn[T any](m *topicmgr.Manager, name, description string) Event[T] {
	var zero T
	t := reflect.TypeOf(zero)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	cfg := topicmgr.TopicConfig{
		Name:        name,
		Description: description,
	}
	if t != nil {
		cfg.TypeName = t.Name()
		cfg.Fields = jsonFields(t)
	}

	// Events are defined at package level; a failure here is a configuration error.
	return Event[T]{topic: m.MustRegister(cfg)}
}

// Name returns the topic name.
func (e Event[T]) Name() string {
	return e.topic.Name
}

// Decode unmarshals a received message into the event's payload type.
func (e Event[T]) Decode(msg Message) (T, error) {
	var payload T
	if msg.Topic != "" && msg.Topic != e.Name() {
		return payload, fmt.Errorf("message topic %q does not match event %q", msg.Topic, e.Name())
	}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return payload, fmt.Errorf("decoding %s payload: %w", e.Name(), err)
	}
	return payload, nil
}

// Publish sends a typed event. The compiler ensures 'payload' matches 'T'.
func Publish[T any](ctx context.Context, p Publisher, event Event[T], payload T, metadata map[string]string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", event.Name(), err)
	}
	return p.Publish(ctx, Message{
		Topic:    event.Name(),
		Payload:  data,
		Metadata: metadata,
	})
}

// Subscribe registers a handler that receives decoded payloads.
// Messages that fail to decode are reported as handler errors.
func Subscribe[T any](ctx context.Context, s Subscriber, event Event[T], handler func(ctx context.Context, payload T) error) error {
	return s.Subscribe(ctx, event.Name(), func(ctx context.Context, msg Message) error {
		payload, err := event.Decode(msg)
		if err != nil {
			return err
		}
		return handler(ctx, payload)
	})
}

func jsonFields(t reflect.Type) []string {
	if t.Kind() != reflect.Struct {
		return nil
	}
	fields := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			fields = append(fields, name)
		}
	}
	return fields
}
