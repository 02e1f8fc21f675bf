package pubsub

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/nfrund/taskmanager/internal/middleware"
	"go.opentelemetry.io/otel/trace"
)

// WatermillBridge implements the Publisher and Subscriber interfaces using watermill's GoChannel.
type WatermillBridge struct {
	pub        message.Publisher
	sub        message.Subscriber
	logger     watermill.LoggerAdapter
	middleware []message.HandlerMiddleware
}

var _ Bus = (*WatermillBridge)(nil)

const (
	// MetaKeyRequestID carries the HTTP request ID that caused an event.
	MetaKeyRequestID = "request_id"

	metaKeyTopic = "topic"
)

type bridgeOptions struct {
	tracer trace.Tracer
	logger *slog.Logger
}

// Option configures a WatermillBridge.
type Option func(*bridgeOptions)

// WithTracer records a span for every published and handled message.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *bridgeOptions) { o.tracer = tracer }
}

// WithLogger replaces the slog logger watermill reports through.
func WithLogger(logger *slog.Logger) Option {
	return func(o *bridgeOptions) { o.logger = logger }
}

// NewWatermillBridge initializes an in-memory Pub/Sub system.
func NewWatermillBridge(opts ...Option) *WatermillBridge {
	o := bridgeOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	logger := NewSlogAdapter(o.logger)
	// GoChannel is a simple in-memory pub/sub implementation.
	goChannel := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		logger,
	)

	wb := &WatermillBridge{
		pub:    goChannel,
		sub:    goChannel,
		logger: logger,
	}
	if o.tracer != nil {
		wb.pub = NewPublisherTracingMiddleware(goChannel, o.tracer)
		wb.middleware = append(wb.middleware, TracingMiddleware(o.tracer))
	}
	return wb
}

// mapToWatermillMessage converts our pubsub.Message to a watermill message.
// ctx only reaches publisher middleware: GoChannel hands subscribers a copy
// with a fresh context, so anything handlers need travels as metadata.
func mapToWatermillMessage(ctx context.Context, msg Message) *message.Message {
	wmMsg := message.NewMessage(watermill.NewUUID(), msg.Payload)
	wmMsg.SetContext(ctx)

	for k, v := range msg.Metadata {
		wmMsg.Metadata.Set(k, v)
	}
	wmMsg.Metadata.Set(metaKeyTopic, msg.Topic)
	return wmMsg
}

// mapToPubSubMessage converts a watermill message back to our internal pubsub.Message.
func mapToPubSubMessage(wmMsg *message.Message) Message {
	metadata := make(map[string]string, len(wmMsg.Metadata))
	for k, v := range wmMsg.Metadata {
		if k != metaKeyTopic {
			metadata[k] = v
		}
	}
	return Message{
		Topic:    wmMsg.Metadata.Get(metaKeyTopic),
		Payload:  wmMsg.Payload,
		Metadata: metadata,
	}
}

// Publish implements the Publisher interface.
func (wb *WatermillBridge) Publish(ctx context.Context, msg Message) error {
	return wb.pub.Publish(msg.Topic, mapToWatermillMessage(ctx, msg))
}

// Subscribe implements the Subscriber interface.
func (wb *WatermillBridge) Subscribe(ctx context.Context, topic string, handler Handler) error {
	messages, err := wb.sub.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	var process message.HandlerFunc = func(wmMsg *message.Message) ([]*message.Message, error) {
		return nil, handler(handlerContext(wmMsg), mapToPubSubMessage(wmMsg))
	}
	for i := len(wb.middleware) - 1; i >= 0; i-- {
		process = wb.middleware[i](process)
	}

	// Run the message processing in a separate goroutine so that Subscribe is non-blocking.
	go func() {
		for wmMsg := range messages {
			if _, err := process(wmMsg); err != nil {
				slog.ErrorContext(ctx, "Failed to handle message", "event", "pubsub_handler_error", "topic", topic, "msg_id", wmMsg.UUID, "error", err)
			}
			// GoChannel redelivers nacked messages until they are acked, so failures are acked too.
			wmMsg.Ack()
		}
		slog.DebugContext(ctx, "Subscription message loop ended", "event", "pubsub_subscription_closed", "topic", topic)
	}()

	return nil
}

// handlerContext restores the publishing request's ID and logger from metadata
// onto the delivery context.
func handlerContext(wmMsg *message.Message) context.Context {
	ctx := wmMsg.Context()
	if id := wmMsg.Metadata.Get(MetaKeyRequestID); id != "" {
		ctx = middleware.WithRequestID(ctx, id)
	}
	return ctx
}

// Close implements the Publisher and Subscriber interface to shut down the bridge.
func (wb *WatermillBridge) Close() error {
	return wb.sub.Close()
}
