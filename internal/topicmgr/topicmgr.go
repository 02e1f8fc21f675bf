// Package topicmgr keeps a catalogue of the event topics the application publishes.
//
// Topics are defined once, usually at package level, and registered with the
// default manager so they can be listed from the command line:
//
//	var Created = topicmgr.Default().MustRegister(topicmgr.TopicConfig{
//		Name:        "task.created",
//		Description: "A task was stored",
//	})
package topicmgr

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)+$`)

// TopicConfig describes one topic.
type TopicConfig struct {
	Name        string   `json:"name"`
	Module      string   `json:"module"`
	Description string   `json:"description"`
	Example     string   `json:"example,omitempty"`
	Fields      []string `json:"fields,omitempty"`
	TypeName    string   `json:"type_name,omitempty"`
}

// Topic is a registered topic and its registration time.
type Topic struct {
	TopicConfig
	RegisteredAt time.Time `json:"registered_at"`
}

// ErrorType classifies a TopicError.
type ErrorType string

const (
	ErrorTopicNotFound         ErrorType = "topic_not_found"
	ErrorDuplicateRegistration ErrorType = "duplicate_registration"
	ErrorValidationFailed      ErrorType = "validation_failed"
)

// TopicError represents structured errors in the topic catalogue.
type TopicError struct {
	Type    ErrorType `json:"type"`
	Topic   string    `json:"topic"`
	Message string    `json:"message"`
}

func (e *TopicError) Error() string {
	return e.Message
}

// Manager is a concurrency-safe topic catalogue.
type Manager struct {
	mu     sync.RWMutex
	topics map[string]Topic
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{topics: make(map[string]Topic)}
}

// Register validates cfg and adds it to the catalogue.
// The module defaults to the first segment of the name.
func (m *Manager) Register(cfg TopicConfig) (Topic, error) {
	if err := ValidateName(cfg.Name); err != nil {
		return Topic{}, &TopicError{Type: ErrorValidationFailed, Topic: cfg.Name, Message: err.Error()}
	}
	if cfg.Module == "" {
		cfg.Module, _, _ = strings.Cut(cfg.Name, ".")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.topics[cfg.Name]; exists {
		return Topic{}, &TopicError{
			Type:    ErrorDuplicateRegistration,
			Topic:   cfg.Name,
			Message: fmt.Sprintf("topic already registered: %s", cfg.Name),
		}
	}
	t := Topic{TopicConfig: cfg, RegisteredAt: time.Now()}
	m.topics[cfg.Name] = t
	return t, nil
}

// MustRegister is Register that panics on error. A failure here is a programming mistake.
func (m *Manager) MustRegister(cfg TopicConfig) Topic {
	t, err := m.Register(cfg)
	if err != nil {
		panic(err)
	}
	return t
}

// Get retrieves a topic by name.
func (m *Manager) Get(name string) (Topic, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.topics[name]
	return t, ok
}

// List returns every topic sorted by name.
func (m *Manager) List() []Topic {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Topic, 0, len(m.topics))
	for _, t := range m.topics {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListByModule returns the topics owned by module, sorted by name.
func (m *Manager) ListByModule(module string) []Topic {
	var out []Topic
	for _, t := range m.List() {
		if t.Module == module {
			out = append(out, t)
		}
	}
	return out
}

// Count returns the number of registered topics.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.topics)
}

// ValidateName checks that name is a dotted lowercase identifier such as "task.created".
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) > 100 {
		return fmt.Errorf("name too long (max 100 characters)")
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("name %q must be dotted lowercase segments, e.g. module.action", name)
	}
	for _, prefix := range []string{"system.", "internal.", "debug."} {
		if strings.HasPrefix(name, prefix) {
			return fmt.Errorf("name cannot start with reserved prefix: %s", prefix)
		}
	}
	return nil
}

var defaultManager = NewManager()

// Default returns the process-wide manager.
func Default() *Manager {
	return defaultManager
}
