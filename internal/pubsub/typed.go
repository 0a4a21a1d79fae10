package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/nfrund/parley/internal/topicmgr"
)

// Event wraps a topic name and provides type-safe publishing and subscribing.
type Event[T any] struct {
	topic topicmgr.Topic
}

// NewEvent creates a typed module event and registers it with the default
// topic registry. The payload field names of T are recorded as metadata so
// `parley topics` can document them.
func NewEvent[T any](name, description string) Event[T] {
	return newEvent[T](name, description, topicmgr.DefineModule)
}

// NewFrameworkEvent is NewEvent for framework-scoped topics.
func NewFrameworkEvent[T any](name, description string) Event[T] {
	return newEvent[T](name, description, topicmgr.DefineFramework)
}

func newEvent[T any](name, description string, define func(topicmgr.TopicConfig) topicmgr.Topic) Event[T] {
	var zero T
	t := reflect.TypeOf(zero)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	fields := make([]string, 0)
	typeName := ""
	if t != nil {
		typeName = t.Name()
		if t.Kind() == reflect.Struct {
			for i := 0; i < t.NumField(); i++ {
				tag := t.Field(i).Tag.Get("json")
				if tag == "" || tag == "-" {
					continue
				}
				tagName, _, _ := strings.Cut(tag, ",")
				fields = append(fields, tagName)
			}
		}
	}

	topic := define(topicmgr.TopicConfig{
		Name:        name,
		Description: description,
		Metadata: map[string]any{
			"payload_fields": fields,
			"type_name":      typeName,
		},
	})
	topicmgr.Default().MustRegister(topic)

	return Event[T]{topic: topic}
}

// Name returns the topic name.
func (e Event[T]) Name() string {
	return e.topic.Name()
}

// Publish sends a typed event. userID may be empty for system events.
func Publish[T any](ctx context.Context, p Publisher, event Event[T], userID string, payload T) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event.Name(), err)
	}

	return p.Publish(ctx, Message{
		Topic:   event.Name(),
		UserID:  userID,
		Payload: data,
	})
}

// Subscribe registers a handler that receives decoded payloads of event.
func Subscribe[T any](ctx context.Context, s Subscriber, event Event[T], handler func(ctx context.Context, payload T) error) error {
	return s.Subscribe(ctx, event.Name(), func(ctx context.Context, msg Message) error {
		var payload T
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", event.Name(), err)
		}
		return handler(ctx, payload)
	})
}
