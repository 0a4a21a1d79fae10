package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillBridge_PublishSubscribe(t *testing.T) {
	bridge := NewWatermillBridge()
	defer bridge.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Message, 1)
	err := bridge.Subscribe(ctx, "test.topic", func(ctx context.Context, msg Message) error {
		received <- msg
		return nil
	})
	require.NoError(t, err)

	err = bridge.Publish(ctx, Message{
		Topic:    "test.topic",
		UserID:   "user:123",
		Payload:  []byte(`{"hello":"world"}`),
		Metadata: map[string]string{"request_id": "req-1"},
	})
	require.NoError(t, err)

	select {
	case msg := <-received:
		assert.Equal(t, "test.topic", msg.Topic)
		assert.Equal(t, "user:123", msg.UserID)
		assert.JSONEq(t, `{"hello":"world"}`, string(msg.Payload))
		assert.Equal(t, "req-1", msg.Metadata["request_id"])
		assert.NotContains(t, msg.Metadata, headerTopic)
		assert.NotContains(t, msg.Metadata, headerUser)
	case <-time.After(2 * time.Second):
		t.Fatal("message was not delivered")
	}
}

func TestWatermillBridge_WithTracer(t *testing.T) {
	tracer, flush, err := SetupOTel(context.Background(), TracingConfig{Enabled: false})
	require.NoError(t, err)
	defer flush(context.Background())

	bridge := NewWatermillBridge(WithTracer(tracer))
	defer bridge.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	require.NoError(t, bridge.Subscribe(ctx, "traced", func(ctx context.Context, msg Message) error {
		close(done)
		return nil
	}))
	require.NoError(t, bridge.Publish(ctx, Message{Topic: "traced", Payload: []byte("{}")}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("traced handler was not invoked")
	}
}

type greeting struct {
	Name string `json:"name"`
	Note string `json:"note,omitempty"`
}

var greetingEvent = NewEvent[greeting]("testmod.greeting", "test greeting")

func TestTypedEvent_RoundTrip(t *testing.T) {
	bridge := NewWatermillBridge()
	defer bridge.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan greeting, 1)
	require.NoError(t, Subscribe(ctx, bridge, greetingEvent, func(ctx context.Context, g greeting) error {
		got <- g
		return nil
	}))
	require.NoError(t, Publish(ctx, bridge, greetingEvent, "user:1", greeting{Name: "ada"}))

	select {
	case g := <-got:
		assert.Equal(t, "ada", g.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("typed event was not delivered")
	}
}

func TestTypedEvent_RegistersMetadata(t *testing.T) {
	assert.Equal(t, "testmod.greeting", greetingEvent.Name())
	md := greetingEvent.topic.Metadata()
	assert.Equal(t, []string{"name", "note"}, md["payload_fields"])
	assert.Equal(t, "greeting", md["type_name"])
	assert.Equal(t, "testmod", greetingEvent.topic.Module())
}
