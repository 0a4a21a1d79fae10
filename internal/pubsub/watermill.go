package pubsub

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Reserved watermill metadata keys carrying Message fields.
const (
	headerUser  = "x-parley-user"
	headerTopic = "x-parley-topic"
)

// WatermillBridge is the Bus backed by watermill's in-memory GoChannel.
type WatermillBridge struct {
	channel *gochannel.GoChannel
	pub     message.Publisher
	tracer  trace.Tracer
	logger  *slog.Logger
}

type bridgeOptions struct {
	tracer trace.Tracer
	buffer int64
	logger *slog.Logger
}

// BridgeOption configures a WatermillBridge.
type BridgeOption func(*bridgeOptions)

// WithTracer records publishes and handler runs as spans on tracer.
func WithTracer(tracer trace.Tracer) BridgeOption {
	return func(o *bridgeOptions) { o.tracer = tracer }
}

// WithBufferSize sets how many messages each subscriber may have queued.
func WithBufferSize(n int64) BridgeOption {
	return func(o *bridgeOptions) { o.buffer = n }
}

// WithBusLogger replaces the logger used by the bridge and by watermill itself.
func WithBusLogger(logger *slog.Logger) BridgeOption {
	return func(o *bridgeOptions) { o.logger = logger }
}

// NewWatermillBridge creates an in-memory bus.
func NewWatermillBridge(opts ...BridgeOption) *WatermillBridge {
	o := bridgeOptions{
		tracer: noop.NewTracerProvider().Tracer(tracerName),
		buffer: 64,
		logger: slog.Default().With("component", "bus"),
	}
	for _, opt := range opts {
		opt(&o)
	}

	channel := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: o.buffer}, slogAdapter{o.logger})
	return &WatermillBridge{
		channel: channel,
		pub:     newTracingPublisher(channel, o.tracer),
		tracer:  o.tracer,
		logger:  o.logger,
	}
}

func toWatermill(msg Message) *message.Message {
	wm := message.NewMessage(watermill.NewUUID(), msg.Payload)
	for k, v := range msg.Metadata {
		wm.Metadata.Set(k, v)
	}
	wm.Metadata.Set(headerUser, msg.UserID)
	wm.Metadata.Set(headerTopic, msg.Topic)
	return wm
}

func fromWatermill(wm *message.Message) Message {
	msg := Message{
		Topic:    wm.Metadata.Get(headerTopic),
		UserID:   wm.Metadata.Get(headerUser),
		Payload:  wm.Payload,
		Metadata: make(map[string]string, len(wm.Metadata)),
	}
	for k, v := range wm.Metadata {
		if k == headerUser || k == headerTopic {
			continue
		}
		msg.Metadata[k] = v
	}
	return msg
}

// Publish sends msg to every subscriber of msg.Topic.
func (wb *WatermillBridge) Publish(ctx context.Context, msg Message) error {
	wm := toWatermill(msg)
	wm.SetContext(ctx)
	return wb.pub.Publish(msg.Topic, wm)
}

// Subscribe returns once the subscription is registered. Messages are handled
// one at a time on a background goroutine until ctx ends or the bridge closes.
func (wb *WatermillBridge) Subscribe(ctx context.Context, topic string, handler Handler) error {
	messages, err := wb.channel.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	handle := traceHandler(wb.tracer, topic, handler)
	go func() {
		for wm := range messages {
			if err := handle(ctx, fromWatermill(wm)); err != nil {
				wb.logger.Error("Bus handler failed", "topic", topic, "msg_id", wm.UUID, "error", err)
				// GoChannel has no redelivery; the nack just releases the subscriber.
				wm.Nack()
				continue
			}
			wm.Ack()
		}
		wb.logger.Debug("Subscription closed", "topic", topic)
	}()
	return nil
}

// Close stops delivery to all subscribers.
func (wb *WatermillBridge) Close() error {
	return wb.channel.Close()
}

// Shutdown closes the bridge when the application container stops.
func (wb *WatermillBridge) Shutdown() error {
	return wb.Close()
}

// slogAdapter routes watermill's internal logging into slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.logger.Error(msg, append(attrs(fields), "error", err)...)
}

func (a slogAdapter) Info(msg string, fields watermill.LogFields) {
	a.logger.Info(msg, attrs(fields)...)
}

func (a slogAdapter) Debug(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, attrs(fields)...)
}

// Trace is very chatty in GoChannel, so it is folded into debug.
func (a slogAdapter) Trace(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, attrs(fields)...)
}

func (a slogAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return slogAdapter{a.logger.With(attrs(fields)...)}
}

func attrs(fields watermill.LogFields) []any {
	out := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}
