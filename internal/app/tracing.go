package app

import (
	"context"

	"github.com/nfrund/parley/internal/pubsub"
	"github.com/samber/do/v2"
	"go.opentelemetry.io/otel/trace"
)

// Tracing owns the tracer used by the bus.
type Tracing struct {
	Tracer trace.Tracer
	flush  func(context.Context) error
}

// Shutdown exports any spans still buffered.
func (t *Tracing) Shutdown(ctx context.Context) error {
	return t.flush(ctx)
}

func provideTracing(do.Injector) (*Tracing, error) {
	tracer, flush, err := pubsub.SetupOTel(context.Background(), pubsub.LoadTracingConfigFromEnv())
	if err != nil {
		return nil, err
	}
	return &Tracing{Tracer: tracer, flush: flush}, nil
}
