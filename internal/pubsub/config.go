package pubsub

import (
	"log/slog"

	"github.com/kelseyhightower/envconfig"
)

// LoadTracingConfigFromEnv loads tracing configuration from PUBSUB_TRACING_*
// environment variables, falling back to DefaultTracingConfig.
func LoadTracingConfigFromEnv() TracingConfig {
	cfg := DefaultTracingConfig()
	if err := envconfig.Process("PUBSUB_TRACING", &cfg); err != nil {
		slog.Warn("Invalid pubsub tracing configuration, tracing disabled", "error", err)
		return DefaultTracingConfig()
	}
	return cfg
}
