package database

import (
	"context"
	"log/slog"
	"time"

	"github.com/nfrund/parley/internal/config"
)

// schema holds the indexes the stores rely on. Tables stay schemaless.
var schema = []string{
	"DEFINE INDEX IF NOT EXISTS user_email ON TABLE user FIELDS email UNIQUE",
	"DEFINE INDEX IF NOT EXISTS user_reset_token ON TABLE user FIELDS resetPasswordToken",
	"DEFINE INDEX IF NOT EXISTS chat_users ON TABLE chat FIELDS users",
	"DEFINE INDEX IF NOT EXISTS chat_name ON TABLE chat FIELDS chatName",
	"DEFINE INDEX IF NOT EXISTS message_chat ON TABLE message FIELDS chatId",
	"DEFINE INDEX IF NOT EXISTS blacklist_token_hash ON TABLE blacklist_token FIELDS tokenHash UNIQUE",
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db Runner, cfg config.Provider, opts ...ClientOption[any]) error {
	c, err := NewClient[any](db, cfg, opts...)
	if err != nil {
		return err
	}
	for _, stmt := range schema {
		if err := c.Execute(ctx, stmt, nil); err != nil {
			return WrapError(err, "failed to apply schema")
		}
	}
	slog.InfoContext(ctx, "Database schema applied", "statements", len(schema))
	return nil
}

// datetime renders t for a type::datetime() parameter.
func datetime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
