package notify

import (
	"context"
	"log/slog"

	"github.com/krisalay/qrstore/types"
)

// LogSink writes one structured line per update. Used when no broker is configured.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Publish(ctx context.Context, u types.Update) error {
	s.Logger.InfoContext(ctx, "qr updated",
		"event_id", u.EventID,
		"id", u.ID,
		"bytes", len(u.Data),
		"expire_at", u.ExpireAt,
	)
	return nil
}
