package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const sendTimeout = 10 * time.Second

// ReplySink sends text back to chats. Sends are best effort: a failure is
// logged and dropped, never retried or returned.
type ReplySink struct {
	messenger Messenger
	logger    *slog.Logger
}

// NewReplySink creates a ReplySink over messenger.
func NewReplySink(messenger Messenger, logger *slog.Logger) *ReplySink {
	return &ReplySink{messenger: messenger, logger: logger}
}

// Send delivers text to chatID.
func (r *ReplySink) Send(ctx context.Context, chatID int64, text string) {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	randomID := newRandomID()
	if err := r.messenger.SendMessage(ctx, chatID, text, randomID); err != nil {
		r.logger.Error("failed to send reply", "chat_id", chatID, "random_id", randomID, "error", err)
	}
}

// newRandomID derives a non-negative int32 correlation id from a UUID.
func newRandomID() int32 {
	return int32(uuid.New().ID() >> 1)
}
