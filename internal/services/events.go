package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

const (
	ChannelUserSignup     = "user.signup"
	ChannelContentFlagged = "content.flagged"
)

// Publisher sends an event payload to a named channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// SignupEvent is published after an account is created.
type SignupEvent struct {
	UserID    int       `json:"user_id"`
	LoginID   string    `json:"login_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// ContentFlaggedEvent is published after flagged text has been committed.
type ContentFlaggedEvent struct {
	UserID       int       `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PostID       int       `json:"post_id"`
	CommentID    *int      `json:"comment_id,omitempty"`
	Violations   int       `json:"violations"`
	PenaltyCount int       `json:"penalty_count"`
	FlaggedAt    time.Time `json:"flagged_at"`
}

// eventPublisher publishes best-effort; failures are logged, never returned.
type eventPublisher struct {
	publisher Publisher
	logger    *slog.Logger
}

func (e eventPublisher) publish(ctx context.Context, channel string, payload any) {
	if e.publisher == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		e.logger.Error("encode event failed", "channel", channel, "error", err)
		return
	}
	attrs := map[string]string{"content_type": "application/json"}
	if _, err := e.publisher.Publish(ctx, channel, data, attrs); err != nil {
		e.logger.Warn("publish event failed", "channel", channel, "error", err)
	}
}
