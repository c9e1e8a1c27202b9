package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/purgo-board/apiserver/internal/mail"
	"github.com/purgo-board/apiserver/internal/mq"
	"github.com/purgo-board/apiserver/internal/services"
	"golang.org/x/sync/errgroup"
)

// Subscriber consumes a channel until ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler mq.Handler) error
}

// Sender delivers one mail.
type Sender interface {
	Send(ctx context.Context, msg mail.Message) error
}

// Worker turns domain events into notification mails.
type Worker struct {
	subscriber Subscriber
	sender     Sender
	logger     *slog.Logger
}

func New(subscriber Subscriber, sender Sender, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{subscriber: subscriber, sender: sender, logger: logger}
}

// Run consumes every channel concurrently and returns when ctx is done or
// any subscription fails.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for channel, handler := range w.handlers() {
		g.Go(func() error {
			w.logger.Info("subscribing", "channel", channel)
			if err := w.subscriber.Subscribe(ctx, channel, handler); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("subscribe %s: %w", channel, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (w *Worker) handlers() map[string]mq.Handler {
	return map[string]mq.Handler{
		services.ChannelUserSignup:     w.handleSignup,
		services.ChannelContentFlagged: w.handleFlagged,
	}
}

func (w *Worker) handleSignup(ctx context.Context, msg mq.Message) error {
	var event services.SignupEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		w.logger.Error("drop malformed signup event", "message_id", msg.ID, "error", err)
		return nil
	}
	return w.send(ctx, msg, mail.Message{
		To:       event.Email,
		ToName:   event.Username,
		Subject:  "Welcome to Purgo Board!",
		Body:     fmt.Sprintf("Hi %s, welcome aboard. Your account %q is ready.", event.Username, event.LoginID),
		Category: "welcome",
	})
}

func (w *Worker) handleFlagged(ctx context.Context, msg mq.Message) error {
	var event services.ContentFlaggedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		w.logger.Error("drop malformed content flagged event", "message_id", msg.ID, "error", err)
		return nil
	}
	where := fmt.Sprintf("post #%d", event.PostID)
	if event.CommentID != nil {
		where = fmt.Sprintf("a comment on post #%d", event.PostID)
	}
	return w.send(ctx, msg, mail.Message{
		To:      event.Email,
		ToName:  event.Username,
		Subject: "Your content was moderated",
		Body: fmt.Sprintf(
			"Hi %s,\n\n%d part(s) of %s were filtered by moderation on %s.\nYour penalty count is now %d.\n",
			event.Username,
			event.Violations,
			where,
			event.FlaggedAt.Format("2006-01-02"),
			event.PenaltyCount,
		),
		Category: "moderation",
	})
}

// send returns an error only for failures worth redelivering.
func (w *Worker) send(ctx context.Context, msg mq.Message, mailMsg mail.Message) error {
	err := w.sender.Send(ctx, mailMsg)
	switch {
	case err == nil:
		w.logger.Info("mail sent", "channel", msg.Channel, "message_id", msg.ID, "category", mailMsg.Category)
		return nil
	case errors.Is(err, mail.ErrNotConfigured):
		w.logger.Warn("mailer not configured, dropping mail", "channel", msg.Channel, "message_id", msg.ID)
		return nil
	default:
		w.logger.Error("mail send failed", "channel", msg.Channel, "message_id", msg.ID, "error", err)
		return err
	}
}
