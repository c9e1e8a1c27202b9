package moderation

import (
	"context"
	"log/slog"
)

// Checker obtains a verdict for a piece of text.
type Checker interface {
	Check(ctx context.Context, text string) (Verdict, error)
}

// Result is the outcome of filtering one text field.
type Result struct {
	Original string
	Text     string
	Flagged  bool
}

// Resolve maps a verdict onto the text that should be stored.
func Resolve(original string, verdict Verdict) Result {
	if verdict.Decision != Flagged {
		return Result{Original: original, Text: original}
	}
	text := original
	if verdict.HasRewrite {
		text = verdict.RewrittenText
	}
	return Result{Original: original, Text: text, Flagged: true}
}

// Filter applies the fail-open moderation policy: when the checker fails
// the text passes through unchanged and unflagged.
type Filter struct {
	checker Checker
	logger  *slog.Logger
}

// NewFilter constructs a Filter. A nil checker disables moderation.
func NewFilter(checker Checker, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{checker: checker, logger: logger}
}

// Filter moderates text and never fails; a nil Filter passes text through.
func (f *Filter) Filter(ctx context.Context, text string) Result {
	if f == nil || f.checker == nil {
		return Result{Original: text, Text: text}
	}

	verdict, err := f.checker.Check(ctx, text)
	if err != nil {
		f.logger.Warn("moderation unavailable, passing text through", "error", err)
		return Result{Original: text, Text: text}
	}

	result := Resolve(text, verdict)
	if result.Flagged {
		f.logger.Info("text flagged by moderation", "rewritten", verdict.HasRewrite)
	}
	return result
}
