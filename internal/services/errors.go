package services

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrForbidden is returned when the caller does not own the resource.
	ErrForbidden = errors.New("not the resource owner")

	// ErrLimitExceeded is matched by *RestrictionError.
	ErrLimitExceeded = errors.New("posting is restricted")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLoginIDTaken       = errors.New("login id already exists")
	ErrEmailTaken         = errors.New("email already exists")
	ErrUsernameTaken      = errors.New("username already exists")

	// ErrCommentNotOnPost is returned when a comment id is addressed through
	// a post it does not belong to.
	ErrCommentNotOnPost = errors.New("comment does not belong to post")
)

// RestrictionError reports an active limit window.
type RestrictionError struct {
	Until time.Time
}

func (e *RestrictionError) Error() string {
	return fmt.Sprintf("posting is restricted until %s", e.Until.Format(time.RFC3339))
}

func (e *RestrictionError) Is(target error) bool {
	return target == ErrLimitExceeded
}

// ValidationError reports malformed input. Message is safe to return to clients.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}
