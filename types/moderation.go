package types

import "time"

// PenaltyCounter counts how many times a user submitted flagged content.
// One row exists per user from signup onwards.
type PenaltyCounter struct {
	// UserID identifies the owning user.
	UserID int `json:"user_id" db:"user_id"`

	// Count is the number of flagged submissions, never negative.
	Count int `json:"penalty_count" db:"penalty_count"`

	// LastUpdate is the date of the most recent increment.
	LastUpdate time.Time `json:"last_update" db:"last_update"`
}

// LimitWindow is a temporary posting restriction. One row exists per user
// from signup onwards; the restriction applies only while IsActive is set
// and the current time falls inside [StartDate, EndDate].
type LimitWindow struct {
	// UserID identifies the owning user.
	UserID int `json:"user_id" db:"user_id"`

	// IsActive enables the window bounds.
	IsActive bool `json:"is_active" db:"is_active"`

	// StartDate is the inclusive start of the restriction.
	StartDate *time.Time `json:"start_date" db:"start_date"`

	// EndDate is the inclusive end of the restriction.
	EndDate *time.Time `json:"end_date" db:"end_date"`
}

// Restricts reports whether the window blocks posting at now.
// A window missing either bound never restricts.
func (w LimitWindow) Restricts(now time.Time) bool {
	if !w.IsActive || w.StartDate == nil || w.EndDate == nil {
		return false
	}
	return !now.Before(*w.StartDate) && !now.After(*w.EndDate)
}

// ModerationLogEntry records one flagged text submission. Entries are
// append-only and removed only by cascade when their post is deleted.
type ModerationLogEntry struct {
	// ID is the unique identifier of the entry.
	ID int `json:"id" db:"id"`

	// UserID identifies the author of the flagged text.
	UserID int `json:"user_id" db:"user_id"`

	// PostID identifies the post the text belongs to.
	PostID int `json:"post_id" db:"post_id"`

	// CommentID is set when the flagged text was a comment.
	CommentID *int `json:"comment_id,omitempty" db:"comment_id"`

	// OriginalText is the text as submitted.
	OriginalText string `json:"original_text" db:"original_text"`

	// FilteredText is the text stored after moderation.
	FilteredText string `json:"filtered_text" db:"filtered_text"`

	// CreatedAt is the timestamp when the entry was recorded.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
