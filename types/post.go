package types

import "time"

// Post is a bulletin-board article owned by exactly one user.
// Title and Content may be rewritten by moderation after creation.
type Post struct {
	// ID is the unique identifier of the post.
	ID int `json:"post_id" db:"id"`

	// UserID identifies the owning user.
	UserID int `json:"user_id" db:"user_id"`

	// Title is the headline of the post.
	Title string `json:"title" db:"title"`

	// Content is the body of the post.
	Content string `json:"content" db:"content"`

	// ViewCount is the number of times the post detail was viewed.
	ViewCount int `json:"view_count" db:"view_count"`

	// CreatedAt is the timestamp when the post was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent edit.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PostDetail is the single response shape for posts. List views leave
// PenaltyCount and LimitEndDate unset; create and update fill them so the
// client can display the author's restriction state.
type PostDetail struct {
	Post

	// AuthorLoginID is the login name of the owning user.
	AuthorLoginID string `json:"author_login_id"`

	// AuthorUsername is the display name of the owning user.
	AuthorUsername string `json:"author_username"`

	// CommentCount is the number of comments on the post.
	CommentCount int `json:"comment_count"`

	// PenaltyCount is the author's current penalty counter value.
	PenaltyCount *int `json:"penalty_count,omitempty"`

	// LimitEndDate is the end of the author's restriction window, if any.
	LimitEndDate *time.Time `json:"limit_end_date,omitempty"`
}
