package types

import "time"

// Comment is a reply attached to a post.
type Comment struct {
	ID        int       `json:"comment_id" db:"id"`
	PostID    int       `json:"post_id" db:"post_id"`
	UserID    int       `json:"user_id" db:"user_id"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Author fields are filled by joined reads and ignored on writes.
	AuthorLoginID  string `json:"author_login_id" db:"-"`
	AuthorUsername string `json:"author_username" db:"-"`
}
