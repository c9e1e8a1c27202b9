package store

import (
	"context"

	"github.com/purgo-board/apiserver/types"
)

// ModerationLogRepository appends moderation log entries. Entries are
// never updated; deletion happens only through the post cascade.
type ModerationLogRepository struct {
	db DBTX
}

func NewModerationLogRepository(db DBTX) *ModerationLogRepository {
	return &ModerationLogRepository{db: db}
}

func (r *ModerationLogRepository) Create(ctx context.Context, entry types.ModerationLogEntry) (types.ModerationLogEntry, error) {
	const query = `
		INSERT INTO moderation_logs (user_id, post_id, comment_id, original_text, filtered_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		entry.UserID,
		entry.PostID,
		entry.CommentID,
		entry.OriginalText,
		entry.FilteredText,
		entry.CreatedAt,
	).Scan(&entry.ID); err != nil {
		return types.ModerationLogEntry{}, err
	}
	return entry, nil
}

func (r *ModerationLogRepository) ListByUser(ctx context.Context, userID int) ([]types.ModerationLogEntry, error) {
	const query = `
		SELECT id, user_id, post_id, comment_id, original_text, filtered_text, created_at
		FROM moderation_logs
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]types.ModerationLogEntry, 0)
	for rows.Next() {
		var entry types.ModerationLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.PostID,
			&entry.CommentID,
			&entry.OriginalText,
			&entry.FilteredText,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
