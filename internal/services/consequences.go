package services

import (
	"time"

	"github.com/purgo-board/apiserver/internal/moderation"
	"github.com/purgo-board/apiserver/types"
)

// violations turns the flagged filter results of one submission into log
// entries. Each entry costs the author one penalty point when committed.
func violations(userID, postID int, at time.Time, results ...moderation.Result) []types.ModerationLogEntry {
	var entries []types.ModerationLogEntry
	for _, result := range results {
		if !result.Flagged {
			continue
		}
		entries = append(entries, types.ModerationLogEntry{
			UserID:       userID,
			PostID:       postID,
			OriginalText: result.Original,
			FilteredText: result.Text,
			CreatedAt:    at,
		})
	}
	return entries
}
