package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/purgo-board/apiserver/types"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so repositories can run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repositories groups the repositories bound to one DBTX.
type Repositories struct {
	Users          *UserRepository
	Posts          *PostRepository
	Comments       *CommentRepository
	Standing       *StandingRepository
	ModerationLogs *ModerationLogRepository
}

func newRepositories(db DBTX) Repositories {
	return Repositories{
		Users:          NewUserRepository(db),
		Posts:          NewPostRepository(db),
		Comments:       NewCommentRepository(db),
		Standing:       NewStandingRepository(db),
		ModerationLogs: NewModerationLogRepository(db),
	}
}

// Store owns the connection pool and runs multi-table writes in one transaction.
type Store struct {
	Repositories
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{Repositories: newRepositories(db), db: db}
}

// WithTx runs fn inside a transaction, committing when fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(repos Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(newRepositories(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// CreateAccount inserts a user together with its penalty counter and
// limit window.
func (s *Store) CreateAccount(ctx context.Context, user types.User) (types.User, error) {
	var created types.User
	err := s.WithTx(ctx, func(repos Repositories) error {
		var err error
		created, err = repos.Users.Create(ctx, user)
		if err != nil {
			return err
		}
		return repos.Standing.CreateDefaults(ctx, created.ID, created.CreatedAt)
	})
	if err != nil {
		return types.User{}, err
	}
	return created, nil
}

// CommitPost saves the moderated post and records every violation, each
// incrementing the author's penalty counter, in one transaction.
func (s *Store) CommitPost(ctx context.Context, post types.Post, violations []types.ModerationLogEntry) (types.Post, error) {
	var saved types.Post
	err := s.WithTx(ctx, func(repos Repositories) error {
		var err error
		saved, err = repos.Posts.Update(ctx, post)
		if err != nil {
			return err
		}
		return recordViolations(ctx, repos, violations, nil)
	})
	if err != nil {
		return types.Post{}, err
	}
	return saved, nil
}

// CommitComment creates or updates the moderated comment and records its
// violations in one transaction. Violations reference the saved comment.
func (s *Store) CommitComment(ctx context.Context, comment types.Comment, violations []types.ModerationLogEntry) (types.Comment, error) {
	var saved types.Comment
	err := s.WithTx(ctx, func(repos Repositories) error {
		var err error
		if comment.ID == 0 {
			saved, err = repos.Comments.Create(ctx, comment)
		} else {
			saved, err = repos.Comments.Update(ctx, comment)
		}
		if err != nil {
			return err
		}
		return recordViolations(ctx, repos, violations, &saved.ID)
	})
	if err != nil {
		return types.Comment{}, err
	}
	return saved, nil
}

func recordViolations(ctx context.Context, repos Repositories, violations []types.ModerationLogEntry, commentID *int) error {
	for _, entry := range violations {
		if commentID != nil {
			entry.CommentID = commentID
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now()
		}
		if _, err := repos.ModerationLogs.Create(ctx, entry); err != nil {
			return err
		}
		if _, err := repos.Standing.IncrementPenalty(ctx, entry.UserID, entry.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}
