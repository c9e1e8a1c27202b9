package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/purgo-board/apiserver/types"
)

// CommentRepository defines persistence operations for comments.
type CommentRepository interface {
	ListByPost(ctx context.Context, postID int) ([]types.Comment, error)
	Get(ctx context.Context, id int) (types.Comment, error)
	Delete(ctx context.Context, id int) error
}

// CommentCommitter persists a moderated comment together with its violations.
type CommentCommitter interface {
	CommitComment(ctx context.Context, comment types.Comment, violations []types.ModerationLogEntry) (types.Comment, error)
}

// PostGetter loads a single post.
type PostGetter interface {
	Get(ctx context.Context, id int) (types.Post, error)
}

// CommentService moderates comments the same way posts are moderated.
type CommentService struct {
	comments  CommentRepository
	committer CommentCommitter
	posts     PostGetter
	users     UserLookup
	standing  *StandingService
	filter    TextFilter
	events    eventPublisher
	now       func() time.Time
}

func NewCommentService(
	comments CommentRepository,
	committer CommentCommitter,
	posts PostGetter,
	users UserLookup,
	standing *StandingService,
	filter TextFilter,
	publisher Publisher,
	logger *slog.Logger,
) *CommentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommentService{
		comments:  comments,
		committer: committer,
		posts:     posts,
		users:     users,
		standing:  standing,
		filter:    filter,
		events:    eventPublisher{publisher: publisher, logger: logger},
		now:       time.Now,
	}
}

// List returns the comments of a post, oldest first.
func (s *CommentService) List(ctx context.Context, postID int) ([]types.Comment, error) {
	if _, err := s.posts.Get(ctx, postID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []types.Comment{}
	}
	return comments, nil
}

func (s *CommentService) Create(ctx context.Context, userID, postID int, content string) (types.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return types.Comment{}, invalid("content is required")
	}
	if _, err := s.posts.Get(ctx, postID); err != nil {
		return types.Comment{}, err
	}
	author, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.Comment{}, err
	}
	if err := s.standing.CheckLimit(ctx, author.ID); err != nil {
		return types.Comment{}, err
	}
	return s.moderateAndCommit(ctx, author, types.Comment{PostID: postID, UserID: author.ID}, content)
}

func (s *CommentService) Update(ctx context.Context, userID, postID, commentID int, content string) (types.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return types.Comment{}, invalid("content is required")
	}
	comment, err := s.owned(ctx, userID, postID, commentID)
	if err != nil {
		return types.Comment{}, err
	}
	if err := s.standing.CheckLimit(ctx, userID); err != nil {
		return types.Comment{}, err
	}
	author, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.Comment{}, err
	}
	return s.moderateAndCommit(ctx, author, comment, content)
}

func (s *CommentService) Delete(ctx context.Context, userID, postID, commentID int) error {
	if _, err := s.owned(ctx, userID, postID, commentID); err != nil {
		return err
	}
	return s.comments.Delete(ctx, commentID)
}

func (s *CommentService) owned(ctx context.Context, userID, postID, commentID int) (types.Comment, error) {
	comment, err := s.comments.Get(ctx, commentID)
	if err != nil {
		return types.Comment{}, err
	}
	if comment.PostID != postID {
		return types.Comment{}, ErrCommentNotOnPost
	}
	if comment.UserID != userID {
		return types.Comment{}, ErrForbidden
	}
	return comment, nil
}

func (s *CommentService) moderateAndCommit(ctx context.Context, author types.User, comment types.Comment, content string) (types.Comment, error) {
	result := s.filter.Filter(ctx, content)
	comment.Content = result.Text
	flagged := violations(author.ID, comment.PostID, s.now(), result)

	saved, err := s.committer.CommitComment(ctx, comment, flagged)
	if err != nil {
		return types.Comment{}, err
	}
	saved.AuthorLoginID = author.LoginID
	saved.AuthorUsername = author.Username

	if len(flagged) > 0 {
		penalty, err := s.standing.PenaltyCount(ctx, author.ID)
		if err != nil {
			s.events.logger.Warn("load penalty count failed", "user_id", author.ID, "error", err)
		}
		commentID := saved.ID
		s.events.publish(ctx, ChannelContentFlagged, ContentFlaggedEvent{
			UserID:       author.ID,
			Username:     author.Username,
			Email:        author.Email,
			PostID:       saved.PostID,
			CommentID:    &commentID,
			Violations:   len(flagged),
			PenaltyCount: penalty,
			FlaggedAt:    flagged[0].CreatedAt,
		})
	}
	return saved, nil
}
