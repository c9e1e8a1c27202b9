package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/purgo-board/apiserver/internal/moderation"
	"github.com/purgo-board/apiserver/types"
)

const maxTitleLength = 200

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	Get(ctx context.Context, id int) (types.Post, error)
	GetDetail(ctx context.Context, id int) (types.PostDetail, error)
	Create(ctx context.Context, post types.Post) (types.Post, error)
	IncrementViews(ctx context.Context, id int) error
	Delete(ctx context.Context, id int) error
	List(ctx context.Context, offset, limit int) ([]types.PostDetail, int, error)
	Search(ctx context.Context, keyword string, offset, limit int) ([]types.PostDetail, int, error)
	ListByUser(ctx context.Context, userID, offset, limit int) ([]types.PostDetail, int, error)
}

// PostCommitter persists a moderated post together with its violations.
type PostCommitter interface {
	CommitPost(ctx context.Context, post types.Post, violations []types.ModerationLogEntry) (types.Post, error)
}

// TextFilter moderates one text field. Implementations never fail.
type TextFilter interface {
	Filter(ctx context.Context, text string) moderation.Result
}

// UserLookup resolves users by id or login id.
type UserLookup interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByLoginID(ctx context.Context, loginID string) (types.User, error)
}

// PostInput carries the user-editable fields of a post.
type PostInput struct {
	Title   string
	Content string
}

// Page is one slice of a listing.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// PostService runs the moderated post workflow.
type PostService struct {
	posts     PostRepository
	committer PostCommitter
	users     UserLookup
	standing  *StandingService
	filter    TextFilter
	events    eventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewPostService(
	posts PostRepository,
	committer PostCommitter,
	users UserLookup,
	standing *StandingService,
	filter TextFilter,
	publisher Publisher,
	logger *slog.Logger,
) *PostService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostService{
		posts:     posts,
		committer: committer,
		users:     users,
		standing:  standing,
		filter:    filter,
		events:    eventPublisher{publisher: publisher, logger: logger},
		logger:    logger,
		now:       time.Now,
	}
}

// Create saves the post unfiltered first so violations can reference it,
// then overwrites it with the moderated text. The provisional row is kept
// even if a later step fails.
func (s *PostService) Create(ctx context.Context, userID int, input PostInput) (types.PostDetail, error) {
	input, err := normalizePostInput(input)
	if err != nil {
		return types.PostDetail{}, err
	}

	author, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.PostDetail{}, err
	}
	if err := s.standing.CheckLimit(ctx, author.ID); err != nil {
		return types.PostDetail{}, err
	}

	post, err := s.posts.Create(ctx, types.Post{
		UserID:  author.ID,
		Title:   input.Title,
		Content: input.Content,
	})
	if err != nil {
		return types.PostDetail{}, err
	}

	return s.moderateAndCommit(ctx, author, post, input)
}

// Update replaces title and content of a post owned by userID.
func (s *PostService) Update(ctx context.Context, userID, postID int, input PostInput) (types.PostDetail, error) {
	input, err := normalizePostInput(input)
	if err != nil {
		return types.PostDetail{}, err
	}

	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return types.PostDetail{}, err
	}
	if post.UserID != userID {
		return types.PostDetail{}, ErrForbidden
	}
	if err := s.standing.CheckLimit(ctx, userID); err != nil {
		return types.PostDetail{}, err
	}

	author, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.PostDetail{}, err
	}
	return s.moderateAndCommit(ctx, author, post, input)
}

func (s *PostService) moderateAndCommit(ctx context.Context, author types.User, post types.Post, input PostInput) (types.PostDetail, error) {
	title := s.filter.Filter(ctx, input.Title)
	content := s.filter.Filter(ctx, input.Content)

	post.Title = title.Text
	post.Content = content.Text
	flagged := violations(author.ID, post.ID, s.now(), title, content)

	saved, err := s.committer.CommitPost(ctx, post, flagged)
	if err != nil {
		return types.PostDetail{}, err
	}

	detail, err := s.respond(ctx, saved.ID)
	if err != nil {
		return types.PostDetail{}, err
	}
	if len(flagged) > 0 {
		s.events.publish(ctx, ChannelContentFlagged, ContentFlaggedEvent{
			UserID:       author.ID,
			Username:     author.Username,
			Email:        author.Email,
			PostID:       saved.ID,
			Violations:   len(flagged),
			PenaltyCount: derefInt(detail.PenaltyCount),
			FlaggedAt:    flagged[0].CreatedAt,
		})
	}
	return detail, nil
}

// respond assembles the post with its author's current standing.
func (s *PostService) respond(ctx context.Context, postID int) (types.PostDetail, error) {
	detail, err := s.posts.GetDetail(ctx, postID)
	if err != nil {
		return types.PostDetail{}, err
	}
	penalty, err := s.standing.PenaltyCount(ctx, detail.UserID)
	if err != nil {
		return types.PostDetail{}, err
	}
	limit, err := s.standing.Limit(ctx, detail.UserID)
	if err != nil {
		return types.PostDetail{}, err
	}
	detail.PenaltyCount = &penalty
	detail.LimitEndDate = limit.EndDate
	return detail, nil
}

// Get returns a post, counting a view when increaseView is set.
func (s *PostService) Get(ctx context.Context, postID int, increaseView bool) (types.PostDetail, error) {
	if increaseView {
		if err := s.posts.IncrementViews(ctx, postID); err != nil {
			return types.PostDetail{}, err
		}
	}
	return s.posts.GetDetail(ctx, postID)
}

func (s *PostService) List(ctx context.Context, page, limit int) (Page[types.PostDetail], error) {
	page, limit = normalizePage(page, limit)
	items, total, err := s.posts.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return Page[types.PostDetail]{}, err
	}
	return newPage(items, total, page, limit), nil
}

func (s *PostService) Search(ctx context.Context, keyword string, page, limit int) (Page[types.PostDetail], error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return Page[types.PostDetail]{}, invalid("keyword is required")
	}
	page, limit = normalizePage(page, limit)
	items, total, err := s.posts.Search(ctx, keyword, (page-1)*limit, limit)
	if err != nil {
		return Page[types.PostDetail]{}, err
	}
	return newPage(items, total, page, limit), nil
}

// ListByLoginID lists the posts written by the user with loginID.
func (s *PostService) ListByLoginID(ctx context.Context, loginID string, page, limit int) (Page[types.PostDetail], error) {
	user, err := s.users.GetByLoginID(ctx, strings.TrimSpace(loginID))
	if err != nil {
		return Page[types.PostDetail]{}, err
	}
	return s.ListMine(ctx, user.ID, page, limit)
}

func (s *PostService) ListMine(ctx context.Context, userID, page, limit int) (Page[types.PostDetail], error) {
	page, limit = normalizePage(page, limit)
	items, total, err := s.posts.ListByUser(ctx, userID, (page-1)*limit, limit)
	if err != nil {
		return Page[types.PostDetail]{}, err
	}
	return newPage(items, total, page, limit), nil
}

// Delete removes a post owned by userID. Comments and moderation logs go
// with it.
func (s *PostService) Delete(ctx context.Context, userID, postID int) error {
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return ErrForbidden
	}
	return s.posts.Delete(ctx, postID)
}

func normalizePostInput(input PostInput) (PostInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return PostInput{}, invalid("title is required")
	}
	if len([]rune(input.Title)) > maxTitleLength {
		return PostInput{}, invalid("title is too long")
	}
	if strings.TrimSpace(input.Content) == "" {
		return PostInput{}, invalid("content is required")
	}
	return input, nil
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func newPage[T any](items []T, total, page, limit int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, Page: page, Limit: limit}
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
