package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/purgo-board/apiserver/internal/store"
	"github.com/purgo-board/apiserver/types"
)

// MaxProfileImageSize bounds uploaded profile images.
const MaxProfileImageSize = 5 << 20

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id int) error
}

// ModerationLogReader lists a user's moderation history.
type ModerationLogReader interface {
	ListByUser(ctx context.Context, userID int) ([]types.ModerationLogEntry, error)
}

// ImageStore uploads objects and maps keys to public URLs and back.
type ImageStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
	KeyFromURL(url string) (string, bool)
}

// ProfileUpdate carries optional profile changes. Nil fields are kept.
type ProfileUpdate struct {
	Username     *string
	ProfileImage *string
}

// ImageUpload is an uploaded profile image.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UserLimits is the client view of a user's limit window.
type UserLimits struct {
	types.LimitWindow
	Restricted bool `json:"restricted"`
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo     UserRepository
	logs     ModerationLogReader
	standing *StandingService
	images   ImageStore
	logger   *slog.Logger
}

func NewUserService(repo UserRepository, logs ModerationLogReader, standing *StandingService, images ImageStore, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{repo: repo, logs: logs, standing: standing, images: images, logger: logger}
}

func (s *UserService) GetProfile(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) UpdateProfile(ctx context.Context, id int, update ProfileUpdate) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	if update.Username != nil {
		username := strings.TrimSpace(*update.Username)
		if username == "" {
			return types.User{}, invalid("username must not be empty")
		}
		if username != user.Username {
			if _, err := s.repo.GetByUsername(ctx, username); err == nil {
				return types.User{}, ErrUsernameTaken
			} else if !isNotFound(err) {
				return types.User{}, err
			}
			user.Username = username
		}
	}
	if update.ProfileImage != nil {
		user.ProfileImage = strings.TrimSpace(*update.ProfileImage)
	}
	return s.repo.Update(ctx, user)
}

// UploadProfileImage stores the image under profiles/<id>/ and points the
// user's profile image at it.
func (s *UserService) UploadProfileImage(ctx context.Context, id int, upload ImageUpload) (types.User, error) {
	if s.images == nil {
		return types.User{}, fmt.Errorf("image storage is not configured")
	}
	if !strings.HasPrefix(upload.ContentType, "image/") {
		return types.User{}, invalid("file must be an image")
	}
	if upload.Size <= 0 || upload.Size > MaxProfileImageSize {
		return types.User{}, invalid(fmt.Sprintf("image must be between 1 byte and %d bytes", MaxProfileImageSize))
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	key := fmt.Sprintf("profiles/%d/%s%s", user.ID, uuid.NewString(), strings.ToLower(path.Ext(upload.Filename)))
	if err := s.images.Put(ctx, key, upload.Body, upload.Size, upload.ContentType); err != nil {
		return types.User{}, fmt.Errorf("upload profile image: %w", err)
	}

	previous := user.ProfileImage
	user.ProfileImage = s.images.URL(key)
	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return types.User{}, err
	}

	if oldKey, ok := s.images.KeyFromURL(previous); ok {
		if err := s.images.Delete(ctx, oldKey); err != nil {
			s.logger.Warn("delete previous profile image failed", "key", oldKey, "error", err)
		}
	}
	return updated, nil
}

func (s *UserService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

func (s *UserService) PenaltyCount(ctx context.Context, id int) (int, error) {
	return s.standing.PenaltyCount(ctx, id)
}

func (s *UserService) Limits(ctx context.Context, id int) (UserLimits, error) {
	limit, err := s.standing.Limit(ctx, id)
	if err != nil {
		return UserLimits{}, err
	}
	return UserLimits{LimitWindow: limit, Restricted: limit.Restricts(s.standing.now())}, nil
}

func (s *UserService) ModerationLogs(ctx context.Context, id int) ([]types.ModerationLogEntry, error) {
	entries, err := s.logs.ListByUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []types.ModerationLogEntry{}
	}
	return entries, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
