package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/purgo-board/apiserver/internal/auth"
	"github.com/purgo-board/apiserver/internal/cache"
	"github.com/purgo-board/apiserver/internal/store"
	"github.com/purgo-board/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// AccountRepository defines the user lookups and writes used by auth flows.
type AccountRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByLoginID(ctx context.Context, loginID string) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
}

// AccountCreator creates a user with its penalty counter and limit window.
type AccountCreator interface {
	CreateAccount(ctx context.Context, user types.User) (types.User, error)
}

// TokenStore keeps refresh tokens and revoked access tokens.
type TokenStore interface {
	SaveRefreshToken(ctx context.Context, userID int, token string, ttl time.Duration) error
	RefreshToken(ctx context.Context, userID int) (string, error)
	DeleteRefreshToken(ctx context.Context, userID int) error
	Blacklist(ctx context.Context, tokenID string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, tokenID string) (bool, error)
}

// SignupInput carries the fields of a new account.
type SignupInput struct {
	LoginID      string
	Username     string
	Email        string
	Password     string
	ProfileImage string
}

// TokenPair is returned on login and refresh.
type TokenPair struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	TokenType    string     `json:"token_type"`
	ExpiresIn    int        `json:"expires_in"`
	User         types.User `json:"user"`
}

// AuthService implements account and session use-cases.
type AuthService struct {
	users    AccountRepository
	accounts AccountCreator
	tokens   TokenStore
	manager  *auth.Manager
	events   eventPublisher
	logger   *slog.Logger
}

func NewAuthService(
	users AccountRepository,
	accounts AccountCreator,
	tokens TokenStore,
	manager *auth.Manager,
	publisher Publisher,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:    users,
		accounts: accounts,
		tokens:   tokens,
		manager:  manager,
		events:   eventPublisher{publisher: publisher, logger: logger},
		logger:   logger,
	}
}

func (s *AuthService) Signup(ctx context.Context, input SignupInput) (types.User, error) {
	input.LoginID = strings.TrimSpace(input.LoginID)
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if input.LoginID == "" || input.Username == "" || input.Email == "" || input.Password == "" {
		return types.User{}, invalid("missing required fields")
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return types.User{}, invalid("invalid email")
	}
	if len(input.Password) < minPasswordLength {
		return types.User{}, invalid(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	if err := s.ensureFree(ctx, s.users.GetByLoginID, input.LoginID, ErrLoginIDTaken); err != nil {
		return types.User{}, err
	}
	if err := s.ensureFree(ctx, s.users.GetByEmail, input.Email, ErrEmailTaken); err != nil {
		return types.User{}, err
	}
	if err := s.ensureFree(ctx, s.users.GetByUsername, input.Username, ErrUsernameTaken); err != nil {
		return types.User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.accounts.CreateAccount(ctx, types.User{
		LoginID:      input.LoginID,
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hashed),
		ProfileImage: strings.TrimSpace(input.ProfileImage),
	})
	if err != nil {
		return types.User{}, err
	}

	s.events.publish(ctx, ChannelUserSignup, SignupEvent{
		UserID:    user.ID,
		LoginID:   user.LoginID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	})
	return user, nil
}

func (s *AuthService) ensureFree(ctx context.Context, lookup func(context.Context, string) (types.User, error), value string, taken error) error {
	_, err := lookup(ctx, value)
	if err == nil {
		return taken
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

func (s *AuthService) Login(ctx context.Context, loginID, password string) (TokenPair, error) {
	user, err := s.users.GetByLoginID(ctx, strings.TrimSpace(loginID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}

	access, _, err := s.manager.Issue(user.ID, auth.Access)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, _, err := s.manager.Issue(user.ID, auth.Refresh)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	if err := s.tokens.SaveRefreshToken(ctx, user.ID, refresh, s.manager.RefreshTTL()); err != nil {
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}
	return s.pair(user, access, refresh), nil
}

// Refresh issues a new access token. The refresh token is kept.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.manager.Parse(strings.TrimSpace(refreshToken), auth.Refresh)
	if err != nil {
		return TokenPair{}, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return TokenPair{}, err
	}

	stored, err := s.tokens.RefreshToken(ctx, userID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return TokenPair{}, auth.ErrInvalidToken
		}
		return TokenPair{}, err
	}
	if stored != strings.TrimSpace(refreshToken) {
		return TokenPair{}, auth.ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return TokenPair{}, auth.ErrInvalidToken
		}
		return TokenPair{}, err
	}
	access, _, err := s.manager.Issue(user.ID, auth.Access)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	return s.pair(user, access, stored), nil
}

func (s *AuthService) pair(user types.User, access, refresh string) TokenPair {
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.manager.AccessTTL().Seconds()),
		User:         user,
	}
}

// Logout revokes the access token for the rest of its lifetime and drops
// the user's refresh token.
func (s *AuthService) Logout(ctx context.Context, claims auth.Claims) error {
	userID, err := claims.UserID()
	if err != nil {
		return err
	}
	if remaining := claims.Remaining(time.Now()); remaining > 0 {
		if err := s.tokens.Blacklist(ctx, claims.ID, remaining); err != nil {
			return fmt.Errorf("blacklist token: %w", err)
		}
	}
	return s.tokens.DeleteRefreshToken(ctx, userID)
}

// Authenticate validates an access token and rejects revoked ones.
func (s *AuthService) Authenticate(ctx context.Context, token string) (auth.Claims, error) {
	claims, err := s.manager.Parse(token, auth.Access)
	if err != nil {
		return auth.Claims{}, err
	}
	revoked, err := s.tokens.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return auth.Claims{}, fmt.Errorf("check blacklist: %w", err)
	}
	if revoked {
		return auth.Claims{}, auth.ErrInvalidToken
	}
	return claims, nil
}

// CheckLoginID reports whether loginID is already in use.
func (s *AuthService) CheckLoginID(ctx context.Context, loginID string) (bool, error) {
	return s.exists(ctx, s.users.GetByLoginID, loginID)
}

// CheckUsername reports whether username is already in use.
func (s *AuthService) CheckUsername(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, s.users.GetByUsername, username)
}

func (s *AuthService) exists(ctx context.Context, lookup func(context.Context, string) (types.User, error), value string) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return false, invalid("value is required")
	}
	err := s.ensureFree(ctx, lookup, value, errTaken)
	if errors.Is(err, errTaken) {
		return true, nil
	}
	return false, err
}

var errTaken = errors.New("taken")

// FindLoginID returns the login id registered with email.
func (s *AuthService) FindLoginID(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", invalid("email is required")
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return user.LoginID, nil
}

// ResetPassword sets a new password when email matches the account.
func (s *AuthService) ResetPassword(ctx context.Context, loginID, email, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return invalid(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	user, err := s.users.GetByLoginID(ctx, strings.TrimSpace(loginID))
	if err != nil {
		return err
	}
	if !strings.EqualFold(user.Email, strings.TrimSpace(email)) {
		return ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hashed)
	if _, err := s.users.Update(ctx, user); err != nil {
		return err
	}
	if err := s.tokens.DeleteRefreshToken(ctx, user.ID); err != nil {
		s.logger.Warn("drop refresh token after password reset failed", "user_id", user.ID, "error", err)
	}
	return nil
}
