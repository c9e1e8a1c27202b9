package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/purgo-board/apiserver/internal/auth"
	"github.com/purgo-board/apiserver/internal/services"
	"github.com/purgo-board/apiserver/internal/store"
	"github.com/purgo-board/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuthService struct {
	stubAuthenticator
	signups   []services.SignupInput
	loggedOut []auth.Claims
}

func (s *stubAuthService) Signup(_ context.Context, input services.SignupInput) (types.User, error) {
	if input.LoginID == "taken" {
		return types.User{}, services.ErrLoginIDTaken
	}
	s.signups = append(s.signups, input)
	return types.User{ID: 1, LoginID: input.LoginID, Email: input.Email, PasswordHash: "hash"}, nil
}

func (s *stubAuthService) Login(_ context.Context, loginID, password string) (services.TokenPair, error) {
	if password != "password123" {
		return services.TokenPair{}, services.ErrInvalidCredentials
	}
	return services.TokenPair{AccessToken: validToken, RefreshToken: "refresh", TokenType: "Bearer"}, nil
}

func (s *stubAuthService) Refresh(_ context.Context, refreshToken string) (services.TokenPair, error) {
	if refreshToken != "refresh" {
		return services.TokenPair{}, auth.ErrInvalidToken
	}
	return services.TokenPair{AccessToken: "new-access", RefreshToken: refreshToken, TokenType: "Bearer"}, nil
}

func (s *stubAuthService) Logout(_ context.Context, claims auth.Claims) error {
	s.loggedOut = append(s.loggedOut, claims)
	return nil
}

func (s *stubAuthService) CheckLoginID(_ context.Context, loginID string) (bool, error) {
	return loginID == "taken", nil
}

func (s *stubAuthService) CheckUsername(_ context.Context, username string) (bool, error) {
	if username == "" {
		return false, &services.ValidationError{Message: "value is required"}
	}
	return false, nil
}

func (s *stubAuthService) FindLoginID(_ context.Context, email string) (string, error) {
	if email != "alice@example.com" {
		return "", store.ErrNotFound
	}
	return "alice", nil
}

func (s *stubAuthService) ResetPassword(_ context.Context, loginID, email, newPassword string) error {
	if email != "alice@example.com" {
		return services.ErrInvalidCredentials
	}
	return nil
}

func newAuthRouter(svc *stubAuthService) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/auth", func(r chi.Router) {
		AuthRouter(r, svc)
	})
	return r
}

func TestSignupRoute(t *testing.T) {
	svc := &stubAuthService{stubAuthenticator: stubAuthenticator{userID: 1}}
	h := newAuthRouter(svc)

	rec := do(t, h, http.MethodPost, "/api/auth/signup", SignupRequest{LoginID: "alice", Username: "Alice", Email: "alice@example.com", Password: "password123"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hash")
	require.Len(t, svc.signups, 1)

	rec = do(t, h, http.MethodPost, "/api/auth/signup", SignupRequest{LoginID: "taken"}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginRefreshLogoutRoutes(t *testing.T) {
	svc := &stubAuthService{stubAuthenticator: stubAuthenticator{userID: 1}}
	h := newAuthRouter(svc)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/auth/login", LoginRequest{}, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/api/auth/login", LoginRequest{LoginID: "alice", Password: "nope"}, "").Code)

	rec := do(t, h, http.MethodPost, "/api/auth/login", LoginRequest{LoginID: "alice", Password: "password123"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "refresh", decode[services.TokenPair](t, rec).RefreshToken)

	rec = do(t, h, http.MethodPost, "/api/auth/refresh", RefreshRequest{RefreshToken: "refresh"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "new-access", decode[services.TokenPair](t, rec).AccessToken)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/api/auth/refresh", RefreshRequest{RefreshToken: "stale"}, "").Code)

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/api/auth/logout", nil, "").Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/auth/logout", nil, validToken).Code)
	require.Len(t, svc.loggedOut, 1)
	assert.Equal(t, "jti", svc.loggedOut[0].ID)
}

func TestAccountRecoveryRoutes(t *testing.T) {
	h := newAuthRouter(&stubAuthService{})

	rec := do(t, h, http.MethodGet, "/api/auth/check-id?login_id=taken", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[DuplicateResponse](t, rec).Duplicate)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/auth/check-username", nil, "").Code)

	rec = do(t, h, http.MethodPost, "/api/auth/find-id", FindLoginIDRequest{Email: "alice@example.com"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", decode[FindLoginIDResponse](t, rec).LoginID)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/api/auth/find-id", FindLoginIDRequest{Email: "x@example.com"}, "").Code)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/auth/reset-password", ResetPasswordRequest{LoginID: "alice", Email: "alice@example.com", NewPassword: "newpassword"}, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/api/auth/reset-password", ResetPasswordRequest{LoginID: "alice", Email: "x@example.com", NewPassword: "newpassword"}, "").Code)
}
