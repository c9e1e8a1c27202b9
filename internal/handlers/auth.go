package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/purgo-board/apiserver/internal/auth"
	"github.com/purgo-board/apiserver/internal/services"
	"github.com/purgo-board/apiserver/types"
)

// Authenticator validates access tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Claims, error)
}

// AuthUseCases is the account and session surface used by AuthHandler.
type AuthUseCases interface {
	Authenticator
	Signup(ctx context.Context, input services.SignupInput) (types.User, error)
	Login(ctx context.Context, loginID, password string) (services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (services.TokenPair, error)
	Logout(ctx context.Context, claims auth.Claims) error
	CheckLoginID(ctx context.Context, loginID string) (bool, error)
	CheckUsername(ctx context.Context, username string) (bool, error)
	FindLoginID(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, loginID, email, newPassword string) error
}

// AuthHandler provides JWT authentication endpoints.
type AuthHandler struct {
	auth AuthUseCases
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(authService AuthUseCases) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, authService AuthUseCases) {
	handler := NewAuthHandler(authService)

	r.Post("/signup", handler.Signup)
	r.Post("/login", handler.Login)
	r.Post("/refresh", handler.Refresh)
	r.With(RequireAuth(authService)).Post("/logout", handler.Logout)
	r.Get("/check-id", handler.CheckLoginID)
	r.Get("/check-username", handler.CheckUsername)
	r.Post("/find-id", handler.FindLoginID)
	r.Post("/reset-password", handler.ResetPassword)
}

// RequireAuth enforces bearer authentication and injects the token claims
// into the request context.
func RequireAuth(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			claims, err := authenticator.Authenticate(r.Context(), tokenString)
			if err != nil {
				if errors.Is(err, auth.ErrInvalidToken) {
					writeError(w, http.StatusUnauthorized, "unauthorized")
					return
				}
				writeServiceError(w, r, err, "session")
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// Signup creates a new account.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.auth.Signup(r.Context(), services.SignupInput{
		LoginID:      req.LoginID,
		Username:     req.Username,
		Email:        req.Email,
		Password:     req.Password,
		ProfileImage: req.ProfileImage,
	})
	if err != nil {
		writeServiceError(w, r, err, "user")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Login verifies credentials and returns an access and refresh token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.LoginID = strings.TrimSpace(req.LoginID)
	if req.LoginID == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	pair, err := h.auth.Login(r.Context(), req.LoginID, req.Password)
	if err != nil {
		writeServiceError(w, r, err, "user")
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err, "user")
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.auth.Logout(r.Context(), claims); err != nil {
		writeServiceError(w, r, err, "session")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
}

func (h *AuthHandler) CheckLoginID(w http.ResponseWriter, r *http.Request) {
	h.checkDuplicate(w, r, h.auth.CheckLoginID, r.URL.Query().Get("login_id"))
}

func (h *AuthHandler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	h.checkDuplicate(w, r, h.auth.CheckUsername, r.URL.Query().Get("username"))
}

func (h *AuthHandler) checkDuplicate(w http.ResponseWriter, r *http.Request, check func(context.Context, string) (bool, error), value string) {
	duplicate, err := check(r.Context(), value)
	if err != nil {
		writeServiceError(w, r, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, DuplicateResponse{Duplicate: duplicate})
}

func (h *AuthHandler) FindLoginID(w http.ResponseWriter, r *http.Request) {
	var req FindLoginIDRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	loginID, err := h.auth.FindLoginID(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, r, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, FindLoginIDResponse{LoginID: loginID})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.auth.ResetPassword(r.Context(), req.LoginID, req.Email, req.NewPassword); err != nil {
		writeServiceError(w, r, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "password updated"})
}

type SignupRequest struct {
	LoginID      string `json:"login_id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	ProfileImage string `json:"profile_image"`
}

type LoginRequest struct {
	LoginID  string `json:"login_id"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type FindLoginIDRequest struct {
	Email string `json:"email"`
}

type FindLoginIDResponse struct {
	LoginID string `json:"login_id"`
}

type ResetPasswordRequest struct {
	LoginID     string `json:"login_id"`
	Email       string `json:"email"`
	NewPassword string `json:"new_password"`
}

type DuplicateResponse struct {
	Duplicate bool `json:"duplicate"`
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
