package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/purgo-board/apiserver/internal/services"
	"github.com/purgo-board/apiserver/types"
)

const (
	formFieldFile      = "file"
	maxMultipartMemory = services.MaxProfileImageSize + 1<<20
)

// UserUseCases is the profile surface used by UserHandler.
type UserUseCases interface {
	GetProfile(ctx context.Context, id int) (types.User, error)
	UpdateProfile(ctx context.Context, id int, update services.ProfileUpdate) (types.User, error)
	UploadProfileImage(ctx context.Context, id int, upload services.ImageUpload) (types.User, error)
	Delete(ctx context.Context, id int) error
	PenaltyCount(ctx context.Context, id int) (int, error)
	Limits(ctx context.Context, id int) (services.UserLimits, error)
	ModerationLogs(ctx context.Context, id int) ([]types.ModerationLogEntry, error)
}

// UserHandler serves the authenticated user's own account.
type UserHandler struct {
	users UserUseCases
}

func NewUserHandler(users UserUseCases) *UserHandler {
	return &UserHandler{users: users}
}

// UserRouter registers user routes. Every route requires authentication.
func UserRouter(r chi.Router, users UserUseCases, authMiddleware func(http.Handler) http.Handler) {
	handler := NewUserHandler(users)

	r.Use(authMiddleware)
	r.Get("/profile", handler.GetProfile)
	r.Put("/profile", handler.UpdateProfile)
	r.Post("/profile/upload", handler.UploadProfileImage)
	r.Delete("/delete", handler.Delete)
	r.Get("/penalty-count", handler.PenaltyCount)
	r.Get("/limits", handler.Limits)
	r.Get("/moderation-logs", handler.ModerationLogs)
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	user, err := h.users.GetProfile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.users.UpdateProfile(r.Context(), userID, services.ProfileUpdate{
		Username:     req.Username,
		ProfileImage: req.ProfileImage,
	})
	if err != nil {
		writeServiceError(w, r, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UploadProfileImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartMemory)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "uploaded file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile(formFieldFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	user, err := h.users.UploadProfileImage(r.Context(), userID, services.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		writeServiceError(w, r, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, ProfileImageResponse{ProfileImage: user.ProfileImage})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	if err := h.users.Delete(r.Context(), userID); err != nil {
		writeServiceError(w, r, err, "user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) PenaltyCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	count, err := h.users.PenaltyCount(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, PenaltyCountResponse{PenaltyCount: count})
}

func (h *UserHandler) Limits(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	limits, err := h.users.Limits(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, limits)
}

func (h *UserHandler) ModerationLogs(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	entries, err := h.users.ModerationLogs(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type UpdateProfileRequest struct {
	Username     *string `json:"username"`
	ProfileImage *string `json:"profile_image"`
}

type ProfileImageResponse struct {
	ProfileImage string `json:"profile_image"`
}

type PenaltyCountResponse struct {
	PenaltyCount int `json:"penalty_count"`
}

func requireUserID(w http.ResponseWriter, r *http.Request) (int, bool) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return 0, false
	}
	return userID, true
}
