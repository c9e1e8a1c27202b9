package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/purgo-board/apiserver/types"
)

// CommentUseCases is the comment surface used by CommentHandler.
type CommentUseCases interface {
	List(ctx context.Context, postID int) ([]types.Comment, error)
	Create(ctx context.Context, userID, postID int, content string) (types.Comment, error)
	Update(ctx context.Context, userID, postID, commentID int, content string) (types.Comment, error)
	Delete(ctx context.Context, userID, postID, commentID int) error
}

type CommentHandler struct {
	comments CommentUseCases
}

func NewCommentHandler(comments CommentUseCases) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// CommentRouter registers comment routes below a /{postID} route.
func CommentRouter(r chi.Router, comments CommentUseCases, authMiddleware func(http.Handler) http.Handler) {
	handler := NewCommentHandler(comments)

	r.Get("/", handler.List)
	r.With(authMiddleware).Post("/", handler.Create)
	r.With(authMiddleware).Put("/{commentID}", handler.Update)
	r.With(authMiddleware).Delete("/{commentID}", handler.Delete)
}

func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	postID, err := parseIDParam(r, "postID", "post")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	comments, err := h.comments.List(r.Context(), postID)
	if err != nil {
		writeServiceError(w, r, err, "post")
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	postID, err := parseIDParam(r, "postID", "post")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req CommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	comment, err := h.comments.Create(r.Context(), userID, postID, req.Content)
	if err != nil {
		writeServiceError(w, r, err, "post")
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	postID, commentID, ok := commentPath(w, r)
	if !ok {
		return
	}
	var req CommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	comment, err := h.comments.Update(r.Context(), userID, postID, commentID, req.Content)
	if err != nil {
		writeServiceError(w, r, err, "comment")
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	postID, commentID, ok := commentPath(w, r)
	if !ok {
		return
	}
	if err := h.comments.Delete(r.Context(), userID, postID, commentID); err != nil {
		writeServiceError(w, r, err, "comment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func commentPath(w http.ResponseWriter, r *http.Request) (postID, commentID int, ok bool) {
	postID, err := parseIDParam(r, "postID", "post")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	commentID, err = parseIDParam(r, "commentID", "comment")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	return postID, commentID, true
}

type CommentRequest struct {
	Content string `json:"content"`
}
