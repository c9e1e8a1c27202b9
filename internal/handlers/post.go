package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/purgo-board/apiserver/internal/services"
	"github.com/purgo-board/apiserver/types"
)

// PostUseCases is the post surface used by PostHandler.
type PostUseCases interface {
	Create(ctx context.Context, userID int, input services.PostInput) (types.PostDetail, error)
	Update(ctx context.Context, userID, postID int, input services.PostInput) (types.PostDetail, error)
	Get(ctx context.Context, postID int, increaseView bool) (types.PostDetail, error)
	List(ctx context.Context, page, limit int) (services.Page[types.PostDetail], error)
	Search(ctx context.Context, keyword string, page, limit int) (services.Page[types.PostDetail], error)
	ListByLoginID(ctx context.Context, loginID string, page, limit int) (services.Page[types.PostDetail], error)
	ListMine(ctx context.Context, userID, page, limit int) (services.Page[types.PostDetail], error)
	Delete(ctx context.Context, userID, postID int) error
}

// PostHandler provides HTTP handlers for posts.
type PostHandler struct {
	posts PostUseCases
}

func NewPostHandler(posts PostUseCases) *PostHandler {
	return &PostHandler{posts: posts}
}

// PostRouter registers post and comment routes on the given router.
func PostRouter(r chi.Router, posts PostUseCases, comments CommentUseCases, authMiddleware func(http.Handler) http.Handler) {
	handler := NewPostHandler(posts)

	r.Get("/", handler.List)
	r.Get("/search", handler.Search)
	r.Get("/user/{loginID}", handler.ListByUser)
	r.With(authMiddleware).Get("/me", handler.ListMine)
	r.With(authMiddleware).Post("/", handler.Create)
	r.Route("/{postID}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.With(authMiddleware).Put("/", handler.Update)
		r.With(authMiddleware).Delete("/", handler.Delete)
		r.Route("/comments", func(r chi.Router) {
			CommentRouter(r, comments, authMiddleware)
		})
	})
}

func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.posts.List(r.Context(), page, limit)
	if err != nil {
		writeServiceError(w, r, err, "post")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *PostHandler) Search(w http.ResponseWriter, r *http.Request) {
	page, limit, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.posts.Search(r.Context(), r.URL.Query().Get("keyword"), page, limit)
	if err != nil {
		writeServiceError(w, r, err, "post")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *PostHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	page, limit, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.posts.ListByLoginID(r.Context(), chi.URLParam(r, "loginID"), page, limit)
	if err != nil {
		writeServiceError(w, r, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *PostHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	page, limit, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.posts.ListMine(r.Context(), userID, page, limit)
	if err != nil {
		writeServiceError(w, r, err, "post")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Get returns one post and counts a view unless view=false is passed.
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	postID, err := parseIDParam(r, "postID", "post")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	increaseView := true
	if raw := strings.TrimSpace(r.URL.Query().Get("view")); raw != "" {
		increaseView, err = strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid view flag")
			return
		}
	}

	post, err := h.posts.Get(r.Context(), postID, increaseView)
	if err != nil {
		writeServiceError(w, r, err, "post")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req PostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.posts.Create(r.Context(), userID, services.PostInput{Title: req.Title, Content: req.Content})
	if err != nil {
		writeServiceError(w, r, err, "post")
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	postID, err := parseIDParam(r, "postID", "post")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req PostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.posts.Update(r.Context(), userID, postID, services.PostInput{Title: req.Title, Content: req.Content})
	if err != nil {
		writeServiceError(w, r, err, "post")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	postID, err := parseIDParam(r, "postID", "post")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.posts.Delete(r.Context(), userID, postID); err != nil {
		writeServiceError(w, r, err, "post")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type PostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}
