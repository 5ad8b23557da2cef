package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/devconnect/internal/auth"
	"github.com/sakif/devconnect/internal/service"
)

// PostHandler serves /api/posts. Every route requires a token.
type PostHandler struct {
	posts  *service.PostService
	logger *slog.Logger
}

func NewPostHandler(posts *service.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

// HandleCreate → POST /api/posts
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var in service.PostInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	post, err := h.posts.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleList → GET /api/posts, newest first.
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// HandleGetByID → GET /api/posts/{id}
func (h *PostHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleDelete → DELETE /api/posts/{id}
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.posts.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMsg(w, http.StatusOK, "Post removed")
}

// HandleLike → PUT /api/posts/like/{id}
func (h *PostHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	likes, err := h.posts.Like(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, likes)
}

// HandleUnlike → PUT /api/posts/unlike/{id}
func (h *PostHandler) HandleUnlike(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	likes, err := h.posts.Unlike(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, likes)
}

// HandleAddComment → POST /api/posts/comment/{post_id}
func (h *PostHandler) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var in service.CommentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	comments, err := h.posts.AddComment(r.Context(), userID, chi.URLParam(r, "post_id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// HandleRemoveComment → DELETE /api/posts/comment/{post_id}/{comment_id}
func (h *PostHandler) HandleRemoveComment(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	comments, err := h.posts.RemoveComment(r.Context(), userID,
		chi.URLParam(r, "post_id"), chi.URLParam(r, "comment_id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}
