package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/devconnect/internal/auth"
	"github.com/sakif/devconnect/internal/github"
	"github.com/sakif/devconnect/internal/service"
)

// RepoFetcher looks up a GitHub user's public repositories.
type RepoFetcher interface {
	Repos(ctx context.Context, username string) ([]github.Repo, error)
}

// ProfileHandler serves /api/profile.
type ProfileHandler struct {
	profiles *service.ProfileService
	github   RepoFetcher
	logger   *slog.Logger
}

func NewProfileHandler(profiles *service.ProfileService, gh RepoFetcher, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, github: gh, logger: logger}
}

// HandleMe → GET /api/profile/me
func (h *ProfileHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	p, err := h.profiles.GetMine(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleUpsert → POST /api/profile
func (h *ProfileHandler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var in service.ProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	p, err := h.profiles.Upsert(r.Context(), userID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleList → GET /api/profile
func (h *ProfileHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

// HandleGetByUser → GET /api/profile/user/{id}
func (h *ProfileHandler) HandleGetByUser(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.GetByUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleDelete → DELETE /api/profile. Removes the caller's posts, profile
// and account.
func (h *ProfileHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.profiles.DeleteMine(r.Context(), userID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMsg(w, http.StatusOK, "User deleted")
}

// HandleAddExperience → PUT /api/profile/experience
func (h *ProfileHandler) HandleAddExperience(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var in service.ExperienceInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	p, err := h.profiles.AddExperience(r.Context(), userID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleRemoveExperience → DELETE /api/profile/experience/{id}
func (h *ProfileHandler) HandleRemoveExperience(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	p, err := h.profiles.RemoveExperience(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleAddEducation → PUT /api/profile/education
func (h *ProfileHandler) HandleAddEducation(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var in service.EducationInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	p, err := h.profiles.AddEducation(r.Context(), userID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleRemoveEducation → DELETE /api/profile/education/{id}
func (h *ProfileHandler) HandleRemoveEducation(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	p, err := h.profiles.RemoveEducation(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleGitHubRepos → GET /api/profile/github/{username}
func (h *ProfileHandler) HandleGitHubRepos(w http.ResponseWriter, r *http.Request) {
	repos, err := h.github.Repos(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, repos)
}
