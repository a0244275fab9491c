package api

import (
	"net/http"
)

// GET /api/v1/users
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	names, err := s.accounts.ListVisible(currentUser(r.Context()))
	if err != nil {
		s.logger.Error("list users", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"users": names})
}

// GET /api/v1/users/{user}
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	requester := currentUser(r.Context())

	if !s.accounts.Exists(user) {
		jsonError(w, "not found", http.StatusNotFound)
		return
	}
	visible, err := s.accounts.Visible(requester, user)
	if err != nil {
		s.notFoundOnAbsence(w, err)
		return
	}
	if !visible {
		jsonError(w, "not found", http.StatusNotFound)
		return
	}

	info, err := s.accounts.Load(user)
	if err != nil {
		s.notFoundOnAbsence(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"username":    info.Username,
		"description": info.Description,
		"private":     info.Private,
	})
}

// GET /api/v1/users/{user}/repos
func (s *Server) handleListUserRepos(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	requester := currentUser(r.Context())

	if !s.accounts.Exists(user) {
		jsonError(w, "not found", http.StatusNotFound)
		return
	}
	visible, err := s.accounts.Visible(requester, user)
	if err != nil {
		s.notFoundOnAbsence(w, err)
		return
	}
	if !visible {
		jsonError(w, "not found", http.StatusNotFound)
		return
	}

	repos, err := s.repos.List(user, requester)
	if err != nil {
		s.logger.Error("list repos", "user", user, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"repositories": repos})
}

// PATCH /api/v1/user updates the caller's description and privacy flag.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())

	var req struct {
		Description *string `json:"description"`
		Private     *bool   `json:"private"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	info, err := s.accounts.Load(user)
	if err != nil {
		s.notFoundOnAbsence(w, err)
		return
	}
	if req.Description != nil {
		info.Description = *req.Description
	}
	if req.Private != nil {
		info.Private = *req.Private
	}
	if err := s.accounts.Save(info); err != nil {
		s.logger.Error("save account", "user", user, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
