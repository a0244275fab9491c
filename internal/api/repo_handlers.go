package api

import (
	"net/http"
)

// visibleRepo resolves and checks the (owner, repo) pair of the request,
// writing a 404 when it does not exist or the requester may not see it.
func (s *Server) visibleRepo(w http.ResponseWriter, r *http.Request) (owner, repo string, ok bool) {
	owner = r.PathValue("owner")
	repo = r.PathValue("repo")
	requester := currentUser(r.Context())

	if !s.repos.Exists(owner, repo) {
		jsonError(w, "not found", http.StatusNotFound)
		return "", "", false
	}
	visible, err := s.repos.Visible(requester, owner, repo)
	if err != nil {
		s.notFoundOnAbsence(w, err)
		return "", "", false
	}
	if !visible {
		jsonError(w, "not found", http.StatusNotFound)
		return "", "", false
	}
	return owner, repo, true
}

// ownedRepo is visibleRepo plus an ownership requirement for mutations.
// Non-owners get the same 404 as for private repositories.
func (s *Server) ownedRepo(w http.ResponseWriter, r *http.Request) (owner, repo string, ok bool) {
	owner, repo, ok = s.visibleRepo(w, r)
	if !ok {
		return "", "", false
	}
	if currentUser(r.Context()) != owner {
		jsonError(w, "not found", http.StatusNotFound)
		return "", "", false
	}
	return owner, repo, true
}

// POST /api/v1/repos
func (s *Server) handleCreateRepo(w http.ResponseWriter, r *http.Request) {
	owner := currentUser(r.Context())

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Private     bool   `json:"private"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := s.repos.Create(r.Context(), owner, req.Name, req.Description, req.Private)
	if err != nil {
		s.logger.Error("create repo", "owner", owner, "repo", req.Name, "error", err)
		jsonError(w, "invalid repository details", http.StatusBadRequest)
		return
	}
	if !created {
		jsonError(w, "repository already exists", http.StatusConflict)
		return
	}
	jsonResponse(w, http.StatusCreated, map[string]string{"owner": owner, "name": req.Name})
}

// GET /api/v1/repos/{owner}/{repo}
func (s *Server) handleGetRepo(w http.ResponseWriter, r *http.Request) {
	owner, repo, ok := s.visibleRepo(w, r)
	if !ok {
		return
	}

	meta, err := s.repos.LoadMeta(owner, repo)
	if err != nil {
		s.notFoundOnAbsence(w, err)
		return
	}
	branch, err := s.repos.CurrentBranch(r.Context(), owner, repo)
	if err != nil {
		s.logger.Error("resolve branch", "owner", owner, "repo", repo, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	files, err := s.repos.ListFiles(r.Context(), owner, repo)
	if err != nil {
		s.logger.Error("list files", "owner", owner, "repo", repo, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := map[string]any{
		"name":        meta.Name,
		"description": meta.Description,
		"private":     meta.Private,
		"branch":      branch,
		"files":       files,
	}
	if readme, found, err := s.repos.GetReadme(r.Context(), owner, repo); err != nil {
		s.logger.Error("read readme", "owner", owner, "repo", repo, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	} else if found {
		resp["readme"] = readme
	}
	jsonResponse(w, http.StatusOK, resp)
}

// PATCH /api/v1/repos/{owner}/{repo}
func (s *Server) handleUpdateRepo(w http.ResponseWriter, r *http.Request) {
	owner, repo, ok := s.ownedRepo(w, r)
	if !ok {
		return
	}

	var req struct {
		Description *string `json:"description"`
		Private     *bool   `json:"private"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	meta, err := s.repos.LoadMeta(owner, repo)
	if err != nil {
		s.notFoundOnAbsence(w, err)
		return
	}
	if req.Description != nil {
		meta.Description = *req.Description
	}
	if req.Private != nil {
		meta.Private = *req.Private
	}
	if err := s.repos.SaveMeta(owner, meta); err != nil {
		s.logger.Error("save repo meta", "owner", owner, "repo", repo, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/v1/repos/{owner}/{repo}
func (s *Server) handleDeleteRepo(w http.ResponseWriter, r *http.Request) {
	owner, repo, ok := s.ownedRepo(w, r)
	if !ok {
		return
	}

	deleted, err := s.repos.Delete(owner, repo)
	if err != nil {
		s.logger.Error("delete repo", "owner", owner, "repo", repo, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !deleted {
		jsonError(w, "not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
