package api

import (
	"errors"
	"net/http"

	"github.com/gitden/gitden/internal/repository"
)

// GET /api/v1/repos/{owner}/{repo}/branches
func (s *Server) handleListBranches(w http.ResponseWriter, r *http.Request) {
	owner, repo, ok := s.visibleRepo(w, r)
	if !ok {
		return
	}

	branches, err := s.repos.ListBranches(r.Context(), owner, repo)
	if err != nil {
		s.logger.Error("list branches", "owner", owner, "repo", repo, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	current, err := s.repos.CurrentBranch(r.Context(), owner, repo)
	if err != nil {
		s.logger.Error("resolve branch", "owner", owner, "repo", repo, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"branches": branches,
		"current":  current,
	})
}

// POST /api/v1/repos/{owner}/{repo}/branch
func (s *Server) handleSetBranch(w http.ResponseWriter, r *http.Request) {
	owner, repo, ok := s.ownedRepo(w, r)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	err := s.repos.SetBranch(r.Context(), owner, repo, req.Name)
	if errors.Is(err, repository.ErrBranchNotFound) {
		jsonError(w, "branch not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("set branch", "owner", owner, "repo", repo, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/repos/{owner}/{repo}/readme
func (s *Server) handleGetReadme(w http.ResponseWriter, r *http.Request) {
	owner, repo, ok := s.visibleRepo(w, r)
	if !ok {
		return
	}

	readme, found, err := s.repos.GetReadme(r.Context(), owner, repo)
	if err != nil {
		s.logger.Error("read readme", "owner", owner, "repo", repo, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !found {
		jsonError(w, "not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"readme": readme})
}

// GET /api/v1/repos/{owner}/{repo}/tree/{branch} and .../tree/{branch}/{path...}
func (s *Server) handleGetTree(w http.ResponseWriter, r *http.Request) {
	owner, repo, ok := s.visibleRepo(w, r)
	if !ok {
		return
	}
	branch := r.PathValue("branch")
	relPath := r.PathValue("path")

	node, err := s.repos.GetTree(r.Context(), owner, repo, branch, relPath)
	if err != nil {
		s.logger.Error("resolve tree", "owner", owner, "repo", repo, "branch", branch, "path", relPath, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if node == nil {
		jsonError(w, "not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, http.StatusOK, node)
}
