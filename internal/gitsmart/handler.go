package gitsmart

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/gitden/gitden/internal/account"
	"github.com/gitden/gitden/internal/jobs"
	"github.com/gitden/gitden/internal/repository"
	"github.com/gitden/gitden/internal/storage"
)

// Handler serves the two smart HTTP endpoints. Authentication and
// visibility failures are both answered with 404 so the existence of
// private repositories does not leak.
type Handler struct {
	bridge   *Bridge
	accounts *account.Store
	repos    *repository.Store
	layout   storage.Layout
	pool     *jobs.Pool
	logger   *slog.Logger
}

func NewHandler(bridge *Bridge, accounts *account.Store, repos *repository.Store, layout storage.Layout, pool *jobs.Pool, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		bridge:   bridge,
		accounts: accounts,
		repos:    repos,
		layout:   layout,
		pool:     pool,
		logger:   logger,
	}
}

// RegisterRoutes sets up the smart HTTP protocol routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{owner}/{repo}/info/refs", h.handleInfoRefs)
	mux.HandleFunc("POST /{owner}/{repo}/git-upload-pack", h.handlePack(UploadPack))
	mux.HandleFunc("POST /{owner}/{repo}/git-receive-pack", h.handlePack(ReceivePack))
}

// GET /{owner}/{repo}/info/refs?service=git-upload-pack|git-receive-pack
func (h *Handler) handleInfoRefs(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	repo := strings.TrimSuffix(r.PathValue("repo"), ".git")

	svc, ok := ParseService(r.URL.Query().Get("service"))
	if !ok {
		http.Error(w, "unsupported service", http.StatusBadRequest)
		return
	}
	if !h.authorize(w, r, owner, repo, svc == ReceivePack) {
		return
	}

	body, err := h.bridge.AdvertiseRefs(r.Context(), svc, h.layout.RepoGitDir(owner, repo))
	if err != nil {
		http.Error(w, "service failure", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", svc.AdvertisementType())
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(body)
}

// POST /{owner}/{repo}/git-upload-pack and .../git-receive-pack
func (h *Handler) handlePack(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := r.PathValue("owner")
		repo := strings.TrimSuffix(r.PathValue("repo"), ".git")

		if !h.authorize(w, r, owner, repo, svc == ReceivePack) {
			return
		}

		var body io.Reader = r.Body
		if r.Header.Get("Content-Encoding") == "gzip" {
			gz, err := gzip.NewReader(r.Body)
			if err != nil {
				http.Error(w, "malformed request body", http.StatusBadRequest)
				return
			}
			defer gz.Close()
			body = gz
		}

		gitDir := h.layout.RepoGitDir(owner, repo)

		w.Header().Set("Content-Type", svc.ResultType())
		w.Header().Set("Cache-Control", "no-cache")

		// Headers are committed once the subprocess starts writing, so a
		// late failure can only truncate the stream, not change the
		// status. That matches the protocol: clients detect truncation.
		if err := h.bridge.ExchangePack(r.Context(), svc, gitDir, body, w); err != nil {
			return
		}

		if svc == ReceivePack {
			h.pool.Go("adjust-head", func() error {
				return AdjustHead(gitDir)
			})
		}
	}
}

// authorize resolves the requester from basic auth, requires ownership
// for writes and visibility for reads, and checks existence before any
// subprocess is spawned. It writes the response on failure.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, owner, repo string, write bool) bool {
	requester := ""
	if user, pass, ok := r.BasicAuth(); ok {
		valid, err := h.accounts.VerifyPassword(user, pass)
		if err != nil {
			h.logger.Error("verify credentials", "user", user, "error", err)
			http.Error(w, "service failure", http.StatusInternalServerError)
			return false
		}
		if !valid {
			h.requireAuth(w)
			return false
		}
		requester = user
	}

	if !h.repos.Exists(owner, repo) {
		http.NotFound(w, r)
		return false
	}

	if write && requester != owner {
		if requester == "" {
			h.requireAuth(w)
		} else {
			http.NotFound(w, r)
		}
		return false
	}

	visible, err := h.repos.Visible(requester, owner, repo)
	if err != nil {
		h.logger.Error("check repo visibility", "owner", owner, "repo", repo, "error", err)
		http.Error(w, "service failure", http.StatusInternalServerError)
		return false
	}
	if !visible {
		if requester == "" {
			h.requireAuth(w)
		} else {
			http.NotFound(w, r)
		}
		return false
	}
	return true
}

func (h *Handler) requireAuth(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="gitden"`)
	http.Error(w, "authentication required", http.StatusUnauthorized)
}
