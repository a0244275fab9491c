// Package api exposes the core stores over a JSON HTTP surface and
// mounts the git smart HTTP routes. It returns structured data only;
// HTML rendering lives outside this server.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gitden/gitden/internal/account"
	"github.com/gitden/gitden/internal/gitsmart"
	"github.com/gitden/gitden/internal/repository"
	"github.com/gitden/gitden/internal/settings"
)

type Server struct {
	accounts *account.Store
	repos    *repository.Store
	settings *settings.Store
	git      *gitsmart.Handler
	logger   *slog.Logger
	metrics  *httpMetrics
	mux      *http.ServeMux
}

func NewServer(accounts *account.Store, repos *repository.Store, settingsStore *settings.Store, git *gitsmart.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		accounts: accounts,
		repos:    repos,
		settings: settingsStore,
		git:      git,
		logger:   logger,
		metrics:  getDefaultHTTPMetrics(),
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler := requestMetricsMiddleware(s.metrics, s.routeLabel,
		requestLoggingMiddleware(s.logger,
			onionLocationMiddleware(s.settings,
				s.authenticate(s.mux))))
	handler.ServeHTTP(w, r)
}

func (s *Server) routes() {
	// Auth
	s.mux.HandleFunc("POST /api/v1/auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/v1/auth/logout", s.requireAuth(s.handleLogout))
	s.mux.HandleFunc("POST /api/v1/auth/password", s.requireAuth(s.handleChangePassword))

	// Users
	s.mux.HandleFunc("GET /api/v1/users", s.handleListUsers)
	s.mux.HandleFunc("GET /api/v1/users/{user}", s.handleGetUser)
	s.mux.HandleFunc("GET /api/v1/users/{user}/repos", s.handleListUserRepos)
	s.mux.HandleFunc("PATCH /api/v1/user", s.requireAuth(s.handleUpdateUser))

	// Repositories
	s.mux.HandleFunc("POST /api/v1/repos", s.requireAuth(s.handleCreateRepo))
	s.mux.HandleFunc("GET /api/v1/repos/{owner}/{repo}", s.handleGetRepo)
	s.mux.HandleFunc("PATCH /api/v1/repos/{owner}/{repo}", s.requireAuth(s.handleUpdateRepo))
	s.mux.HandleFunc("DELETE /api/v1/repos/{owner}/{repo}", s.requireAuth(s.handleDeleteRepo))

	// Browsing
	s.mux.HandleFunc("GET /api/v1/repos/{owner}/{repo}/branches", s.handleListBranches)
	s.mux.HandleFunc("POST /api/v1/repos/{owner}/{repo}/branch", s.requireAuth(s.handleSetBranch))
	s.mux.HandleFunc("GET /api/v1/repos/{owner}/{repo}/readme", s.handleGetReadme)
	s.mux.HandleFunc("GET /api/v1/repos/{owner}/{repo}/tree/{branch}", s.handleGetTree)
	s.mux.HandleFunc("GET /api/v1/repos/{owner}/{repo}/tree/{branch}/{path...}", s.handleGetTree)

	// Admin
	s.mux.HandleFunc("GET /api/v1/admin/settings", s.requireAdmin(s.handleGetAdminSettings))
	s.mux.HandleFunc("POST /api/v1/admin/key/reset", s.requireAdmin(s.handleResetKey))
	s.mux.HandleFunc("PUT /api/v1/admin/onion", s.requireAdmin(s.handleSetOnion))
	s.mux.HandleFunc("PUT /api/v1/admin/telemetry", s.requireAdmin(s.handleSetTelemetry))

	s.mux.Handle("GET /metrics", promhttp.Handler())

	// Git smart HTTP
	s.git.RegisterRoutes(s.mux)
}

// routeLabel keeps metric cardinality bounded by labeling requests with
// the matched mux pattern instead of the raw path.
func (s *Server) routeLabel(r *http.Request) string {
	_, pattern := s.mux.Handler(r)
	return pattern
}

type contextKey string

const userKey contextKey = "user"

// authenticate resolves a session token from "Authorization: Token
// <user>:<uuid>" and stores the username in the request context. Requests
// without the header pass through anonymously; a malformed or revoked
// token is rejected outright.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Token ")
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		user, token, err := splitToken(raw)
		if err != nil {
			jsonError(w, "invalid token", http.StatusUnauthorized)
			return
		}
		valid, verr := s.accounts.VerifyToken(user, token)
		if verr != nil {
			s.logger.Error("verify token", "user", user, "error", verr)
			jsonError(w, "internal error", http.StatusInternalServerError)
			return
		}
		if !valid {
			jsonError(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func splitToken(raw string) (string, uuid.UUID, error) {
	user, value, ok := strings.Cut(raw, ":")
	if !ok || user == "" {
		return "", uuid.Nil, errMalformedToken
	}
	token, err := uuid.Parse(value)
	if err != nil {
		return "", uuid.Nil, errMalformedToken
	}
	return user, token, nil
}

// currentUser returns the authenticated username, or "" for anonymous
// requests.
func currentUser(ctx context.Context) string {
	user, _ := ctx.Value(userKey).(string)
	return user
}

func (s *Server) requireAuth(fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if currentUser(r.Context()) == "" {
			jsonError(w, "authentication required", http.StatusUnauthorized)
			return
		}
		fn(w, r)
	}
}

func (s *Server) requireAdmin(fn http.HandlerFunc) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		info, err := s.accounts.Load(currentUser(r.Context()))
		if err != nil {
			s.logger.Error("load account", "error", err)
			jsonError(w, "internal error", http.StatusInternalServerError)
			return
		}
		if !info.Admin {
			jsonError(w, "not found", http.StatusNotFound)
			return
		}
		fn(w, r)
	})
}
