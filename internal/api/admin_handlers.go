package api

import (
	"net/http"

	"github.com/gitden/gitden/internal/models"
)

// GET /api/v1/admin/settings. The signing key is deliberately absent, it
// is only handed to the in-process cookie layer.
func (s *Server) handleGetAdminSettings(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"onion": s.settings.Onion(),
	}
	if t := s.settings.Telemetry(); t != nil {
		resp["telemetry"] = t
	}
	jsonResponse(w, http.StatusOK, resp)
}

// POST /api/v1/admin/key/reset rotates the signing key. Every existing
// session everywhere is invalidated, so all token sets are cleared too.
func (s *Server) handleResetKey(w http.ResponseWriter, r *http.Request) {
	if err := s.settings.ResetKey(); err != nil {
		s.logger.Error("reset signing key", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	users, err := s.accounts.ListAll()
	if err != nil {
		s.logger.Error("list accounts", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	for _, user := range users {
		if err := s.accounts.RevokeAll(user); err != nil {
			s.logger.Error("revoke tokens", "user", user, "error", err)
			jsonError(w, "internal error", http.StatusInternalServerError)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// PUT /api/v1/admin/onion. An empty address clears the onion service.
func (s *Server) handleSetOnion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Onion string `json:"onion"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.settings.SetOnion(req.Onion); err != nil {
		s.logger.Error("set onion address", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PUT /api/v1/admin/telemetry. An empty endpoint clears the exporter
// config. Takes effect on the next process start.
func (s *Server) handleSetTelemetry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Endpoint string `json:"endpoint"`
		Insecure bool   `json:"insecure"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	var t *models.Telemetry
	if req.Endpoint != "" {
		t = &models.Telemetry{Endpoint: req.Endpoint, Insecure: req.Insecure}
	}
	if err := s.settings.SetTelemetry(t); err != nil {
		s.logger.Error("set telemetry endpoint", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
