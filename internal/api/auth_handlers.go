package api

import (
	"net/http"
	"strings"
)

// POST /api/v1/auth/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username    string `json:"username"`
		Password    string `json:"password"`
		Description string `json:"description"`
		Private     bool   `json:"private"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		jsonError(w, "username and password are required", http.StatusBadRequest)
		return
	}

	created, err := s.accounts.Create(req.Username, req.Password, req.Description, req.Private, false)
	if err != nil {
		s.logger.Error("create account", "user", req.Username, "error", err)
		jsonError(w, "invalid account details", http.StatusBadRequest)
		return
	}
	if !created {
		jsonError(w, "account already exists", http.StatusConflict)
		return
	}
	jsonResponse(w, http.StatusCreated, map[string]string{"username": req.Username})
}

// POST /api/v1/auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	valid, err := s.accounts.VerifyPassword(req.Username, req.Password)
	if err != nil {
		s.logger.Error("verify password", "user", req.Username, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !valid {
		jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := s.accounts.IssueToken(req.Username)
	if err != nil {
		s.logger.Error("issue token", "user", req.Username, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{
		"username": req.Username,
		"token":    token.String(),
	})
}

// POST /api/v1/auth/logout revokes the token the request authenticated
// with.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	raw, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Token ")
	user, token, err := splitToken(raw)
	if err != nil {
		jsonError(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if err := s.accounts.RevokeToken(user, token); err != nil {
		s.logger.Error("revoke token", "user", user, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/auth/password changes the caller's password and revokes
// every session.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())

	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.NewPassword == "" {
		jsonError(w, "new password is required", http.StatusBadRequest)
		return
	}

	valid, err := s.accounts.VerifyPassword(user, req.OldPassword)
	if err != nil {
		s.logger.Error("verify password", "user", user, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !valid {
		jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	if err := s.accounts.ChangePassword(user, req.NewPassword); err != nil {
		s.logger.Error("change password", "user", user, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
