package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gitden/gitden/internal/storage"
)

var errMalformedToken = errors.New("malformed token")

const maxBodyBytes int64 = 1 << 20

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		jsonError(w, "malformed request body", http.StatusBadRequest)
		return false
	}
	return true
}

// notFoundOnAbsence maps a storage NotFound to a generic 404 and anything
// else to a 500, so private resources and missing ones are identical from
// the outside.
func (s *Server) notFoundOnAbsence(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		jsonError(w, "not found", http.StatusNotFound)
		return
	}
	s.logger.Error("storage failure", "error", err)
	jsonError(w, "internal error", http.StatusInternalServerError)
}
