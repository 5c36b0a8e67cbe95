package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/amo-platform/amo-server/internal/auth"
	"github.com/amo-platform/amo-server/internal/license"
	"github.com/amo-platform/amo-server/internal/storage"
	"github.com/amo-platform/amo-server/internal/verification"
)

// respondJSON sends a JSON response
func (s *RESTServer) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Error().Err(err).Msg("Failed to encode response")
		}
	}
}

// respondError sends an error response
func (s *RESTServer) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondAppError translates a domain error into its HTTP status. Errors
// without a mapping are treated as internal and never leak their text to
// the client.
func (s *RESTServer) respondAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidAssertion):
		s.respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrForbidden):
		s.respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, auth.ErrNotVerified):
		s.respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrDuplicateKey):
		s.respondError(w, http.StatusConflict, "an account with these details already exists")
	case errors.Is(err, storage.ErrInvalidReference):
		s.respondError(w, http.StatusBadRequest, "referenced resource does not exist")
	case errors.Is(err, verification.ErrInvalidCode):
		s.respondError(w, http.StatusBadRequest, "invalid or expired verification code")
	case errors.Is(err, license.ErrInvalidWindow):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrUnavailable):
		log.Error().Err(err).Msg("Store unavailable")
		s.respondError(w, http.StatusInternalServerError, "internal server error")
	default:
		log.Error().Err(err).Msg("Unhandled error")
		s.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// pagination reads limit/offset query parameters with sane bounds
func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
