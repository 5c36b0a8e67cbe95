package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// RenewLicenseRequest is the request to renew a tenant's license
type RenewLicenseRequest struct {
	TenantID    string `json:"tenantId" validate:"required,uuid"`
	ActivatedAt string `json:"activatedAt" validate:"required"`
	ExpiresAt   string `json:"expiresAt" validate:"required"`
}

// parseDate accepts RFC 3339 timestamps and bare dates
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

// handleListLicenses lists licenses with derived statuses
func (s *RESTServer) handleListLicenses(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	licenses, total, err := s.licenses.List(r.Context(), limit, offset)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"licenses": licenses,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// handleRenewLicense issues a new license for a tenant. The previous
// license row stays in the ledger untouched.
func (s *RESTServer) handleRenewLicense(w http.ResponseWriter, r *http.Request) {
	var req RenewLicenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenantId")
		return
	}
	activatedAt, err := parseDate(req.ActivatedAt)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid activatedAt date")
		return
	}
	expiresAt, err := parseDate(req.ExpiresAt)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid expiresAt date")
		return
	}

	license, err := s.licenses.Renew(r.Context(), tenantID, activatedAt, expiresAt)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, license)
}

// handleGetLicense returns a single license with its derived status
func (s *RESTServer) handleGetLicense(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid license id")
		return
	}

	license, err := s.licenses.Get(r.Context(), id)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, license)
}
