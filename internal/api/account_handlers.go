package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/amo-platform/amo-server/internal/models"
	"github.com/amo-platform/amo-server/internal/storage"
)

// UpdateAccountRequest is the request to update an account
type UpdateAccountRequest struct {
	Username string `json:"username,omitempty" validate:"omitempty,min=3,max=64"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=ADMIN USER"`
	TenantID string `json:"tenantId,omitempty"`
}

// handleListAccounts lists accounts
func (s *RESTServer) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	accounts, total, err := s.store.ListAccounts(r.Context(), limit, offset)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// handleGetAccount returns a single account
func (s *RESTServer) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	account, err := s.store.GetAccount(r.Context(), id)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, account)
}

// handleUpdateAccount updates an account's username, role or tenant.
// Promoting to ADMIN detaches the account from its tenant; demoting to
// USER requires one.
func (s *RESTServer) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	account, err := s.store.GetAccount(r.Context(), id)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	previousRole := account.Role

	if req.Username != "" {
		account.Username = req.Username
	}
	if req.Role != "" {
		account.Role = models.Role(req.Role)
	}
	if req.TenantID != "" {
		tenantID, err := uuid.Parse(req.TenantID)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid tenantId")
			return
		}
		account.TenantID = &tenantID
	}

	switch account.Role {
	case models.RoleAdmin:
		account.TenantID = nil
	case models.RoleUser:
		if account.TenantID == nil {
			s.respondError(w, http.StatusBadRequest, "tenantId is required for USER accounts")
			return
		}
	}

	if err := s.store.UpdateAccount(r.Context(), account); err != nil {
		s.respondAppError(w, err)
		return
	}

	if account.Role != previousRole {
		s.recorder.Record(r.Context(),
			"Role Changed",
			fmt.Sprintf("Role changed from %s to %s for %s", previousRole, account.Role, account.Email),
			models.SubjectAccount, account.ID,
		)
	}

	s.respondJSON(w, http.StatusOK, account)
}

// handleDeleteAccount soft-deletes an account. Outstanding sessions for
// it stop authorizing immediately.
func (s *RESTServer) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	claims := claimsFromContext(r.Context())
	if claims != nil && claims.AccountID == id {
		s.respondError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	account, err := s.store.GetAccount(r.Context(), id)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	if err := s.store.SoftDeleteAccount(r.Context(), id); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.recorder.Record(r.Context(),
		"Account Deleted",
		fmt.Sprintf("Account %s deleted", account.Email),
		models.SubjectAccount, account.ID,
	)

	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Account deleted"})
}

// handleListAccountActivities lists the activity trail for an account
func (s *RESTServer) handleListAccountActivities(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	if _, err := s.store.GetAccount(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "not found")
			return
		}
		s.respondAppError(w, err)
		return
	}

	limit, offset := pagination(r)
	activities, total, err := s.store.ListActivities(r.Context(), models.SubjectAccount, id, limit, offset)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"activities": activities,
		"total":      total,
		"limit":      limit,
		"offset":     offset,
	})
}
