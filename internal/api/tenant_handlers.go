package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/amo-platform/amo-server/internal/license"
	"github.com/amo-platform/amo-server/internal/models"
	"github.com/amo-platform/amo-server/internal/storage"
)

// CreateTenantRequest is the request to create a tenant
type CreateTenantRequest struct {
	Name      string `json:"name" validate:"required,min=2,max=128"`
	TaxNumber string `json:"taxNumber" validate:"required,min=4,max=32"`
}

// UpdateTenantRequest is the request to update a tenant
type UpdateTenantRequest struct {
	Name      string `json:"name,omitempty" validate:"omitempty,min=2,max=128"`
	TaxNumber string `json:"taxNumber,omitempty" validate:"omitempty,min=4,max=32"`
}

// tenantResponse pairs a tenant with its derived access status
type tenantResponse struct {
	*models.Tenant
	Status license.TenantStatus `json:"status"`
}

func (s *RESTServer) tenantWithStatus(r *http.Request, tenant *models.Tenant) (*tenantResponse, error) {
	status, err := s.licenses.TenantStatus(r.Context(), tenant)
	if err != nil {
		return nil, err
	}
	return &tenantResponse{Tenant: tenant, Status: status}, nil
}

// handleListTenants lists tenants with derived statuses
func (s *RESTServer) handleListTenants(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	tenants, total, err := s.store.ListTenants(r.Context(), limit, offset)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	result := make([]*tenantResponse, 0, len(tenants))
	for _, tenant := range tenants {
		tr, err := s.tenantWithStatus(r, tenant)
		if err != nil {
			s.respondAppError(w, err)
			return
		}
		result = append(result, tr)
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"tenants": result,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// handleGetTenant returns a single tenant with its derived status
func (s *RESTServer) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	tenant, err := s.store.GetTenant(r.Context(), id)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	tr, err := s.tenantWithStatus(r, tenant)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, tr)
}

// handleCreateTenant creates a tenant
func (s *RESTServer) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tenant := &models.Tenant{
		Name:      req.Name,
		TaxNumber: req.TaxNumber,
	}

	if err := s.store.CreateTenant(r.Context(), tenant); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.recorder.Record(r.Context(),
		"Company Created",
		fmt.Sprintf("Company %s created", tenant.Name),
		models.SubjectTenant, tenant.ID,
	)

	s.respondJSON(w, http.StatusCreated, tenant)
}

// handleUpdateTenant updates a tenant's details
func (s *RESTServer) handleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	var req UpdateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tenant, err := s.store.GetTenant(r.Context(), id)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	if req.Name != "" {
		tenant.Name = req.Name
	}
	if req.TaxNumber != "" {
		tenant.TaxNumber = req.TaxNumber
	}

	if err := s.store.UpdateTenant(r.Context(), tenant); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, tenant)
}

// handleDeleteTenant soft-deletes a tenant. Its users lose access on
// their next request.
func (s *RESTServer) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	tenant, err := s.store.GetTenant(r.Context(), id)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	if err := s.store.SoftDeleteTenant(r.Context(), id); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.recorder.Record(r.Context(),
		"Company Deleted",
		fmt.Sprintf("Company %s deleted", tenant.Name),
		models.SubjectTenant, tenant.ID,
	)

	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Company deleted"})
}

// handleLockTenant locks a tenant, blocking its users immediately
func (s *RESTServer) handleLockTenant(w http.ResponseWriter, r *http.Request) {
	s.setTenantLock(w, r, true)
}

// handleUnlockTenant unlocks a tenant
func (s *RESTServer) handleUnlockTenant(w http.ResponseWriter, r *http.Request) {
	s.setTenantLock(w, r, false)
}

func (s *RESTServer) setTenantLock(w http.ResponseWriter, r *http.Request, locked bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	tenant, err := s.store.GetTenant(r.Context(), id)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	if err := s.store.SetTenantLock(r.Context(), id, locked); err != nil {
		s.respondAppError(w, err)
		return
	}

	title := "Company Unlocked"
	if locked {
		title = "Company Locked"
	}
	s.recorder.Record(r.Context(),
		title,
		fmt.Sprintf("%s for %s", title, tenant.Name),
		models.SubjectTenant, tenant.ID,
	)

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": title,
		"locked":  locked,
	})
}

// handleGetTenantLicense returns the tenant's current license with its
// derived status
func (s *RESTServer) handleGetTenantLicense(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	current, err := s.store.GetCurrentLicense(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "no license on record")
			return
		}
		s.respondAppError(w, err)
		return
	}

	withStatus, err := s.licenses.Get(r.Context(), current.ID)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, withStatus)
}

// handleListTenantActivities lists the activity trail for a tenant
func (s *RESTServer) handleListTenantActivities(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	if _, err := s.store.GetTenant(r.Context(), id); err != nil {
		s.respondAppError(w, err)
		return
	}

	limit, offset := pagination(r)
	activities, total, err := s.store.ListActivities(r.Context(), models.SubjectTenant, id, limit, offset)
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
