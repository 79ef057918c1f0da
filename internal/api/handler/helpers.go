package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/filevault/internal/api/request"
	"github.com/edvin/filevault/internal/api/response"
	"github.com/edvin/filevault/internal/core"
	"github.com/edvin/filevault/internal/model"
)

// serviceError maps the core sentinel errors onto HTTP status codes.
func serviceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrInvalidName), errors.Is(err, core.ErrUnsupported):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrBackupExists):
		status = http.StatusConflict
	case errors.Is(err, core.ErrQuotaExceeded), errors.Is(err, core.ErrBackendDisabled):
		status = http.StatusForbidden
	case errors.Is(err, core.ErrNoServerAvailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	}
	response.WriteError(w, status, err.Error())
}

// loadTenant resolves the tenantID URL parameter to a tenant. Returns
// false after writing an error response when the tenant cannot be loaded.
func loadTenant(w http.ResponseWriter, r *http.Request, tenants *core.TenantService) (*model.Tenant, bool) {
	tenantID, err := request.RequireID(chi.URLParam(r, "tenantID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	tenant, err := tenants.GetByID(r.Context(), tenantID)
	if err != nil {
		serviceError(w, err)
		return nil, false
	}
	return tenant, true
}
