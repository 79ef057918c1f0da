package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/filevault/internal/api/request"
	"github.com/edvin/filevault/internal/api/response"
	"github.com/edvin/filevault/internal/core"
	"github.com/edvin/filevault/internal/model"
	"github.com/edvin/filevault/internal/platform"
)

type Tenant struct {
	svc *core.TenantService
}

func NewTenant(svc *core.TenantService) *Tenant {
	return &Tenant{svc: svc}
}

func (h *Tenant) List(w http.ResponseWriter, r *http.Request) {
	pg := request.ParsePagination(r)

	tenants, hasMore, err := h.svc.List(r.Context(), pg.Limit, pg.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(tenants) > 0 {
		nextCursor = tenants[len(tenants)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, tenants, nextCursor, hasMore)
}

func (h *Tenant) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateTenant
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	tenant := &model.Tenant{
		ID:              platform.NewID(),
		Name:            req.Name,
		WorkingDir:      req.WorkingDir,
		HostID:          req.HostID,
		DatacenterID:    req.DatacenterID,
		QuotaOverrides:  req.QuotaOverrides,
		ServerSelection: req.ServerSelection,
		Status:          model.TenantStatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := h.svc.Create(r.Context(), tenant); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusCreated, tenant)
}

func (h *Tenant) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tenant, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		serviceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, tenant)
}

func (h *Tenant) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateTenant
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tenant := &model.Tenant{
		ID:              id,
		Name:            req.Name,
		WorkingDir:      req.WorkingDir,
		HostID:          req.HostID,
		DatacenterID:    req.DatacenterID,
		QuotaOverrides:  req.QuotaOverrides,
		ServerSelection: req.ServerSelection,
	}

	if err := h.svc.Update(r.Context(), tenant); err != nil {
		serviceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, tenant)
}

func (h *Tenant) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
