package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/filevault/internal/api/request"
	"github.com/edvin/filevault/internal/api/response"
	"github.com/edvin/filevault/internal/core"
	"github.com/edvin/filevault/internal/transfer"
)

// maxUploadBytes caps a single backup upload.
const maxUploadBytes = 1 << 30

type Backup struct {
	vault     *core.VaultService
	tenants   *core.TenantService
	installer *transfer.Installer
}

func NewBackup(vault *core.VaultService, tenants *core.TenantService, installer *transfer.Installer) *Backup {
	return &Backup{vault: vault, tenants: tenants, installer: installer}
}

func (h *Backup) List(w http.ResponseWriter, r *http.Request) {
	tenant, ok := loadTenant(w, r, h.tenants)
	if !ok {
		return
	}

	kind, err := request.ParseKind(r, true)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	backups, err := h.vault.List(r.Context(), tenant, kind)
	if err != nil {
		serviceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, backups)
}

// Store accepts a multipart upload with a kind field and a file part.
func (h *Backup) Store(w http.ResponseWriter, r *http.Request) {
	tenant, ok := loadTenant(w, r, h.tenants)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		response.WriteError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	kind := r.FormValue("kind")
	if kind == "" {
		response.WriteError(w, http.StatusBadRequest, "missing kind field")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, "missing file part")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}

	backup, err := h.vault.Store(r.Context(), tenant, kind, header.Filename, header.Header.Get("Content-Type"), content)
	if err != nil {
		serviceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, backup)
}

func (h *Backup) Get(w http.ResponseWriter, r *http.Request) {
	tenant, ok := loadTenant(w, r, h.tenants)
	if !ok {
		return
	}

	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	backup, err := h.vault.Get(r.Context(), tenant, id)
	if err != nil {
		serviceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, backup)
}

// Download redirects to a direct link when the backend offers one, and
// streams the content otherwise.
func (h *Backup) Download(w http.ResponseWriter, r *http.Request) {
	tenant, ok := loadTenant(w, r, h.tenants)
	if !ok {
		return
	}

	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	plan, err := h.vault.Restore(r.Context(), tenant, id)
	if err != nil {
		serviceError(w, err)
		return
	}

	if plan.Direct() {
		http.Redirect(w, r, plan.DirectURL, http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+plan.FileName+`"`)
	w.Write(plan.Content)
}

// Restore places the backup file back into the tenant's working
// directory, or a subdirectory named in the request body.
func (h *Backup) Restore(w http.ResponseWriter, r *http.Request) {
	tenant, ok := loadTenant(w, r, h.tenants)
	if !ok {
		return
	}

	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.RestoreBackup
	if r.ContentLength > 0 {
		if err := request.Decode(r, &req); err != nil {
			response.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	destDir := tenant.WorkingDir
	if req.TargetDir != "" {
		destDir, err = request.SafeJoin(tenant.WorkingDir, req.TargetDir)
		if err != nil {
			response.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	plan, err := h.vault.Restore(r.Context(), tenant, id)
	if err != nil {
		serviceError(w, err)
		return
	}

	restoredTo, err := h.installer.Apply(r.Context(), plan, destDir)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"restored_to": restoredTo})
}

func (h *Backup) Delete(w http.ResponseWriter, r *http.Request) {
	tenant, ok := loadTenant(w, r, h.tenants)
	if !ok {
		return
	}

	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.vault.Delete(r.Context(), tenant, id); err != nil {
		serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Capacity reports usage and limit for one backend kind. With
// source=backend the backend is asked to measure usage itself.
func (h *Backup) Capacity(w http.ResponseWriter, r *http.Request) {
	tenant, ok := loadTenant(w, r, h.tenants)
	if !ok {
		return
	}

	kind, err := request.ParseKind(r, false)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var capacity any
	if r.URL.Query().Get("source") == "backend" {
		capacity, err = h.vault.BackendCapacity(r.Context(), tenant, kind)
	} else {
		capacity, err = h.vault.Capacity(r.Context(), tenant, kind)
	}
	if err != nil {
		serviceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, capacity)
}

// Backends lists the backend kinds the tenant can currently store to.
func (h *Backup) Backends(w http.ResponseWriter, r *http.Request) {
	tenant, ok := loadTenant(w, r, h.tenants)
	if !ok {
		return
	}

	backends, err := h.vault.AccessibleBackends(r.Context(), tenant)
	if err != nil {
		serviceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"backends": backends})
}
