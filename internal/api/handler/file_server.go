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

type FileServer struct {
	svc *core.FileServerService
}

func NewFileServer(svc *core.FileServerService) *FileServer {
	return &FileServer{svc: svc}
}

func (h *FileServer) List(w http.ResponseWriter, r *http.Request) {
	servers, err := h.svc.List(r.Context())
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, servers)
}

func (h *FileServer) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateFileServer
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	now := time.Now()
	fs := &model.FileServer{
		ID:              platform.NewID(),
		Name:            req.Name,
		Kind:            req.Kind,
		Enabled:         enabled,
		Position:        req.Position,
		Host:            req.Host,
		Port:            req.Port,
		Username:        req.Username,
		Password:        req.Password,
		BasePath:        req.BasePath,
		Endpoint:        req.Endpoint,
		Region:          req.Region,
		Bucket:          req.Bucket,
		AccessKeyID:     req.AccessKeyID,
		SecretAccessKey: req.SecretAccessKey,
		UsePathStyle:    req.UsePathStyle,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := h.svc.Create(r.Context(), fs); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusCreated, fs)
}

func (h *FileServer) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	fs, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		serviceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, fs)
}

func (h *FileServer) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateFileServer
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	fs := &model.FileServer{
		ID:              id,
		Name:            req.Name,
		Kind:            req.Kind,
		Enabled:         enabled,
		Position:        req.Position,
		Host:            req.Host,
		Port:            req.Port,
		Username:        req.Username,
		Password:        req.Password,
		BasePath:        req.BasePath,
		Endpoint:        req.Endpoint,
		Region:          req.Region,
		Bucket:          req.Bucket,
		AccessKeyID:     req.AccessKeyID,
		SecretAccessKey: req.SecretAccessKey,
		UsePathStyle:    req.UsePathStyle,
	}

	if err := h.svc.Update(r.Context(), fs); err != nil {
		serviceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, fs)
}

func (h *FileServer) Delete(w http.ResponseWriter, r *http.Request) {
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

// requireScope validates the scope URL parameter.
func requireScope(r *http.Request) (scope, scopeID string, ok bool) {
	scope = chi.URLParam(r, "scope")
	scopeID = chi.URLParam(r, "scopeID")
	if scope != model.OverrideScopeHost && scope != model.OverrideScopeDatacenter {
		return "", "", false
	}
	return scope, scopeID, scopeID != ""
}

func (h *FileServer) ListOverrides(w http.ResponseWriter, r *http.Request) {
	scope, scopeID, ok := requireScope(r)
	if !ok {
		response.WriteError(w, http.StatusBadRequest, "scope must be host or datacenter, with a scope ID")
		return
	}

	overrides, err := h.svc.ListOverrides(r.Context(), scope, scopeID)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, overrides)
}

func (h *FileServer) SetOverride(w http.ResponseWriter, r *http.Request) {
	scope, scopeID, ok := requireScope(r)
	if !ok {
		response.WriteError(w, http.StatusBadRequest, "scope must be host or datacenter, with a scope ID")
		return
	}

	var req request.SetFileServerOverride
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The server must exist and match the kind being routed.
	fs, err := h.svc.GetByID(r.Context(), req.ServerID)
	if err != nil {
		serviceError(w, err)
		return
	}
	if fs.Kind != req.Kind {
		response.WriteError(w, http.StatusBadRequest, "server kind does not match override kind")
		return
	}

	override := &model.FileServerOverride{
		Scope:    scope,
		ScopeID:  scopeID,
		Kind:     req.Kind,
		ServerID: req.ServerID,
	}
	if err := h.svc.SetOverride(r.Context(), override); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, override)
}

func (h *FileServer) DeleteOverride(w http.ResponseWriter, r *http.Request) {
	scope, scopeID, ok := requireScope(r)
	if !ok {
		response.WriteError(w, http.StatusBadRequest, "scope must be host or datacenter, with a scope ID")
		return
	}

	kind, err := request.ParseKind(r, false)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.DeleteOverride(r.Context(), scope, scopeID, kind); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
