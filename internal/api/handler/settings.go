package handler

import (
	"net/http"

	"github.com/edvin/filevault/internal/api/request"
	"github.com/edvin/filevault/internal/api/response"
	"github.com/edvin/filevault/internal/core"
	"github.com/edvin/filevault/internal/model"
)

type Settings struct {
	svc *core.SettingsService
}

func NewSettings(svc *core.SettingsService) *Settings {
	return &Settings{svc: svc}
}

func (h *Settings) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.Get(r.Context())
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, settings)
}

func (h *Settings) Update(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateSettings
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	settings := &model.Settings{
		S3Enabled:                 req.S3Enabled,
		SFTPEnabled:               req.SFTPEnabled,
		LocalEnabled:              req.LocalEnabled,
		DefaultS3CapacityBytes:    req.DefaultS3CapacityBytes,
		DefaultSFTPCapacityBytes:  req.DefaultSFTPCapacityBytes,
		DefaultLocalCapacityBytes: req.DefaultLocalCapacityBytes,
		LocalDirectoryTemplate:    req.LocalDirectoryTemplate,
		LocalDownloadBaseURL:      req.LocalDownloadBaseURL,
	}

	if err := h.svc.Set(r.Context(), settings); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, settings)
}
