package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	apperrors "github.com/himslabs/syncserver/internal/errors"
	"github.com/himslabs/syncserver/internal/sync"
)

// SyncHandler serves the pull and push endpoints.
type SyncHandler struct {
	engine *sync.Engine
	log    *logrus.Entry
}

// NewSyncHandler creates a SyncHandler over the engine.
func NewSyncHandler(engine *sync.Engine) *SyncHandler {
	return &SyncHandler{
		engine: engine,
		log:    logrus.WithField("component", "http"),
	}
}

// Pull handles POST /sync/pull.
func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	var req sync.PullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrInvalidRequest, "invalid request body", err))
		return
	}

	resp, err := h.engine.Pull(r.Context(), req)
	if err != nil {
		h.log.WithError(err).WithField("device", req.DeviceUUID).Error("pull failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Push handles POST /sync/push.
func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	var req sync.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrInvalidRequest, "invalid request body", err))
		return
	}

	resp, err := h.engine.Push(r.Context(), req)
	if err != nil {
		h.log.WithError(err).WithField("device", req.DeviceUUID).Error("push failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
