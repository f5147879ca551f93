package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	apperrors "github.com/himslabs/syncserver/internal/errors"
	"github.com/himslabs/syncserver/internal/ledger"
)

// ConflictHandler serves the conflict ledger: listing and resolution.
type ConflictHandler struct {
	conflicts *ledger.ConflictLedger
	log       *logrus.Entry
}

// NewConflictHandler creates a ConflictHandler over the ledger.
func NewConflictHandler(conflicts *ledger.ConflictLedger) *ConflictHandler {
	return &ConflictHandler{
		conflicts: conflicts,
		log:       logrus.WithField("component", "http"),
	}
}

// List handles GET /conflicts.
func (h *ConflictHandler) List(w http.ResponseWriter, r *http.Request) {
	conflicts, err := h.conflicts.Unresolved()
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, conflicts, fmt.Sprintf("Found %d unresolved conflicts", len(conflicts)))
}

// ForDevice handles GET /conflicts/{deviceUuid}.
func (h *ConflictHandler) ForDevice(w http.ResponseWriter, r *http.Request) {
	conflicts, err := h.conflicts.ForDevice(r.PathValue("deviceUuid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, conflicts, fmt.Sprintf("Found %d conflicts for device", len(conflicts)))
}

// Resolve handles POST /conflicts/{conflictId}/resolve. Resolution is
// metadata only; the stored record is never changed here.
func (h *ConflictHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("conflictId"), 10, 64)
	if err != nil {
		writeError(w, apperrors.New(apperrors.ErrInvalidRequest, "conflict id must be numeric"))
		return
	}

	var req struct {
		Resolution string `json:"resolution"`
		ResolvedBy string `json:"resolvedBy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrInvalidRequest, "invalid request body", err))
		return
	}
	if req.Resolution == "" {
		writeError(w, apperrors.New(apperrors.ErrInvalidRequest, "resolution strategy is required"))
		return
	}

	if err := h.conflicts.Resolve(id, req.Resolution, req.ResolvedBy); err != nil {
		writeError(w, err)
		return
	}

	h.log.WithFields(logrus.Fields{
		"conflict": id, "resolution": req.Resolution, "by": req.ResolvedBy,
	}).Info("conflict resolved")
	writeSuccess(w, map[string]any{
		"conflictId": id,
		"resolution": req.Resolution,
	}, "Conflict resolved successfully")
}
