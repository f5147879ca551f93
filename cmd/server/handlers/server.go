package handlers

import (
	"net/http"
	"time"

	"github.com/himslabs/syncserver/internal/config"
	"github.com/himslabs/syncserver/internal/discovery"
	"github.com/himslabs/syncserver/internal/ledger"
	"github.com/himslabs/syncserver/internal/registry"
	"github.com/himslabs/syncserver/internal/timeutil"
)

// ServerHandler serves the health, info, and reporting endpoints.
type ServerHandler struct {
	cfg       config.Config
	registry  *registry.Registry
	conflicts *ledger.ConflictLedger
	audit     *ledger.SyncLedger
	started   time.Time
}

// NewServerHandler creates a ServerHandler.
func NewServerHandler(cfg config.Config, reg *registry.Registry, conflicts *ledger.ConflictLedger, audit *ledger.SyncLedger) *ServerHandler {
	return &ServerHandler{
		cfg:       cfg,
		registry:  reg,
		conflicts: conflicts,
		audit:     audit,
		started:   time.Now(),
	}
}

// Ping handles GET /ping.
func (h *ServerHandler) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Inventory sync server is running",
		"serverIP":  discovery.LocalIP(),
		"version":   config.Version,
		"timestamp": timeutil.Now(),
	})
}

// Info handles GET /info.
func (h *ServerHandler) Info(w http.ResponseWriter, r *http.Request) {
	devices, err := h.registry.ActiveDevices()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"name":          h.cfg.ServerName,
			"version":       config.Version,
			"serverIP":      discovery.LocalIP(),
			"port":          h.cfg.Port,
			"activeDevices": len(devices),
			"uptime":        time.Since(h.started).Seconds(),
			"timestamp":     timeutil.Now(),
		},
	})
}

// Stats handles GET /stats: sync attempts over the last 24 hours, conflict
// totals, and the active device count.
func (h *ServerHandler) Stats(w http.ResponseWriter, r *http.Request) {
	since := timeutil.Format(time.Now().UTC().Add(-24 * time.Hour))
	syncTotal, syncOK, syncFailed, err := h.audit.CountsSince(since)
	if err != nil {
		writeError(w, err)
		return
	}
	confTotal, unresolved, resolved, err := h.conflicts.Counts()
	if err != nil {
		writeError(w, err)
		return
	}
	devices, err := h.registry.ActiveDevices()
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, map[string]any{
		"sync": map[string]int{
			"total_syncs":      syncTotal,
			"successful_syncs": syncOK,
			"failed_syncs":     syncFailed,
		},
		"conflicts": map[string]int{
			"total_conflicts": confTotal,
			"unresolved":      unresolved,
			"resolved":        resolved,
		},
		"devices": len(devices),
	}, "Success")
}
