package handlers

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	apperrors "github.com/himslabs/syncserver/internal/errors"
	"github.com/himslabs/syncserver/internal/registry"
)

// DeviceHandler serves device registration and lookup.
type DeviceHandler struct {
	registry *registry.Registry
	log      *logrus.Entry
}

// NewDeviceHandler creates a DeviceHandler over the registry.
func NewDeviceHandler(reg *registry.Registry) *DeviceHandler {
	return &DeviceHandler{
		registry: reg,
		log:      logrus.WithField("component", "http"),
	}
}

// Register handles POST /devices/register. The device's address is taken
// from the connection, not the body.
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UUID string `json:"uuid"`
		Name string `json:"name"`
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrInvalidRequest, "invalid request body", err))
		return
	}
	if req.UUID == "" || req.Name == "" {
		writeError(w, apperrors.New(apperrors.ErrInvalidRequest, "device uuid and name are required"))
		return
	}

	ip := clientIP(r)
	err := h.registry.Register(registry.Registration{
		UUID:      req.UUID,
		Name:      req.Name,
		IPAddress: ip,
		Role:      req.Role,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.log.WithFields(logrus.Fields{"device": req.UUID, "name": req.Name, "ip": ip}).
		Info("device registered")
	writeSuccess(w, map[string]any{
		"uuid":       req.UUID,
		"name":       req.Name,
		"ipAddress":  ip,
		"registered": true,
	}, "Device registered successfully")
}

// List handles GET /devices.
func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	devices, err := h.registry.ActiveDevices()
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, devices, fmt.Sprintf("Found %d active devices", len(devices)))
}

// Get handles GET /devices/{uuid}.
func (h *DeviceHandler) Get(w http.ResponseWriter, r *http.Request) {
	device, err := h.registry.Get(r.PathValue("uuid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, device, "Success")
}

// Deactivate handles DELETE /devices/{uuid}. The registration row is kept;
// the device just stops counting as active.
func (h *DeviceHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	uuid := r.PathValue("uuid")
	if err := h.registry.Deactivate(uuid); err != nil {
		writeError(w, err)
		return
	}
	h.log.WithField("device", uuid).Info("device deactivated")
	writeSuccess(w, map[string]any{"uuid": uuid, "active": false}, "Device deactivated")
}

// clientIP prefers the X-Forwarded-For chain, falling back to the peer
// address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
