// Package registry tracks the known peer devices: identity, address, role,
// and activity. Devices are never hard-deleted, only deactivated.
package registry

import (
	"database/sql"

	apperrors "github.com/himslabs/syncserver/internal/errors"
	"github.com/himslabs/syncserver/internal/models"
	"github.com/himslabs/syncserver/internal/store"
	"github.com/himslabs/syncserver/internal/timeutil"
	"github.com/himslabs/syncserver/internal/uuid"
)

// Registry provides device registration and lookup over the shared store.
type Registry struct {
	store *store.Store
}

// New creates a Registry backed by st.
func New(st *store.Store) *Registry {
	return &Registry{store: st}
}

// Registration carries the fields a device submits when registering.
type Registration struct {
	UUID      string
	Name      string
	IPAddress string
	Role      string
	SyncToken string
}

// Register inserts the device, or refreshes it when the uuid is already
// known. On re-registration only the name, last-seen time, and active flag
// are refreshed; the address, role, and token stay as first registered. A
// device that moves hosts keeps its original address until it is
// deactivated and re-created.
func (r *Registry) Register(reg Registration) error {
	if err := uuid.Validate(reg.UUID); err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidRequest, "invalid device uuid", err)
	}
	if reg.Name == "" {
		return apperrors.New(apperrors.ErrInvalidRequest, "device name is required")
	}
	role := reg.Role
	if role == "" {
		role = models.DefaultRole
	}

	now := timeutil.Now()
	_, err := r.store.DB().Exec(`
		INSERT INTO devices (uuid, name, ip_address, role, sync_token, last_seen, is_active)
		VALUES (?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(uuid) DO UPDATE SET
			name = excluded.name,
			last_seen = excluded.last_seen,
			is_active = 1`,
		reg.UUID, reg.Name, reg.IPAddress, role, nullable(reg.SyncToken), now)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "register device", err)
	}
	return nil
}

// Touch refreshes the last-seen time of a known device. Unknown devices are
// ignored; sync calls from unregistered devices still succeed.
func (r *Registry) Touch(deviceUUID string) error {
	_, err := r.store.DB().Exec(
		"UPDATE devices SET last_seen = ? WHERE uuid = ?", timeutil.Now(), deviceUUID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "touch device", err)
	}
	return nil
}

// Get returns the device keyed by uuid.
func (r *Registry) Get(deviceUUID string) (*models.Device, error) {
	row := r.store.DB().QueryRow(
		"SELECT uuid, name, ip_address, role, last_seen, is_active, created_at, sync_token FROM devices WHERE uuid = ?",
		deviceUUID)
	dev, err := scanDevice(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.Newf(apperrors.ErrNotFound, "device %s not found", deviceUUID)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "get device", err)
	}
	return dev, nil
}

// ActiveDevices returns all active devices, most recently seen first.
func (r *Registry) ActiveDevices() ([]*models.Device, error) {
	rows, err := r.store.DB().Query(
		"SELECT uuid, name, ip_address, role, last_seen, is_active, created_at, sync_token FROM devices WHERE is_active = 1 ORDER BY last_seen DESC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "list active devices", err)
	}
	defer rows.Close()

	devices := []*models.Device{}
	for rows.Next() {
		dev, err := scanDevice(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "scan device", err)
		}
		devices = append(devices, dev)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "iterate devices", err)
	}
	return devices, nil
}

// Deactivate marks a device inactive. Its registration row is retained.
func (r *Registry) Deactivate(deviceUUID string) error {
	res, err := r.store.DB().Exec(
		"UPDATE devices SET is_active = 0 WHERE uuid = ?", deviceUUID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "deactivate device", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.Newf(apperrors.ErrNotFound, "device %s not found", deviceUUID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*models.Device, error) {
	var dev models.Device
	var ip, token sql.NullString
	var active int
	if err := row.Scan(&dev.UUID, &dev.Name, &ip, &dev.Role, &dev.LastSeen, &active, &dev.CreatedAt, &token); err != nil {
		return nil, err
	}
	dev.IPAddress = ip.String
	dev.SyncToken = token.String
	dev.IsActive = active == 1
	return &dev, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
