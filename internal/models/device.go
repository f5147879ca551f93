// Package models provides data model definitions for the sync server.
package models

// Device is a known peer device. Devices are created or refreshed by
// registration only and are never hard-deleted, only deactivated.
type Device struct {
	UUID      string `db:"uuid" json:"uuid"`
	Name      string `db:"name" json:"name"`
	IPAddress string `db:"ip_address" json:"ip_address"`
	Role      string `db:"role" json:"role"` // client, master
	LastSeen  string `db:"last_seen" json:"last_seen"`
	IsActive  bool   `db:"is_active" json:"is_active"`
	CreatedAt string `db:"created_at" json:"created_at"`
	SyncToken string `db:"sync_token" json:"sync_token,omitempty"`
}

// TableName returns the table name for Device.
func (Device) TableName() string {
	return "devices"
}

// DefaultRole is assigned to devices that register without a role.
const DefaultRole = "client"
