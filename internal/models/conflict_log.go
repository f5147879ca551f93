package models

import "encoding/json"

// ConflictRecord captures one detected push conflict: both competing
// timestamps and full snapshots of both competing payloads. The row itself
// is immutable except for the resolution metadata, which a resolve action
// sets at most once in principle (the current resolve overwrites rather
// than rejects, see ledger docs).
type ConflictRecord struct {
	ID              int64           `db:"id" json:"id"`
	TableName       string          `db:"table_name" json:"table_name"`
	RecordUUID      string          `db:"record_uuid" json:"record_uuid"`
	DeviceUUID      string          `db:"device_uuid" json:"device_uuid"`
	DeviceTimestamp string          `db:"device_timestamp" json:"device_timestamp"`
	ServerTimestamp string          `db:"server_timestamp" json:"server_timestamp"`
	DevicePayload   json.RawMessage `db:"device_payload" json:"device_payload,omitempty"`
	ServerPayload   json.RawMessage `db:"server_payload" json:"server_payload,omitempty"`
	Resolution      string          `db:"resolution" json:"resolution,omitempty"`
	ResolvedAt      string          `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolvedBy      string          `db:"resolved_by" json:"resolved_by,omitempty"`
	CreatedAt       string          `db:"created_at" json:"created_at"`
}

// Resolution strategies. Resolution is recorded as metadata only; the
// stored record is never rewritten by a resolve action.
const (
	ResolutionKeepDevice  = "keep_device"
	ResolutionUseServer   = "use_server"
	ResolutionManualMerge = "manual_merge"
)

// ValidResolution reports whether s is a recognized resolution strategy.
func ValidResolution(s string) bool {
	switch s {
	case ResolutionKeepDevice, ResolutionUseServer, ResolutionManualMerge:
		return true
	}
	return false
}
