// Package ledger provides the two append-only ledgers the sync engine
// writes to: the conflict ledger and the sync audit ledger.
package ledger

import (
	"database/sql"
	"encoding/json"

	apperrors "github.com/himslabs/syncserver/internal/errors"
	"github.com/himslabs/syncserver/internal/models"
	"github.com/himslabs/syncserver/internal/store"
	"github.com/himslabs/syncserver/internal/timeutil"
)

// ConflictLedger records detected push conflicts and their resolution
// metadata. Resolution never touches the underlying entity tables; applying
// a chosen resolution to live data is an out-of-band action.
type ConflictLedger struct {
	store *store.Store
}

// NewConflictLedger creates a ConflictLedger backed by st.
func NewConflictLedger(st *store.Store) *ConflictLedger {
	return &ConflictLedger{store: st}
}

// LogConflict appends one immutable conflict row capturing both competing
// timestamps and full snapshots of both competing payloads.
func (l *ConflictLedger) LogConflict(table, recordUUID, deviceUUID, deviceTS, serverTS string, devicePayload, serverPayload map[string]any) error {
	deviceJSON, err := json.Marshal(devicePayload)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, "marshal device payload", err)
	}
	serverJSON, err := json.Marshal(serverPayload)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, "marshal server payload", err)
	}

	_, err = l.store.DB().Exec(`
		INSERT INTO conflict_log
			(table_name, record_uuid, device_uuid, device_timestamp, server_timestamp, device_payload, server_payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		table, recordUUID, deviceUUID, deviceTS, serverTS,
		string(deviceJSON), string(serverJSON), timeutil.Now())
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "log conflict", err)
	}
	return nil
}

// Resolve records resolution metadata on a conflict row: the strategy, who
// resolved it, and when. An already-resolved row is overwritten, not
// rejected.
func (l *ConflictLedger) Resolve(id int64, resolution, resolvedBy string) error {
	if !models.ValidResolution(resolution) {
		return apperrors.Newf(apperrors.ErrInvalidRequest, "invalid resolution %q", resolution)
	}
	if resolvedBy == "" {
		resolvedBy = "system"
	}

	res, err := l.store.DB().Exec(`
		UPDATE conflict_log SET resolution = ?, resolved_at = ?, resolved_by = ? WHERE id = ?`,
		resolution, timeutil.Now(), resolvedBy, id)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "resolve conflict", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.Newf(apperrors.ErrNotFound, "conflict %d not found", id)
	}
	return nil
}

// Unresolved returns all conflicts without a resolution, newest first.
func (l *ConflictLedger) Unresolved() ([]*models.ConflictRecord, error) {
	return l.query("SELECT " + conflictColumns + " FROM conflict_log WHERE resolution IS NULL ORDER BY created_at DESC")
}

// ForDevice returns the unresolved conflicts originating from one device,
// newest first.
func (l *ConflictLedger) ForDevice(deviceUUID string) ([]*models.ConflictRecord, error) {
	return l.query(
		"SELECT "+conflictColumns+" FROM conflict_log WHERE device_uuid = ? AND resolution IS NULL ORDER BY created_at DESC",
		deviceUUID)
}

// Counts returns total, unresolved, and resolved conflict counts, for the
// stats endpoint.
func (l *ConflictLedger) Counts() (total, unresolved, resolved int, err error) {
	err = l.store.DB().QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN resolution IS NULL THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN resolution IS NOT NULL THEN 1 ELSE 0 END), 0)
		FROM conflict_log`).Scan(&total, &unresolved, &resolved)
	if err != nil {
		return 0, 0, 0, apperrors.Wrap(apperrors.ErrDatabase, "count conflicts", err)
	}
	return total, unresolved, resolved, nil
}

const conflictColumns = "id, table_name, record_uuid, device_uuid, device_timestamp, server_timestamp, device_payload, server_payload, resolution, resolved_at, resolved_by, created_at"

func (l *ConflictLedger) query(q string, args ...any) ([]*models.ConflictRecord, error) {
	rows, err := l.store.DB().Query(q, args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "query conflicts", err)
	}
	defer rows.Close()

	conflicts := []*models.ConflictRecord{}
	for rows.Next() {
		var c models.ConflictRecord
		var devicePayload, serverPayload, resolution, resolvedAt, resolvedBy sql.NullString
		if err := rows.Scan(&c.ID, &c.TableName, &c.RecordUUID, &c.DeviceUUID,
			&c.DeviceTimestamp, &c.ServerTimestamp,
			&devicePayload, &serverPayload, &resolution, &resolvedAt, &resolvedBy, &c.CreatedAt); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "scan conflict", err)
		}
		if devicePayload.Valid {
			c.DevicePayload = json.RawMessage(devicePayload.String)
		}
		if serverPayload.Valid {
			c.ServerPayload = json.RawMessage(serverPayload.String)
		}
		c.Resolution = resolution.String
		c.ResolvedAt = resolvedAt.String
		c.ResolvedBy = resolvedBy.String
		conflicts = append(conflicts, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "iterate conflicts", err)
	}
	return conflicts, nil
}
