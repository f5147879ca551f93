package ledger

import (
	apperrors "github.com/himslabs/syncserver/internal/errors"
	"github.com/himslabs/syncserver/internal/store"
	"github.com/himslabs/syncserver/internal/timeutil"
)

// SyncLedger is the append-only audit trail of sync attempts. Every pull and
// every per-record push outcome lands here, success or not. Business logic
// never reads it back; only reporting does.
type SyncLedger struct {
	store *store.Store
}

// NewSyncLedger creates a SyncLedger backed by st.
func NewSyncLedger(st *store.Store) *SyncLedger {
	return &SyncLedger{store: st}
}

// Append writes one audit row. recordUUID and errMsg may be empty.
func (l *SyncLedger) Append(deviceUUID, table, operation, recordUUID string, success bool, errMsg string) error {
	successInt := 0
	if success {
		successInt = 1
	}
	_, err := l.store.DB().Exec(`
		INSERT INTO sync_log (device_uuid, table_name, operation, record_uuid, timestamp, success, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		deviceUUID, table, operation, nullable(recordUUID), timeutil.Now(), successInt, nullable(errMsg))
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "append sync log", err)
	}
	return nil
}

// CountsSince returns total, succeeded, and failed sync attempts recorded
// after since, for the stats endpoint.
func (l *SyncLedger) CountsSince(since string) (total, succeeded, failed int, err error) {
	err = l.store.DB().QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0)
		FROM sync_log WHERE timestamp > ?`, since).Scan(&total, &succeeded, &failed)
	if err != nil {
		return 0, 0, 0, apperrors.Wrap(apperrors.ErrDatabase, "count sync log", err)
	}
	return total, succeeded, failed, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
