package models

// SyncLogEntry is one row of the append-only sync audit trail. Entries are
// never updated; business logic never reads them back.
type SyncLogEntry struct {
	ID           int64  `db:"id" json:"id"`
	DeviceUUID   string `db:"device_uuid" json:"device_uuid"`
	TableName    string `db:"table_name" json:"table_name"`
	Operation    string `db:"operation" json:"operation"` // pull, push, insert, update, conflict, skip
	RecordUUID   string `db:"record_uuid" json:"record_uuid,omitempty"`
	Timestamp    string `db:"timestamp" json:"timestamp"`
	Success      bool   `db:"success" json:"success"`
	ErrorMessage string `db:"error_message" json:"error_message,omitempty"`
}

// Table marker used when one ledger entry covers several tables, as a pull
// call does.
const SyncTableMultiple = "multiple"
