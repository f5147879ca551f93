// Package store provides the SQLite storage layer: connection lifecycle,
// schema bootstrap, and the generic keyed-record primitives the sync engine
// is built on.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	apperrors "github.com/himslabs/syncserver/internal/errors"
	"github.com/himslabs/syncserver/internal/schema"
)

// Store owns one SQLite database handle. It is constructed explicitly and
// passed into the components that need it; there is no process-wide shared
// handle. Callers close it at shutdown.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database under dataDir with:
// - WAL mode, so readers are not blocked by the single writer
// - foreign key constraints enabled
// - the full schema bootstrapped
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return open(filepath.Join(dataDir, "inventory_master.db"))
}

// OpenInMemory opens a private in-memory database with the full schema.
// Intended for tests.
func OpenInMemory() (*Store, error) {
	return open(":memory:")
}

func open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite serializes writers; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(bootstrapDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for the registry, ledgers, and reporting
// queries that share this store.
func (s *Store) DB() *sql.DB {
	return s.db
}

// allowTable resolves a table name against the registry. Every exported
// record primitive calls this before the name reaches query text, even when
// the caller has already validated it.
func allowTable(table string) (schema.Table, error) {
	tbl, ok := schema.Lookup(table)
	if !ok {
		return schema.Table{}, apperrors.Newf(apperrors.ErrTableNotAllowed, "table %q is not syncable", table)
	}
	return tbl, nil
}

// RecordsSince returns all rows of table with last_modified strictly greater
// than since, ascending by last_modified.
func (s *Store) RecordsSince(table, since string) ([]map[string]any, error) {
	tbl, err := allowTable(table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"SELECT * FROM %s WHERE last_modified > ? ORDER BY last_modified ASC", tbl.Name)
	rows, err := s.db.Query(query, since)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "query records since", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// RecordByUUID returns the row of table keyed by uuid, or (nil, nil) when no
// such row exists.
func (s *Store) RecordByUUID(table, uuid string) (map[string]any, error) {
	tbl, err := allowTable(table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE uuid = ?", tbl.Name)
	rows, err := s.db.Query(query, uuid)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "query record by uuid", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// UpsertRecord inserts record into table, or fully replaces the existing row
// with the same uuid: every supplied column overwrites the stored value.
// Unsupplied columns keep whatever the statement does not list, so callers
// must supply complete rows. Column names are taken from the table
// descriptor, never from the record, so a hostile key cannot reach query
// text.
func (s *Store) UpsertRecord(table string, record map[string]any) error {
	tbl, err := allowTable(table)
	if err != nil {
		return err
	}

	uuid, ok := record[schema.ColUUID].(string)
	if !ok || uuid == "" {
		return apperrors.New(apperrors.ErrRecordInvalid, "record must have a uuid field")
	}

	var columns []string
	var values []any
	for _, col := range tbl.Columns {
		v, ok := record[col]
		if !ok {
			continue
		}
		columns = append(columns, col)
		values = append(values, v)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	var updates []string
	for _, col := range columns {
		if col == schema.ColUUID {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(uuid) DO UPDATE SET %s",
		tbl.Name, strings.Join(columns, ", "), placeholders, strings.Join(updates, ", "))

	if _, err := s.db.Exec(query, values...); err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "upsert record", err)
	}
	return nil
}

// WithTx runs fn inside one transaction. Any error rolls back every
// operation in the batch.
func (s *Store) WithTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "begin transaction", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "commit transaction", err)
	}
	return nil
}

// scanRecords reads every row into a column-keyed map. Driver []byte values
// are converted to strings so records marshal cleanly to JSON.
func scanRecords(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "read columns", err)
	}

	records := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "scan row", err)
		}

		record := make(map[string]any, len(cols))
		for i, col := range cols {
			switch v := values[i].(type) {
			case []byte:
				record[col] = string(v)
			default:
				record[col] = v
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "iterate rows", err)
	}
	return records, nil
}
