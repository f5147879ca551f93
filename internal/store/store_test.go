// Package store tests for the generic record primitives.
package store

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/himslabs/syncserver/internal/errors"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func stockItem(uuid, name, lastModified string) map[string]any {
	return map[string]any{
		"uuid":          uuid,
		"item_name":     name,
		"category":      "Grains",
		"unit":          "kg",
		"current_stock": 25.0,
		"is_active":     1,
		"is_synced":     1,
		"source_device": "device-1",
		"last_modified": lastModified,
	}
}

// TestOpen verifies file-backed opening and pragma configuration.
func TestOpen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Join(dir, "inventory_master.db")); err != nil {
		t.Errorf("database file not created: %v", err)
	}

	var fk int
	if err := s.DB().QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil || fk != 1 {
		t.Errorf("foreign keys not enabled (fk=%d, err=%v)", fk, err)
	}
}

// TestUpsertRoundTrip verifies upsert then point lookup returns every
// supplied column.
func TestUpsertRoundTrip(t *testing.T) {
	s := setupStore(t)

	rec := stockItem("11111111-1111-4111-8111-111111111111", "Basmati Rice", "2024-01-01T00:00:00.000Z")
	if err := s.UpsertRecord("stock_items", rec); err != nil {
		t.Fatalf("UpsertRecord() failed: %v", err)
	}

	got, err := s.RecordByUUID("stock_items", rec["uuid"].(string))
	if err != nil {
		t.Fatalf("RecordByUUID() failed: %v", err)
	}
	if got == nil {
		t.Fatal("RecordByUUID() returned nil for existing record")
	}

	if got["item_name"] != "Basmati Rice" {
		t.Errorf("item_name = %v", got["item_name"])
	}
	if got["last_modified"] != "2024-01-01T00:00:00.000Z" {
		t.Errorf("last_modified = %v", got["last_modified"])
	}
	if got["current_stock"] != 25.0 {
		t.Errorf("current_stock = %v (%T)", got["current_stock"], got["current_stock"])
	}
}

// TestUpsertFullReplace verifies every supplied column overwrites on
// conflict.
func TestUpsertFullReplace(t *testing.T) {
	s := setupStore(t)
	uuid := "22222222-2222-4222-8222-222222222222"

	if err := s.UpsertRecord("stock_items", stockItem(uuid, "Sugar", "2024-01-01T00:00:00.000Z")); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	updated := stockItem(uuid, "Brown Sugar", "2024-02-01T00:00:00.000Z")
	updated["current_stock"] = 3.5
	updated["source_device"] = "device-2"
	if err := s.UpsertRecord("stock_items", updated); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	got, err := s.RecordByUUID("stock_items", uuid)
	if err != nil {
		t.Fatalf("RecordByUUID() failed: %v", err)
	}
	if got["item_name"] != "Brown Sugar" {
		t.Errorf("item_name = %v, want replaced value", got["item_name"])
	}
	if got["current_stock"] != 3.5 {
		t.Errorf("current_stock = %v, want replaced value", got["current_stock"])
	}
	if got["source_device"] != "device-2" {
		t.Errorf("source_device = %v, want replaced value", got["source_device"])
	}

	// Still exactly one row.
	var n int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM stock_items WHERE uuid = ?", uuid).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("row count = %d, want 1", n)
	}
}

// TestUpsertRequiresUUID verifies records without a uuid are rejected.
func TestUpsertRequiresUUID(t *testing.T) {
	s := setupStore(t)
	err := s.UpsertRecord("stock_items", map[string]any{"item_name": "No Key"})
	if !apperrors.Is(err, apperrors.ErrRecordInvalid) {
		t.Errorf("err = %v, want RECORD_INVALID", err)
	}
}

// TestRecordsSince verifies strict-greater filtering, ascending order, and
// the monotonic superset property.
func TestRecordsSince(t *testing.T) {
	s := setupStore(t)

	stamps := []string{
		"2024-01-01T00:00:00.000Z",
		"2024-01-02T00:00:00.000Z",
		"2024-01-03T00:00:00.000Z",
	}
	uuids := []string{
		"33333333-3333-4333-8333-333333333331",
		"33333333-3333-4333-8333-333333333332",
		"33333333-3333-4333-8333-333333333333",
	}
	for i := range stamps {
		if err := s.UpsertRecord("stock_items", stockItem(uuids[i], "Item", stamps[i])); err != nil {
			t.Fatal(err)
		}
	}

	// Strictly greater: the boundary row is excluded.
	rows, err := s.RecordsSince("stock_items", stamps[0])
	if err != nil {
		t.Fatalf("RecordsSince() failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0]["last_modified"] != stamps[1] || rows[1]["last_modified"] != stamps[2] {
		t.Errorf("rows not ascending by last_modified: %v, %v", rows[0]["last_modified"], rows[1]["last_modified"])
	}

	// Monotonic superset: everything pull(t2) returns beyond t1 is also in
	// pull(t1).
	older, err := s.RecordsSince("stock_items", "2023-12-31T00:00:00.000Z")
	if err != nil {
		t.Fatal(err)
	}
	inOlder := map[any]bool{}
	for _, r := range older {
		inOlder[r["uuid"]] = true
	}
	for _, r := range rows {
		if !inOlder[r["uuid"]] {
			t.Errorf("record %v in later pull missing from earlier pull", r["uuid"])
		}
	}
}

// TestTableAllowList verifies hostile table names never reach query text.
func TestTableAllowList(t *testing.T) {
	s := setupStore(t)

	hostile := []string{
		"x; DROP TABLE devices",
		"stock_items; --",
		"devices",
		"Stock_Items",
		" stock_items",
	}
	for _, table := range hostile {
		if _, err := s.RecordsSince(table, "2024-01-01T00:00:00.000Z"); !apperrors.Is(err, apperrors.ErrTableNotAllowed) {
			t.Errorf("RecordsSince(%q) err = %v, want TABLE_NOT_ALLOWED", table, err)
		}
		if _, err := s.RecordByUUID(table, "u"); !apperrors.Is(err, apperrors.ErrTableNotAllowed) {
			t.Errorf("RecordByUUID(%q) err = %v, want TABLE_NOT_ALLOWED", table, err)
		}
		if err := s.UpsertRecord(table, map[string]any{"uuid": "u"}); !apperrors.Is(err, apperrors.ErrTableNotAllowed) {
			t.Errorf("UpsertRecord(%q) err = %v, want TABLE_NOT_ALLOWED", table, err)
		}
	}

	// devices table must still exist afterwards.
	var n int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM devices").Scan(&n); err != nil {
		t.Errorf("devices table gone: %v", err)
	}
}

// TestRecordByUUIDAbsent verifies absent rows return (nil, nil).
func TestRecordByUUIDAbsent(t *testing.T) {
	s := setupStore(t)
	got, err := s.RecordByUUID("suppliers", "44444444-4444-4444-8444-444444444444")
	if err != nil {
		t.Fatalf("RecordByUUID() failed: %v", err)
	}
	if got != nil {
		t.Errorf("got %v, want nil for absent record", got)
	}
}

// TestWithTxRollback verifies an error rolls back the whole batch.
func TestWithTxRollback(t *testing.T) {
	s := setupStore(t)
	boom := errors.New("boom")

	err := s.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			"INSERT INTO suppliers (uuid, name) VALUES (?, ?)",
			"55555555-5555-4555-8555-555555555555", "Acme Traders"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx err = %v, want boom", err)
	}

	var n int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM suppliers").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("supplier row survived rollback (count=%d)", n)
	}
}

// TestWithTxCommit verifies a successful batch persists atomically.
func TestWithTxCommit(t *testing.T) {
	s := setupStore(t)

	err := s.WithTx(func(tx *sql.Tx) error {
		for _, u := range []string{
			"66666666-6666-4666-8666-666666666661",
			"66666666-6666-4666-8666-666666666662",
		} {
			if _, err := tx.Exec("INSERT INTO suppliers (uuid, name) VALUES (?, ?)", u, "Supplier"); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}

	var n int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM suppliers").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}
