// Package models tests for wire shapes and resolution strategies.
package models

import (
	"encoding/json"
	"testing"
)

// TestConflictRecordJSON verifies the ledger row's wire names, in particular
// that the table identity travels as the table_name field.
func TestConflictRecordJSON(t *testing.T) {
	raw, err := json.Marshal(ConflictRecord{
		ID:              1,
		TableName:       "stock_items",
		RecordUUID:      "11111111-1111-4111-8111-111111111111",
		DeviceUUID:      "aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa",
		DeviceTimestamp: "2024-01-01T00:00:00.000Z",
		ServerTimestamp: "2024-01-02T00:00:00.000Z",
	})
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}
	if m["table_name"] != "stock_items" {
		t.Errorf("table_name = %v", m["table_name"])
	}
	if m["device_timestamp"] != "2024-01-01T00:00:00.000Z" || m["server_timestamp"] != "2024-01-02T00:00:00.000Z" {
		t.Errorf("timestamps = %v / %v", m["device_timestamp"], m["server_timestamp"])
	}
	// Unresolved rows omit the resolution metadata entirely.
	if _, ok := m["resolution"]; ok {
		t.Error("empty resolution should be omitted")
	}
}

// TestSyncLogEntryJSON verifies the audit row's wire names.
func TestSyncLogEntryJSON(t *testing.T) {
	raw, err := json.Marshal(SyncLogEntry{
		ID:        1,
		TableName: SyncTableMultiple,
		Operation: "pull",
		Success:   true,
	})
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}
	if m["table_name"] != "multiple" || m["operation"] != "pull" || m["success"] != true {
		t.Errorf("entry = %v", m)
	}
}

// TestValidResolution verifies the strategy allow-list.
func TestValidResolution(t *testing.T) {
	for _, s := range []string{ResolutionKeepDevice, ResolutionUseServer, ResolutionManualMerge} {
		if !ValidResolution(s) {
			t.Errorf("ValidResolution(%q) = false", s)
		}
	}
	for _, s := range []string{"", "flip_a_coin", "KEEP_DEVICE"} {
		if ValidResolution(s) {
			t.Errorf("ValidResolution(%q) = true", s)
		}
	}
}
