// Package schema defines the static table registry for the synchronized
// inventory dataset.
//
// The registry is the single source of truth for both the table allow-list
// and per-table column lists. Every table name coming off the wire must pass
// IsSyncable before it is interpolated into query text; the check is exact
// (case-sensitive, no trimming), so casing variants, whitespace, and partial
// matches are all rejected.
package schema

// Columns every syncable table carries in addition to its domain columns.
const (
	ColUUID         = "uuid"
	ColLastModified = "last_modified"
	ColSourceDevice = "source_device"
	ColIsSynced     = "is_synced"
)

// Table describes one syncable entity table.
type Table struct {
	Name    string
	Columns []string
}

// HasColumn reports whether name is a declared column of the table.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// syncMeta is appended to every table's domain columns.
var syncMeta = []string{"created_at", ColLastModified, ColIsSynced, ColSourceDevice}

func table(name string, domainColumns ...string) Table {
	cols := append([]string{ColUUID}, domainColumns...)
	return Table{Name: name, Columns: append(cols, syncMeta...)}
}

// tables lists every syncable entity table in the shared keyspace.
// Record uuids are globally unique across all devices; the same uuid on two
// devices refers to the same logical entity.
var tables = []Table{
	table("stock_items",
		"item_name", "category", "location", "unit",
		"current_stock", "min_stock", "max_stock", "reorder_level",
		"is_active", "modified_by"),
	table("suppliers",
		"name", "contact_person", "phone", "email", "address",
		"gst_no", "pan_no", "current_balance", "is_active", "modified_by"),
	table("purchases",
		"purchase_no", "supplier_id", "purchase_date", "invoice_no",
		"payment_mode", "status", "subtotal", "discount", "total_amount",
		"approved_by", "approved_at", "notes", "modified_by"),
	table("purchase_items",
		"purchase_id", "stock_item_id", "quantity", "rate", "amount"),
	table("issues",
		"issue_no", "department", "issue_date", "issued_by", "purpose",
		"status", "total_amount", "approved_by", "approved_at", "modified_by"),
	table("issue_items",
		"issue_id", "stock_item_id", "quantity", "rate", "amount"),
	table("stock_transfers",
		"transfer_no", "from_location", "to_location", "transfer_date",
		"status", "notes", "modified_by"),
	table("transfer_items",
		"transfer_id", "stock_item_id", "quantity"),
	table("wastages",
		"wastage_no", "wastage_date", "reason", "recorded_by", "status",
		"total_amount", "modified_by"),
	table("wastage_items",
		"wastage_id", "stock_item_id", "quantity", "rate", "amount"),
	table("recipes",
		"name", "category", "yield_quantity", "yield_unit",
		"is_active", "modified_by"),
	table("recipe_items",
		"recipe_id", "stock_item_id", "quantity", "unit"),
}

var registry = func() map[string]Table {
	m := make(map[string]Table, len(tables))
	for _, t := range tables {
		m[t.Name] = t
	}
	return m
}()

// IsSyncable reports whether name is an allow-listed table. This is a
// security boundary: callers must not build query text for a name that
// fails this check.
func IsSyncable(name string) bool {
	_, ok := registry[name]
	return ok
}

// Lookup returns the descriptor for an allow-listed table.
func Lookup(name string) (Table, bool) {
	t, ok := registry[name]
	return t, ok
}

// Names returns all syncable table names in declaration order.
func Names() []string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return names
}

// Sanitize returns a copy of record with nil values and columns not declared
// by the table removed. The merge path relies on this to keep unexpected
// fields out of query text.
func Sanitize(t Table, record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	for k, v := range record {
		if v == nil || !t.HasColumn(k) {
			continue
		}
		out[k] = v
	}
	return out
}
