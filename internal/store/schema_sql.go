package store

// Bootstrap DDL. Timestamp defaults use the same fixed-width UTC millisecond
// format the sync engine stamps with, so lexical ordering on last_modified
// matches temporal ordering regardless of which path wrote the row.
const bootstrapDDL = `
CREATE TABLE IF NOT EXISTS devices (
    uuid        TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    ip_address  TEXT,
    role        TEXT DEFAULT 'client',
    last_seen   TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    is_active   INTEGER DEFAULT 1,
    created_at  TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    sync_token  TEXT
);

CREATE TABLE IF NOT EXISTS sync_log (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    device_uuid   TEXT NOT NULL,
    table_name    TEXT NOT NULL,
    operation     TEXT NOT NULL,
    record_uuid   TEXT,
    timestamp     TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    success       INTEGER DEFAULT 1,
    error_message TEXT
);

CREATE TABLE IF NOT EXISTS conflict_log (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    table_name       TEXT NOT NULL,
    record_uuid      TEXT NOT NULL,
    device_uuid      TEXT NOT NULL,
    device_timestamp TEXT NOT NULL,
    server_timestamp TEXT NOT NULL,
    device_payload   TEXT,
    server_payload   TEXT,
    resolution       TEXT,
    resolved_at      TEXT,
    resolved_by      TEXT,
    created_at       TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);

CREATE TABLE IF NOT EXISTS stock_items (
    uuid          TEXT PRIMARY KEY,
    item_name     TEXT NOT NULL,
    category      TEXT,
    location      TEXT,
    unit          TEXT,
    current_stock REAL DEFAULT 0,
    min_stock     REAL DEFAULT 0,
    max_stock     REAL DEFAULT 0,
    reorder_level REAL DEFAULT 0,
    is_active     INTEGER DEFAULT 1,
    modified_by   TEXT,
    created_at    TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    last_modified TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    is_synced     INTEGER DEFAULT 1,
    source_device TEXT
);

CREATE TABLE IF NOT EXISTS suppliers (
    uuid            TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    contact_person  TEXT,
    phone           TEXT,
    email           TEXT,
    address         TEXT,
    gst_no          TEXT,
    pan_no          TEXT,
    current_balance REAL DEFAULT 0,
    is_active       INTEGER DEFAULT 1,
    modified_by     TEXT,
    created_at      TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    last_modified   TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    is_synced       INTEGER DEFAULT 1,
    source_device   TEXT
);

CREATE TABLE IF NOT EXISTS purchases (
    uuid          TEXT PRIMARY KEY,
    purchase_no   TEXT NOT NULL UNIQUE,
    supplier_id   TEXT NOT NULL,
    purchase_date TEXT NOT NULL,
    invoice_no    TEXT,
    payment_mode  TEXT,
    status        TEXT DEFAULT 'Pending',
    subtotal      REAL DEFAULT 0,
    discount      REAL DEFAULT 0,
    total_amount  REAL DEFAULT 0,
    approved_by   TEXT,
    approved_at   TEXT,
    notes         TEXT,
    modified_by   TEXT,
    created_at    TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    last_modified TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    is_synced     INTEGER DEFAULT 1,
    source_device TEXT,
    FOREIGN KEY (supplier_id) REFERENCES suppliers(uuid)
);

CREATE TABLE IF NOT EXISTS purchase_items (
    uuid          TEXT PRIMARY KEY,
    purchase_id   TEXT NOT NULL,
    stock_item_id TEXT NOT NULL,
    quantity      REAL NOT NULL,
    rate          REAL NOT NULL,
    amount        REAL NOT NULL,
    created_at    TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    last_modified TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    is_synced     INTEGER DEFAULT 1,
    source_device TEXT,
    FOREIGN KEY (purchase_id) REFERENCES purchases(uuid),
    FOREIGN KEY (stock_item_id) REFERENCES stock_items(uuid)
);

CREATE TABLE IF NOT EXISTS issues (
    uuid          TEXT PRIMARY KEY,
    issue_no      TEXT NOT NULL UNIQUE,
    department    TEXT NOT NULL,
    issue_date    TEXT NOT NULL,
    issued_by     TEXT,
    purpose       TEXT,
    status        TEXT DEFAULT 'Pending',
    total_amount  REAL DEFAULT 0,
    approved_by   TEXT,
    approved_at   TEXT,
    modified_by   TEXT,
    created_at    TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    last_modified TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    is_synced     INTEGER DEFAULT 1,
    source_device TEXT
);

CREATE TABLE IF NOT EXISTS issue_items (
    uuid          TEXT PRIMARY KEY,
    issue_id      TEXT NOT NULL,
    stock_item_id TEXT NOT NULL,
    quantity      REAL NOT NULL,
    rate          REAL NOT NULL,
    amount        REAL NOT NULL,
    created_at    TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    last_modified TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    is_synced     INTEGER DEFAULT 1,
    source_device TEXT,
    FOREIGN KEY (issue_id) REFERENCES issues(uuid),
    FOREIGN KEY (stock_item_id) REFERENCES stock_items(uuid)
);

CREATE TABLE IF NOT EXISTS stock_transfers (
    uuid          TEXT PRIMARY KEY,
    transfer_no   TEXT NOT NULL UNIQUE,
    from_location TEXT NOT NULL,
    to_location   TEXT NOT NULL,
    transfer_date TEXT NOT NULL,
    status        TEXT DEFAULT 'Pending',
    notes         TEXT,
    modified_by   TEXT,
    created_at    TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    last_modified TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    is_synced     INTEGER DEFAULT 1,
    source_device TEXT
);

CREATE TABLE IF NOT EXISTS transfer_items (
    uuid          TEXT PRIMARY KEY,
    transfer_id   TEXT NOT NULL,
    stock_item_id TEXT NOT NULL,
    quantity      REAL NOT NULL,
    created_at    TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    last_modified TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    is_synced     INTEGER DEFAULT 1,
    source_device TEXT,
    FOREIGN KEY (transfer_id) REFERENCES stock_transfers(uuid),
    FOREIGN KEY (stock_item_id) REFERENCES stock_items(uuid)
);

CREATE TABLE IF NOT EXISTS wastages (
    uuid          TEXT PRIMARY KEY,
    wastage_no    TEXT NOT NULL UNIQUE,
    wastage_date  TEXT NOT NULL,
    reason        TEXT,
    recorded_by   TEXT,
    status        TEXT DEFAULT 'Pending',
    total_amount  REAL DEFAULT 0,
    modified_by   TEXT,
    created_at    TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    last_modified TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    is_synced     INTEGER DEFAULT 1,
    source_device TEXT
);

CREATE TABLE IF NOT EXISTS wastage_items (
    uuid          TEXT PRIMARY KEY,
    wastage_id    TEXT NOT NULL,
    stock_item_id TEXT NOT NULL,
    quantity      REAL NOT NULL,
    rate          REAL NOT NULL,
    amount        REAL NOT NULL,
    created_at    TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    last_modified TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    is_synced     INTEGER DEFAULT 1,
    source_device TEXT,
    FOREIGN KEY (wastage_id) REFERENCES wastages(uuid),
    FOREIGN KEY (stock_item_id) REFERENCES stock_items(uuid)
);

CREATE TABLE IF NOT EXISTS recipes (
    uuid           TEXT PRIMARY KEY,
    name           TEXT NOT NULL,
    category       TEXT,
    yield_quantity REAL DEFAULT 0,
    yield_unit     TEXT,
    is_active      INTEGER DEFAULT 1,
    modified_by    TEXT,
    created_at     TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    last_modified  TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    is_synced      INTEGER DEFAULT 1,
    source_device  TEXT
);

CREATE TABLE IF NOT EXISTS recipe_items (
    uuid          TEXT PRIMARY KEY,
    recipe_id     TEXT NOT NULL,
    stock_item_id TEXT NOT NULL,
    quantity      REAL NOT NULL,
    unit          TEXT,
    created_at    TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    last_modified TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    is_synced     INTEGER DEFAULT 1,
    source_device TEXT,
    FOREIGN KEY (recipe_id) REFERENCES recipes(uuid),
    FOREIGN KEY (stock_item_id) REFERENCES stock_items(uuid)
);

CREATE INDEX IF NOT EXISTS idx_stock_items_last_modified ON stock_items(last_modified);
CREATE INDEX IF NOT EXISTS idx_suppliers_last_modified ON suppliers(last_modified);
CREATE INDEX IF NOT EXISTS idx_purchases_last_modified ON purchases(last_modified);
CREATE INDEX IF NOT EXISTS idx_purchase_items_last_modified ON purchase_items(last_modified);
CREATE INDEX IF NOT EXISTS idx_issues_last_modified ON issues(last_modified);
CREATE INDEX IF NOT EXISTS idx_issue_items_last_modified ON issue_items(last_modified);
CREATE INDEX IF NOT EXISTS idx_stock_transfers_last_modified ON stock_transfers(last_modified);
CREATE INDEX IF NOT EXISTS idx_transfer_items_last_modified ON transfer_items(last_modified);
CREATE INDEX IF NOT EXISTS idx_wastages_last_modified ON wastages(last_modified);
CREATE INDEX IF NOT EXISTS idx_wastage_items_last_modified ON wastage_items(last_modified);
CREATE INDEX IF NOT EXISTS idx_recipes_last_modified ON recipes(last_modified);
CREATE INDEX IF NOT EXISTS idx_recipe_items_last_modified ON recipe_items(last_modified);
CREATE INDEX IF NOT EXISTS idx_sync_log_device ON sync_log(device_uuid);
CREATE INDEX IF NOT EXISTS idx_conflict_log_table_record ON conflict_log(table_name, record_uuid);
`
