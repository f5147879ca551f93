// Package sync implements the pull/push synchronization engine and the
// per-record last-write-wins merge it is built around.
//
// Pull returns the rows of the requested tables changed since a device's
// watermark. Push merges a batch of device-modified records against server
// state one record at a time: each record is compared by timestamp, and the
// server re-stamps everything it accepts with its own ingestion time, so
// "newer" is judged against what the device believed at submission while the
// stored value reflects server-observed arrival order. Ties favor the
// server.
package sync

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	apperrors "github.com/himslabs/syncserver/internal/errors"
	"github.com/himslabs/syncserver/internal/ledger"
	"github.com/himslabs/syncserver/internal/models"
	"github.com/himslabs/syncserver/internal/registry"
	"github.com/himslabs/syncserver/internal/schema"
	"github.com/himslabs/syncserver/internal/store"
	"github.com/himslabs/syncserver/internal/timeutil"
)

// Engine orchestrates pull and push over the storage layer, the device
// registry, and the two ledgers. Each call runs to completion synchronously;
// push processes its records sequentially with no intra-batch parallelism.
type Engine struct {
	store     *store.Store
	registry  *registry.Registry
	conflicts *ledger.ConflictLedger
	audit     *ledger.SyncLedger
	handler   EventHandler
	log       *logrus.Entry
}

// New creates an Engine over its collaborators.
func New(st *store.Store, reg *registry.Registry, conflicts *ledger.ConflictLedger, audit *ledger.SyncLedger) *Engine {
	return &Engine{
		store:     st,
		registry:  reg,
		conflicts: conflicts,
		audit:     audit,
		log:       logrus.WithField("component", "sync"),
	}
}

// Event is a sync lifecycle notification for observers such as the
// websocket feed.
type Event struct {
	Type       EventType `json:"type"`
	DeviceUUID string    `json:"device_uuid"`
	Table      string    `json:"table,omitempty"`
	RecordUUID string    `json:"record_uuid,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	Timestamp  string    `json:"timestamp"`
}

// EventType identifies a sync lifecycle event.
type EventType string

const (
	EventPullCompleted    EventType = "pull_completed"
	EventPushCompleted    EventType = "push_completed"
	EventConflictDetected EventType = "conflict_detected"
)

// EventHandler receives engine events. Delivery is asynchronous and
// best-effort.
type EventHandler interface {
	OnSyncEvent(Event)
}

// SetEventHandler registers the event observer. Pass nil to disable.
func (e *Engine) SetEventHandler(h EventHandler) {
	e.handler = h
}

func (e *Engine) emit(event Event) {
	if e.handler == nil {
		return
	}
	event.Timestamp = timeutil.Now()
	go e.handler.OnSyncEvent(event)
}

// PullRequest is a device's request for changes since its watermark.
type PullRequest struct {
	Tables     []string `json:"tables"`
	Since      string   `json:"since"`
	DeviceUUID string   `json:"deviceUuid"`
}

// PullResponse carries the per-table deltas.
type PullResponse struct {
	Success      bool                        `json:"success"`
	Data         map[string][]map[string]any `json:"data"`
	TotalRecords int                         `json:"totalRecords"`
	Timestamp    string                      `json:"timestamp"`
}

// Pull returns, for each valid requested table, its rows changed strictly
// after the watermark. Invalid table names are skipped with a warning, never
// failing the call; a per-table query failure yields an empty delta for that
// table. Exactly one audit row is written per call.
func (e *Engine) Pull(ctx context.Context, req PullRequest) (*PullResponse, error) {
	// An explicitly empty tables array is a valid request for nothing; only
	// a missing field is malformed.
	if req.Tables == nil {
		return nil, apperrors.New(apperrors.ErrInvalidRequest, "tables array is required")
	}
	if req.Since == "" {
		return nil, apperrors.New(apperrors.ErrInvalidRequest, "since timestamp is required")
	}
	if req.DeviceUUID == "" {
		return nil, apperrors.New(apperrors.ErrInvalidRequest, "deviceUuid is required")
	}

	if err := e.registry.Touch(req.DeviceUUID); err != nil {
		e.log.WithError(err).WithField("device", req.DeviceUUID).Warn("failed to touch device")
	}

	// The watermark is compared lexically against the stored fixed-width
	// millisecond layout, so a second-precision value must be normalized or
	// it would misorder within its boundary second.
	since := req.Since
	if ts, err := timeutil.Parse(req.Since); err == nil {
		since = timeutil.Format(ts)
	}

	data := make(map[string][]map[string]any, len(req.Tables))
	total := 0

	for _, table := range req.Tables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !schema.IsSyncable(table) {
			e.log.WithFields(logrus.Fields{"table": table, "device": req.DeviceUUID}).
				Warn("invalid table name requested, skipping")
			continue
		}

		records, err := e.store.RecordsSince(table, since)
		if err != nil {
			e.log.WithError(err).WithField("table", table).Error("pull query failed")
			data[table] = []map[string]any{}
			continue
		}
		data[table] = records
		total += len(records)

		e.log.WithFields(logrus.Fields{
			"table": table, "device": req.DeviceUUID, "records": len(records),
		}).Info("pull delta served")
	}

	if err := e.audit.Append(req.DeviceUUID, models.SyncTableMultiple, "pull", "", true, ""); err != nil {
		e.log.WithError(err).Error("failed to append pull audit row")
	}

	e.emit(Event{Type: EventPullCompleted, DeviceUUID: req.DeviceUUID})

	return &PullResponse{
		Success:      true,
		Data:         data,
		TotalRecords: total,
		Timestamp:    timeutil.Now(),
	}, nil
}

// PushRequest is a device's batch of locally modified records. Table
// payloads stay raw until the table name passes the allow-list; a payload
// that is not an array skips its table rather than failing the request.
type PushRequest struct {
	Data       map[string]json.RawMessage `json:"data"`
	DeviceUUID string                     `json:"deviceUuid"`
}

// PushCounts aggregates per-record merge outcomes.
type PushCounts struct {
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Conflicts int `json:"conflicts"`
	Errors    int `json:"errors"`
}

// ConflictDescriptor is returned to the pushing device for each detected
// conflict.
type ConflictDescriptor struct {
	Table           string `json:"table"`
	UUID            string `json:"uuid"`
	DeviceTimestamp string `json:"deviceTimestamp"`
	ServerTimestamp string `json:"serverTimestamp"`
	Message         string `json:"message"`
}

// PushResponse carries the aggregate outcome of one push call.
type PushResponse struct {
	Success   bool                 `json:"success"`
	Processed PushCounts           `json:"processed"`
	Conflicts []ConflictDescriptor `json:"conflicts"`
	Timestamp string               `json:"timestamp"`
}

// Push merges each submitted record against server state. A failure while
// merging one record is isolated: it is counted, written to the audit
// ledger with its message, and the batch continues. Invalid table names are
// skipped with a warning.
func (e *Engine) Push(ctx context.Context, req PushRequest) (*PushResponse, error) {
	if req.Data == nil {
		return nil, apperrors.New(apperrors.ErrInvalidRequest, "data object is required")
	}
	if req.DeviceUUID == "" {
		return nil, apperrors.New(apperrors.ErrInvalidRequest, "deviceUuid is required")
	}

	if err := e.registry.Touch(req.DeviceUUID); err != nil {
		e.log.WithError(err).WithField("device", req.DeviceUUID).Warn("failed to touch device")
	}

	var counts PushCounts
	conflicts := []ConflictDescriptor{}

	for table, raw := range req.Data {
		if !schema.IsSyncable(table) {
			e.log.WithFields(logrus.Fields{"table": table, "device": req.DeviceUUID}).
				Warn("invalid table name in push, skipping")
			continue
		}

		var records []map[string]any
		if err := json.Unmarshal(raw, &records); err != nil {
			e.log.WithFields(logrus.Fields{"table": table, "device": req.DeviceUUID}).
				Warn("table payload is not an array, skipping")
			continue
		}

		for _, record := range records {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			result, err := e.mergeRecord(table, record, req.DeviceUUID)
			if err != nil {
				counts.Errors++
				e.log.WithError(err).WithFields(logrus.Fields{
					"table": table, "device": req.DeviceUUID,
				}).Error("push record failed")
				e.auditRecord(req.DeviceUUID, table, "push", recordUUID(record), false, err.Error())
				continue
			}

			switch result.op {
			case opInsert:
				counts.Inserted++
			case opUpdate:
				counts.Updated++
			case opConflict:
				counts.Conflicts++
				conflicts = append(conflicts, *result.conflict)
				e.emit(Event{
					Type:       EventConflictDetected,
					DeviceUUID: req.DeviceUUID,
					Table:      table,
					RecordUUID: result.conflict.UUID,
					Detail:     result.conflict.Message,
				})
			}
			e.auditRecord(req.DeviceUUID, table, string(result.op), recordUUID(record), true, "")
		}
	}

	e.log.WithFields(logrus.Fields{
		"device":    req.DeviceUUID,
		"inserted":  counts.Inserted,
		"updated":   counts.Updated,
		"conflicts": counts.Conflicts,
		"errors":    counts.Errors,
	}).Info("push complete")

	e.emit(Event{Type: EventPushCompleted, DeviceUUID: req.DeviceUUID})

	return &PushResponse{
		Success:   true,
		Processed: counts,
		Conflicts: conflicts,
		Timestamp: timeutil.Now(),
	}, nil
}

// mergeOp labels the outcome of one record merge. The values double as the
// audit ledger's operation names.
type mergeOp string

const (
	opInsert   mergeOp = "insert"
	opUpdate   mergeOp = "update"
	opConflict mergeOp = "conflict"
	opSkip     mergeOp = "skip"
)

type mergeResult struct {
	op       mergeOp
	conflict *ConflictDescriptor
}

// mergeRecord applies the last-write-wins merge for one record:
//
//	absent on server        -> insert, re-stamped
//	device strictly newer   -> full replace, re-stamped
//	server strictly newer   -> conflict, stored row untouched
//	equal                   -> skip (ties favor the server)
func (e *Engine) mergeRecord(table string, record map[string]any, deviceUUID string) (*mergeResult, error) {
	uuid := recordUUID(record)
	if uuid == "" {
		return nil, apperrors.New(apperrors.ErrRecordInvalid, "record must have a uuid field")
	}

	tbl, ok := schema.Lookup(table)
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrTableNotAllowed, "table %q is not syncable", table)
	}

	existing, err := e.store.RecordByUUID(table, uuid)
	if err != nil {
		return nil, err
	}

	// The accepted row always carries the server's ingestion time and the
	// pushing device; the device-submitted timestamp is only a comparison
	// input.
	merged := schema.Sanitize(tbl, record)
	merged[schema.ColSourceDevice] = deviceUUID
	merged[schema.ColLastModified] = timeutil.Now()

	if existing == nil {
		if err := e.store.UpsertRecord(table, merged); err != nil {
			return nil, err
		}
		e.log.WithFields(logrus.Fields{"table": table, "record": uuid}).Debug("record inserted")
		return &mergeResult{op: opInsert}, nil
	}

	deviceTS, _ := record[schema.ColLastModified].(string)
	serverTS, _ := existing[schema.ColLastModified].(string)

	cmp, err := timeutil.Compare(deviceTS, serverTS)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrRecordInvalid, "compare timestamps", err)
	}

	switch {
	case cmp > 0:
		if err := e.store.UpsertRecord(table, merged); err != nil {
			return nil, err
		}
		e.log.WithFields(logrus.Fields{"table": table, "record": uuid}).Debug("record updated, device newer")
		return &mergeResult{op: opUpdate}, nil

	case cmp < 0:
		// Accepted writes are re-stamped to server time, so a device
		// re-pushing a record the server already accepted from it always
		// carries an older timestamp. That echo is not a divergence: skip
		// it instead of raising a conflict.
		if isEcho(tbl, record, existing, deviceUUID) {
			e.log.WithFields(logrus.Fields{"table": table, "record": uuid}).Debug("echo of accepted record, skipping")
			return &mergeResult{op: opSkip}, nil
		}

		e.log.WithFields(logrus.Fields{
			"table": table, "record": uuid, "device": deviceUUID,
		}).Warn("conflict detected, server newer")

		if err := e.conflicts.LogConflict(table, uuid, deviceUUID, deviceTS, serverTS, record, existing); err != nil {
			return nil, err
		}
		return &mergeResult{
			op: opConflict,
			conflict: &ConflictDescriptor{
				Table:           table,
				UUID:            uuid,
				DeviceTimestamp: deviceTS,
				ServerTimestamp: serverTS,
				Message:         "server has newer version",
			},
		}, nil

	default:
		e.log.WithFields(logrus.Fields{"table": table, "record": uuid}).Debug("record already up to date")
		return &mergeResult{op: opSkip}, nil
	}
}

func (e *Engine) auditRecord(deviceUUID, table, op, recordUUID string, success bool, errMsg string) {
	if err := e.audit.Append(deviceUUID, table, op, recordUUID, success, errMsg); err != nil {
		e.log.WithError(err).Error("failed to append sync audit row")
	}
}

func recordUUID(record map[string]any) string {
	uuid, _ := record[schema.ColUUID].(string)
	return uuid
}

// Columns the server rewrites on accept; excluded from echo comparison.
var stampedColumns = map[string]bool{
	schema.ColLastModified: true,
	schema.ColSourceDevice: true,
	schema.ColIsSynced:     true,
	"created_at":           true,
}

// isEcho reports whether record is a re-push of the row the server already
// accepted from the same device: same source device, and every supplied
// domain column equal to the stored value.
func isEcho(tbl schema.Table, record, existing map[string]any, deviceUUID string) bool {
	if src, _ := existing[schema.ColSourceDevice].(string); src != deviceUUID {
		return false
	}
	for col, v := range schema.Sanitize(tbl, record) {
		if stampedColumns[col] {
			continue
		}
		if !valuesEqual(v, existing[col]) {
			return false
		}
	}
	return true
}

// valuesEqual compares a JSON-decoded value against a driver-scanned one.
// Numbers arrive as float64 from JSON and int64 or float64 from SQLite.
func valuesEqual(a, b any) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
