package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"voicelens/vcp"
)

// Store wraps SQLite access for normalized records, quarantined payloads,
// and per-call sequence counters.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Sequence allocation relies on read-modify-write inside one connection.
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS records (
            call_id TEXT,
            sequence INTEGER,
            vendor TEXT,
            schema_version TEXT,
            status TEXT,
            checksum TEXT,
            record_json TEXT,
            received_at TIMESTAMP,
            created_at TIMESTAMP,
            PRIMARY KEY (call_id, sequence)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_records_vendor ON records(vendor, created_at);`,
		`CREATE TABLE IF NOT EXISTS quarantine (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            vendor TEXT,
            reason TEXT,
            payload_json TEXT,
            created_at TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS sequences (
            call_id TEXT PRIMARY KEY,
            next INTEGER
        );`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Record is one persisted normalized record row. The full canonical document
// lives in RecordJSON; the other columns exist for listing and lookup.
type Record struct {
	CallID        string    `json:"call_id"`
	Sequence      int64     `json:"sequence"`
	Vendor        string    `json:"vendor"`
	SchemaVersion string    `json:"schema_version"`
	Status        string    `json:"status"`
	Checksum      string    `json:"checksum"`
	RecordJSON    string    `json:"record_json"`
	ReceivedAt    time.Time `json:"received_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// QuarantineEntry is one rejected payload kept for inspection and replay.
type QuarantineEntry struct {
	ID          int64     `json:"id"`
	Vendor      string    `json:"vendor"`
	Reason      string    `json:"reason"`
	PayloadJSON string    `json:"payload_json"`
	CreatedAt   time.Time `json:"created_at"`
}

var ErrDuplicate = errors.New("record already stored")

// SaveRecord persists a validated, checksummed record. A (call_id, sequence)
// collision means the same event was delivered twice; the first write wins.
func (s *Store) SaveRecord(ctx context.Context, msg *vcp.Message, ts time.Time) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	var seq int64
	if msg.Audit.SequenceNumber != nil {
		seq = *msg.Audit.SequenceNumber
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO records(call_id, sequence, vendor, schema_version, status, checksum, record_json, received_at, created_at)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.Payload.Call.CallID, seq, msg.Payload.Call.Provider, string(msg.SchemaVersion),
		string(msg.Payload.Outcomes.Objective.Status), msg.Audit.Checksum, string(raw),
		msg.Audit.ReceivedAt, ts)
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("%w: call %s sequence %d", ErrDuplicate, msg.Payload.Call.CallID, seq)
	}
	return err
}

// LatestRecord returns the highest-sequence record for a call, or nil when
// the call is unknown.
func (s *Store) LatestRecord(ctx context.Context, callID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT call_id, sequence, vendor, schema_version, status, checksum, record_json, received_at, created_at
        FROM records WHERE call_id=? ORDER BY sequence DESC LIMIT 1`, callID)
	var r Record
	switch err := row.Scan(&r.CallID, &r.Sequence, &r.Vendor, &r.SchemaVersion, &r.Status, &r.Checksum, &r.RecordJSON, &r.ReceivedAt, &r.CreatedAt); err {
	case nil:
		return &r, nil
	case sql.ErrNoRows:
		return nil, nil
	default:
		return nil, err
	}
}

// ListRecords returns recent records, newest first, optionally filtered by
// vendor.
func (s *Store) ListRecords(ctx context.Context, vendor string, limit int) ([]Record, error) {
	query := `SELECT call_id, sequence, vendor, schema_version, status, checksum, record_json, received_at, created_at
        FROM records ORDER BY created_at DESC, sequence DESC LIMIT ?`
	args := []any{limit}
	if vendor != "" {
		query = `SELECT call_id, sequence, vendor, schema_version, status, checksum, record_json, received_at, created_at
            FROM records WHERE vendor=? ORDER BY created_at DESC, sequence DESC LIMIT ?`
		args = []any{vendor, limit}
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.CallID, &r.Sequence, &r.Vendor, &r.SchemaVersion, &r.Status, &r.Checksum, &r.RecordJSON, &r.ReceivedAt, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// NextSequence allocates the next per-call sequence number, starting at 1.
// Allocation is a single statement so concurrent callers for the same call
// never read the same counter value.
func (s *Store) NextSequence(ctx context.Context, callID string) (int64, error) {
	row := s.db.QueryRowContext(ctx, `INSERT INTO sequences(call_id, next) VALUES(?, 1)
        ON CONFLICT(call_id) DO UPDATE SET next=next+1 RETURNING next`, callID)
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Quarantine stores a payload that could not be normalized.
func (s *Store) Quarantine(ctx context.Context, vendor, reason string, payload map[string]any, ts time.Time) error {
	raw, _ := json.Marshal(payload)
	_, err := s.db.ExecContext(ctx, `INSERT INTO quarantine(vendor, reason, payload_json, created_at) VALUES(?,?,?,?)`,
		vendor, reason, string(raw), ts)
	return err
}

// ListQuarantine returns recent quarantined payloads, newest first.
func (s *Store) ListQuarantine(ctx context.Context, limit int) ([]QuarantineEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, vendor, reason, payload_json, created_at FROM quarantine ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []QuarantineEntry
	for rows.Next() {
		var e QuarantineEntry
		if err := rows.Scan(&e.ID, &e.Vendor, &e.Reason, &e.PayloadJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountRecords returns totals per vendor for the status endpoint.
func (s *Store) CountRecords(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT vendor, COUNT(*) FROM records GROUP BY vendor`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[string]int64{}
	for rows.Next() {
		var vendor string
		var n int64
		if err := rows.Scan(&vendor, &n); err != nil {
			return nil, err
		}
		counts[vendor] = n
	}
	return counts, rows.Err()
}

// Health returns err if DB not reachable.
func (s *Store) Health(ctx context.Context) error {
	row := s.db.QueryRowContext(ctx, `SELECT 1`)
	var v int
	if err := row.Scan(&v); err != nil {
		return fmt.Errorf("db health: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite reports constraint failures in the error text.
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}
