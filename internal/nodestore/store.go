package nodestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/zwave-core/internal/zwave"
)

// ErrNodeNotFound is returned when no history exists for a node.
var ErrNodeNotFound = errors.New("nodestore: node not found")

// Logger is the subset of the application logger the store uses.
type Logger interface {
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// NodeRecord is the persisted history of one node.
type NodeRecord struct {
	HomeID     uint32    `json:"home_id"`
	NodeID     uint8     `json:"node_id"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
	LastEvent  string    `json:"last_event"`
	EventCount uint64    `json:"event_count"`
	ValueCount int       `json:"value_count"`
	Polled     bool      `json:"polled"`
}

// Store records every node seen in dispatched events into the zwave_nodes
// table. It implements zwave.Deliverer: node events upsert the node's row,
// node removal deletes it and a driver reset or removal deletes every node
// of that home.
//
// Thread Safety: All methods are safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger Logger

	upsertStmt *sql.Stmt
	stmtMu     sync.Mutex

	closed bool
	mu     sync.RWMutex
}

// NewStore creates a store over db. The zwave_nodes table must exist
// (see the migrations package).
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Start prepares the upsert statement. Must be called before Deliver
// records anything.
func (s *Store) Start() error {
	s.stmtMu.Lock()
	defer s.stmtMu.Unlock()

	if s.upsertStmt != nil {
		return nil
	}

	stmt, err := s.db.Prepare(`
		INSERT INTO zwave_nodes (home_id, node_id, first_seen, last_seen, last_event, event_count, value_count, polled)
		VALUES (?1, ?2, ?3, ?3, ?4, 1, ?5, ?6)
		ON CONFLICT(home_id, node_id) DO UPDATE SET
			last_seen = MAX(last_seen, excluded.last_seen),
			last_event = excluded.last_event,
			event_count = event_count + 1,
			value_count = excluded.value_count,
			polled = excluded.polled
	`)
	if err != nil {
		return fmt.Errorf("preparing node upsert statement: %w", err)
	}

	s.upsertStmt = stmt
	s.log("node store started")
	return nil
}

// Stop releases the prepared statement. Later deliveries are ignored.
func (s *Store) Stop() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.stmtMu.Lock()
	defer s.stmtMu.Unlock()

	if s.upsertStmt != nil {
		s.upsertStmt.Close()
		s.upsertStmt = nil
	}
	s.log("node store stopped")
}

// Deliver implements zwave.Deliverer.
func (s *Store) Deliver(ctx context.Context, ev zwave.Event) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil
	}

	switch ev.Name {
	case zwave.EventDriverReset, zwave.EventDriverRemoved:
		return s.deleteHome(ctx, ev.HomeID)
	case zwave.EventNodeRemoved:
		return s.deleteNode(ctx, ev.HomeID, ev.NodeID)
	}

	// Controller-level events carry no node, and events for nodes the core
	// no longer tracks (late values after a removal) carry no snapshot.
	if ev.NodeID == 0 || ev.Node == nil {
		return nil
	}

	s.stmtMu.Lock()
	stmt := s.upsertStmt
	s.stmtMu.Unlock()
	if stmt == nil {
		return nil
	}

	seen := ev.Timestamp
	if seen.IsZero() {
		seen = time.Now()
	}

	if _, err := stmt.ExecContext(ctx, ev.HomeID, ev.NodeID, seen.Unix(), ev.Name,
		len(ev.Node.Values), ev.Node.Polled); err != nil {
		s.logError("recording node", err, "node_id", ev.NodeID)
		return fmt.Errorf("recording node %d: %w", ev.NodeID, err)
	}
	return nil
}

func (s *Store) deleteNode(ctx context.Context, homeID uint32, nodeID uint8) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM zwave_nodes WHERE home_id = ? AND node_id = ?`, homeID, nodeID)
	if err != nil {
		return fmt.Errorf("deleting node %d: %w", nodeID, err)
	}
	return nil
}

func (s *Store) deleteHome(ctx context.Context, homeID uint32) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM zwave_nodes WHERE home_id = ?`, homeID)
	if err != nil {
		return fmt.Errorf("deleting nodes of home %08x: %w", homeID, err)
	}
	if n, _ := res.RowsAffected(); n > 0 { //nolint:errcheck // sqlite always reports affected rows
		s.log("node history cleared", "home_id", fmt.Sprintf("%08x", homeID), "nodes", n)
	}
	return nil
}

const selectColumns = `home_id, node_id, first_seen, last_seen, last_event, event_count, value_count, polled`

// Get returns the history of one node, or ErrNodeNotFound.
func (s *Store) Get(ctx context.Context, homeID uint32, nodeID uint8) (NodeRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM zwave_nodes WHERE home_id = ? AND node_id = ?`, homeID, nodeID)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return NodeRecord{}, ErrNodeNotFound
	}
	if err != nil {
		return NodeRecord{}, fmt.Errorf("querying node %d: %w", nodeID, err)
	}
	return rec, nil
}

// List returns the history of every node of homeID ordered by node ID.
// A zero homeID lists every home.
func (s *Store) List(ctx context.Context, homeID uint32) ([]NodeRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM zwave_nodes`
	var args []any
	if homeID != 0 {
		query += ` WHERE home_id = ?`
		args = append(args, homeID)
	}
	query += ` ORDER BY home_id, node_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	var records []NodeRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning node row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the number of recorded nodes across all homes.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM zwave_nodes`).Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (NodeRecord, error) {
	var (
		rec                 NodeRecord
		firstSeen, lastSeen int64
		polled              int
	)
	if err := sc.Scan(&rec.HomeID, &rec.NodeID, &firstSeen, &lastSeen,
		&rec.LastEvent, &rec.EventCount, &rec.ValueCount, &polled); err != nil {
		return NodeRecord{}, err
	}
	rec.FirstSeen = time.Unix(firstSeen, 0).UTC()
	rec.LastSeen = time.Unix(lastSeen, 0).UTC()
	rec.Polled = polled != 0
	return rec, nil
}

func (s *Store) log(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Info(msg, keysAndValues...)
	}
}

func (s *Store) logError(msg string, err error, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
	}
}

var _ zwave.Deliverer = (*Store)(nil)
