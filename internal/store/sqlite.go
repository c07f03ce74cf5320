package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ethos-sim/ethos/internal/models"
)

// SQLiteGraphStore implements GraphStore using SQLite for persistence
// between sessions. It keeps a single writer connection in WAL mode.
type SQLiteGraphStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteGraphStore creates a SQLiteGraphStore rooted at projectRoot.
// The database lives at .ethos/ethos.db.
func NewSQLiteGraphStore(projectRoot string) (*SQLiteGraphStore, error) {
	ethosDir := filepath.Join(projectRoot, ".ethos")
	if err := os.MkdirAll(ethosDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .ethos directory: %w", err)
	}

	dbPath := filepath.Join(ethosDir, "ethos.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)

	if err := initSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteGraphStore{db: db, dbPath: dbPath}, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS nodes (
		id             TEXT PRIMARY KEY,
		type           TEXT NOT NULL,
		activation     REAL NOT NULL DEFAULT 0,
		baseline       REAL NOT NULL DEFAULT 0,
		last_activated TEXT
	);
	CREATE TABLE IF NOT EXISTS edges (
		source    TEXT NOT NULL,
		target    TEXT NOT NULL,
		weight    REAL NOT NULL,
		direction TEXT NOT NULL DEFAULT 'one-way',
		last_used TEXT,
		use_count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (source, target)
	);
	CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target);
	CREATE INDEX IF NOT EXISTS idx_nodes_type ON nodes(type);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// CreateNode inserts or replaces a node.
func (s *SQLiteGraphStore) CreateNode(ctx context.Context, node models.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if node.ID == "" {
		return fmt.Errorf("node ID is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO nodes (id, type, activation, baseline, last_activated)
		VALUES (?, ?, ?, ?, ?)`,
		node.ID, string(node.Type), node.Activation, node.Baseline, timeToNullable(node.LastActivated))
	if err != nil {
		return fmt.Errorf("failed to insert node %s: %w", node.ID, err)
	}
	return nil
}

// GetNode retrieves a node by ID. Returns nil if not found.
func (s *SQLiteGraphStore) GetNode(ctx context.Context, id string) (*models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, activation, baseline, last_activated
		FROM nodes WHERE id = ?`, id)

	node, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node %s: %w", id, err)
	}
	return node, nil
}

// UpdateNode updates an existing node.
func (s *SQLiteGraphStore) UpdateNode(ctx context.Context, node models.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE nodes SET type = ?, activation = ?, baseline = ?, last_activated = ?
		WHERE id = ?`,
		string(node.Type), node.Activation, node.Baseline, timeToNullable(node.LastActivated), node.ID)
	if err != nil {
		return fmt.Errorf("failed to update node %s: %w", node.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of node %s: %w", node.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("node not found: %s", node.ID)
	}
	return nil
}

// DeleteNode removes a node and all edges touching it.
func (s *SQLiteGraphStore) DeleteNode(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete of node %s: %w", id, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE source = ? OR target = ?`, id, id); err != nil {
		return fmt.Errorf("failed to delete edges of node %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete node %s: %w", id, err)
	}
	return tx.Commit()
}

// Nodes returns all nodes, optionally filtered by type.
func (s *SQLiteGraphStore) Nodes(ctx context.Context, typeFilter models.NodeType) ([]models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, type, activation, baseline, last_activated FROM nodes`
	args := []interface{}{}
	if typeFilter != "" {
		query += ` WHERE type = ?`
		args = append(args, string(typeFilter))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	results := make([]models.Node, 0)
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		results = append(results, *node)
	}
	return results, rows.Err()
}

// NodeDegree returns the total degree of a node.
func (s *SQLiteGraphStore) NodeDegree(ctx context.Context, id string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var degree int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM edges WHERE source = ? OR target = ?`, id, id).Scan(&degree)
	if err != nil {
		return 0, fmt.Errorf("failed to count degree of %s: %w", id, err)
	}
	return degree, nil
}

// CreateEdge inserts or replaces an edge.
func (s *SQLiteGraphStore) CreateEdge(ctx context.Context, edge models.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if edge.Source == "" || edge.Target == "" {
		return fmt.Errorf("edge source and target are required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO edges (source, target, weight, direction, last_used, use_count)
		VALUES (?, ?, ?, ?, ?, ?)`,
		edge.Source, edge.Target, edge.Weight, string(edge.Direction),
		formatTime(edge.LastUsed), edge.UseCount)
	if err != nil {
		return fmt.Errorf("failed to insert edge %s: %w", edge.Key(), err)
	}
	return nil
}

// GetEdge retrieves an edge. Returns nil if not found.
func (s *SQLiteGraphStore) GetEdge(ctx context.Context, source, target string) (*models.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT source, target, weight, direction, last_used, use_count
		FROM edges WHERE source = ? AND target = ?`, source, target)

	edge, err := scanEdge(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get edge %s: %w", models.EdgeKey(source, target), err)
	}
	return edge, nil
}

// UpdateEdge updates an existing edge.
func (s *SQLiteGraphStore) UpdateEdge(ctx context.Context, edge models.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE edges SET weight = ?, direction = ?, last_used = ?, use_count = ?
		WHERE source = ? AND target = ?`,
		edge.Weight, string(edge.Direction), formatTime(edge.LastUsed), edge.UseCount,
		edge.Source, edge.Target)
	if err != nil {
		return fmt.Errorf("failed to update edge %s: %w", edge.Key(), err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of edge %s: %w", edge.Key(), err)
	}
	if affected == 0 {
		return fmt.Errorf("edge not found: %s", edge.Key())
	}
	return nil
}

// DeleteEdge removes an edge. Deleting a missing edge is a no-op.
func (s *SQLiteGraphStore) DeleteEdge(ctx context.Context, source, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM edges WHERE source = ? AND target = ?`, source, target); err != nil {
		return fmt.Errorf("failed to delete edge %s: %w", models.EdgeKey(source, target), err)
	}
	return nil
}

// IncomingEdges returns all edges whose target is the given node.
func (s *SQLiteGraphStore) IncomingEdges(ctx context.Context, nodeID string) ([]models.Edge, error) {
	return s.queryEdges(ctx, `
		SELECT source, target, weight, direction, last_used, use_count
		FROM edges WHERE target = ?`, nodeID)
}

// OutgoingEdges returns all edges whose source is the given node.
func (s *SQLiteGraphStore) OutgoingEdges(ctx context.Context, nodeID string) ([]models.Edge, error) {
	return s.queryEdges(ctx, `
		SELECT source, target, weight, direction, last_used, use_count
		FROM edges WHERE source = ?`, nodeID)
}

// Edges returns every edge in the graph.
func (s *SQLiteGraphStore) Edges(ctx context.Context) ([]models.Edge, error) {
	return s.queryEdges(ctx, `
		SELECT source, target, weight, direction, last_used, use_count FROM edges`)
}

func (s *SQLiteGraphStore) queryEdges(ctx context.Context, query string, args ...interface{}) ([]models.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	results := make([]models.Edge, 0)
	for rows.Next() {
		edge, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		results = append(results, *edge)
	}
	return results, rows.Err()
}

// Sync flushes WAL contents to the main database file.
func (s *SQLiteGraphStore) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return fmt.Errorf("failed to checkpoint WAL: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteGraphStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// scanner abstracts *sql.Row and *sql.Rows for the scan helpers.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanNode(sc scanner) (*models.Node, error) {
	var node models.Node
	var nodeType string
	var lastActivated sql.NullString

	if err := sc.Scan(&node.ID, &nodeType, &node.Activation, &node.Baseline, &lastActivated); err != nil {
		return nil, err
	}
	node.Type = models.NodeType(nodeType)
	if lastActivated.Valid && lastActivated.String != "" {
		t, err := time.Parse(time.RFC3339Nano, lastActivated.String)
		if err != nil {
			return nil, fmt.Errorf("invalid last_activated for node %s: %w", node.ID, err)
		}
		node.LastActivated = &t
	}
	return &node, nil
}

func scanEdge(sc scanner) (*models.Edge, error) {
	var edge models.Edge
	var direction string
	var lastUsed sql.NullString

	if err := sc.Scan(&edge.Source, &edge.Target, &edge.Weight, &direction, &lastUsed, &edge.UseCount); err != nil {
		return nil, err
	}
	edge.Direction = models.EdgeDirection(direction)
	if lastUsed.Valid && lastUsed.String != "" {
		t, err := time.Parse(time.RFC3339Nano, lastUsed.String)
		if err != nil {
			return nil, fmt.Errorf("invalid last_used for edge %s: %w", edge.Key(), err)
		}
		edge.LastUsed = t
	}
	return &edge, nil
}

func timeToNullable(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
