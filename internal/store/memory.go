package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethos-sim/ethos/internal/models"
)

// InMemoryGraphStore implements GraphStore entirely in memory. It backs unit
// tests, the simulation harness, and the private per-individual graphs used
// during parallel fitness evaluation.
type InMemoryGraphStore struct {
	mu    sync.RWMutex
	nodes map[string]models.Node
	edges map[string]models.Edge // keyed by models.EdgeKey(source, target)
}

// NewInMemoryGraphStore creates an empty in-memory store.
func NewInMemoryGraphStore() *InMemoryGraphStore {
	return &InMemoryGraphStore{
		nodes: make(map[string]models.Node),
		edges: make(map[string]models.Edge),
	}
}

// NewInMemoryGraphStoreFrom creates an in-memory store pre-populated with
// the given nodes and edges. Used to materialize a candidate topology onto a
// private graph without touching the shared session store.
func NewInMemoryGraphStoreFrom(nodes []models.Node, edges map[string]models.Edge) *InMemoryGraphStore {
	s := NewInMemoryGraphStore()
	for _, node := range nodes {
		s.nodes[node.ID] = node
	}
	for key, edge := range edges {
		s.edges[key] = edge
	}
	return s
}

// CreateNode adds a node to the store.
func (s *InMemoryGraphStore) CreateNode(ctx context.Context, node models.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if node.ID == "" {
		return fmt.Errorf("node ID is required")
	}
	s.nodes[node.ID] = node
	return nil
}

// GetNode retrieves a node by ID. Returns nil if not found.
func (s *InMemoryGraphStore) GetNode(ctx context.Context, id string) (*models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, exists := s.nodes[id]
	if !exists {
		return nil, nil
	}
	return &node, nil
}

// UpdateNode updates an existing node in the store.
func (s *InMemoryGraphStore) UpdateNode(ctx context.Context, node models.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[node.ID]; !exists {
		return fmt.Errorf("node not found: %s", node.ID)
	}
	s.nodes[node.ID] = node
	return nil
}

// DeleteNode removes a node and all edges touching it.
func (s *InMemoryGraphStore) DeleteNode(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.nodes, id)
	for key, e := range s.edges {
		if e.Source == id || e.Target == id {
			delete(s.edges, key)
		}
	}
	return nil
}

// Nodes returns all nodes, optionally filtered by type.
func (s *InMemoryGraphStore) Nodes(ctx context.Context, typeFilter models.NodeType) ([]models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]models.Node, 0, len(s.nodes))
	for _, node := range s.nodes {
		if typeFilter != "" && node.Type != typeFilter {
			continue
		}
		results = append(results, node)
	}
	return results, nil
}

// NodeDegree returns the total degree of a node.
func (s *InMemoryGraphStore) NodeDegree(ctx context.Context, id string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	degree := 0
	for _, e := range s.edges {
		if e.Source == id || e.Target == id {
			degree++
		}
	}
	return degree, nil
}

// CreateEdge adds an edge, replacing any existing edge for the same pair.
func (s *InMemoryGraphStore) CreateEdge(ctx context.Context, edge models.Edge) error {
	if edge.Source == "" || edge.Target == "" {
		return fmt.Errorf("edge source and target are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.edges[edge.Key()] = edge
	return nil
}

// GetEdge retrieves an edge by source and target. Returns nil if not found.
func (s *InMemoryGraphStore) GetEdge(ctx context.Context, source, target string) (*models.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edge, exists := s.edges[models.EdgeKey(source, target)]
	if !exists {
		return nil, nil
	}
	return &edge, nil
}

// UpdateEdge updates an existing edge.
func (s *InMemoryGraphStore) UpdateEdge(ctx context.Context, edge models.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := edge.Key()
	if _, exists := s.edges[key]; !exists {
		return fmt.Errorf("edge not found: %s", key)
	}
	s.edges[key] = edge
	return nil
}

// DeleteEdge removes an edge. Deleting a missing edge is a no-op.
func (s *InMemoryGraphStore) DeleteEdge(ctx context.Context, source, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.edges, models.EdgeKey(source, target))
	return nil
}

// IncomingEdges returns all edges whose target is the given node.
func (s *InMemoryGraphStore) IncomingEdges(ctx context.Context, nodeID string) ([]models.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]models.Edge, 0)
	for _, e := range s.edges {
		if e.Target == nodeID {
			results = append(results, e)
		}
	}
	return results, nil
}

// OutgoingEdges returns all edges whose source is the given node.
func (s *InMemoryGraphStore) OutgoingEdges(ctx context.Context, nodeID string) ([]models.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]models.Edge, 0)
	for _, e := range s.edges {
		if e.Source == nodeID {
			results = append(results, e)
		}
	}
	return results, nil
}

// Edges returns every edge in the graph.
func (s *InMemoryGraphStore) Edges(ctx context.Context) ([]models.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]models.Edge, 0, len(s.edges))
	for _, e := range s.edges {
		results = append(results, e)
	}
	return results, nil
}

// Sync is a no-op for in-memory storage.
func (s *InMemoryGraphStore) Sync(ctx context.Context) error {
	return nil
}

// Close is a no-op for in-memory storage.
func (s *InMemoryGraphStore) Close() error {
	return nil
}
