// Package store defines the GraphStore interface for storing and querying
// the activation graph, with in-memory and SQLite implementations.
package store

import (
	"context"

	"github.com/ethos-sim/ethos/internal/models"
)

// GraphStore defines the storage boundary for the activation graph.
//
// All operations are synchronous and either fully apply or return an error;
// no operation partially applies. Lookups for missing nodes or edges return
// a nil result, not an error — callers routinely probe for existence before
// mutating.
type GraphStore interface {
	// Node operations
	CreateNode(ctx context.Context, node models.Node) error
	GetNode(ctx context.Context, id string) (*models.Node, error)
	UpdateNode(ctx context.Context, node models.Node) error
	DeleteNode(ctx context.Context, id string) error

	// Nodes returns all nodes, optionally filtered by type ("" = all).
	Nodes(ctx context.Context, typeFilter models.NodeType) ([]models.Node, error)

	// NodeDegree returns the total degree (incoming + outgoing edges) of a
	// node. A missing node has degree 0.
	NodeDegree(ctx context.Context, id string) (int, error)

	// Edge operations
	CreateEdge(ctx context.Context, edge models.Edge) error
	GetEdge(ctx context.Context, source, target string) (*models.Edge, error)
	UpdateEdge(ctx context.Context, edge models.Edge) error
	DeleteEdge(ctx context.Context, source, target string) error

	// IncomingEdges returns all edges whose target is the given node.
	IncomingEdges(ctx context.Context, nodeID string) ([]models.Edge, error)

	// OutgoingEdges returns all edges whose source is the given node.
	OutgoingEdges(ctx context.Context, nodeID string) ([]models.Edge, error)

	// Edges returns every edge in the graph.
	Edges(ctx context.Context) ([]models.Edge, error)

	// Persistence
	Sync(ctx context.Context) error
	Close() error
}
