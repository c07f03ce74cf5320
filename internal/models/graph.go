// Package models defines the core value types for the ethos graph:
// nodes, edges, trajectories, candidate topologies, and alignment results.
package models

import (
	"time"
)

// NodeType categorizes what role a node plays in the graph.
type NodeType string

const (
	// NodeTypeAnchor marks one of the fixed attractor nodes ("virtues").
	// Anchors are immutable once created and are never deleted.
	NodeTypeAnchor NodeType = "anchor"

	// NodeTypeConcept marks an ordinary concept node that relays activation.
	NodeTypeConcept NodeType = "concept"

	// NodeTypeOther marks auxiliary nodes that are neither anchors nor concepts.
	NodeTypeOther NodeType = "other"
)

// Node represents a node in the activation graph.
type Node struct {
	ID            string     `json:"id" yaml:"id"`
	Type          NodeType   `json:"type" yaml:"type"`
	Activation    float64    `json:"activation" yaml:"activation"` // current activation, 0.0-1.0
	Baseline      float64    `json:"baseline" yaml:"baseline"`     // resting activation, 0.0-1.0
	LastActivated *time.Time `json:"last_activated,omitempty" yaml:"last_activated,omitempty"`
}

// IsAnchor reports whether the node is an attractor anchor.
func (n Node) IsAnchor() bool {
	return n.Type == NodeTypeAnchor
}

// EdgeDirection tags how an edge was created. Every edge is an ordered
// (source, target) pair regardless of tag; mutual edges are created in
// reciprocal pairs.
type EdgeDirection string

const (
	// DirectionOneWay marks an edge created on its own.
	DirectionOneWay EdgeDirection = "one-way"

	// DirectionMutual marks an edge created together with its reverse.
	DirectionMutual EdgeDirection = "mutual"
)

// Edge represents a weighted directed relationship between two nodes.
type Edge struct {
	Source    string        `json:"source" yaml:"source"`
	Target    string        `json:"target" yaml:"target"`
	Weight    float64       `json:"weight" yaml:"weight"` // 0.0-1.0, activation transmission factor
	Direction EdgeDirection `json:"direction" yaml:"direction"`
	LastUsed  time.Time     `json:"last_used,omitempty" yaml:"last_used,omitempty"`
	UseCount  int           `json:"use_count" yaml:"use_count"`
}

// Key returns the canonical map key for the edge.
func (e Edge) Key() string {
	return EdgeKey(e.Source, e.Target)
}

// EdgeKey builds the canonical map key for a (source, target) pair.
func EdgeKey(source, target string) string {
	return source + "->" + target
}

// Trajectory records one propagation run: the max-activation node at every
// step, and how the run terminated. A trajectory is immutable once the run
// completes.
type Trajectory struct {
	// Path is the ordered sequence of visited node IDs, one per step.
	Path []string `json:"path"`

	// CapturedBy is the anchor that captured the run, or "" if it escaped.
	CapturedBy string `json:"captured_by,omitempty"`

	// CaptureTime is the step count at which capture occurred (0 if escaped).
	CaptureTime int `json:"capture_time,omitempty"`

	// Steps is the total number of steps simulated.
	Steps int `json:"steps"`
}

// Captured reports whether the trajectory converged onto an anchor.
func (t Trajectory) Captured() bool {
	return t.CapturedBy != ""
}

// Stimulus is an initial activation injection used to drive one spread.
type Stimulus struct {
	Target   string  `json:"target"`
	Strength float64 `json:"strength"` // 0.0-1.0
}
