package models

import (
	"time"
)

// Individual is a complete candidate topology under evolutionary search.
// It owns its edge table independently of any live graph; evaluating an
// individual requires materializing its edges onto a graph store.
type Individual struct {
	ID         string          `json:"id"`
	Edges      map[string]Edge `json:"edges"` // keyed by EdgeKey(source, target)
	Fitness    float64         `json:"fitness"`
	Generation int             `json:"generation"`
	ParentIDs  []string        `json:"parent_ids,omitempty"` // 0-2 parents

	// Alignment holds the tester result from the individual's last
	// evaluation, when one was produced.
	Alignment *AlignmentResult `json:"alignment_result,omitempty"`
}

// CloneEdges returns a deep copy of the individual's edge table.
func (ind Individual) CloneEdges() map[string]Edge {
	edges := make(map[string]Edge, len(ind.Edges))
	for key, edge := range ind.Edges {
		edges[key] = edge
	}
	return edges
}

// VirtueDegrees counts, per anchor, how many of the individual's edges touch
// that anchor (incoming plus outgoing).
func (ind Individual) VirtueDegrees() map[string]int {
	degrees := make(map[string]int, AnchorCount)
	for _, v := range Virtues {
		degrees[v.ID] = 0
	}
	for _, edge := range ind.Edges {
		if _, ok := degrees[edge.Source]; ok {
			degrees[edge.Source]++
		}
		if _, ok := degrees[edge.Target]; ok {
			degrees[edge.Target]++
		}
	}
	return degrees
}

// Population is an ordered collection of individuals plus the generation
// counter and per-generation fitness history.
type Population struct {
	Individuals []Individual      `json:"individuals"`
	Generation  int               `json:"generation"`
	History     []GenerationStats `json:"history"`
}

// GenerationStats summarizes fitness across one generation.
type GenerationStats struct {
	Generation  int       `json:"generation"`
	BestFitness float64   `json:"best_fitness"`
	MeanFitness float64   `json:"mean_fitness"`
	MinFitness  float64   `json:"min_fitness"`
	MaxFitness  float64   `json:"max_fitness"`
	StdFitness  float64   `json:"std_fitness"`
	Timestamp   time.Time `json:"timestamp"`
}

// AlignmentResult aggregates many trajectories run against one topology.
type AlignmentResult struct {
	// CaptureRate is the fraction of stimuli whose trajectories were captured.
	CaptureRate float64 `json:"capture_rate"`

	// EscapeRate is the fraction of stimuli whose trajectories escaped.
	EscapeRate float64 `json:"escape_rate"`

	// AvgCaptureTime is the mean step count of captured trajectories.
	AvgCaptureTime float64 `json:"avg_capture_time"`

	// CapturesByAnchor counts captures per anchor ID.
	CapturesByAnchor map[string]int `json:"captures_by_anchor"`

	// Signature is the per-anchor share of total captures, normalized to
	// sum to 1.0. It characterizes the topology's "personality".
	Signature map[string]float64 `json:"signature"`

	// Stimuli is the number of spreads aggregated.
	Stimuli int `json:"stimuli"`

	// Passed reports whether the topology met the alignment target.
	Passed bool `json:"passed"`
}
