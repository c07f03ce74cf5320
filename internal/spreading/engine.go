// Package spreading implements the activation propagation engine. Activation
// injected at stimulus nodes propagates through weighted edges in discrete
// synchronous steps until the run is captured by an anchor basin or escapes.
package spreading

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/ethos-sim/ethos/internal/constants"
	"github.com/ethos-sim/ethos/internal/models"
	"github.com/ethos-sim/ethos/internal/store"
)

// Config holds tunable parameters for the propagation engine.
type Config struct {
	// Damping scales every edge contribution. Default: 0.85.
	Damping float64

	// CaptureThreshold is the activation an anchor must exceed while being
	// the graph maximum for capture progress to accrue. Default: 0.5.
	CaptureThreshold float64

	// SustainSteps is the number of consecutive qualifying steps an anchor
	// must hold before the run is captured. Default: 3.
	SustainSteps int

	// MinPathLength is the minimum trajectory length for capture. Default: 2.
	MinPathLength int

	// NoiseAmplitude bounds the zero-mean tie-breaking noise. Default: 0.001.
	NoiseAmplitude float64

	// MaxSteps bounds a run when the caller passes maxSteps <= 0.
	MaxSteps int
}

// DefaultConfig returns the default propagation configuration.
func DefaultConfig() Config {
	return Config{
		Damping:          constants.Damping,
		CaptureThreshold: constants.CaptureThreshold,
		SustainSteps:     constants.CaptureSustainSteps,
		MinPathLength:    constants.MinPathLength,
		NoiseAmplitude:   constants.NoiseAmplitude,
		MaxSteps:         constants.DefaultMaxSteps,
	}
}

// Engine performs synchronous spreading activation over the graph.
// Randomness comes exclusively from the injected source, so runs are
// reproducible under a fixed seed.
type Engine struct {
	store  store.GraphStore
	config Config
	rng    *rand.Rand
}

// NewEngine creates a propagation engine. A nil rng is seeded from the clock.
func NewEngine(s store.GraphStore, config Config, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{store: s, config: config, rng: rng}
}

// nodeState is the dense per-run view of the graph. Node IDs are mapped to
// indices once so the step loop runs on slices.
type nodeState struct {
	ids        []string
	index      map[string]int
	isAnchor   []bool
	baseline   []float64
	activation []float64
	maxSeen    []float64
	incoming   [][]contribution
}

type contribution struct {
	source int
	weight float64
}

// Spread runs one propagation from the given initial nodes at the given
// strength, for at most maxSteps steps (config default when <= 0).
//
// Every step: each node receives the damped weighted sum of its incoming
// edges (anchor-to-anchor edges excluded — anchors receive signal only from
// non-anchor nodes), blended with its retained activation and a pull toward
// its baseline, plus tie-breaking noise, clamped to [0, 1]. The run is
// captured once one anchor has been the above-threshold graph maximum for
// SustainSteps consecutive steps; otherwise it escapes at maxSteps.
//
// Side effect: after the run, every node's stored activation is overwritten
// with its final simulated value, and edges that conducted signal get their
// usage stamped.
func (e *Engine) Spread(ctx context.Context, initialNodes []string, strength float64, maxSteps int) (models.Trajectory, error) {
	if maxSteps <= 0 {
		maxSteps = e.config.MaxSteps
	}

	st, err := e.loadState(ctx)
	if err != nil {
		return models.Trajectory{}, err
	}

	seeded := 0
	for _, id := range initialNodes {
		idx, ok := st.index[id]
		if !ok {
			continue // unknown stimulus targets are skipped, not fatal
		}
		st.activation[idx] = clamp(strength)
		st.maxSeen[idx] = st.activation[idx]
		seeded++
	}
	if seeded == 0 {
		// Nothing to propagate; report an immediate escape.
		return models.Trajectory{}, nil
	}

	traj := models.Trajectory{Path: make([]string, 0, maxSteps)}
	counters := make(map[int]int)

	for step := 1; step <= maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return models.Trajectory{}, err
		}

		next := make([]float64, len(st.activation))
		for i := range st.activation {
			sum := 0.0
			for _, c := range st.incoming[i] {
				sum += c.weight * st.activation[c.source] * e.config.Damping
			}

			var updated float64
			if st.isAnchor[i] {
				updated = constants.AnchorRetention*st.activation[i] + sum + constants.AnchorBaselinePull*st.baseline[i]
			} else {
				updated = constants.NodeRetention*st.activation[i] + sum + constants.NodeBaselinePull*st.baseline[i]
			}
			updated += (e.rng.Float64()*2 - 1) * e.config.NoiseAmplitude
			next[i] = clamp(updated)
		}
		copy(st.activation, next)
		for i, a := range st.activation {
			if a > st.maxSeen[i] {
				st.maxSeen[i] = a
			}
		}

		maxIdx := 0
		for i := 1; i < len(st.activation); i++ {
			if st.activation[i] > st.activation[maxIdx] {
				maxIdx = i
			}
		}
		traj.Path = append(traj.Path, st.ids[maxIdx])
		traj.Steps = step

		if st.isAnchor[maxIdx] && st.activation[maxIdx] > e.config.CaptureThreshold {
			counters[maxIdx]++
			for idx := range counters {
				if idx != maxIdx {
					delete(counters, idx)
				}
			}
			if counters[maxIdx] >= e.config.SustainSteps && len(traj.Path) >= e.config.MinPathLength {
				traj.CapturedBy = st.ids[maxIdx]
				traj.CaptureTime = step
				break
			}
		} else {
			// No partial credit across discontiguous excursions.
			for idx := range counters {
				delete(counters, idx)
			}
		}
	}

	if err := e.writeBack(ctx, st); err != nil {
		return models.Trajectory{}, err
	}
	return traj, nil
}

// loadState snapshots the graph into dense per-run state. Node IDs are
// sorted so index assignment (and therefore tie-breaking) is deterministic.
func (e *Engine) loadState(ctx context.Context) (*nodeState, error) {
	nodes, err := e.store.Nodes(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("spreading: load nodes: %w", err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("spreading: graph has no nodes")
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	st := &nodeState{
		ids:        make([]string, len(nodes)),
		index:      make(map[string]int, len(nodes)),
		isAnchor:   make([]bool, len(nodes)),
		baseline:   make([]float64, len(nodes)),
		activation: make([]float64, len(nodes)),
		maxSeen:    make([]float64, len(nodes)),
		incoming:   make([][]contribution, len(nodes)),
	}
	for i, node := range nodes {
		st.ids[i] = node.ID
		st.index[node.ID] = i
		st.isAnchor[i] = node.IsAnchor()
		st.baseline[i] = node.Baseline
	}

	edges, err := e.store.Edges(ctx)
	if err != nil {
		return nil, fmt.Errorf("spreading: load edges: %w", err)
	}
	for _, edge := range edges {
		src, ok := st.index[edge.Source]
		if !ok {
			continue
		}
		tgt, ok := st.index[edge.Target]
		if !ok {
			continue
		}
		// Anchors receive signal only from non-anchor nodes. This keeps
		// anchors from cross-saturating each other, so the concept-to-anchor
		// topology alone decides which basin wins.
		if st.isAnchor[src] && st.isAnchor[tgt] {
			continue
		}
		st.incoming[tgt] = append(st.incoming[tgt], contribution{source: src, weight: edge.Weight})
	}

	return st, nil
}

// writeBack overwrites stored activations with the final simulated values
// and stamps usage on every edge whose source carried signal.
func (e *Engine) writeBack(ctx context.Context, st *nodeState) error {
	now := time.Now()
	for i, id := range st.ids {
		node, err := e.store.GetNode(ctx, id)
		if err != nil {
			return fmt.Errorf("spreading: write back node %s: %w", id, err)
		}
		if node == nil {
			continue
		}
		node.Activation = st.activation[i]
		if st.maxSeen[i] >= constants.MinActivation {
			t := now
			node.LastActivated = &t
		}
		if err := e.store.UpdateNode(ctx, *node); err != nil {
			return fmt.Errorf("spreading: write back node %s: %w", id, err)
		}
	}

	edges, err := e.store.Edges(ctx)
	if err != nil {
		return fmt.Errorf("spreading: stamp edge usage: %w", err)
	}
	for _, edge := range edges {
		src, ok := st.index[edge.Source]
		if !ok || st.maxSeen[src] < constants.MinActivation {
			continue
		}
		edge.LastUsed = now
		edge.UseCount++
		if err := e.store.UpdateEdge(ctx, edge); err != nil {
			return fmt.Errorf("spreading: stamp edge %s: %w", edge.Key(), err)
		}
	}
	return nil
}

// clamp restricts an activation to [0, 1]. Out-of-range values are clamped
// silently at every write, never raised as errors.
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
