// Package learning implements the adaptation layer: Hebbian reinforcement,
// temporal decay, and randomized perturbation. All three are pure mutations
// on the shared graph; operations on missing edges either create them
// (strengthening) or are no-ops (weakening, decay).
package learning

import (
	"context"
	"fmt"
	"time"

	"github.com/ethos-sim/ethos/internal/constants"
	"github.com/ethos-sim/ethos/internal/models"
	"github.com/ethos-sim/ethos/internal/store"
)

// HebbianConfig configures Hebbian reinforcement.
type HebbianConfig struct {
	// LearningRate (eta) controls how fast edge weights adapt. Default: 0.1.
	LearningRate float64
}

// DefaultHebbianConfig returns the default Hebbian configuration.
func DefaultHebbianConfig() HebbianConfig {
	return HebbianConfig{LearningRate: constants.DefaultLearningRate}
}

// Hebbian strengthens edges proportionally to the co-activation of their
// endpoints.
type Hebbian struct {
	store  store.GraphStore
	config HebbianConfig
}

// NewHebbian creates a Hebbian learner over the given store.
func NewHebbian(s store.GraphStore, config HebbianConfig) *Hebbian {
	return &Hebbian{store: s, config: config}
}

// StrengthenPath reinforces the directed edge between every consecutive pair
// of nodes visited by the trajectory. The increment for a pair is
// rate * source.activation * target.activation. Missing edges are created.
func (h *Hebbian) StrengthenPath(ctx context.Context, traj models.Trajectory) error {
	for i := 0; i+1 < len(traj.Path); i++ {
		source, target := traj.Path[i], traj.Path[i+1]
		if source == target {
			continue
		}
		if err := h.strengthen(ctx, source, target); err != nil {
			return err
		}
	}
	return nil
}

// CoActivate reinforces every pair within the node set, in both directions.
func (h *Hebbian) CoActivate(ctx context.Context, nodeIDs []string) error {
	for i := 0; i < len(nodeIDs); i++ {
		for j := i + 1; j < len(nodeIDs); j++ {
			if nodeIDs[i] == nodeIDs[j] {
				continue
			}
			if err := h.strengthen(ctx, nodeIDs[i], nodeIDs[j]); err != nil {
				return err
			}
			if err := h.strengthen(ctx, nodeIDs[j], nodeIDs[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Weaken applies anti-Hebbian weakening to a specific edge. Weakening a
// missing edge is a no-op.
func (h *Hebbian) Weaken(ctx context.Context, source, target string, amount float64) error {
	edge, err := h.store.GetEdge(ctx, source, target)
	if err != nil {
		return fmt.Errorf("hebbian: weaken %s: %w", models.EdgeKey(source, target), err)
	}
	if edge == nil {
		return nil
	}

	edge.Weight = clampWeight(edge.Weight - amount)
	edge.LastUsed = time.Now()
	if err := h.store.UpdateEdge(ctx, *edge); err != nil {
		return fmt.Errorf("hebbian: weaken %s: %w", edge.Key(), err)
	}
	return nil
}

// strengthen bumps (or creates) the directed edge source->target.
func (h *Hebbian) strengthen(ctx context.Context, source, target string) error {
	srcNode, err := h.store.GetNode(ctx, source)
	if err != nil {
		return fmt.Errorf("hebbian: get node %s: %w", source, err)
	}
	tgtNode, err := h.store.GetNode(ctx, target)
	if err != nil {
		return fmt.Errorf("hebbian: get node %s: %w", target, err)
	}
	if srcNode == nil || tgtNode == nil {
		return nil
	}

	delta := h.config.LearningRate * srcNode.Activation * tgtNode.Activation
	if delta == 0 {
		return nil
	}

	now := time.Now()
	edge, err := h.store.GetEdge(ctx, source, target)
	if err != nil {
		return fmt.Errorf("hebbian: get edge %s: %w", models.EdgeKey(source, target), err)
	}
	if edge == nil {
		created := models.Edge{
			Source:    source,
			Target:    target,
			Weight:    clampWeight(delta),
			Direction: models.DirectionOneWay,
			LastUsed:  now,
			UseCount:  1,
		}
		if err := h.store.CreateEdge(ctx, created); err != nil {
			return fmt.Errorf("hebbian: create edge %s: %w", created.Key(), err)
		}
		return nil
	}

	edge.Weight = clampWeight(edge.Weight + delta)
	edge.LastUsed = now
	edge.UseCount++
	if err := h.store.UpdateEdge(ctx, *edge); err != nil {
		return fmt.Errorf("hebbian: update edge %s: %w", edge.Key(), err)
	}
	return nil
}

// clampWeight restricts a weight to [0, 1]. Out-of-range values are clamped
// silently at every write.
func clampWeight(w float64) float64 {
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}
