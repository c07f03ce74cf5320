package learning

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ethos-sim/ethos/internal/constants"
	"github.com/ethos-sim/ethos/internal/models"
	"github.com/ethos-sim/ethos/internal/store"
)

// DecayConfig configures temporal decay of unused edges.
type DecayConfig struct {
	// Constant is the per-period weight multiplier. Default: 0.95.
	Constant float64

	// Interval is the elapsed time that counts as one decay period.
	// Default: 1 hour.
	Interval time.Duration

	// RemovalThreshold is the weight below which a decayed edge is deleted,
	// subject to anchor degree protection. Default: 0.05.
	RemovalThreshold float64
}

// DefaultDecayConfig returns the default decay configuration.
func DefaultDecayConfig() DecayConfig {
	return DecayConfig{
		Constant:         constants.DefaultDecayConstant,
		Interval:         constants.DefaultDecayInterval,
		RemovalThreshold: constants.EdgeRemovalThreshold,
	}
}

// RegionDecayOptions controls accelerated decay of a node subset.
type RegionDecayOptions struct {
	// Factor is the extra multiplier applied to the decay constant.
	Factor float64

	// IncludeAnchorEdges opts anchor-incident edges into the region decay.
	// By default they are skipped so remediation of non-anchor escape
	// patterns cannot erode anchor basins.
	IncludeAnchorEdges bool
}

// Decayer applies temporal decay to edge weights.
type Decayer struct {
	store  store.GraphStore
	config DecayConfig
}

// NewDecayer creates a decayer over the given store.
func NewDecayer(s store.GraphStore, config DecayConfig) *Decayer {
	return &Decayer{store: s, config: config}
}

// Run decays every edge by Constant^periods, where periods is the number of
// whole intervals elapsed since the edge was last used at the given time.
// Edges falling below the removal threshold are deleted unless deletion
// would drop an anchor's total degree to or below the target connectivity;
// those edges are floored at the threshold instead.
func (d *Decayer) Run(ctx context.Context, now time.Time) error {
	edges, err := d.store.Edges(ctx)
	if err != nil {
		return fmt.Errorf("decay: load edges: %w", err)
	}

	anchors, err := d.anchorSet(ctx)
	if err != nil {
		return err
	}

	for _, edge := range edges {
		lastUsed := edge.LastUsed
		if lastUsed.IsZero() {
			continue
		}
		periods := int(now.Sub(lastUsed) / d.config.Interval)
		if periods < 1 {
			continue
		}

		edge.Weight *= math.Pow(d.config.Constant, float64(periods))
		if err := d.applyDecayed(ctx, edge, anchors); err != nil {
			return err
		}
	}
	return nil
}

// DecayRegion applies one accelerated decay pass to edges strictly inside
// the named node subset. Anchor-incident edges are skipped unless the
// options opt in.
func (d *Decayer) DecayRegion(ctx context.Context, region []string, opts RegionDecayOptions) error {
	if len(region) == 0 {
		return nil
	}
	factor := opts.Factor
	if factor <= 0 {
		factor = constants.RegionDecayFactor
	}

	inRegion := make(map[string]bool, len(region))
	for _, id := range region {
		inRegion[id] = true
	}

	anchors, err := d.anchorSet(ctx)
	if err != nil {
		return err
	}

	edges, err := d.store.Edges(ctx)
	if err != nil {
		return fmt.Errorf("decay: load edges: %w", err)
	}

	multiplier := d.config.Constant * factor
	for _, edge := range edges {
		if !inRegion[edge.Source] || !inRegion[edge.Target] {
			continue
		}
		if !opts.IncludeAnchorEdges && (anchors[edge.Source] || anchors[edge.Target]) {
			continue
		}

		edge.Weight *= multiplier
		if err := d.applyDecayed(ctx, edge, anchors); err != nil {
			return err
		}
	}
	return nil
}

// applyDecayed persists a decayed edge, deleting it when it falls below the
// removal threshold unless an anchor endpoint needs it for connectivity.
func (d *Decayer) applyDecayed(ctx context.Context, edge models.Edge, anchors map[string]bool) error {
	if edge.Weight >= d.config.RemovalThreshold {
		if err := d.store.UpdateEdge(ctx, edge); err != nil {
			return fmt.Errorf("decay: update edge %s: %w", edge.Key(), err)
		}
		return nil
	}

	protected, err := d.protects(ctx, edge, anchors)
	if err != nil {
		return err
	}
	if protected {
		edge.Weight = d.config.RemovalThreshold
		if err := d.store.UpdateEdge(ctx, edge); err != nil {
			return fmt.Errorf("decay: floor edge %s: %w", edge.Key(), err)
		}
		return nil
	}

	if err := d.store.DeleteEdge(ctx, edge.Source, edge.Target); err != nil {
		return fmt.Errorf("decay: delete edge %s: %w", edge.Key(), err)
	}
	return nil
}

// protects reports whether deleting the edge would drop an anchor endpoint
// to or below the target connectivity.
func (d *Decayer) protects(ctx context.Context, edge models.Edge, anchors map[string]bool) (bool, error) {
	for _, id := range []string{edge.Source, edge.Target} {
		if !anchors[id] {
			continue
		}
		degree, err := d.store.NodeDegree(ctx, id)
		if err != nil {
			return false, fmt.Errorf("decay: degree of %s: %w", id, err)
		}
		if degree-1 <= constants.TargetConnectivity {
			return true, nil
		}
	}
	return false, nil
}

func (d *Decayer) anchorSet(ctx context.Context) (map[string]bool, error) {
	nodes, err := d.store.Nodes(ctx, models.NodeTypeAnchor)
	if err != nil {
		return nil, fmt.Errorf("decay: load anchors: %w", err)
	}
	anchors := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		anchors[n.ID] = true
	}
	return anchors, nil
}
