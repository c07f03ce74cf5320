package learning

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

// PerturbConfig configures randomized activation injection.
type PerturbConfig struct {
	// Interval is the number of ticks between scheduled perturbations.
	// Default: 50.
	Interval int

	// Strength is the base activation injected; the actual value is
	// randomized in [Strength/2, Strength]. Default: 0.5.
	Strength float64

	// BlindSpotBias biases node sampling toward low activation via
	// inverse-activation weighting. Default: true.
	BlindSpotBias bool
}

// DefaultPerturbConfig returns the default perturbation configuration.
func DefaultPerturbConfig() PerturbConfig {
	return PerturbConfig{
		Interval:      constants.DefaultPerturbationInterval,
		Strength:      constants.DefaultPerturbationStrength,
		BlindSpotBias: true,
	}
}

// Perturber injects randomized activation to shake the graph out of stable
// but undesired states.
type Perturber struct {
	store  store.GraphStore
	config PerturbConfig
	rng    *rand.Rand
	ticks  int
}

// NewPerturber creates a perturber. A nil rng is seeded from the clock.
func NewPerturber(s store.GraphStore, config PerturbConfig, rng *rand.Rand) *Perturber {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Perturber{store: s, config: config, rng: rng}
}

// Tick advances the perturbation schedule by one simulation tick and fires a
// perturbation when the interval elapses. Returns the perturbed node ID, or
// "" when no perturbation fired.
func (p *Perturber) Tick(ctx context.Context) (string, error) {
	p.ticks++
	if p.config.Interval <= 0 || p.ticks%p.config.Interval != 0 {
		return "", nil
	}
	return p.PerturbOne(ctx)
}

// PerturbOne selects one node (biased toward low-activation blind spots when
// configured) and injects a randomized activation. A graph with no candidate
// nodes degrades to a no-op.
func (p *Perturber) PerturbOne(ctx context.Context) (string, error) {
	nodes, err := p.store.Nodes(ctx, "")
	if err != nil {
		return "", fmt.Errorf("perturb: load nodes: %w", err)
	}
	if len(nodes) == 0 {
		return "", nil
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	var chosen models.Node
	if p.config.BlindSpotBias {
		chosen = p.sampleInverseActivation(nodes)
	} else {
		chosen = nodes[p.rng.Intn(len(nodes))]
	}

	if err := p.inject(ctx, chosen, p.config.Strength); err != nil {
		return "", err
	}
	return chosen.ID, nil
}

// PerturbRegion injects randomized activation into every named node at the
// given base strength. Unknown IDs are skipped.
func (p *Perturber) PerturbRegion(ctx context.Context, nodeIDs []string, strength float64) error {
	for _, id := range nodeIDs {
		node, err := p.store.GetNode(ctx, id)
		if err != nil {
			return fmt.Errorf("perturb: get node %s: %w", id, err)
		}
		if node == nil {
			continue
		}
		if err := p.inject(ctx, *node, strength); err != nil {
			return err
		}
	}
	return nil
}

// PerturbStale perturbs every node not activated within the threshold.
// Returns the IDs perturbed.
func (p *Perturber) PerturbStale(ctx context.Context, olderThan time.Duration, now time.Time) ([]string, error) {
	nodes, err := p.store.Nodes(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("perturb: load nodes: %w", err)
	}

	perturbed := make([]string, 0)
	for _, node := range nodes {
		if node.LastActivated != nil && now.Sub(*node.LastActivated) <= olderThan {
			continue
		}
		if err := p.inject(ctx, node, p.config.Strength); err != nil {
			return nil, err
		}
		perturbed = append(perturbed, node.ID)
	}
	sort.Strings(perturbed)
	return perturbed, nil
}

// sampleInverseActivation picks a node with probability proportional to
// (1 - activation), favoring blind spots.
func (p *Perturber) sampleInverseActivation(nodes []models.Node) models.Node {
	total := 0.0
	for _, n := range nodes {
		total += 1.0 - n.Activation + 1e-6
	}

	pick := p.rng.Float64() * total
	acc := 0.0
	for _, n := range nodes {
		acc += 1.0 - n.Activation + 1e-6
		if pick <= acc {
			return n
		}
	}
	return nodes[len(nodes)-1]
}

// inject sets a randomized activation on the node and stamps it activated.
func (p *Perturber) inject(ctx context.Context, node models.Node, strength float64) error {
	injected := strength * (0.5 + p.rng.Float64()*0.5)
	node.Activation = clampWeight(injected)
	now := time.Now()
	node.LastActivated = &now

	if err := p.store.UpdateNode(ctx, node); err != nil {
		return fmt.Errorf("perturb: update node %s: %w", node.ID, err)
	}
	return nil
}
