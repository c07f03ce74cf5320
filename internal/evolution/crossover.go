package evolution

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/ethos-sim/ethos/internal/models"
)

// Crossover combines parent edge tables into an offspring edge table. The
// set of crossovers is closed: each algorithm is a concrete type, and
// NewCrossover maps configuration names onto them.
type Crossover interface {
	Name() string

	// Parents is how many parents the operator combines.
	Parents() int

	// Combine builds the offspring edge table. parents has exactly
	// Parents() entries; for MultiParentCrossover they are sorted by
	// fitness descending.
	Combine(rng *rand.Rand, parents []models.Individual) (map[string]models.Edge, error)
}

// NewCrossover maps a configured method name onto a crossover, binding the
// configured rate where the algorithm uses one.
func NewCrossover(name string, rate float64) (Crossover, error) {
	switch name {
	case "", "uniform":
		return UniformCrossover{Rate: rate}, nil
	case "single-point":
		return SinglePointCrossover{}, nil
	case "virtue":
		return VirtueCrossover{}, nil
	case "multi-parent":
		return MultiParentCrossover{}, nil
	default:
		return nil, fmt.Errorf("unknown crossover method: %s", name)
	}
}

// UniformCrossover averages the weights of shared edges; edges unique to
// one parent are inherited with probability Rate.
type UniformCrossover struct {
	Rate float64
}

func (UniformCrossover) Name() string { return "uniform" }
func (UniformCrossover) Parents() int { return 2 }

func (c UniformCrossover) Combine(rng *rand.Rand, parents []models.Individual) (map[string]models.Edge, error) {
	if len(parents) != 2 {
		return nil, fmt.Errorf("uniform crossover requires 2 parents, got %d", len(parents))
	}
	a, b := parents[0], parents[1]

	child := make(map[string]models.Edge, len(a.Edges))
	for key, edgeA := range a.Edges {
		if edgeB, shared := b.Edges[key]; shared {
			merged := edgeA
			merged.Weight = (edgeA.Weight + edgeB.Weight) / 2
			child[key] = merged
			continue
		}
		if rng.Float64() < c.Rate {
			child[key] = edgeA
		}
	}
	for key, edgeB := range b.Edges {
		if _, shared := a.Edges[key]; shared {
			continue
		}
		if rng.Float64() < c.Rate {
			child[key] = edgeB
		}
	}
	return child, nil
}

// SinglePointCrossover splits the union of edge source IDs at a random
// pivot: sources left of the pivot come from parent A, the rest from parent
// B. Edges already inherited are never overwritten.
type SinglePointCrossover struct{}

func (SinglePointCrossover) Name() string { return "single-point" }
func (SinglePointCrossover) Parents() int { return 2 }

func (SinglePointCrossover) Combine(rng *rand.Rand, parents []models.Individual) (map[string]models.Edge, error) {
	if len(parents) != 2 {
		return nil, fmt.Errorf("single-point crossover requires 2 parents, got %d", len(parents))
	}
	a, b := parents[0], parents[1]

	sourceSet := make(map[string]bool)
	for _, e := range a.Edges {
		sourceSet[e.Source] = true
	}
	for _, e := range b.Edges {
		sourceSet[e.Source] = true
	}
	sources := make([]string, 0, len(sourceSet))
	for s := range sourceSet {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	if len(sources) == 0 {
		return map[string]models.Edge{}, nil
	}

	pivot := sources[rng.Intn(len(sources))]
	child := make(map[string]models.Edge, len(a.Edges))
	for key, edge := range a.Edges {
		if edge.Source < pivot {
			child[key] = edge
		}
	}
	for key, edge := range b.Edges {
		if edge.Source >= pivot {
			if _, exists := child[key]; !exists {
				child[key] = edge
			}
		}
	}
	return child, nil
}

// VirtueCrossover inherits, per anchor, that anchor's whole edge
// neighborhood from one randomly chosen parent, preserving anchor-local
// structure. Edges touching no anchor are inherited from a random parent.
type VirtueCrossover struct{}

func (VirtueCrossover) Name() string { return "virtue" }
func (VirtueCrossover) Parents() int { return 2 }

func (VirtueCrossover) Combine(rng *rand.Rand, parents []models.Individual) (map[string]models.Edge, error) {
	if len(parents) != 2 {
		return nil, fmt.Errorf("virtue crossover requires 2 parents, got %d", len(parents))
	}

	child := make(map[string]models.Edge)
	for _, v := range models.Virtues {
		donor := parents[rng.Intn(2)]
		for key, edge := range donor.Edges {
			if edge.Source != v.ID && edge.Target != v.ID {
				continue
			}
			if _, exists := child[key]; !exists {
				child[key] = edge
			}
		}
	}

	anchors := make(map[string]bool, models.AnchorCount)
	for _, v := range models.Virtues {
		anchors[v.ID] = true
	}
	for _, donor := range parents {
		for key, edge := range donor.Edges {
			if anchors[edge.Source] || anchors[edge.Target] {
				continue
			}
			if _, exists := child[key]; exists {
				continue
			}
			if rng.Intn(2) == 0 {
				child[key] = edge
			}
		}
	}
	return child, nil
}

// MultiParentCrossover inherits each edge from the highest-fitness parent
// that has it.
type MultiParentCrossover struct{}

func (MultiParentCrossover) Name() string { return "multi-parent" }
func (MultiParentCrossover) Parents() int { return 3 }

func (MultiParentCrossover) Combine(_ *rand.Rand, parents []models.Individual) (map[string]models.Edge, error) {
	if len(parents) < 2 {
		return nil, fmt.Errorf("multi-parent crossover requires at least 2 parents, got %d", len(parents))
	}

	ordered := make([]models.Individual, len(parents))
	copy(ordered, parents)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Fitness > ordered[j].Fitness })

	child := make(map[string]models.Edge)
	for _, parent := range ordered {
		for key, edge := range parent.Edges {
			if _, exists := child[key]; !exists {
				child[key] = edge
			}
		}
	}
	return child, nil
}
