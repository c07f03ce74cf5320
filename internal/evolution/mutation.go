package evolution

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/ethos-sim/ethos/internal/constants"
	"github.com/ethos-sim/ethos/internal/models"
)

// Mutator perturbs an individual's edge table in place. The set of mutators
// is closed: each variant is a concrete type, and NewMutator maps
// configuration names onto them.
type Mutator interface {
	Name() string
	Mutate(rng *rand.Rand, ind *models.Individual, graph GraphContext) error
}

// NewMutator maps a configured method name onto a mutator, binding the
// configured rate.
func NewMutator(name string, rate float64) (Mutator, error) {
	switch name {
	case "", "standard":
		return StandardMutator{Rate: rate, Std: constants.MutationStd}, nil
	case "aggressive":
		return AggressiveMutator{Base: StandardMutator{Rate: rate, Std: constants.MutationStd}}, nil
	case "adaptive":
		return AdaptiveMutator{Rate: rate, Std: constants.MutationStd}, nil
	case "directed":
		return DirectedMutator{Rate: rate, Std: constants.MutationStd}, nil
	case "topology-preserving":
		return TopologyPreservingMutator{Rate: rate, Std: constants.MutationStd}, nil
	default:
		return nil, fmt.Errorf("unknown mutation method: %s", name)
	}
}

// StandardMutator applies per-edge Gaussian weight perturbation at the
// configured rate, plus one chance each of edge addition and
// degree-protected edge removal.
type StandardMutator struct {
	Rate float64
	Std  float64
}

func (StandardMutator) Name() string { return "standard" }

func (m StandardMutator) Mutate(rng *rand.Rand, ind *models.Individual, graph GraphContext) error {
	perturbWeights(rng, ind, m.Rate, m.Std)
	if rng.Float64() < m.Rate {
		addRandomEdge(rng, ind, graph)
	}
	if rng.Float64() < m.Rate {
		removeRandomEdge(rng, ind, graph)
	}
	return nil
}

// AggressiveMutator runs the standard mutator at triple rate for several
// passes, used to shake stagnant populations.
type AggressiveMutator struct {
	Base StandardMutator
}

func (AggressiveMutator) Name() string { return "aggressive" }

func (m AggressiveMutator) Mutate(rng *rand.Rand, ind *models.Individual, graph GraphContext) error {
	boosted := StandardMutator{
		Rate: m.Base.Rate * constants.AggressiveMutationMultiplier,
		Std:  m.Base.Std,
	}
	if boosted.Rate > 1 {
		boosted.Rate = 1
	}
	for pass := 0; pass < constants.AggressiveMutationPasses; pass++ {
		if err := boosted.Mutate(rng, ind, graph); err != nil {
			return err
		}
	}
	return nil
}

// AdaptiveMutator scales the mutation rate inversely with the individual's
// fitness rank: the best individual mutates at half rate, the worst at
// triple rate.
type AdaptiveMutator struct {
	Rate float64
	Std  float64
}

func (AdaptiveMutator) Name() string { return "adaptive" }

func (m AdaptiveMutator) Mutate(rng *rand.Rand, ind *models.Individual, graph GraphContext) error {
	scaled := m.Rate * (0.5 + 2.5*graph.Rank)
	if scaled > 1 {
		scaled = 1
	}
	return StandardMutator{Rate: scaled, Std: m.Std}.Mutate(rng, ind, graph)
}

// DirectedMutator forces new edges onto under-connected anchors before
// applying the standard mutation.
type DirectedMutator struct {
	Rate float64
	Std  float64
}

func (DirectedMutator) Name() string { return "directed" }

func (m DirectedMutator) Mutate(rng *rand.Rand, ind *models.Individual, graph GraphContext) error {
	degrees := ind.VirtueDegrees()
	anchors := make([]string, 0, len(degrees))
	for id := range degrees {
		anchors = append(anchors, id)
	}
	sort.Strings(anchors)

	now := time.Now()
	for _, anchor := range anchors {
		if degrees[anchor] >= constants.TargetConnectivity {
			continue
		}
		for attempt := 0; attempt < constants.AddEdgeRetries; attempt++ {
			source := graph.NodeIDs[rng.Intn(len(graph.NodeIDs))]
			if source == anchor {
				continue
			}
			key := models.EdgeKey(source, anchor)
			if _, exists := ind.Edges[key]; exists {
				continue
			}
			ind.Edges[key] = models.Edge{
				Source:    source,
				Target:    anchor,
				Weight:    randomWeight(rng, constants.NewEdgeMinWeight, constants.NewEdgeMaxWeight),
				Direction: models.DirectionOneWay,
				LastUsed:  now,
			}
			break
		}
	}

	return StandardMutator{Rate: m.Rate, Std: m.Std}.Mutate(rng, ind, graph)
}

// TopologyPreservingMutator perturbs weights only; the edge set is left
// untouched.
type TopologyPreservingMutator struct {
	Rate float64
	Std  float64
}

func (TopologyPreservingMutator) Name() string { return "topology-preserving" }

func (m TopologyPreservingMutator) Mutate(rng *rand.Rand, ind *models.Individual, _ GraphContext) error {
	perturbWeights(rng, ind, m.Rate, m.Std)
	return nil
}

// perturbWeights applies Gaussian noise to each edge weight with
// probability rate. Iteration is over sorted keys for reproducibility.
func perturbWeights(rng *rand.Rand, ind *models.Individual, rate, std float64) {
	keys := sortedEdgeKeys(ind.Edges)
	for _, key := range keys {
		if rng.Float64() >= rate {
			continue
		}
		edge := ind.Edges[key]
		edge.Weight = clampWeight(edge.Weight + rng.NormFloat64()*std)
		ind.Edges[key] = edge
	}
}

// addRandomEdge tries up to AddEdgeRetries times to add a novel edge with a
// random weight in [NewEdgeMinWeight, NewEdgeMaxWeight].
func addRandomEdge(rng *rand.Rand, ind *models.Individual, graph GraphContext) {
	if len(graph.NodeIDs) < 2 {
		return
	}
	now := time.Now()
	for attempt := 0; attempt < constants.AddEdgeRetries; attempt++ {
		source := graph.NodeIDs[rng.Intn(len(graph.NodeIDs))]
		target := graph.NodeIDs[rng.Intn(len(graph.NodeIDs))]
		if source == target {
			continue
		}
		key := models.EdgeKey(source, target)
		if _, exists := ind.Edges[key]; exists {
			continue
		}
		ind.Edges[key] = models.Edge{
			Source:    source,
			Target:    target,
			Weight:    randomWeight(rng, constants.NewEdgeMinWeight, constants.NewEdgeMaxWeight),
			Direction: models.DirectionOneWay,
			LastUsed:  now,
		}
		return
	}
}

// removeRandomEdge removes one random edge, never one whose loss would drop
// an anchor below the target connectivity.
func removeRandomEdge(rng *rand.Rand, ind *models.Individual, graph GraphContext) {
	keys := sortedEdgeKeys(ind.Edges)
	if len(keys) == 0 {
		return
	}

	degrees := make(map[string]int)
	for _, edge := range ind.Edges {
		if graph.Anchors[edge.Source] {
			degrees[edge.Source]++
		}
		if graph.Anchors[edge.Target] {
			degrees[edge.Target]++
		}
	}

	removable := func(edge models.Edge) bool {
		for _, id := range []string{edge.Source, edge.Target} {
			if graph.Anchors[id] && degrees[id]-1 < constants.TargetConnectivity {
				return false
			}
		}
		return true
	}

	start := rng.Intn(len(keys))
	for i := 0; i < len(keys); i++ {
		key := keys[(start+i)%len(keys)]
		if removable(ind.Edges[key]) {
			delete(ind.Edges, key)
			return
		}
	}
}

func sortedEdgeKeys(edges map[string]models.Edge) []string {
	keys := make([]string, 0, len(edges))
	for key := range edges {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// clampWeight restricts a weight to [0, 1].
func clampWeight(w float64) float64 {
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}
