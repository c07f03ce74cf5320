package evolution

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/ethos-sim/ethos/internal/constants"
	"github.com/ethos-sim/ethos/internal/models"
)

func testGraphContext(conceptIDs ...string) GraphContext {
	anchors := make(map[string]bool, models.AnchorCount)
	ids := models.VirtueIDs()
	for _, id := range ids {
		anchors[id] = true
	}
	ids = append(ids, conceptIDs...)
	return GraphContext{NodeIDs: ids, Anchors: anchors}
}

func TestNewMutator(t *testing.T) {
	for _, name := range []string{"", "standard", "aggressive", "adaptive", "directed", "topology-preserving"} {
		if _, err := NewMutator(name, 0.1); err != nil {
			t.Errorf("NewMutator(%q): %v", name, err)
		}
	}
	if _, err := NewMutator("bogus", 0.1); err == nil {
		t.Error("NewMutator(bogus) succeeded, want error")
	}
}

func TestTopologyPreservingMutator_KeepsEdgeSet(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ind := models.Individual{Edges: edgeTable(
		models.Edge{Source: "c1", Target: "V1", Weight: 0.5},
		models.Edge{Source: "c2", Target: "V2", Weight: 0.5},
	)}

	m := TopologyPreservingMutator{Rate: 1.0, Std: constants.MutationStd}
	if err := m.Mutate(rng, &ind, testGraphContext("c1", "c2")); err != nil {
		t.Fatalf("Mutate: %v", err)
	}

	if len(ind.Edges) != 2 {
		t.Fatalf("edge count = %d, want unchanged 2", len(ind.Edges))
	}
	changed := 0
	for _, edge := range ind.Edges {
		if edge.Weight < 0 || edge.Weight > 1 {
			t.Errorf("weight %.3f out of [0,1]", edge.Weight)
		}
		if edge.Weight != 0.5 {
			changed++
		}
	}
	if changed == 0 {
		t.Error("rate 1.0 mutation left every weight untouched")
	}
}

func TestStandardMutator_WeightsStayClamped(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	edges := make(map[string]models.Edge)
	for i := 0; i < 50; i++ {
		e := models.Edge{Source: fmt.Sprintf("c%d", i), Target: "V1", Weight: 0.95}
		edges[e.Key()] = e
	}
	ind := models.Individual{Edges: edges}

	concepts := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		concepts = append(concepts, fmt.Sprintf("c%d", i))
	}

	m := StandardMutator{Rate: 1.0, Std: constants.MutationStd}
	if err := m.Mutate(rng, &ind, testGraphContext(concepts...)); err != nil {
		t.Fatalf("Mutate: %v", err)
	}

	for key, edge := range ind.Edges {
		if edge.Weight < 0 || edge.Weight > 1 {
			t.Errorf("edge %s weight %.3f out of [0,1]", key, edge.Weight)
		}
	}
	// One add plus one remove at most.
	if len(ind.Edges) < 49 || len(ind.Edges) > 51 {
		t.Errorf("edge count = %d, want within one of 50", len(ind.Edges))
	}
}

func TestRemoveRandomEdge_ProtectsAnchorConnectivity(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	// V1 sits at exactly the target degree; removal must refuse every edge.
	edges := make(map[string]models.Edge)
	concepts := make([]string, 0, constants.TargetConnectivity)
	for i := 0; i < constants.TargetConnectivity; i++ {
		id := fmt.Sprintf("c%d", i)
		concepts = append(concepts, id)
		e := models.Edge{Source: id, Target: "V1", Weight: 0.5}
		edges[e.Key()] = e
	}
	ind := models.Individual{Edges: edges}

	removeRandomEdge(rng, &ind, testGraphContext(concepts...))

	if len(ind.Edges) != constants.TargetConnectivity {
		t.Errorf("edge count = %d, want protected %d", len(ind.Edges), constants.TargetConnectivity)
	}
}

func TestRemoveRandomEdge_RemovesUnprotectedEdge(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ind := models.Individual{Edges: edgeTable(
		models.Edge{Source: "c1", Target: "c2", Weight: 0.5},
	)}

	removeRandomEdge(rng, &ind, testGraphContext("c1", "c2"))

	if len(ind.Edges) != 0 {
		t.Errorf("edge count = %d, want 0", len(ind.Edges))
	}
}

func TestDirectedMutator_FillsUnderConnectedAnchors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ind := models.Individual{Edges: make(map[string]models.Edge)}

	m := DirectedMutator{Rate: 0, Std: constants.MutationStd}
	if err := m.Mutate(rng, &ind, testGraphContext("c1", "c2", "c3")); err != nil {
		t.Fatalf("Mutate: %v", err)
	}

	degrees := ind.VirtueDegrees()
	for _, v := range models.Virtues {
		if degrees[v.ID] == 0 {
			t.Errorf("anchor %s still has zero degree after directed mutation", v.ID)
		}
	}
	for key, edge := range ind.Edges {
		if edge.Weight < constants.NewEdgeMinWeight || edge.Weight > constants.NewEdgeMaxWeight {
			t.Errorf("edge %s weight %.3f outside new-edge bounds", key, edge.Weight)
		}
	}
}

func TestAdaptiveMutator_RateScalesWithRank(t *testing.T) {
	base := edgeTable()
	for i := 0; i < 100; i++ {
		e := models.Edge{Source: fmt.Sprintf("c%d", i), Target: fmt.Sprintf("c%d", i+100), Weight: 0.5}
		base[e.Key()] = e
	}

	countChanged := func(rank float64) int {
		rng := rand.New(rand.NewSource(7))
		ind := models.Individual{Edges: make(map[string]models.Edge, len(base))}
		for k, v := range base {
			ind.Edges[k] = v
		}
		graph := testGraphContext()
		graph.Rank = rank

		m := AdaptiveMutator{Rate: 0.2, Std: constants.MutationStd}
		if err := m.Mutate(rng, &ind, graph); err != nil {
			t.Fatalf("Mutate: %v", err)
		}

		changed := 0
		for k, v := range base {
			if got, ok := ind.Edges[k]; ok && got.Weight != v.Weight {
				changed++
			}
		}
		return changed
	}

	bestChanged := countChanged(0.0)  // effective rate 0.1
	worstChanged := countChanged(1.0) // effective rate 0.6
	if worstChanged <= bestChanged {
		t.Errorf("changed at rank 1.0 = %d, at rank 0.0 = %d; want worst mutated more", worstChanged, bestChanged)
	}
}

func TestAggressiveMutator_MutatesMoreThanStandard(t *testing.T) {
	base := edgeTable()
	for i := 0; i < 100; i++ {
		e := models.Edge{Source: fmt.Sprintf("c%d", i), Target: fmt.Sprintf("c%d", i+100), Weight: 0.5}
		base[e.Key()] = e
	}

	countChanged := func(m Mutator) int {
		rng := rand.New(rand.NewSource(7))
		ind := models.Individual{Edges: make(map[string]models.Edge, len(base))}
		for k, v := range base {
			ind.Edges[k] = v
		}
		if err := m.Mutate(rng, &ind, testGraphContext()); err != nil {
			t.Fatalf("Mutate: %v", err)
		}
		changed := 0
		for k, v := range base {
			if got, ok := ind.Edges[k]; ok && got.Weight != v.Weight {
				changed++
			}
		}
		return changed
	}

	standard := countChanged(StandardMutator{Rate: 0.1, Std: constants.MutationStd})
	aggressive := countChanged(AggressiveMutator{Base: StandardMutator{Rate: 0.1, Std: constants.MutationStd}})
	if aggressive <= standard {
		t.Errorf("aggressive changed %d, standard %d; want aggressive higher", aggressive, standard)
	}
}
