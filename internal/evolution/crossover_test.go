package evolution

import (
	"math"
	"math/rand"
	"testing"

	"github.com/ethos-sim/ethos/internal/models"
)

func edgeTable(edges ...models.Edge) map[string]models.Edge {
	table := make(map[string]models.Edge, len(edges))
	for _, e := range edges {
		table[e.Key()] = e
	}
	return table
}

func TestNewCrossover(t *testing.T) {
	for _, name := range []string{"", "uniform", "single-point", "virtue", "multi-parent"} {
		if _, err := NewCrossover(name, 0.7); err != nil {
			t.Errorf("NewCrossover(%q): %v", name, err)
		}
	}
	if _, err := NewCrossover("bogus", 0.7); err == nil {
		t.Error("NewCrossover(bogus) succeeded, want error")
	}
}

func TestUniformCrossover_SharedEdgesAveraged(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := models.Individual{Edges: edgeTable(
		models.Edge{Source: "c1", Target: "V1", Weight: 0.8},
		models.Edge{Source: "c2", Target: "V2", Weight: 0.3},
	)}
	b := models.Individual{Edges: edgeTable(
		models.Edge{Source: "c1", Target: "V1", Weight: 0.4},
		models.Edge{Source: "c3", Target: "V3", Weight: 0.5},
	)}

	child, err := UniformCrossover{Rate: 1.0}.Combine(rng, []models.Individual{a, b})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	shared := child[models.EdgeKey("c1", "V1")]
	if math.Abs(shared.Weight-0.6) > 1e-9 {
		t.Errorf("shared weight = %.3f, want 0.6", shared.Weight)
	}
	// At rate 1.0 every parent-unique edge is inherited.
	if len(child) != 3 {
		t.Errorf("child edge count = %d, want 3", len(child))
	}
}

func TestUniformCrossover_RateZeroDropsUniqueEdges(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := models.Individual{Edges: edgeTable(
		models.Edge{Source: "c1", Target: "V1", Weight: 0.8},
		models.Edge{Source: "c2", Target: "V2", Weight: 0.3},
	)}
	b := models.Individual{Edges: edgeTable(
		models.Edge{Source: "c1", Target: "V1", Weight: 0.4},
	)}

	child, err := UniformCrossover{Rate: 0}.Combine(rng, []models.Individual{a, b})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if len(child) != 1 {
		t.Errorf("child edge count = %d, want only the shared edge", len(child))
	}
}

func TestUniformCrossover_WrongParentCount(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if _, err := (UniformCrossover{Rate: 0.5}).Combine(rng, []models.Individual{{}}); err == nil {
		t.Error("Combine with one parent succeeded, want error")
	}
}

func TestSinglePointCrossover_ChildIsSubsetOfUnion(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := models.Individual{Edges: edgeTable(
		models.Edge{Source: "c1", Target: "V1", Weight: 0.8},
		models.Edge{Source: "c2", Target: "V2", Weight: 0.3},
		models.Edge{Source: "c3", Target: "V1", Weight: 0.6},
	)}
	b := models.Individual{Edges: edgeTable(
		models.Edge{Source: "c1", Target: "V2", Weight: 0.4},
		models.Edge{Source: "c4", Target: "V3", Weight: 0.5},
	)}

	child, err := SinglePointCrossover{}.Combine(rng, []models.Individual{a, b})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if len(child) == 0 {
		t.Fatal("child has no edges")
	}
	for key, edge := range child {
		fromA := a.Edges[key] == edge
		fromB := b.Edges[key] == edge
		if !fromA && !fromB {
			t.Errorf("child edge %s matches neither parent", key)
		}
	}
}

func TestVirtueCrossover_AnchorNeighborhoodFromOneParent(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := models.Individual{Edges: edgeTable(
		models.Edge{Source: "V1", Target: "c1", Weight: 0.8},
	)}
	b := models.Individual{Edges: edgeTable(
		models.Edge{Source: "V1", Target: "c2", Weight: 0.4},
	)}

	child, err := VirtueCrossover{}.Combine(rng, []models.Individual{a, b})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	_, hasA := child[models.EdgeKey("V1", "c1")]
	_, hasB := child[models.EdgeKey("V1", "c2")]
	if hasA == hasB {
		t.Errorf("V1 neighborhood hasA=%v hasB=%v, want exactly one donor", hasA, hasB)
	}
}

func TestMultiParentCrossover_PrefersFitterParent(t *testing.T) {
	strong := models.Individual{Fitness: 0.9, Edges: edgeTable(
		models.Edge{Source: "c1", Target: "V1", Weight: 0.9},
	)}
	mid := models.Individual{Fitness: 0.5, Edges: edgeTable(
		models.Edge{Source: "c1", Target: "V1", Weight: 0.5},
		models.Edge{Source: "c2", Target: "V2", Weight: 0.5},
	)}
	weak := models.Individual{Fitness: 0.1, Edges: edgeTable(
		models.Edge{Source: "c1", Target: "V1", Weight: 0.1},
		models.Edge{Source: "c3", Target: "V3", Weight: 0.1},
	)}

	child, err := MultiParentCrossover{}.Combine(nil, []models.Individual{weak, strong, mid})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	if got := child[models.EdgeKey("c1", "V1")].Weight; got != 0.9 {
		t.Errorf("contested edge weight = %.2f, want the fittest parent's 0.9", got)
	}
	if len(child) != 3 {
		t.Errorf("child edge count = %d, want union of 3", len(child))
	}
}
