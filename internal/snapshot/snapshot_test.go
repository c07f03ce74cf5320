package snapshot

import (
	"context"
	"testing"

	"github.com/ethos-sim/ethos/internal/models"
	"github.com/ethos-sim/ethos/internal/store"
)

func seededStore(t *testing.T) *store.InMemoryGraphStore {
	t.Helper()
	s := store.NewInMemoryGraphStore()
	ctx := context.Background()

	nodes := []models.Node{
		{ID: "V1", Type: models.NodeTypeAnchor, Baseline: 0.3, Activation: 0.3},
		{ID: "courage-under-fire", Type: models.NodeTypeConcept, Activation: 0.7},
		{ID: "candor", Type: models.NodeTypeConcept},
	}
	for _, n := range nodes {
		if err := s.CreateNode(ctx, n); err != nil {
			t.Fatalf("creating node %s: %v", n.ID, err)
		}
	}
	edges := []models.Edge{
		{Source: "courage-under-fire", Target: "V1", Weight: 0.9},
		{Source: "candor", Target: "courage-under-fire", Weight: 0.4},
	}
	for _, e := range edges {
		if err := s.CreateEdge(ctx, e); err != nil {
			t.Fatalf("creating edge %s: %v", e.Key(), err)
		}
	}
	return s
}

func TestCapture_SortedAndComplete(t *testing.T) {
	s := seededStore(t)

	snap, err := Capture(context.Background(), s)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}

	if len(snap.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(snap.Nodes))
	}
	if len(snap.Edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(snap.Edges))
	}
	for i := 1; i < len(snap.Nodes); i++ {
		if snap.Nodes[i].ID < snap.Nodes[i-1].ID {
			t.Errorf("nodes not sorted: %s after %s", snap.Nodes[i].ID, snap.Nodes[i-1].ID)
		}
	}
	for i := 1; i < len(snap.Edges); i++ {
		if snap.Edges[i].Key() < snap.Edges[i-1].Key() {
			t.Errorf("edges not sorted: %s after %s", snap.Edges[i].Key(), snap.Edges[i-1].Key())
		}
	}
	if snap.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestApply_MergeSkipsExisting(t *testing.T) {
	ctx := context.Background()
	snap, err := Capture(ctx, seededStore(t))
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}

	// Target already has V1 and one of the edges.
	target := store.NewInMemoryGraphStore()
	if err := target.CreateNode(ctx, models.Node{ID: "V1", Type: models.NodeTypeAnchor, Activation: 0.9}); err != nil {
		t.Fatalf("seeding target: %v", err)
	}
	if err := target.CreateNode(ctx, models.Node{ID: "candor", Type: models.NodeTypeConcept}); err != nil {
		t.Fatalf("seeding target: %v", err)
	}
	if err := target.CreateEdge(ctx, models.Edge{Source: "candor", Target: "courage-under-fire", Weight: 0.99}); err != nil {
		t.Fatalf("seeding target: %v", err)
	}

	stats, err := Apply(ctx, target, snap, RestoreMerge)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if stats.NodesRestored != 1 || stats.NodesSkipped != 2 {
		t.Errorf("node stats = %d restored / %d skipped, want 1/2", stats.NodesRestored, stats.NodesSkipped)
	}
	if stats.EdgesRestored != 1 || stats.EdgesSkipped != 1 {
		t.Errorf("edge stats = %d restored / %d skipped, want 1/1", stats.EdgesRestored, stats.EdgesSkipped)
	}

	// Existing data wins in merge mode.
	v1, err := target.GetNode(ctx, "V1")
	if err != nil || v1 == nil {
		t.Fatalf("GetNode(V1): %v, %v", v1, err)
	}
	if v1.Activation != 0.9 {
		t.Errorf("merge overwrote existing node: activation %f, want 0.9", v1.Activation)
	}
	edge, err := target.GetEdge(ctx, "candor", "courage-under-fire")
	if err != nil || edge == nil {
		t.Fatalf("GetEdge: %v, %v", edge, err)
	}
	if edge.Weight != 0.99 {
		t.Errorf("merge overwrote existing edge: weight %f, want 0.99", edge.Weight)
	}
}

func TestApply_ReplaceClearsTarget(t *testing.T) {
	ctx := context.Background()
	snap, err := Capture(ctx, seededStore(t))
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}

	target := store.NewInMemoryGraphStore()
	if err := target.CreateNode(ctx, models.Node{ID: "stale", Type: models.NodeTypeConcept}); err != nil {
		t.Fatalf("seeding target: %v", err)
	}

	stats, err := Apply(ctx, target, snap, RestoreReplace)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if stats.NodesRestored != 3 || stats.NodesSkipped != 0 {
		t.Errorf("node stats = %d restored / %d skipped, want 3/0", stats.NodesRestored, stats.NodesSkipped)
	}
	if stats.EdgesRestored != 2 {
		t.Errorf("edges restored = %d, want 2", stats.EdgesRestored)
	}

	stale, err := target.GetNode(ctx, "stale")
	if err != nil {
		t.Fatalf("GetNode(stale): %v", err)
	}
	if stale != nil {
		t.Error("replace mode should have removed pre-existing nodes")
	}

	nodes, err := target.Nodes(ctx, "")
	if err != nil {
		t.Fatalf("Nodes: %v", err)
	}
	if len(nodes) != 3 {
		t.Errorf("expected exactly 3 nodes after replace, got %d", len(nodes))
	}
}

func TestApply_UnknownModeErrors(t *testing.T) {
	_, err := Apply(context.Background(), store.NewInMemoryGraphStore(), &Snapshot{}, RestoreMode("clobber"))
	if err == nil {
		t.Fatal("expected error for unknown restore mode")
	}
}
