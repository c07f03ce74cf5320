package simulation

import (
	"context"
	"testing"
	"time"

	"github.com/ethos-sim/ethos/internal/learning"
	"github.com/ethos-sim/ethos/internal/models"
	"github.com/ethos-sim/ethos/internal/store"
)

// Full loop: a two-hop concept chain feeding the honesty anchor is
// stimulated repeatedly with learning on, then unrelated edges are decayed.
// The chain must capture, strengthen, and survive the decay pass.
func TestEndToEnd_HonestyChain(t *testing.T) {
	r := NewRunner(t)
	result := r.Run(Scenario{
		Name:     "honesty-chain",
		Scaffold: true,
		Nodes:    []NodeSpec{{ID: "promise"}, {ID: "truth"}, {ID: "rumor"}},
		Edges: []EdgeSpec{
			{Source: "promise", Target: "truth", Weight: 0.8},
			{Source: "truth", Target: "V5", Weight: 0.9},
			// An unrelated weak edge that nothing stimulates.
			{Source: "rumor", Target: "V4", Weight: 0.1, LastUsed: TimeAgo(72 * time.Hour)},
		},
		Stimuli:         RepeatStimulus("promise", 1.0, 5),
		LearningEnabled: true,
	})

	for i := range result.Stimuli {
		AssertCapturedBy(t, result, i, "V5")
	}
	AssertWeightIncreases(t, result, "truth", "V5", 0, len(result.Stimuli)-1)
	AssertNoWeightExplosion(t, result)

	// Temporal decay shrinks the stale rumor edge but leaves the freshly
	// used chain intact.
	ctx := context.Background()
	s := r.Store()

	chainBefore := edgeWeight(t, s, "truth", "V5")
	decayCfg := learning.DefaultDecayConfig()
	decayCfg.Constant = 0.5
	decayCfg.Interval = 24 * time.Hour
	decayer := learning.NewDecayer(s, decayCfg)
	if err := decayer.Run(ctx, time.Now()); err != nil {
		t.Fatalf("Decayer.Run: %v", err)
	}

	rumor, err := s.GetEdge(ctx, "rumor", "V4")
	if err != nil {
		t.Fatalf("GetEdge(rumor, V4): %v", err)
	}
	if rumor != nil && rumor.Weight >= 0.1 {
		t.Errorf("stale edge weight = %.4f, want decayed below 0.1 or removed", rumor.Weight)
	}

	chainAfter := edgeWeight(t, s, "truth", "V5")
	if chainAfter < chainBefore*0.99 {
		t.Errorf("fresh chain edge decayed from %.4f to %.4f, want untouched", chainBefore, chainAfter)
	}
}

func edgeWeight(t *testing.T, s store.GraphStore, source, target string) float64 {
	t.Helper()
	edge, err := s.GetEdge(context.Background(), source, target)
	if err != nil {
		t.Fatalf("GetEdge(%s, %s): %v", source, target, err)
	}
	if edge == nil {
		t.Fatalf("edge %s missing", models.EdgeKey(source, target))
	}
	return edge.Weight
}
