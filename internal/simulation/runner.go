package simulation

import (
	"context"
	"math/rand"
	"testing"

	"github.com/ethos-sim/ethos/internal/learning"
	"github.com/ethos-sim/ethos/internal/models"
	"github.com/ethos-sim/ethos/internal/seed"
	"github.com/ethos-sim/ethos/internal/spreading"
	"github.com/ethos-sim/ethos/internal/store"
)

// Runner orchestrates multi-stimulus simulation experiments against a real
// graph store and propagation engine.
type Runner struct {
	t     *testing.T
	store *store.SQLiteGraphStore
}

// NewRunner creates a simulation runner with an isolated SQLite store under
// t.TempDir() and a sandboxed HOME.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	s, err := store.NewSQLiteGraphStore(tmpDir)
	if err != nil {
		t.Fatalf("NewRunner: create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return &Runner{t: t, store: s}
}

// Store exposes the underlying store for post-run inspection.
func (r *Runner) Store() store.GraphStore { return r.store }

// Run executes the scenario and returns the collected results.
func (r *Runner) Run(scenario Scenario) RunResult {
	r.t.Helper()
	ctx := context.Background()

	r.seedGraph(ctx, scenario)

	spreadCfg := spreading.DefaultConfig()
	if scenario.SpreadConfig != nil {
		spreadCfg = *scenario.SpreadConfig
	}

	runSeed := scenario.Seed
	if runSeed == 0 {
		runSeed = 1
	}
	rng := rand.New(rand.NewSource(runSeed))
	engine := spreading.NewEngine(r.store, spreadCfg, rng)

	hebbianCfg := learning.DefaultHebbianConfig()
	if scenario.LearningRate != 0 {
		hebbianCfg.LearningRate = scenario.LearningRate
	}
	hebbian := learning.NewHebbian(r.store, hebbianCfg)

	results := make([]StimulusResult, len(scenario.Stimuli))
	for i, stim := range scenario.Stimuli {
		if scenario.BeforeStimulus != nil {
			scenario.BeforeStimulus(i, r.store)
		}

		traj, err := engine.Spread(ctx, []string{stim.Target}, stim.Strength, spreadCfg.MaxSteps)
		if err != nil {
			r.t.Fatalf("stimulus %d: Spread(%s): %v", i, stim.Target, err)
		}

		if scenario.LearningEnabled && traj.Captured() {
			// Reinforce the route from the stimulus into the basin, the way
			// the session loop does.
			reinforced := traj
			reinforced.Path = append([]string{stim.Target}, traj.Path...)
			if err := hebbian.StrengthenPath(ctx, reinforced); err != nil {
				r.t.Fatalf("stimulus %d: StrengthenPath: %v", i, err)
			}
		}

		results[i] = StimulusResult{
			Index:       i,
			Stimulus:    stim,
			Trajectory:  traj,
			EdgeWeights: r.snapshotEdgeWeights(ctx),
		}
	}

	return RunResult{Stimuli: results, Store: r.store}
}

// seedGraph populates the store with the scenario's scaffold, nodes, and
// edges.
func (r *Runner) seedGraph(ctx context.Context, scenario Scenario) {
	r.t.Helper()

	if scenario.Scaffold {
		if _, err := seed.Scaffold(ctx, r.store); err != nil {
			r.t.Fatalf("seedGraph: Scaffold: %v", err)
		}
	}

	for _, ns := range scenario.Nodes {
		if err := r.store.CreateNode(ctx, ns.ToNode()); err != nil {
			r.t.Fatalf("seedGraph: CreateNode(%s): %v", ns.ID, err)
		}
	}

	for _, es := range scenario.Edges {
		for _, edge := range es.ToEdges() {
			if err := r.store.CreateEdge(ctx, edge); err != nil {
				r.t.Fatalf("seedGraph: CreateEdge(%s->%s): %v", edge.Source, edge.Target, err)
			}
		}
	}
}

// snapshotEdgeWeights captures every current edge weight.
func (r *Runner) snapshotEdgeWeights(ctx context.Context) map[string]float64 {
	r.t.Helper()

	edges, err := r.store.Edges(ctx)
	if err != nil {
		r.t.Fatalf("snapshotEdgeWeights: Edges: %v", err)
	}
	weights := make(map[string]float64, len(edges))
	for _, e := range edges {
		weights[models.EdgeKey(e.Source, e.Target)] = e.Weight
	}
	return weights
}

// FinalActivation returns a node's activation in the final store state.
func (r *Runner) FinalActivation(id string) float64 {
	r.t.Helper()

	node, err := r.store.GetNode(context.Background(), id)
	if err != nil {
		r.t.Fatalf("FinalActivation: GetNode(%s): %v", id, err)
	}
	if node == nil {
		r.t.Fatalf("FinalActivation: node %s not found", id)
	}
	return node.Activation
}
