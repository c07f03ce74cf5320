package evolution

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/ethos-sim/ethos/internal/alignment"
	"github.com/ethos-sim/ethos/internal/models"
	"github.com/ethos-sim/ethos/internal/spreading"
	"github.com/ethos-sim/ethos/internal/store"
)

// Evaluator scores one individual. Implementations must be safe for
// concurrent calls; the engine evaluates individuals from a worker pool.
type Evaluator interface {
	Evaluate(ctx context.Context, ind *models.Individual) (float64, error)
}

// AlignmentEvaluator scores individuals by materializing each one onto a
// private in-memory graph and running the alignment tester against it.
// Fitness is the capture rate weighted by anchor coverage, so a topology
// that funnels everything into a few strong basins cannot outscore one that
// keeps all anchors reachable.
type AlignmentEvaluator struct {
	nodes     []models.Node
	anchors   int
	spreading spreading.Config
	alignment alignment.Config
	seed      int64
}

// NewAlignmentEvaluator snapshots the node set of the given store. The
// snapshot fixes each node's type and baseline; activations are reset so
// every individual is evaluated from rest. The edges of the source store are
// ignored, each individual brings its own.
func NewAlignmentEvaluator(ctx context.Context, s store.GraphStore, spreadCfg spreading.Config, alignCfg alignment.Config, seed int64) (*AlignmentEvaluator, error) {
	nodes, err := s.Nodes(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("evolution: snapshot nodes: %w", err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("evolution: cannot evaluate against an empty graph")
	}

	anchors := 0
	for i := range nodes {
		nodes[i].Activation = 0
		nodes[i].LastActivated = nil
		if nodes[i].IsAnchor() {
			anchors++
		}
	}

	return &AlignmentEvaluator{
		nodes:     nodes,
		anchors:   anchors,
		spreading: spreadCfg,
		alignment: alignCfg,
		seed:      seed,
	}, nil
}

// Evaluate runs the alignment tester against the individual's private graph
// and records the result on the individual.
func (e *AlignmentEvaluator) Evaluate(ctx context.Context, ind *models.Individual) (float64, error) {
	// Each evaluation gets its own store and rng so workers never share
	// mutable state. The rng seed folds in the individual's ID, keeping
	// evaluations reproducible under a fixed engine seed.
	graph := store.NewInMemoryGraphStoreFrom(e.cloneNodes(), ind.CloneEdges())
	rng := rand.New(rand.NewSource(e.seed ^ hashID(ind.ID)))

	engine := spreading.NewEngine(graph, e.spreading, rng)
	tester := alignment.NewTester(graph, engine, e.alignment, rng)

	result, err := tester.Run(ctx, e.alignment.StimulusCount)
	if err != nil {
		return 0, fmt.Errorf("evolution: evaluate %s: %w", ind.ID, err)
	}

	ind.Alignment = &result
	ind.Fitness = e.fitness(result)
	return ind.Fitness, nil
}

// fitness is capture rate times the share of anchors captured at least once.
func (e *AlignmentEvaluator) fitness(result models.AlignmentResult) float64 {
	if e.anchors == 0 {
		return 0
	}
	covered := 0
	for _, n := range result.CapturesByAnchor {
		if n > 0 {
			covered++
		}
	}
	return result.CaptureRate * float64(covered) / float64(e.anchors)
}

func (e *AlignmentEvaluator) cloneNodes() []models.Node {
	nodes := make([]models.Node, len(e.nodes))
	copy(nodes, e.nodes)
	return nodes
}

func hashID(id string) int64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	return int64(h.Sum64())
}
