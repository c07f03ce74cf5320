// Package evolution implements the genetic search over edge-weight
// topologies. A population of candidate topologies (Individuals) is scored
// by a pluggable Evaluator — normally the alignment tester running against a
// private materialization of each individual — and evolved through
// selection, crossover, and mutation until the alignment target is met or
// the generation cap is reached.
package evolution

import (
	"math"
	"math/rand"

	"github.com/google/uuid"

	"github.com/ethos-sim/ethos/internal/models"
)

// NewIndividual creates an individual owning the given edge table.
func NewIndividual(edges map[string]models.Edge, generation int, parentIDs ...string) models.Individual {
	return models.Individual{
		ID:         uuid.NewString(),
		Edges:      edges,
		Generation: generation,
		ParentIDs:  parentIDs,
	}
}

// GraphContext is the read-only graph knowledge operators need: the
// candidate node IDs and which of them are anchors.
type GraphContext struct {
	// NodeIDs lists every node an edge may attach to, sorted.
	NodeIDs []string

	// Anchors marks which node IDs are anchors.
	Anchors map[string]bool

	// Rank positions the individual being mutated within its generation,
	// 0.0 (best) to 1.0 (worst). Set by the engine; used by the adaptive
	// mutation variant.
	Rank float64
}

// signatureDistance measures Euclidean distance between two character
// signatures. Individuals without a signature are maximally distant.
func signatureDistance(a, b *models.AlignmentResult) float64 {
	if a == nil || b == nil {
		return math.MaxFloat64
	}

	keys := make(map[string]bool, len(a.Signature)+len(b.Signature))
	for k := range a.Signature {
		keys[k] = true
	}
	for k := range b.Signature {
		keys[k] = true
	}

	sum := 0.0
	for k := range keys {
		d := a.Signature[k] - b.Signature[k]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// randomWeight returns a uniform weight in [min, max].
func randomWeight(rng *rand.Rand, min, max float64) float64 {
	return min + rng.Float64()*(max-min)
}
