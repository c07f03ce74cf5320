package evolution

import (
	"math/rand"
	"time"

	"github.com/ethos-sim/ethos/internal/constants"
	"github.com/ethos-sim/ethos/internal/models"
)

// InitPopulation builds size random founder topologies. Every anchor gets
// edges to its declared key relations plus 1-4 random extras, and each
// supplied concept node gets random outgoing edges so stimuli have a path
// into the anchor layer.
func InitPopulation(rng *rand.Rand, conceptIDs []string, size int) []models.Individual {
	individuals := make([]models.Individual, 0, size)
	for i := 0; i < size; i++ {
		individuals = append(individuals, NewIndividual(randomFounderEdges(rng, conceptIDs), 0))
	}
	return individuals
}

// randomFounderEdges builds one founder edge table.
func randomFounderEdges(rng *rand.Rand, conceptIDs []string) map[string]models.Edge {
	now := time.Now()
	edges := make(map[string]models.Edge)

	addEdge := func(source, target string, weight float64) {
		if source == target {
			return
		}
		key := models.EdgeKey(source, target)
		if _, exists := edges[key]; exists {
			return
		}
		edges[key] = models.Edge{
			Source:    source,
			Target:    target,
			Weight:    weight,
			Direction: models.DirectionOneWay,
			LastUsed:  now,
		}
	}

	anchorIDs := models.VirtueIDs()
	allIDs := append(append([]string{}, anchorIDs...), conceptIDs...)

	for _, v := range models.Virtues {
		for _, rel := range v.KeyRelations {
			addEdge(v.ID, rel, constants.KeyRelationWeight)
		}

		extras := constants.InitExtraEdgesMin + rng.Intn(constants.InitExtraEdgesMax-constants.InitExtraEdgesMin+1)
		for e := 0; e < extras; e++ {
			target := allIDs[rng.Intn(len(allIDs))]
			addEdge(v.ID, target, randomWeight(rng, constants.NewEdgeMinWeight, constants.NewEdgeMaxWeight))
		}
	}

	for _, concept := range conceptIDs {
		outgoing := 1 + rng.Intn(2)
		for e := 0; e < outgoing; e++ {
			target := allIDs[rng.Intn(len(allIDs))]
			addEdge(concept, target, randomWeight(rng, constants.NewEdgeMinWeight, constants.NewEdgeMaxWeight))
		}
	}

	return edges
}
