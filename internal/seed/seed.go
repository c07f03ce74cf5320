// Package seed bootstraps a graph with the virtue scaffold: one anchor node
// per virtue, mutual key-relation edges between virtues, and optionally a
// set of concept nodes wired toward the anchors.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/ethos-sim/ethos/internal/constants"
	"github.com/ethos-sim/ethos/internal/models"
	"github.com/ethos-sim/ethos/internal/store"
)

// Result summarizes what a seeding pass created.
type Result struct {
	AnchorsCreated  int `json:"anchors_created"`
	ConceptsCreated int `json:"concepts_created"`
	EdgesCreated    int `json:"edges_created"`
}

// Scaffold seeds the virtue anchors and their key-relation edges. Seeding is
// idempotent: nodes and edges that already exist are left untouched, so a
// graph that has drifted through learning keeps its learned weights.
func Scaffold(ctx context.Context, s store.GraphStore) (Result, error) {
	var result Result

	for _, v := range models.Virtues {
		existing, err := s.GetNode(ctx, v.ID)
		if err != nil {
			return result, fmt.Errorf("seed: lookup %s: %w", v.ID, err)
		}
		if existing != nil {
			continue
		}
		node := models.Node{
			ID:       v.ID,
			Type:     models.NodeTypeAnchor,
			Baseline: constants.DefaultAnchorBaseline,
		}
		if err := s.CreateNode(ctx, node); err != nil {
			return result, fmt.Errorf("seed: create anchor %s: %w", v.ID, err)
		}
		result.AnchorsCreated++
	}

	now := time.Now()
	for _, v := range models.Virtues {
		for _, rel := range v.KeyRelations {
			created, err := ensureMutualEdge(ctx, s, v.ID, rel, constants.KeyRelationWeight, now)
			if err != nil {
				return result, err
			}
			result.EdgesCreated += created
		}
	}
	return result, nil
}

// Concepts adds count concept nodes (C1..Cn continuing from the highest
// existing concept) and wires each to one random anchor in each direction.
func Concepts(ctx context.Context, s store.GraphStore, count int, rng *rand.Rand) (Result, error) {
	var result Result
	if count <= 0 {
		return result, nil
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	existing, err := s.Nodes(ctx, models.NodeTypeConcept)
	if err != nil {
		return result, fmt.Errorf("seed: list concepts: %w", err)
	}
	next := len(existing) + 1

	anchorIDs := models.VirtueIDs()
	now := time.Now()
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("C%d", next+i)
		node := models.Node{
			ID:       id,
			Type:     models.NodeTypeConcept,
			Baseline: constants.DefaultConceptBaseline,
		}
		if err := s.CreateNode(ctx, node); err != nil {
			return result, fmt.Errorf("seed: create concept %s: %w", id, err)
		}
		result.ConceptsCreated++

		out := anchorIDs[rng.Intn(len(anchorIDs))]
		in := anchorIDs[rng.Intn(len(anchorIDs))]
		for _, pair := range [][2]string{{id, out}, {in, id}} {
			created, err := ensureEdge(ctx, s, pair[0], pair[1],
				constants.NewEdgeMinWeight+rng.Float64()*(constants.NewEdgeMaxWeight-constants.NewEdgeMinWeight), now)
			if err != nil {
				return result, err
			}
			result.EdgesCreated += created
		}
	}
	return result, nil
}

// ensureMutualEdge creates both ordered halves of a mutual edge if missing.
// Returns the number of edges created.
func ensureMutualEdge(ctx context.Context, s store.GraphStore, a, b string, weight float64, now time.Time) (int, error) {
	created := 0
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		existing, err := s.GetEdge(ctx, pair[0], pair[1])
		if err != nil {
			return created, fmt.Errorf("seed: lookup edge %s->%s: %w", pair[0], pair[1], err)
		}
		if existing != nil {
			continue
		}
		edge := models.Edge{
			Source:    pair[0],
			Target:    pair[1],
			Weight:    weight,
			Direction: models.DirectionMutual,
			LastUsed:  now,
		}
		if err := s.CreateEdge(ctx, edge); err != nil {
			return created, fmt.Errorf("seed: create edge %s->%s: %w", pair[0], pair[1], err)
		}
		created++
	}
	return created, nil
}

func ensureEdge(ctx context.Context, s store.GraphStore, source, target string, weight float64, now time.Time) (int, error) {
	if source == target {
		return 0, nil
	}
	existing, err := s.GetEdge(ctx, source, target)
	if err != nil {
		return 0, fmt.Errorf("seed: lookup edge %s->%s: %w", source, target, err)
	}
	if existing != nil {
		return 0, nil
	}
	edge := models.Edge{
		Source:    source,
		Target:    target,
		Weight:    weight,
		Direction: models.DirectionOneWay,
		LastUsed:  now,
	}
	if err := s.CreateEdge(ctx, edge); err != nil {
		return 0, fmt.Errorf("seed: create edge %s->%s: %w", source, target, err)
	}
	return 1, nil
}
