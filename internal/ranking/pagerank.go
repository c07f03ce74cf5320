// Package ranking scores nodes by structural importance. PageRank over the
// undirected view of the graph measures how central a node is to activation
// flow; the importance scorer blends that with current activation so that
// reports surface nodes that are both well-placed and currently live.
package ranking

import (
	"context"
	"fmt"
	"math"

	"github.com/ethos-sim/ethos/internal/store"
)

// PageRankConfig holds configuration for PageRank computation.
type PageRankConfig struct {
	// DampingFactor (d) is the probability of following an edge vs. teleporting.
	// Standard value: 0.85.
	DampingFactor float64

	// MaxIterations is the maximum number of power iteration steps. Default: 100.
	MaxIterations int

	// Tolerance is the convergence threshold. Default: 1e-6.
	Tolerance float64
}

// DefaultPageRankConfig returns the default PageRank configuration.
func DefaultPageRankConfig() PageRankConfig {
	return PageRankConfig{
		DampingFactor: 0.85,
		MaxIterations: 100,
		Tolerance:     1e-6,
	}
}

// ComputePageRank calculates PageRank scores for every node in the graph.
// Returns a map of node ID to score, normalized so the highest-ranked node
// scores 1.0.
//
// Algorithm: standard power iteration
//  1. Initialize all nodes with score = 1/N
//  2. For each iteration:
//     PR(v) = (1-d)/N + d * sum(PR(u)/outDegree(u)) for all u linking to v
//  3. Converge when max change < Tolerance
//  4. Normalize to [0, 1] by the max score
//
// Edges are treated as bidirectional links: activation conducts along an
// edge in one direction, but an edge still makes both endpoints structurally
// relevant to each other.
func ComputePageRank(ctx context.Context, s store.GraphStore, config PageRankConfig) (map[string]float64, error) {
	nodes, err := s.Nodes(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("computing pagerank: loading nodes: %w", err)
	}

	n := len(nodes)
	if n == 0 {
		return make(map[string]float64), nil
	}

	nodeIDs := make([]string, 0, n)
	inbound := make(map[string][]string, n)
	for _, node := range nodes {
		nodeIDs = append(nodeIDs, node.ID)
		inbound[node.ID] = nil
	}
	nodeSet := make(map[string]bool, n)
	for _, id := range nodeIDs {
		nodeSet[id] = true
	}

	edges, err := s.Edges(ctx)
	if err != nil {
		return nil, fmt.Errorf("computing pagerank: loading edges: %w", err)
	}

	// Build bidirectional adjacency: an edge A->B links A to B and B to A.
	for _, edge := range edges {
		if !nodeSet[edge.Source] || !nodeSet[edge.Target] || edge.Source == edge.Target {
			continue
		}
		inbound[edge.Target] = append(inbound[edge.Target], edge.Source)
		inbound[edge.Source] = append(inbound[edge.Source], edge.Target)
	}

	// Deduplicate inbound lists; a mutual edge pair would otherwise double
	// the link between its endpoints.
	for id, sources := range inbound {
		inbound[id] = dedup(sources)
	}

	outDegree := make(map[string]int, n)
	for _, sources := range inbound {
		for _, src := range sources {
			outDegree[src]++
		}
	}

	// Power iteration.
	d := config.DampingFactor
	nf := float64(n)
	scores := make(map[string]float64, n)
	for _, id := range nodeIDs {
		scores[id] = 1.0 / nf
	}

	for iter := 0; iter < config.MaxIterations; iter++ {
		newScores := make(map[string]float64, n)
		maxDelta := 0.0

		for _, v := range nodeIDs {
			sum := 0.0
			for _, u := range inbound[v] {
				if deg := outDegree[u]; deg > 0 {
					sum += scores[u] / float64(deg)
				}
			}

			newScore := (1.0-d)/nf + d*sum
			newScores[v] = newScore

			if delta := math.Abs(newScore - scores[v]); delta > maxDelta {
				maxDelta = delta
			}
		}

		scores = newScores

		if maxDelta < config.Tolerance {
			break
		}
	}

	// Normalize to [0, 1] by dividing by the max score.
	maxScore := 0.0
	for _, score := range scores {
		if score > maxScore {
			maxScore = score
		}
	}
	if maxScore > 0 {
		for id, score := range scores {
			scores[id] = score / maxScore
		}
	}

	return scores, nil
}

// dedup removes duplicate strings from a slice, preserving order.
func dedup(ss []string) []string {
	if len(ss) == 0 {
		return ss
	}
	seen := make(map[string]bool, len(ss))
	result := make([]string, 0, len(ss))
	for _, s := range ss {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	return result
}
