package ranking

import (
	"context"
	"fmt"
	"sort"

	"github.com/ethos-sim/ethos/internal/store"
)

// ImportanceConfig holds the weights for the two importance signals.
type ImportanceConfig struct {
	// ActivationWeight scales the node's current activation level. Default: 0.6.
	ActivationWeight float64

	// PageRankWeight scales the node's structural PageRank score. Default: 0.4.
	PageRankWeight float64
}

// DefaultImportanceConfig returns the default importance weights.
func DefaultImportanceConfig() ImportanceConfig {
	return ImportanceConfig{
		ActivationWeight: 0.6,
		PageRankWeight:   0.4,
	}
}

// ImportanceScore is the combined score for a single node.
type ImportanceScore struct {
	NodeID     string  `json:"node_id"`
	Final      float64 `json:"final"`
	Activation float64 `json:"activation"`
	PageRank   float64 `json:"pagerank"`
}

// RankNodes computes importance scores for every node in the graph and
// returns them sorted by final score descending, ties broken by node ID.
//
// final = ActivationWeight * activation + PageRankWeight * pagerank
func RankNodes(ctx context.Context, s store.GraphStore, config ImportanceConfig, prConfig PageRankConfig) ([]ImportanceScore, error) {
	pageRank, err := ComputePageRank(ctx, s, prConfig)
	if err != nil {
		return nil, err
	}

	nodes, err := s.Nodes(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("ranking nodes: loading nodes: %w", err)
	}

	scores := make([]ImportanceScore, 0, len(nodes))
	for _, node := range nodes {
		pr := pageRank[node.ID]
		scores = append(scores, ImportanceScore{
			NodeID:     node.ID,
			Final:      config.ActivationWeight*node.Activation + config.PageRankWeight*pr,
			Activation: node.Activation,
			PageRank:   pr,
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Final != scores[j].Final {
			return scores[i].Final > scores[j].Final
		}
		return scores[i].NodeID < scores[j].NodeID
	})

	return scores, nil
}
