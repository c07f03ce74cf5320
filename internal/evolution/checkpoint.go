package evolution

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ethos-sim/ethos/internal/models"
)

// Checkpoint is the on-disk snapshot of an evolution run.
type Checkpoint struct {
	Generation   int                      `json:"generation"`
	BestTopology CheckpointTopology       `json:"best_topology"`
	History      []models.GenerationStats `json:"history"`
	Converged    bool                     `json:"converged"`
	Timestamp    time.Time                `json:"timestamp"`
}

// CheckpointTopology is the best individual flattened for storage.
type CheckpointTopology struct {
	ID              string                  `json:"id"`
	Edges           []CheckpointEdge        `json:"edges"`
	Fitness         float64                 `json:"fitness"`
	VirtueDegrees   map[string]int          `json:"virtue_degrees"`
	AlignmentResult *models.AlignmentResult `json:"alignment_result,omitempty"`
}

// CheckpointEdge is one edge of a checkpointed topology.
type CheckpointEdge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

// WriteCheckpoint writes a checkpoint atomically: the JSON goes to a temp
// file in the target directory, then renames over the destination, so a
// crash mid-write never leaves a truncated checkpoint.
func WriteCheckpoint(path string, generation int, best models.Individual, history []models.GenerationStats, converged bool) error {
	cp := Checkpoint{
		Generation: generation,
		BestTopology: CheckpointTopology{
			ID:              best.ID,
			Edges:           flattenEdges(best.Edges),
			Fitness:         best.Fitness,
			VirtueDegrees:   best.VirtueDegrees(),
			AlignmentResult: best.Alignment,
		},
		History:   history,
		Converged: converged,
		Timestamp: time.Now(),
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("evolution: marshal checkpoint: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("evolution: create checkpoint dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".checkpoint-*.json")
	if err != nil {
		return fmt.Errorf("evolution: create checkpoint temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("evolution: write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("evolution: close checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("evolution: commit checkpoint: %w", err)
	}
	return nil
}

// ReadCheckpoint loads a checkpoint from disk.
func ReadCheckpoint(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("evolution: read checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("evolution: parse checkpoint %s: %w", path, err)
	}
	return &cp, nil
}

// Individual reconstructs the checkpointed topology as an individual.
func (cp *Checkpoint) Individual() models.Individual {
	edges := make(map[string]models.Edge, len(cp.BestTopology.Edges))
	for _, e := range cp.BestTopology.Edges {
		edges[models.EdgeKey(e.Source, e.Target)] = models.Edge{
			Source:    e.Source,
			Target:    e.Target,
			Weight:    e.Weight,
			Direction: models.DirectionOneWay,
		}
	}
	return models.Individual{
		ID:         cp.BestTopology.ID,
		Edges:      edges,
		Fitness:    cp.BestTopology.Fitness,
		Generation: cp.Generation,
		Alignment:  cp.BestTopology.AlignmentResult,
	}
}

func flattenEdges(edges map[string]models.Edge) []CheckpointEdge {
	flat := make([]CheckpointEdge, 0, len(edges))
	for _, edge := range edges {
		flat = append(flat, CheckpointEdge{
			Source: edge.Source,
			Target: edge.Target,
			Weight: edge.Weight,
		})
	}
	sort.Slice(flat, func(i, j int) bool {
		if flat[i].Source != flat[j].Source {
			return flat[i].Source < flat[j].Source
		}
		return flat[i].Target < flat[j].Target
	})
	return flat
}
