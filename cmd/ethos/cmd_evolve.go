package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/ethos-sim/ethos/internal/alignment"
	"github.com/ethos-sim/ethos/internal/evolution"
	"github.com/ethos-sim/ethos/internal/logging"
	"github.com/ethos-sim/ethos/internal/models"
	"github.com/ethos-sim/ethos/internal/store"
)

func newEvolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evolve",
		Short: "Breed graph topologies toward the alignment target",
		Long: `Evolve runs a genetic search over edge-weight topologies. Each candidate
is materialized onto a private in-memory graph and scored by the alignment
tester; the population is then bred through selection, crossover, and
mutation until the fitness target is reached or the generation cap runs out.

The best topology is checkpointed to .ethos/checkpoint.json. With --apply,
it replaces the live graph's edges.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, root, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			cfg := loadConfig()
			ctx := context.Background()

			evoCfg := evolution.DefaultConfig()
			evoCfg.PopulationSize = cfg.Evolution.PopulationSize
			evoCfg.Generations = cfg.Evolution.Generations
			evoCfg.ElitismCount = cfg.Evolution.ElitismCount
			evoCfg.MutationRate = cfg.Evolution.MutationRate
			evoCfg.CrossoverRate = cfg.Evolution.CrossoverRate
			evoCfg.Workers = cfg.Evolution.Workers
			evoCfg.Selection = cfg.Evolution.Selection
			evoCfg.Crossover = cfg.Evolution.Crossover
			evoCfg.Mutation = cfg.Evolution.Mutation
			evoCfg.CheckpointPath = filepath.Join(root, ".ethos", "checkpoint.json")

			if n, _ := cmd.Flags().GetInt("population"); n > 0 {
				evoCfg.PopulationSize = n
			}
			if n, _ := cmd.Flags().GetInt("generations"); n > 0 {
				evoCfg.Generations = n
			}
			if n, _ := cmd.Flags().GetInt("workers"); n > 0 {
				evoCfg.Workers = n
			}
			evoCfg.Seed, _ = cmd.Flags().GetInt64("seed")

			alignCfg := alignment.DefaultConfig()
			if cfg.Alignment.StimulusCount != 0 {
				alignCfg.StimulusCount = cfg.Alignment.StimulusCount
			}

			evaluator, err := evolution.NewAlignmentEvaluator(ctx, s, spreadConfigFrom(cfg), alignCfg, evoCfg.Seed)
			if err != nil {
				return err
			}

			graphCtx, conceptIDs, err := graphContext(ctx, s)
			if err != nil {
				return err
			}
			if len(conceptIDs) == 0 {
				return fmt.Errorf("graph has no concept nodes; run 'ethos seed --concepts N' first")
			}

			logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)
			engine, err := evolution.NewEngine(evaluator, evoCfg, graphCtx, logger)
			if err != nil {
				return err
			}

			initSeed := evoCfg.Seed
			if initSeed == 0 {
				initSeed = time.Now().UnixNano()
			}
			founders := evolution.InitPopulation(rand.New(rand.NewSource(initSeed)), conceptIDs, evoCfg.PopulationSize)

			result, err := engine.Run(ctx, founders)
			if err != nil {
				return err
			}

			if apply, _ := cmd.Flags().GetBool("apply"); apply && result.Best != nil {
				if err := applyTopology(ctx, s, result.Best); err != nil {
					return err
				}
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(result)
			}
			printEvolution(result)
			return nil
		},
	}

	cmd.Flags().Int("population", 0, "Population size (0 = configured default)")
	cmd.Flags().Int("generations", 0, "Generation cap (0 = configured default)")
	cmd.Flags().Int("workers", 0, "Concurrent fitness evaluations (0 = configured default)")
	cmd.Flags().Int64("seed", 0, "Random seed (0 = clock)")
	cmd.Flags().Bool("apply", false, "Replace the live graph's edges with the best topology")

	return cmd
}

// graphContext snapshots the node universe for the evolutionary operators.
func graphContext(ctx context.Context, s store.GraphStore) (evolution.GraphContext, []string, error) {
	nodes, err := s.Nodes(ctx, "")
	if err != nil {
		return evolution.GraphContext{}, nil, fmt.Errorf("failed to load nodes: %w", err)
	}

	graphCtx := evolution.GraphContext{
		NodeIDs: make([]string, 0, len(nodes)),
		Anchors: make(map[string]bool),
	}
	var conceptIDs []string
	for _, node := range nodes {
		graphCtx.NodeIDs = append(graphCtx.NodeIDs, node.ID)
		if node.IsAnchor() {
			graphCtx.Anchors[node.ID] = true
		} else {
			conceptIDs = append(conceptIDs, node.ID)
		}
	}
	sort.Strings(graphCtx.NodeIDs)
	sort.Strings(conceptIDs)
	return graphCtx, conceptIDs, nil
}

// applyTopology replaces every edge in the store with the individual's.
func applyTopology(ctx context.Context, s store.GraphStore, ind *models.Individual) error {
	existing, err := s.Edges(ctx)
	if err != nil {
		return fmt.Errorf("failed to load edges: %w", err)
	}
	for _, edge := range existing {
		if err := s.DeleteEdge(ctx, edge.Source, edge.Target); err != nil {
			return fmt.Errorf("failed to delete edge %s: %w", edge.Key(), err)
		}
	}
	for _, edge := range ind.Edges {
		if err := s.CreateEdge(ctx, edge); err != nil {
			return fmt.Errorf("failed to create edge %s: %w", edge.Key(), err)
		}
	}
	return s.Sync(ctx)
}

func printEvolution(result *evolution.RunResult) {
	if result.Converged {
		fmt.Printf("Converged after %d generations\n", result.Generations)
	} else {
		fmt.Printf("Stopped at the generation cap (%d generations)\n", result.Generations)
	}
	if result.Best == nil {
		fmt.Println("No topology scored above zero")
		return
	}
	fmt.Printf("Best: %s  fitness %.4f  (%d edges, generation %d)\n",
		result.Best.ID, result.Best.Fitness, len(result.Best.Edges), result.Best.Generation)
	if result.Best.Alignment != nil {
		fmt.Printf("Alignment: capture %.3f  escape %.3f\n",
			result.Best.Alignment.CaptureRate, result.Best.Alignment.EscapeRate)
	}
	if len(result.History) > 0 {
		last := result.History[len(result.History)-1]
		fmt.Printf("Final generation: best %.4f  mean %.4f  std %.4f\n",
			last.BestFitness, last.MeanFitness, last.StdFitness)
	}
}
