package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ethos-sim/ethos/internal/seed"
)

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the virtue scaffold and optional concept nodes",
		Long: `Seed creates the 19 virtue anchors and their key-relation edges.
Seeding is idempotent: existing nodes and edges keep their learned weights.

With --concepts N, it also adds N concept nodes, each wired toward a random
anchor in each direction.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := context.Background()
			result, err := seed.Scaffold(ctx, s)
			if err != nil {
				return err
			}

			concepts, _ := cmd.Flags().GetInt("concepts")
			randSeed, _ := cmd.Flags().GetInt64("seed")
			if concepts > 0 {
				var rng *rand.Rand
				if randSeed != 0 {
					rng = rand.New(rand.NewSource(randSeed))
				} else {
					rng = rand.New(rand.NewSource(time.Now().UnixNano()))
				}
				conceptResult, err := seed.Concepts(ctx, s, concepts, rng)
				if err != nil {
					return err
				}
				result.ConceptsCreated = conceptResult.ConceptsCreated
				result.EdgesCreated += conceptResult.EdgesCreated
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(result)
			}
			fmt.Printf("Seeded %d anchors, %d concepts, %d edges\n",
				result.AnchorsCreated, result.ConceptsCreated, result.EdgesCreated)
			return nil
		},
	}

	cmd.Flags().Int("concepts", 0, "Number of concept nodes to add")
	cmd.Flags().Int64("seed", 0, "Random seed for concept wiring (0 = clock)")

	return cmd
}
