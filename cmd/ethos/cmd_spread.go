package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ethos-sim/ethos/internal/config"
	"github.com/ethos-sim/ethos/internal/learning"
	"github.com/ethos-sim/ethos/internal/models"
	"github.com/ethos-sim/ethos/internal/spreading"
)

func newSpreadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spread <node>...",
		Short: "Inject a stimulus and propagate it through the graph",
		Long: `Spread injects activation at the given nodes and propagates it until a
virtue basin captures the run or it escapes at the step cap.

With --learn, a captured run strengthens the edges along its route.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			cfg := loadConfig()
			strength, _ := cmd.Flags().GetFloat64("strength")
			steps, _ := cmd.Flags().GetInt("steps")
			learn, _ := cmd.Flags().GetBool("learn")
			randSeed, _ := cmd.Flags().GetInt64("seed")

			var rng *rand.Rand
			if randSeed != 0 {
				rng = rand.New(rand.NewSource(randSeed))
			} else {
				rng = rand.New(rand.NewSource(time.Now().UnixNano()))
			}

			engine := spreading.NewEngine(s, spreadConfigFrom(cfg), rng)
			ctx := context.Background()

			traj, err := engine.Spread(ctx, args, strength, steps)
			if err != nil {
				return err
			}

			if learn && traj.Captured() {
				hebbian := learning.NewHebbian(s, learning.HebbianConfig{
					LearningRate: cfg.Learning.LearningRate,
				})
				reinforced := traj
				reinforced.Path = append(append([]string{}, args...), traj.Path...)
				if err := hebbian.StrengthenPath(ctx, reinforced); err != nil {
					return err
				}
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(traj)
			}
			printTrajectory(traj)
			return nil
		},
	}

	cmd.Flags().Float64("strength", 0.8, "Stimulus strength in [0, 1]")
	cmd.Flags().Int("steps", 0, "Step cap (0 = configured default)")
	cmd.Flags().Bool("learn", false, "Strengthen the captured route afterwards")
	cmd.Flags().Int64("seed", 0, "Random seed for tie-breaking noise (0 = clock)")

	return cmd
}

func printTrajectory(traj models.Trajectory) {
	if traj.Captured() {
		fmt.Printf("Captured by %s (%s) after %d steps\n",
			traj.CapturedBy, virtueName(traj.CapturedBy), traj.CaptureTime)
	} else {
		fmt.Printf("Escaped after %d steps\n", traj.Steps)
	}
	if len(traj.Path) > 0 {
		fmt.Printf("Path: %s\n", strings.Join(compressPath(traj.Path), " -> "))
	}
}

// compressPath collapses consecutive repeats: [a a b b b] becomes
// [a x2, b x3].
func compressPath(path []string) []string {
	out := make([]string, 0, len(path))
	for i := 0; i < len(path); {
		j := i
		for j < len(path) && path[j] == path[i] {
			j++
		}
		if j-i > 1 {
			out = append(out, fmt.Sprintf("%s x%d", path[i], j-i))
		} else {
			out = append(out, path[i])
		}
		i = j
	}
	return out
}

func virtueName(id string) string {
	if v, ok := models.VirtueByID(id); ok {
		return v.Name
	}
	return "?"
}

// spreadConfigFrom maps the loaded configuration onto an engine config,
// keeping engine defaults for anything unset.
func spreadConfigFrom(cfg *config.Config) spreading.Config {
	out := spreading.DefaultConfig()
	if cfg.Spreading.Damping != 0 {
		out.Damping = cfg.Spreading.Damping
	}
	if cfg.Spreading.CaptureThreshold != 0 {
		out.CaptureThreshold = cfg.Spreading.CaptureThreshold
	}
	if cfg.Spreading.MaxSteps != 0 {
		out.MaxSteps = cfg.Spreading.MaxSteps
	}
	return out
}
