package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ethos-sim/ethos/internal/healing"
	"github.com/ethos-sim/ethos/internal/learning"
	"github.com/ethos-sim/ethos/internal/logging"
)

func newHealCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "heal",
		Short: "Run self-healing cycles over the graph",
		Long: `Heal runs the pathology detectors and their remediations: dead zones
(under-connected virtues) are rewired, stale regions are perturbed, and
decay is applied to edges that have gone unused.

Lock-in and false-basin detection need a live trajectory window, so from
the command line they only fire when recent runs are available.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, root, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			cfg := loadConfig()
			cycles, _ := cmd.Flags().GetInt("cycles")
			decay, _ := cmd.Flags().GetBool("decay")
			randSeed, _ := cmd.Flags().GetInt64("seed")

			var rng *rand.Rand
			if randSeed != 0 {
				rng = rand.New(rand.NewSource(randSeed))
			} else {
				rng = rand.New(rand.NewSource(time.Now().UnixNano()))
			}

			decayCfg := learning.DefaultDecayConfig()
			if cfg.Decay.Constant != 0 {
				decayCfg.Constant = cfg.Decay.Constant
			}
			if cfg.Decay.Interval != 0 {
				decayCfg.Interval = cfg.Decay.Interval
			}
			decayer := learning.NewDecayer(s, decayCfg)

			perturbCfg := learning.DefaultPerturbConfig()
			if cfg.Perturbation.Strength != 0 {
				perturbCfg.Strength = cfg.Perturbation.Strength
			}
			perturber := learning.NewPerturber(s, perturbCfg, rng)

			healCfg := healing.DefaultConfig()
			if cfg.Healing.StaleThreshold != 0 {
				healCfg.StaleThreshold = cfg.Healing.StaleThreshold
			}
			if cfg.Healing.SlowCheckCadence != 0 {
				healCfg.SlowCheckCadence = cfg.Healing.SlowCheckCadence
			}

			logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)
			events := logging.NewEventLogger(filepath.Join(root, ".ethos"), cfg.Logging.Level)
			defer events.Close()

			monitor := healing.NewMonitor(s, decayer, perturber, healCfg, logger, events, rng)

			ctx := context.Background()
			now := time.Now()

			if decay {
				if err := decayer.Run(ctx, now); err != nil {
					return err
				}
			}

			reports := make([]healing.Report, 0, cycles)
			for i := 0; i < cycles; i++ {
				report, err := monitor.RunCycle(ctx, now)
				if err != nil {
					return err
				}
				reports = append(reports, report)
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(reports)
			}
			for _, report := range reports {
				printReport(report)
			}
			return nil
		},
	}

	cmd.Flags().Int("cycles", 1, "Number of healing cycles to run")
	cmd.Flags().Bool("decay", false, "Run a temporal decay pass first")
	cmd.Flags().Int64("seed", 0, "Random seed (0 = clock)")

	return cmd
}

func printReport(report healing.Report) {
	if report.Healthy {
		fmt.Printf("Cycle %d: healthy\n", report.Cycle)
		return
	}
	fmt.Printf("Cycle %d: %d finding(s)\n", report.Cycle, len(report.Findings))
	for _, f := range report.Findings {
		fmt.Printf("  [%s] %s", f.Type, f.Detail)
		if len(f.Nodes) > 0 {
			fmt.Printf(" (nodes: %v)", f.Nodes)
		}
		fmt.Println()
	}
}
