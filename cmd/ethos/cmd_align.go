package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/ethos-sim/ethos/internal/alignment"
	"github.com/ethos-sim/ethos/internal/models"
	"github.com/ethos-sim/ethos/internal/spreading"
)

func newAlignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "align",
		Short: "Test how reliably stimuli reach virtue basins",
		Long: `Align generates stimuli, runs one propagation per stimulus, and scores
the topology: capture rate, escape rate, per-virtue capture counts, and a
pass/fail verdict.

Modes: uniform (random targets and strengths), adversarial (extreme
strengths on the weakest and strongest nodes), virtue-targeted (one
stimulus per virtue through a neighboring concept).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			cfg := loadConfig()
			count, _ := cmd.Flags().GetInt("stimuli")
			rounds, _ := cmd.Flags().GetInt("rounds")
			mode, _ := cmd.Flags().GetString("mode")
			randSeed, _ := cmd.Flags().GetInt64("seed")

			var rng *rand.Rand
			if randSeed != 0 {
				rng = rand.New(rand.NewSource(randSeed))
			} else {
				rng = rand.New(rand.NewSource(time.Now().UnixNano()))
			}

			alignCfg := alignment.DefaultConfig()
			alignCfg.Mode = alignment.StimulusMode(mode)
			if cfg.Alignment.StimulusCount != 0 {
				alignCfg.StimulusCount = cfg.Alignment.StimulusCount
			}
			if cfg.Alignment.PassCaptureRate != 0 {
				alignCfg.PassCaptureRate = cfg.Alignment.PassCaptureRate
			}
			if cfg.Alignment.MaxEscapeRate != 0 {
				alignCfg.MaxEscapeRate = cfg.Alignment.MaxEscapeRate
			}

			engine := spreading.NewEngine(s, spreadConfigFrom(cfg), rng)
			tester := alignment.NewTester(s, engine, alignCfg, rng)
			ctx := context.Background()
			jsonOut, _ := cmd.Flags().GetBool("json")

			if rounds > 1 {
				summary, err := tester.RepeatedRounds(ctx, rounds, count)
				if err != nil {
					return err
				}
				if jsonOut {
					return json.NewEncoder(os.Stdout).Encode(summary)
				}
				fmt.Printf("Rounds: %d  passed: %d\n", summary.Rounds, summary.PassCount)
				fmt.Printf("Capture rate: min %.3f  mean %.3f  max %.3f\n",
					summary.MinCaptureRate, summary.MeanCaptureRate, summary.MaxCaptureRate)
				fmt.Printf("Mean escape rate: %.3f\n", summary.MeanEscapeRate)
				return nil
			}

			result, err := tester.Run(ctx, count)
			if err != nil {
				return err
			}
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(result)
			}
			printAlignment(result)
			return nil
		},
	}

	cmd.Flags().Int("stimuli", 0, "Number of stimuli (0 = configured default)")
	cmd.Flags().Int("rounds", 1, "Independent test rounds")
	cmd.Flags().String("mode", "uniform", "Stimulus mode: uniform, adversarial, virtue-targeted")
	cmd.Flags().Int64("seed", 0, "Random seed (0 = clock)")

	return cmd
}

func printAlignment(result models.AlignmentResult) {
	verdict := "FAIL"
	if result.Passed {
		verdict = "PASS"
	}
	fmt.Printf("%s  capture %.3f  escape %.3f  avg capture time %.1f steps  (%d stimuli)\n",
		verdict, result.CaptureRate, result.EscapeRate, result.AvgCaptureTime, result.Stimuli)

	if len(result.CapturesByAnchor) == 0 {
		return
	}
	anchors := make([]string, 0, len(result.CapturesByAnchor))
	for id := range result.CapturesByAnchor {
		anchors = append(anchors, id)
	}
	sort.Slice(anchors, func(i, j int) bool {
		if result.CapturesByAnchor[anchors[i]] != result.CapturesByAnchor[anchors[j]] {
			return result.CapturesByAnchor[anchors[i]] > result.CapturesByAnchor[anchors[j]]
		}
		return anchors[i] < anchors[j]
	})
	fmt.Println("Captures by virtue:")
	for _, id := range anchors {
		fmt.Printf("  %-4s %-15s %4d  (%.1f%%)\n",
			id, virtueName(id), result.CapturesByAnchor[id], result.Signature[id]*100)
	}
}
