// Package alignment implements the alignment tester: it generates stimuli,
// runs one propagation spread per stimulus against the current topology, and
// reduces the trajectories to a pass/fail verdict and a character signature.
package alignment

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/ethos-sim/ethos/internal/constants"
	"github.com/ethos-sim/ethos/internal/models"
	"github.com/ethos-sim/ethos/internal/spreading"
	"github.com/ethos-sim/ethos/internal/store"
)

// StimulusMode selects how test stimuli are generated.
type StimulusMode string

const (
	// ModeUniform targets uniformly random non-anchor nodes at uniformly
	// random strengths.
	ModeUniform StimulusMode = "uniform"

	// ModeAdversarial alternates between the lowest- and highest-degree
	// nodes at extreme strengths.
	ModeAdversarial StimulusMode = "adversarial"

	// ModeVirtueTargeted generates one stimulus per anchor through a random
	// non-anchor neighbor of that anchor.
	ModeVirtueTargeted StimulusMode = "virtue-targeted"
)

// Config holds tunable parameters for the alignment tester.
type Config struct {
	// StimulusCount is the default number of stimuli per run.
	StimulusCount int

	// MaxSteps bounds each spread.
	MaxSteps int

	// PassCaptureRate is the minimum capture rate for a pass. Default: 0.95.
	PassCaptureRate float64

	// MaxEscapeRate is the escape rate a pass must stay strictly below.
	// Default: 0.05.
	MaxEscapeRate float64

	// Mode selects stimulus generation. Default: uniform.
	Mode StimulusMode
}

// DefaultConfig returns the default alignment configuration.
func DefaultConfig() Config {
	return Config{
		StimulusCount:   constants.DefaultStimulusCount,
		MaxSteps:        constants.DefaultMaxSteps,
		PassCaptureRate: constants.AlignmentPassCaptureRate,
		MaxEscapeRate:   constants.AlignmentMaxEscapeRate,
		Mode:            ModeUniform,
	}
}

// RoundSummary aggregates repeated independent test rounds.
type RoundSummary struct {
	Rounds          int     `json:"rounds"`
	MinCaptureRate  float64 `json:"min_capture_rate"`
	MaxCaptureRate  float64 `json:"max_capture_rate"`
	MeanCaptureRate float64 `json:"mean_capture_rate"`
	MeanEscapeRate  float64 `json:"mean_escape_rate"`
	PassCount       int     `json:"pass_count"`
}

// Tester drives the propagation engine with generated stimuli and scores
// the results.
type Tester struct {
	store  store.GraphStore
	engine *spreading.Engine
	config Config
	rng    *rand.Rand
}

// NewTester creates a tester over the given store and engine. A nil rng is
// seeded from the clock.
func NewTester(s store.GraphStore, engine *spreading.Engine, config Config, rng *rand.Rand) *Tester {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Tester{store: s, engine: engine, config: config, rng: rng}
}

// Run generates count stimuli (config default when <= 0) in the configured
// mode and aggregates one spread per stimulus into an AlignmentResult.
func (t *Tester) Run(ctx context.Context, count int) (models.AlignmentResult, error) {
	if count <= 0 {
		count = t.config.StimulusCount
	}
	stimuli, err := t.GenerateStimuli(ctx, count, t.config.Mode)
	if err != nil {
		return models.AlignmentResult{}, err
	}
	return t.RunWithStimuli(ctx, stimuli)
}

// RunWithStimuli runs one spread per stimulus and aggregates the results.
// An empty stimulus list yields an empty, failed result without error.
func (t *Tester) RunWithStimuli(ctx context.Context, stimuli []models.Stimulus) (models.AlignmentResult, error) {
	result := models.AlignmentResult{
		CapturesByAnchor: make(map[string]int),
		Signature:        make(map[string]float64),
		Stimuli:          len(stimuli),
	}
	if len(stimuli) == 0 {
		return result, nil
	}

	captures, escapes := 0, 0
	captureSteps := 0
	for _, stim := range stimuli {
		traj, err := t.engine.Spread(ctx, []string{stim.Target}, stim.Strength, t.config.MaxSteps)
		if err != nil {
			return models.AlignmentResult{}, fmt.Errorf("alignment: spread from %s: %w", stim.Target, err)
		}
		if traj.Captured() {
			captures++
			captureSteps += traj.CaptureTime
			result.CapturesByAnchor[traj.CapturedBy]++
		} else {
			escapes++
		}
	}

	total := float64(len(stimuli))
	result.CaptureRate = float64(captures) / total
	result.EscapeRate = float64(escapes) / total
	if captures > 0 {
		result.AvgCaptureTime = float64(captureSteps) / float64(captures)
		for anchor, n := range result.CapturesByAnchor {
			result.Signature[anchor] = float64(n) / float64(captures)
		}
	}

	passed, err := t.verdict(ctx, result)
	if err != nil {
		return models.AlignmentResult{}, err
	}
	result.Passed = passed
	return result, nil
}

// Verdict applies the pass rule to an already-aggregated result: capture
// rate at or above the pass threshold, escape rate strictly below the
// escape ceiling, and every anchor captured at least once.
func (t *Tester) Verdict(ctx context.Context, result models.AlignmentResult) (bool, error) {
	return t.verdict(ctx, result)
}

func (t *Tester) verdict(ctx context.Context, result models.AlignmentResult) (bool, error) {
	if result.CaptureRate < t.config.PassCaptureRate {
		return false, nil
	}
	if result.EscapeRate >= t.config.MaxEscapeRate {
		return false, nil
	}

	anchors, err := t.store.Nodes(ctx, models.NodeTypeAnchor)
	if err != nil {
		return false, fmt.Errorf("alignment: load anchors: %w", err)
	}
	if len(anchors) == 0 {
		return false, nil
	}
	for _, anchor := range anchors {
		if result.CapturesByAnchor[anchor.ID] == 0 {
			return false, nil
		}
	}
	return true, nil
}

// RepeatedRounds runs rounds independent tests of count stimuli each and
// aggregates min/max/mean capture statistics.
func (t *Tester) RepeatedRounds(ctx context.Context, rounds, count int) (RoundSummary, error) {
	if rounds <= 0 {
		rounds = 1
	}

	summary := RoundSummary{Rounds: rounds, MinCaptureRate: 1.0}
	sumCapture, sumEscape := 0.0, 0.0
	for i := 0; i < rounds; i++ {
		result, err := t.Run(ctx, count)
		if err != nil {
			return RoundSummary{}, err
		}
		sumCapture += result.CaptureRate
		sumEscape += result.EscapeRate
		if result.CaptureRate < summary.MinCaptureRate {
			summary.MinCaptureRate = result.CaptureRate
		}
		if result.CaptureRate > summary.MaxCaptureRate {
			summary.MaxCaptureRate = result.CaptureRate
		}
		if result.Passed {
			summary.PassCount++
		}
	}
	summary.MeanCaptureRate = sumCapture / float64(rounds)
	summary.MeanEscapeRate = sumEscape / float64(rounds)
	return summary, nil
}

// Coverage runs one test and reports which anchors were never captured.
func (t *Tester) Coverage(ctx context.Context, count int) ([]string, error) {
	result, err := t.Run(ctx, count)
	if err != nil {
		return nil, err
	}

	anchors, err := t.store.Nodes(ctx, models.NodeTypeAnchor)
	if err != nil {
		return nil, fmt.Errorf("alignment: load anchors: %w", err)
	}

	missed := make([]string, 0)
	for _, anchor := range anchors {
		if result.CapturesByAnchor[anchor.ID] == 0 {
			missed = append(missed, anchor.ID)
		}
	}
	sort.Strings(missed)
	return missed, nil
}

// GenerateStimuli builds count stimuli in the given mode. Degenerate graphs
// (no candidate nodes) yield an empty list, not an error.
func (t *Tester) GenerateStimuli(ctx context.Context, count int, mode StimulusMode) ([]models.Stimulus, error) {
	switch mode {
	case ModeAdversarial:
		return t.adversarialStimuli(ctx, count)
	case ModeVirtueTargeted:
		return t.virtueTargetedStimuli(ctx)
	default:
		return t.uniformStimuli(ctx, count)
	}
}

func (t *Tester) uniformStimuli(ctx context.Context, count int) ([]models.Stimulus, error) {
	targets, err := t.candidateTargets(ctx)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, nil
	}

	stimuli := make([]models.Stimulus, 0, count)
	for i := 0; i < count; i++ {
		stimuli = append(stimuli, models.Stimulus{
			Target:   targets[t.rng.Intn(len(targets))],
			Strength: 0.1 + t.rng.Float64()*0.9,
		})
	}
	return stimuli, nil
}

// adversarialStimuli alternates between the lowest- and highest-degree
// candidates at extreme strengths.
func (t *Tester) adversarialStimuli(ctx context.Context, count int) ([]models.Stimulus, error) {
	targets, err := t.candidateTargets(ctx)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, nil
	}

	type ranked struct {
		id     string
		degree int
	}
	byDegree := make([]ranked, 0, len(targets))
	for _, id := range targets {
		degree, err := t.store.NodeDegree(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("alignment: degree of %s: %w", id, err)
		}
		byDegree = append(byDegree, ranked{id: id, degree: degree})
	}
	sort.Slice(byDegree, func(i, j int) bool {
		if byDegree[i].degree != byDegree[j].degree {
			return byDegree[i].degree < byDegree[j].degree
		}
		return byDegree[i].id < byDegree[j].id
	})

	stimuli := make([]models.Stimulus, 0, count)
	for i := 0; i < count; i++ {
		if i%2 == 0 {
			// Starve a weakly connected node with a faint stimulus.
			stimuli = append(stimuli, models.Stimulus{
				Target:   byDegree[i/2%len(byDegree)].id,
				Strength: constants.AdversarialStrengthLow,
			})
		} else {
			// Saturate a hub with a near-maximal stimulus.
			stimuli = append(stimuli, models.Stimulus{
				Target:   byDegree[len(byDegree)-1-(i/2%len(byDegree))].id,
				Strength: constants.AdversarialStrengthHigh,
			})
		}
	}
	return stimuli, nil
}

// virtueTargetedStimuli generates one stimulus per anchor through a random
// non-anchor neighbor. Anchors without non-anchor neighbors are skipped.
func (t *Tester) virtueTargetedStimuli(ctx context.Context) ([]models.Stimulus, error) {
	anchors, err := t.store.Nodes(ctx, models.NodeTypeAnchor)
	if err != nil {
		return nil, fmt.Errorf("alignment: load anchors: %w", err)
	}
	sort.Slice(anchors, func(i, j int) bool { return anchors[i].ID < anchors[j].ID })

	anchorSet := make(map[string]bool, len(anchors))
	for _, a := range anchors {
		anchorSet[a.ID] = true
	}

	stimuli := make([]models.Stimulus, 0, len(anchors))
	for _, anchor := range anchors {
		incoming, err := t.store.IncomingEdges(ctx, anchor.ID)
		if err != nil {
			return nil, fmt.Errorf("alignment: neighbors of %s: %w", anchor.ID, err)
		}

		neighbors := make([]string, 0, len(incoming))
		for _, e := range incoming {
			if !anchorSet[e.Source] {
				neighbors = append(neighbors, e.Source)
			}
		}
		if len(neighbors) == 0 {
			continue
		}
		sort.Strings(neighbors)

		stimuli = append(stimuli, models.Stimulus{
			Target:   neighbors[t.rng.Intn(len(neighbors))],
			Strength: constants.AdversarialStrengthHigh,
		})
	}
	return stimuli, nil
}

// candidateTargets returns all non-anchor node IDs, falling back to every
// node when the graph has no non-anchor nodes.
func (t *Tester) candidateTargets(ctx context.Context) ([]string, error) {
	nodes, err := t.store.Nodes(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("alignment: load nodes: %w", err)
	}

	targets := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if !node.IsAnchor() {
			targets = append(targets, node.ID)
		}
	}
	if len(targets) == 0 {
		for _, node := range nodes {
			targets = append(targets, node.ID)
		}
	}
	sort.Strings(targets)
	return targets, nil
}
