package alignment

import (
	"context"
	"math/rand"
	"testing"

	"github.com/ethos-sim/ethos/internal/constants"
	"github.com/ethos-sim/ethos/internal/models"
	"github.com/ethos-sim/ethos/internal/spreading"
	"github.com/ethos-sim/ethos/internal/store"
)

// singleBasinStore builds a graph with one anchor and one concept feeding it
// strongly enough that a strong stimulus is always captured.
func singleBasinStore(t *testing.T) *store.InMemoryGraphStore {
	t.Helper()
	ctx := context.Background()
	s := store.NewInMemoryGraphStore()

	nodes := []models.Node{
		{ID: "V1", Type: models.NodeTypeAnchor, Baseline: 0.3},
		{ID: "c1", Type: models.NodeTypeConcept, Baseline: 0.1},
	}
	for _, n := range nodes {
		if err := s.CreateNode(ctx, n); err != nil {
			t.Fatalf("CreateNode: %v", err)
		}
	}
	if err := s.CreateEdge(ctx, models.Edge{Source: "c1", Target: "V1", Weight: 0.9, Direction: models.DirectionOneWay}); err != nil {
		t.Fatalf("CreateEdge: %v", err)
	}
	return s
}

func newTester(s store.GraphStore, config Config) *Tester {
	engine := spreading.NewEngine(s, spreading.DefaultConfig(), rand.New(rand.NewSource(1)))
	return NewTester(s, engine, config, rand.New(rand.NewSource(1)))
}

func TestRunWithStimuli_AllCaptured(t *testing.T) {
	ctx := context.Background()
	s := singleBasinStore(t)
	tester := newTester(s, DefaultConfig())

	stimuli := []models.Stimulus{
		{Target: "c1", Strength: 0.9},
		{Target: "c1", Strength: 0.9},
		{Target: "c1", Strength: 0.9},
		{Target: "c1", Strength: 0.9},
	}
	result, err := tester.RunWithStimuli(ctx, stimuli)
	if err != nil {
		t.Fatalf("RunWithStimuli: %v", err)
	}

	if result.CaptureRate != 1.0 {
		t.Errorf("CaptureRate = %.2f, want 1.0", result.CaptureRate)
	}
	if result.EscapeRate != 0.0 {
		t.Errorf("EscapeRate = %.2f, want 0.0", result.EscapeRate)
	}
	if result.CapturesByAnchor["V1"] != 4 {
		t.Errorf("captures by V1 = %d, want 4", result.CapturesByAnchor["V1"])
	}
	if result.Signature["V1"] != 1.0 {
		t.Errorf("signature[V1] = %.2f, want 1.0", result.Signature["V1"])
	}
	if result.AvgCaptureTime < float64(constants.CaptureSustainSteps) {
		t.Errorf("AvgCaptureTime = %.1f, want >= %d", result.AvgCaptureTime, constants.CaptureSustainSteps)
	}
	if !result.Passed {
		t.Error("result not passed with full capture and coverage")
	}
}

func TestRunWithStimuli_EmptyStimuli(t *testing.T) {
	ctx := context.Background()
	tester := newTester(singleBasinStore(t), DefaultConfig())

	result, err := tester.RunWithStimuli(ctx, nil)
	if err != nil {
		t.Fatalf("RunWithStimuli: %v", err)
	}
	if result.Stimuli != 0 || result.Passed {
		t.Errorf("empty run = %+v, want zero stimuli and failed", result)
	}
}

func TestRunWithStimuli_UncoveredAnchorFails(t *testing.T) {
	ctx := context.Background()
	s := singleBasinStore(t)
	if err := s.CreateNode(ctx, models.Node{ID: "V2", Type: models.NodeTypeAnchor, Baseline: 0.3}); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	tester := newTester(s, DefaultConfig())

	result, err := tester.RunWithStimuli(ctx, []models.Stimulus{{Target: "c1", Strength: 0.9}})
	if err != nil {
		t.Fatalf("RunWithStimuli: %v", err)
	}
	if result.CaptureRate != 1.0 {
		t.Fatalf("CaptureRate = %.2f, want 1.0", result.CaptureRate)
	}
	if result.Passed {
		t.Error("passed despite an anchor with zero captures")
	}
}

func TestVerdict(t *testing.T) {
	ctx := context.Background()
	tester := newTester(singleBasinStore(t), DefaultConfig())

	cases := []struct {
		name   string
		result models.AlignmentResult
		want   bool
	}{
		{
			name: "full capture",
			result: models.AlignmentResult{
				CaptureRate:      1.0,
				CapturesByAnchor: map[string]int{"V1": 5},
			},
			want: true,
		},
		{
			name:   "capture rate below threshold",
			result: models.AlignmentResult{CaptureRate: 0.9, CapturesByAnchor: map[string]int{"V1": 5}},
			want:   false,
		},
		{
			name: "escape rate at ceiling",
			result: models.AlignmentResult{
				CaptureRate:      0.95,
				EscapeRate:       0.05,
				CapturesByAnchor: map[string]int{"V1": 5},
			},
			want: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tester.Verdict(ctx, tc.result)
			if err != nil {
				t.Fatalf("Verdict: %v", err)
			}
			if got != tc.want {
				t.Errorf("Verdict = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestVerdict_NoAnchorsFails(t *testing.T) {
	ctx := context.Background()
	tester := newTester(store.NewInMemoryGraphStore(), DefaultConfig())

	got, err := tester.Verdict(ctx, models.AlignmentResult{CaptureRate: 1.0})
	if err != nil {
		t.Fatalf("Verdict: %v", err)
	}
	if got {
		t.Error("passed with no anchors in the graph")
	}
}

func TestGenerateStimuli_Uniform(t *testing.T) {
	ctx := context.Background()
	s := singleBasinStore(t)
	seedConcept(t, s, "c2")
	tester := newTester(s, DefaultConfig())

	stimuli, err := tester.GenerateStimuli(ctx, 10, ModeUniform)
	if err != nil {
		t.Fatalf("GenerateStimuli: %v", err)
	}
	if len(stimuli) != 10 {
		t.Fatalf("stimulus count = %d, want 10", len(stimuli))
	}
	for _, stim := range stimuli {
		if stim.Target != "c1" && stim.Target != "c2" {
			t.Errorf("stimulus targets anchor %q", stim.Target)
		}
		if stim.Strength < 0.1 || stim.Strength > 1.0 {
			t.Errorf("strength %.3f out of range", stim.Strength)
		}
	}
}

func TestGenerateStimuli_UniformFallsBackToAnchors(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryGraphStore()
	if err := s.CreateNode(ctx, models.Node{ID: "V1", Type: models.NodeTypeAnchor, Baseline: 0.3}); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	tester := newTester(s, DefaultConfig())

	stimuli, err := tester.GenerateStimuli(ctx, 3, ModeUniform)
	if err != nil {
		t.Fatalf("GenerateStimuli: %v", err)
	}
	if len(stimuli) != 3 {
		t.Fatalf("stimulus count = %d, want 3", len(stimuli))
	}
	for _, stim := range stimuli {
		if stim.Target != "V1" {
			t.Errorf("fallback target = %q, want V1", stim.Target)
		}
	}
}

func TestGenerateStimuli_EmptyGraph(t *testing.T) {
	ctx := context.Background()
	tester := newTester(store.NewInMemoryGraphStore(), DefaultConfig())

	stimuli, err := tester.GenerateStimuli(ctx, 5, ModeUniform)
	if err != nil {
		t.Fatalf("GenerateStimuli: %v", err)
	}
	if len(stimuli) != 0 {
		t.Errorf("stimuli = %v, want none", stimuli)
	}
}

func TestGenerateStimuli_Adversarial(t *testing.T) {
	ctx := context.Background()
	s := singleBasinStore(t)
	// c1 has degree 1; make hub the clear high-degree candidate.
	seedConcept(t, s, "hub")
	seedConcept(t, s, "c2")
	for _, target := range []string{"c1", "c2", "V1"} {
		if err := s.CreateEdge(ctx, models.Edge{Source: "hub", Target: target, Weight: 0.5}); err != nil {
			t.Fatalf("CreateEdge: %v", err)
		}
	}
	tester := newTester(s, DefaultConfig())

	stimuli, err := tester.GenerateStimuli(ctx, 4, ModeAdversarial)
	if err != nil {
		t.Fatalf("GenerateStimuli: %v", err)
	}
	if len(stimuli) != 4 {
		t.Fatalf("stimulus count = %d, want 4", len(stimuli))
	}
	if stimuli[0].Strength != constants.AdversarialStrengthLow {
		t.Errorf("even stimulus strength = %.2f, want %.2f", stimuli[0].Strength, constants.AdversarialStrengthLow)
	}
	if stimuli[0].Target != "c2" {
		t.Errorf("faint stimulus target = %q, want lowest-degree c2", stimuli[0].Target)
	}
	if stimuli[1].Strength != constants.AdversarialStrengthHigh {
		t.Errorf("odd stimulus strength = %.2f, want %.2f", stimuli[1].Strength, constants.AdversarialStrengthHigh)
	}
	if stimuli[1].Target != "hub" {
		t.Errorf("saturating stimulus target = %q, want hub", stimuli[1].Target)
	}
}

func TestGenerateStimuli_VirtueTargeted(t *testing.T) {
	ctx := context.Background()
	s := singleBasinStore(t)
	// V2 has no non-anchor neighbors, so it contributes no stimulus.
	if err := s.CreateNode(ctx, models.Node{ID: "V2", Type: models.NodeTypeAnchor, Baseline: 0.3}); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	tester := newTester(s, DefaultConfig())

	stimuli, err := tester.GenerateStimuli(ctx, 0, ModeVirtueTargeted)
	if err != nil {
		t.Fatalf("GenerateStimuli: %v", err)
	}
	if len(stimuli) != 1 {
		t.Fatalf("stimulus count = %d, want 1", len(stimuli))
	}
	if stimuli[0].Target != "c1" {
		t.Errorf("target = %q, want c1", stimuli[0].Target)
	}
	if stimuli[0].Strength != constants.AdversarialStrengthHigh {
		t.Errorf("strength = %.2f, want %.2f", stimuli[0].Strength, constants.AdversarialStrengthHigh)
	}
}

func TestRepeatedRounds(t *testing.T) {
	ctx := context.Background()
	config := DefaultConfig()
	config.Mode = ModeVirtueTargeted
	tester := newTester(singleBasinStore(t), config)

	summary, err := tester.RepeatedRounds(ctx, 3, 0)
	if err != nil {
		t.Fatalf("RepeatedRounds: %v", err)
	}
	if summary.Rounds != 3 {
		t.Errorf("Rounds = %d, want 3", summary.Rounds)
	}
	if summary.MinCaptureRate != 1.0 || summary.MaxCaptureRate != 1.0 || summary.MeanCaptureRate != 1.0 {
		t.Errorf("capture stats = %+v, want all 1.0", summary)
	}
	if summary.PassCount != 3 {
		t.Errorf("PassCount = %d, want 3", summary.PassCount)
	}
}

func TestCoverage(t *testing.T) {
	ctx := context.Background()
	s := singleBasinStore(t)
	if err := s.CreateNode(ctx, models.Node{ID: "V2", Type: models.NodeTypeAnchor, Baseline: 0.3}); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	config := DefaultConfig()
	config.Mode = ModeVirtueTargeted
	tester := newTester(s, config)

	missed, err := tester.Coverage(ctx, 0)
	if err != nil {
		t.Fatalf("Coverage: %v", err)
	}
	if len(missed) != 1 || missed[0] != "V2" {
		t.Errorf("missed = %v, want [V2]", missed)
	}
}

func seedConcept(t *testing.T, s store.GraphStore, id string) {
	t.Helper()
	if err := s.CreateNode(context.Background(), models.Node{ID: id, Type: models.NodeTypeConcept, Baseline: 0.1}); err != nil {
		t.Fatalf("CreateNode %s: %v", id, err)
	}
}
