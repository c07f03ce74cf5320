package simulation

import (
	"testing"

	"github.com/ethos-sim/ethos/internal/models"
)

// AssertCapturedBy asserts that the stimulus at index was captured by the
// given anchor.
func AssertCapturedBy(t *testing.T, result RunResult, index int, anchor string) {
	t.Helper()
	if index >= len(result.Stimuli) {
		t.Fatalf("AssertCapturedBy: index %d out of range (%d stimuli)", index, len(result.Stimuli))
	}
	traj := result.Stimuli[index].Trajectory
	if !traj.Captured() {
		t.Errorf("AssertCapturedBy: stimulus %d escaped after %d steps, want capture by %s", index, traj.Steps, anchor)
		return
	}
	if traj.CapturedBy != anchor {
		t.Errorf("AssertCapturedBy: stimulus %d captured by %s, want %s", index, traj.CapturedBy, anchor)
	}
}

// AssertCaptureRateAtLeast asserts the run's overall capture rate.
func AssertCaptureRateAtLeast(t *testing.T, result RunResult, min float64) {
	t.Helper()
	rate := result.CaptureRate()
	if rate < min {
		t.Errorf("AssertCaptureRateAtLeast: capture rate %.4f < %.4f", rate, min)
	}
}

// AssertWeightIncreases asserts that an edge weight strictly grows between
// two stimulus snapshots.
func AssertWeightIncreases(t *testing.T, result RunResult, source, target string, fromIndex, toIndex int) {
	t.Helper()
	key := models.EdgeKey(source, target)
	before, okBefore := result.Stimuli[fromIndex].EdgeWeights[key]
	after, okAfter := result.Stimuli[toIndex].EdgeWeights[key]
	if !okBefore || !okAfter {
		t.Fatalf("AssertWeightIncreases: edge %s missing from snapshot (before=%v after=%v)", key, okBefore, okAfter)
	}
	if after <= before {
		t.Errorf("AssertWeightIncreases: edge %s weight %.6f -> %.6f, want strict increase", key, before, after)
	}
}

// AssertNoWeightExplosion asserts that no edge weight ever leaves [0, 1].
func AssertNoWeightExplosion(t *testing.T, result RunResult) {
	t.Helper()
	for _, sr := range result.Stimuli {
		for key, w := range sr.EdgeWeights {
			if w < 0 || w > 1 {
				t.Errorf("AssertNoWeightExplosion: stimulus %d: edge %s weight %.6f outside [0, 1]", sr.Index, key, w)
			}
		}
	}
}

// AssertCaptureTimeShrinks asserts that the capture time of the last
// captured stimulus is no worse than that of the first.
func AssertCaptureTimeShrinks(t *testing.T, result RunResult) {
	t.Helper()
	first, last := -1, -1
	for i, sr := range result.Stimuli {
		if !sr.Trajectory.Captured() {
			continue
		}
		if first == -1 {
			first = i
		}
		last = i
	}
	if first == -1 || first == last {
		t.Fatal("AssertCaptureTimeShrinks: need at least two captured stimuli")
	}
	firstTime := result.Stimuli[first].Trajectory.CaptureTime
	lastTime := result.Stimuli[last].Trajectory.CaptureTime
	if lastTime > firstTime {
		t.Errorf("AssertCaptureTimeShrinks: capture time grew from %d to %d steps", firstTime, lastTime)
	}
}
