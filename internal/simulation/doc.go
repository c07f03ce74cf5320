// Package simulation provides a multi-stimulus test harness for validating
// emergent dynamics of the propagation and learning loop.
//
// The harness exercises the real Engine, Hebbian learner, and
// SQLiteGraphStore, no mocks. Scenarios are Go builders that construct
// pre-seeded graphs (optionally on top of the full virtue scaffold) and run
// a sequence of stimuli, capturing the trajectory and an edge-weight
// snapshot after each one for property-based assertions.
//
// Each test gets an isolated SQLite database via t.TempDir() and a sandboxed
// HOME to prevent touching user data.
//
// Usage:
//
//	func TestPathReinforcement(t *testing.T) {
//	    r := simulation.NewRunner(t)
//	    result := r.Run(simulation.Scenario{
//	        Name:            "path-reinforcement",
//	        Scaffold:        true,
//	        Nodes:           []simulation.NodeSpec{...},
//	        Edges:           []simulation.EdgeSpec{...},
//	        Stimuli:         simulation.RepeatStimulus("c1", 0.9, 20),
//	        LearningEnabled: true,
//	    })
//	    simulation.AssertCaptureRateAtLeast(t, result, 0.9)
//	}
package simulation
