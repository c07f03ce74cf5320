package simulation

import (
	"fmt"
	"time"

	"github.com/ethos-sim/ethos/internal/models"
)

// ConceptChain builds a linear chain of concepts c1 -> c2 -> ... -> cn and
// returns the node and edge specs. The final node is left dangling so
// callers can attach it to an anchor.
func ConceptChain(prefix string, length int, weight float64) ([]NodeSpec, []EdgeSpec) {
	nodes := make([]NodeSpec, length)
	for i := range nodes {
		nodes[i] = NodeSpec{ID: fmt.Sprintf("%s%d", prefix, i+1)}
	}
	edges := make([]EdgeSpec, 0, length-1)
	for i := 0; i < length-1; i++ {
		edges = append(edges, EdgeSpec{
			Source: nodes[i].ID,
			Target: nodes[i+1].ID,
			Weight: weight,
		})
	}
	return nodes, edges
}

// RepeatStimulus builds count copies of the same stimulus.
func RepeatStimulus(target string, strength float64, count int) []models.Stimulus {
	stimuli := make([]models.Stimulus, count)
	for i := range stimuli {
		stimuli[i] = models.Stimulus{Target: target, Strength: strength}
	}
	return stimuli
}

// TimeAgo returns a time.Time that is the given duration in the past.
func TimeAgo(d time.Duration) time.Time {
	return time.Now().Add(-d)
}

// TimeAgoPtr returns a pointer to a time.Time in the past.
func TimeAgoPtr(d time.Duration) *time.Time {
	t := TimeAgo(d)
	return &t
}
