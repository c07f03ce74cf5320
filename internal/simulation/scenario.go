package simulation

import (
	"time"

	"github.com/ethos-sim/ethos/internal/constants"
	"github.com/ethos-sim/ethos/internal/models"
	"github.com/ethos-sim/ethos/internal/spreading"
	"github.com/ethos-sim/ethos/internal/store"
)

// Scenario defines a complete simulation experiment: a pre-seeded graph, a
// sequence of stimuli, and the dynamics to run between them.
type Scenario struct {
	Name    string
	Nodes   []NodeSpec
	Edges   []EdgeSpec
	Stimuli []models.Stimulus

	// Scaffold seeds the full virtue layer before Nodes and Edges are
	// applied, so scenarios only need to describe their concept layer.
	Scaffold bool

	SpreadConfig *spreading.Config

	// LearningEnabled strengthens each captured trajectory's path after the
	// spread, the way the session loop does.
	LearningEnabled bool

	// LearningRate overrides the default Hebbian rate when nonzero.
	LearningRate float64

	// Seed fixes the run's randomness. Zero defaults to 1.
	Seed int64

	// BeforeStimulus, when non-nil, runs before each stimulus. Use it to
	// manipulate the store mid-run, for example backdating edge timestamps
	// for decay scenarios.
	BeforeStimulus func(index int, s store.GraphStore)
}

// NodeSpec defines a pre-seeded node.
type NodeSpec struct {
	ID         string
	Type       models.NodeType
	Baseline   float64
	Activation float64
}

// ToNode converts the spec to a node, defaulting the baseline by type.
func (n NodeSpec) ToNode() models.Node {
	nodeType := n.Type
	if nodeType == "" {
		nodeType = models.NodeTypeConcept
	}
	baseline := n.Baseline
	if baseline == 0 {
		if nodeType == models.NodeTypeAnchor {
			baseline = constants.DefaultAnchorBaseline
		} else {
			baseline = constants.DefaultConceptBaseline
		}
	}
	return models.Node{
		ID:         n.ID,
		Type:       nodeType,
		Baseline:   baseline,
		Activation: n.Activation,
	}
}

// EdgeSpec defines a pre-seeded edge.
type EdgeSpec struct {
	Source   string
	Target   string
	Weight   float64
	Mutual   bool
	LastUsed time.Time
}

// ToEdges converts the spec to one store edge, or two for mutual edges.
func (e EdgeSpec) ToEdges() []models.Edge {
	lastUsed := e.LastUsed
	if lastUsed.IsZero() {
		lastUsed = time.Now()
	}
	direction := models.DirectionOneWay
	if e.Mutual {
		direction = models.DirectionMutual
	}

	edges := []models.Edge{{
		Source:    e.Source,
		Target:    e.Target,
		Weight:    e.Weight,
		Direction: direction,
		LastUsed:  lastUsed,
	}}
	if e.Mutual {
		edges = append(edges, models.Edge{
			Source:    e.Target,
			Target:    e.Source,
			Weight:    e.Weight,
			Direction: direction,
			LastUsed:  lastUsed,
		})
	}
	return edges
}

// StimulusResult captures the outcome of a single stimulus.
type StimulusResult struct {
	Index       int
	Stimulus    models.Stimulus
	Trajectory  models.Trajectory
	EdgeWeights map[string]float64 // keyed by models.EdgeKey
}

// RunResult captures all stimuli outcomes and the final store state.
type RunResult struct {
	Stimuli []StimulusResult
	Store   store.GraphStore
}

// CaptureRate is the fraction of stimuli whose trajectories were captured.
func (r RunResult) CaptureRate() float64 {
	if len(r.Stimuli) == 0 {
		return 0
	}
	captured := 0
	for _, sr := range r.Stimuli {
		if sr.Trajectory.Captured() {
			captured++
		}
	}
	return float64(captured) / float64(len(r.Stimuli))
}
