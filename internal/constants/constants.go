// Package constants provides named constants used throughout the ethos
// codebase. This centralizes magic numbers for better maintainability and
// documentation.
package constants

import "time"

// Graph structure constants
const (
	// TargetConnectivity is the minimum total degree (incoming + outgoing)
	// every anchor is kept at. Edge removal never drops an anchor below it.
	// With 19 anchors a fully regular graph at degree 9 is impossible
	// (19*9 is odd), so the graph always carries some asymmetric degree and
	// never settles into a static equilibrium.
	TargetConnectivity = 9

	// EdgeRemovalThreshold is the weight below which a decayed edge is
	// deleted, unless deleting it would violate TargetConnectivity — then
	// the weight is floored here instead.
	EdgeRemovalThreshold = 0.05

	// DefaultAnchorBaseline is the resting activation of anchor nodes.
	DefaultAnchorBaseline = 0.3

	// DefaultConceptBaseline is the resting activation of non-anchor nodes.
	DefaultConceptBaseline = 0.1

	// KeyRelationWeight is the initial weight of bootstrap edges between an
	// anchor and its declared key relations.
	KeyRelationWeight = 0.5
)

// Propagation constants
const (
	// Damping scales every edge contribution during propagation.
	Damping = 0.85

	// AnchorRetention is the fraction of an anchor's activation carried to
	// the next step. Anchors retain more than ordinary nodes so that the
	// incoming signal, not accumulation, decides which basin wins.
	AnchorRetention = 0.6

	// AnchorBaselinePull is the per-step pull toward an anchor's baseline.
	AnchorBaselinePull = 0.15

	// NodeRetention is the fraction of a non-anchor's activation carried to
	// the next step.
	NodeRetention = 0.4

	// NodeBaselinePull is the per-step pull toward a non-anchor's baseline.
	NodeBaselinePull = 0.05

	// NoiseAmplitude bounds the zero-mean tie-breaking noise added to every
	// activation each step.
	NoiseAmplitude = 0.001

	// CaptureThreshold is the activation an anchor must exceed while being
	// the graph maximum for capture progress to accrue.
	CaptureThreshold = 0.5

	// CaptureSustainSteps is the number of consecutive qualifying steps an
	// anchor must hold before the run is captured.
	CaptureSustainSteps = 3

	// MinPathLength is the minimum trajectory length required for capture.
	MinPathLength = 2

	// DefaultMaxSteps bounds a single propagation run.
	DefaultMaxSteps = 1000

	// MinActivation is the threshold below which a node is treated as
	// inactive for usage tracking and blind-spot sampling.
	MinActivation = 0.01
)

// Adaptation constants
const (
	// DefaultLearningRate scales Hebbian edge strengthening.
	DefaultLearningRate = 0.1

	// DefaultDecayConstant is the per-period multiplier applied to unused
	// edge weights.
	DefaultDecayConstant = 0.95

	// DefaultDecayInterval is the elapsed time that counts as one decay
	// period for an unused edge.
	DefaultDecayInterval = time.Hour

	// RegionDecayFactor is the extra multiplier applied to the decay
	// constant during accelerated region decay.
	RegionDecayFactor = 0.8

	// DefaultPerturbationInterval is the number of simulation ticks between
	// scheduled perturbations.
	DefaultPerturbationInterval = 50

	// DefaultPerturbationStrength is the activation injected by a
	// perturbation before randomized scaling.
	DefaultPerturbationStrength = 0.5

	// DefaultStaleThreshold is how long a node may go unactivated before it
	// counts as blind.
	DefaultStaleThreshold = 24 * time.Hour
)

// Self-healing constants
const (
	// TrajectoryWindowSize bounds the rolling window of recent trajectories
	// the monitor inspects.
	TrajectoryWindowSize = 20

	// LockInWindow is how many recent trajectories the lock-in detector
	// examines.
	LockInWindow = 5

	// LockInShare is the fraction of visited steps one node must account
	// for to be flagged as a lock-in.
	LockInShare = 0.30

	// LockInRegionSize is how many co-occurring nodes are flagged together
	// with a locked-in node.
	LockInRegionSize = 5

	// FalseBasinMinEscapes is the minimum number of escaped trajectories
	// required before false-basin detection runs.
	FalseBasinMinEscapes = 3

	// FalseBasinTailFraction is the final fraction of each escaped path
	// inspected for recurring non-anchor nodes.
	FalseBasinTailFraction = 0.1

	// FalseBasinShare is the fraction of escapes a node must appear in to
	// be flagged as a false basin.
	FalseBasinShare = 0.5

	// DeadZoneEdgeWeight is the weight of edges created to repair an
	// under-connected anchor.
	DeadZoneEdgeWeight = 0.5

	// BlindnessSampleSize caps how many blind nodes are perturbed per cycle.
	BlindnessSampleSize = 10

	// SlowCheckCadence runs the dead-zone and blindness detectors every
	// this many monitor cycles; lock-in and false-basin run every cycle.
	SlowCheckCadence = 5
)

// Evolutionary search constants
const (
	// DefaultPopulationSize is the number of individuals per generation.
	DefaultPopulationSize = 30

	// DefaultGenerationCap bounds an evolution run.
	DefaultGenerationCap = 50

	// DefaultElitismCount is how many best individuals carry over unchanged
	// each generation.
	DefaultElitismCount = 2

	// DefaultMutationRate is the per-edge probability of weight mutation.
	DefaultMutationRate = 0.1

	// DefaultCrossoverRate is the probability a parent-unique edge is
	// inherited during uniform crossover.
	DefaultCrossoverRate = 0.7

	// MutationStd is the standard deviation of Gaussian weight mutation.
	MutationStd = 0.1

	// NewEdgeMinWeight and NewEdgeMaxWeight bound the weight of edges added
	// by mutation.
	NewEdgeMinWeight = 0.1
	NewEdgeMaxWeight = 0.5

	// AddEdgeRetries bounds the search for a novel node pair during edge
	// addition.
	AddEdgeRetries = 10

	// TournamentSize is the sample size for tournament selection.
	TournamentSize = 3

	// AggressiveMutationMultiplier and AggressiveMutationPasses configure
	// the aggressive mutation variant.
	AggressiveMutationMultiplier = 3
	AggressiveMutationPasses     = 3

	// InitExtraEdgesMin and InitExtraEdgesMax bound the random extra edges
	// each anchor receives during population initialization.
	InitExtraEdgesMin = 1
	InitExtraEdgesMax = 4
)

// Alignment constants
const (
	// AlignmentPassCaptureRate is the minimum capture rate for a pass.
	AlignmentPassCaptureRate = 0.95

	// AlignmentMaxEscapeRate is the escape rate a passing topology must
	// stay strictly below.
	AlignmentMaxEscapeRate = 0.05

	// DefaultStimulusCount is the number of stimuli per alignment test.
	DefaultStimulusCount = 100

	// AdversarialStrengthLow and AdversarialStrengthHigh are the extreme
	// stimulus strengths used by adversarial generation.
	AdversarialStrengthLow  = 0.1
	AdversarialStrengthHigh = 0.95
)
