// Package healing implements the self-healing monitor. It watches a rolling
// window of recent trajectories plus live graph stats, detects four pathology
// classes (lock-in, dead zones, false basins, blindness), and remediates each
// through the adaptation layer. Detection and remediation are idempotent; a
// healthy graph yields an empty report.
package healing

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/ethos-sim/ethos/internal/constants"
	"github.com/ethos-sim/ethos/internal/learning"
	"github.com/ethos-sim/ethos/internal/logging"
	"github.com/ethos-sim/ethos/internal/models"
	"github.com/ethos-sim/ethos/internal/store"
)

// FindingType identifies a detected pathology class.
type FindingType string

const (
	FindingLockIn     FindingType = "lock-in"
	FindingDeadZone   FindingType = "dead-zone"
	FindingFalseBasin FindingType = "false-basin"
	FindingBlindness  FindingType = "blindness"
)

// Finding is one structured detection result.
type Finding struct {
	Type   FindingType `json:"type"`
	Nodes  []string    `json:"nodes"`
	Detail string      `json:"detail"`
}

// Report summarizes one monitor cycle.
type Report struct {
	Cycle    int       `json:"cycle"`
	Findings []Finding `json:"findings,omitempty"`
	Healthy  bool      `json:"healthy"`
}

// Config tunes the monitor.
type Config struct {
	// StaleThreshold is how long a node may go unactivated before the
	// blindness detector flags it.
	StaleThreshold time.Duration

	// SlowCheckCadence runs the dead-zone and blindness detectors every
	// this many cycles; lock-in and false-basin run every cycle.
	SlowCheckCadence int

	// WindowSize bounds the rolling trajectory window.
	WindowSize int
}

// DefaultConfig returns the default monitor configuration.
func DefaultConfig() Config {
	return Config{
		StaleThreshold:   constants.DefaultStaleThreshold,
		SlowCheckCadence: constants.SlowCheckCadence,
		WindowSize:       constants.TrajectoryWindowSize,
	}
}

// Monitor detects and remediates graph pathologies.
type Monitor struct {
	store     store.GraphStore
	decayer   *learning.Decayer
	perturber *learning.Perturber
	config    Config
	logger    *slog.Logger
	events    *logging.EventLogger
	rng       *rand.Rand

	window []models.Trajectory
	cycle  int
}

// NewMonitor creates a monitor. logger and events may be nil; a nil rng is
// seeded from the clock.
func NewMonitor(s store.GraphStore, decayer *learning.Decayer, perturber *learning.Perturber, config Config, logger *slog.Logger, events *logging.EventLogger, rng *rand.Rand) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if config.WindowSize <= 0 {
		config.WindowSize = constants.TrajectoryWindowSize
	}
	if config.SlowCheckCadence <= 0 {
		config.SlowCheckCadence = constants.SlowCheckCadence
	}
	return &Monitor{
		store:     s,
		decayer:   decayer,
		perturber: perturber,
		config:    config,
		logger:    logger,
		events:    events,
		rng:       rng,
	}
}

// Observe appends a completed trajectory to the rolling window.
func (m *Monitor) Observe(traj models.Trajectory) {
	m.window = append(m.window, traj)
	if len(m.window) > m.config.WindowSize {
		m.window = m.window[len(m.window)-m.config.WindowSize:]
	}
}

// RunCycle runs one monitor cycle: every detector due this cycle, with
// remediation applied per finding. A cycle with no findings reports healthy.
func (m *Monitor) RunCycle(ctx context.Context, now time.Time) (Report, error) {
	m.cycle++
	report := Report{Cycle: m.cycle}

	finding, err := m.detectLockIn(ctx)
	if err != nil {
		return Report{}, err
	}
	if finding != nil {
		report.Findings = append(report.Findings, *finding)
	}

	finding, err = m.detectFalseBasin(ctx)
	if err != nil {
		return Report{}, err
	}
	if finding != nil {
		report.Findings = append(report.Findings, *finding)
	}

	if m.cycle%m.config.SlowCheckCadence == 0 {
		deadZones, err := m.detectDeadZones(ctx)
		if err != nil {
			return Report{}, err
		}
		report.Findings = append(report.Findings, deadZones...)

		finding, err = m.detectBlindness(ctx, now)
		if err != nil {
			return Report{}, err
		}
		if finding != nil {
			report.Findings = append(report.Findings, *finding)
		}
	}

	report.Healthy = len(report.Findings) == 0
	for _, f := range report.Findings {
		m.logger.Info("pathology detected", "type", string(f.Type), "nodes", len(f.Nodes), "detail", f.Detail)
		m.events.Log(map[string]any{
			"event":  "healing_finding",
			"cycle":  m.cycle,
			"type":   string(f.Type),
			"nodes":  f.Nodes,
			"detail": f.Detail,
		})
	}
	return report, nil
}

// detectLockIn flags a node dominating the tails of recent trajectories,
// then decays its region and perturbs a few nodes outside it.
func (m *Monitor) detectLockIn(ctx context.Context) (*Finding, error) {
	if len(m.window) < constants.LockInWindow {
		return nil, nil
	}
	recent := m.window[len(m.window)-constants.LockInWindow:]

	counts := make(map[string]int)
	totalSteps := 0
	tails := make([][]string, 0, len(recent))
	for _, traj := range recent {
		tail := pathTail(traj.Path, 0.5)
		tails = append(tails, tail)
		totalSteps += len(tail)
		for _, id := range tail {
			counts[id]++
		}
	}
	if totalSteps == 0 {
		return nil, nil
	}

	stuck, stuckCount := "", 0
	for id, c := range counts {
		if c > stuckCount || (c == stuckCount && id < stuck) {
			stuck, stuckCount = id, c
		}
	}
	if float64(stuckCount)/float64(totalSteps) <= constants.LockInShare {
		return nil, nil
	}

	region := append([]string{stuck}, coOccurring(tails, stuck, constants.LockInRegionSize)...)
	finding := &Finding{
		Type:   FindingLockIn,
		Nodes:  region,
		Detail: fmt.Sprintf("%s accounts for %d/%d recent tail steps", stuck, stuckCount, totalSteps),
	}

	if err := m.decayer.DecayRegion(ctx, region, learning.RegionDecayOptions{Factor: constants.RegionDecayFactor}); err != nil {
		return nil, fmt.Errorf("healing: lock-in remediation: %w", err)
	}
	outside, err := m.nodesOutside(ctx, region, 3)
	if err != nil {
		return nil, err
	}
	if err := m.perturber.PerturbRegion(ctx, outside, constants.DefaultPerturbationStrength); err != nil {
		return nil, fmt.Errorf("healing: lock-in perturbation: %w", err)
	}
	return finding, nil
}

// detectDeadZones flags every anchor whose degree is below the target
// connectivity and rebuilds its connectivity with mutual edges.
func (m *Monitor) detectDeadZones(ctx context.Context) ([]Finding, error) {
	anchors, err := m.store.Nodes(ctx, models.NodeTypeAnchor)
	if err != nil {
		return nil, fmt.Errorf("healing: load anchors: %w", err)
	}
	sort.Slice(anchors, func(i, j int) bool { return anchors[i].ID < anchors[j].ID })

	type deficit struct {
		id     string
		degree int
	}
	deficits := make([]deficit, 0)
	for _, a := range anchors {
		degree, err := m.store.NodeDegree(ctx, a.ID)
		if err != nil {
			return nil, fmt.Errorf("healing: degree of %s: %w", a.ID, err)
		}
		if degree < constants.TargetConnectivity {
			deficits = append(deficits, deficit{id: a.ID, degree: degree})
		}
	}
	if len(deficits) == 0 {
		return nil, nil
	}

	underConnected := make([]string, 0, len(deficits))
	for _, d := range deficits {
		underConnected = append(underConnected, d.id)
	}

	nonAnchors, err := m.nonAnchorIDs(ctx)
	if err != nil {
		return nil, err
	}

	findings := make([]Finding, 0, len(deficits))
	for _, d := range deficits {
		findings = append(findings, Finding{
			Type:   FindingDeadZone,
			Nodes:  []string{d.id},
			Detail: fmt.Sprintf("anchor degree %d below target %d", d.degree, constants.TargetConnectivity),
		})

		// Prefer pairing under-connected anchors with each other, then fall
		// back to arbitrary non-anchor nodes.
		candidates := make([]string, 0, len(underConnected)+len(nonAnchors))
		for _, id := range underConnected {
			if id != d.id {
				candidates = append(candidates, id)
			}
		}
		candidates = append(candidates, nonAnchors...)

		if err := m.repairConnectivity(ctx, d.id, candidates); err != nil {
			return nil, err
		}
	}
	return findings, nil
}

// repairConnectivity creates mutual edges from the anchor to candidates
// until its degree reaches the target connectivity.
func (m *Monitor) repairConnectivity(ctx context.Context, anchorID string, candidates []string) error {
	now := time.Now()
	for _, other := range candidates {
		degree, err := m.store.NodeDegree(ctx, anchorID)
		if err != nil {
			return fmt.Errorf("healing: degree of %s: %w", anchorID, err)
		}
		if degree >= constants.TargetConnectivity {
			return nil
		}

		existing, err := m.store.GetEdge(ctx, anchorID, other)
		if err != nil {
			return fmt.Errorf("healing: probe edge: %w", err)
		}
		if existing != nil {
			continue
		}

		for _, pair := range [][2]string{{anchorID, other}, {other, anchorID}} {
			edge := models.Edge{
				Source:    pair[0],
				Target:    pair[1],
				Weight:    constants.DeadZoneEdgeWeight,
				Direction: models.DirectionMutual,
				LastUsed:  now,
			}
			if err := m.store.CreateEdge(ctx, edge); err != nil {
				return fmt.Errorf("healing: create edge %s: %w", edge.Key(), err)
			}
		}
	}
	return nil
}

// detectFalseBasin flags a non-anchor node recurring in the final stretch of
// escaped trajectories, then decays its immediate neighborhood.
func (m *Monitor) detectFalseBasin(ctx context.Context) (*Finding, error) {
	escapes := make([]models.Trajectory, 0, len(m.window))
	for _, traj := range m.window {
		if !traj.Captured() {
			escapes = append(escapes, traj)
		}
	}
	if len(escapes) < constants.FalseBasinMinEscapes {
		return nil, nil
	}

	anchors, err := m.anchorSet(ctx)
	if err != nil {
		return nil, err
	}

	appearances := make(map[string]int)
	for _, traj := range escapes {
		tail := pathTail(traj.Path, constants.FalseBasinTailFraction)
		seen := make(map[string]bool, len(tail))
		for _, id := range tail {
			if anchors[id] || seen[id] {
				continue
			}
			seen[id] = true
			appearances[id]++
		}
	}

	basin, basinCount := "", 0
	for id, c := range appearances {
		if c > basinCount || (c == basinCount && id < basin) {
			basin, basinCount = id, c
		}
	}
	if basin == "" || float64(basinCount)/float64(len(escapes)) <= constants.FalseBasinShare {
		return nil, nil
	}

	region, err := m.neighborhood(ctx, basin)
	if err != nil {
		return nil, err
	}
	finding := &Finding{
		Type:   FindingFalseBasin,
		Nodes:  region,
		Detail: fmt.Sprintf("%s terminates %d/%d escapes", basin, basinCount, len(escapes)),
	}

	if err := m.decayer.DecayRegion(ctx, region, learning.RegionDecayOptions{Factor: constants.RegionDecayFactor}); err != nil {
		return nil, fmt.Errorf("healing: false-basin remediation: %w", err)
	}
	return finding, nil
}

// detectBlindness flags nodes unseen past the stale threshold and perturbs
// a bounded random sample of them at reduced strength.
func (m *Monitor) detectBlindness(ctx context.Context, now time.Time) (*Finding, error) {
	nodes, err := m.store.Nodes(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("healing: load nodes: %w", err)
	}

	blind := make([]string, 0)
	for _, node := range nodes {
		if node.LastActivated == nil || now.Sub(*node.LastActivated) > m.config.StaleThreshold {
			blind = append(blind, node.ID)
		}
	}
	if len(blind) == 0 {
		return nil, nil
	}
	sort.Strings(blind)

	finding := &Finding{
		Type:   FindingBlindness,
		Nodes:  blind,
		Detail: fmt.Sprintf("%d nodes unseen for over %s", len(blind), m.config.StaleThreshold),
	}

	sample := blind
	if len(sample) > constants.BlindnessSampleSize {
		sample = make([]string, len(blind))
		copy(sample, blind)
		m.rng.Shuffle(len(sample), func(i, j int) { sample[i], sample[j] = sample[j], sample[i] })
		sample = sample[:constants.BlindnessSampleSize]
	}
	if err := m.perturber.PerturbRegion(ctx, sample, constants.DefaultPerturbationStrength*0.5); err != nil {
		return nil, fmt.Errorf("healing: blindness remediation: %w", err)
	}
	return finding, nil
}

// neighborhood returns a node plus all nodes one edge away from it.
func (m *Monitor) neighborhood(ctx context.Context, id string) ([]string, error) {
	incoming, err := m.store.IncomingEdges(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("healing: neighborhood of %s: %w", id, err)
	}
	outgoing, err := m.store.OutgoingEdges(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("healing: neighborhood of %s: %w", id, err)
	}

	seen := map[string]bool{id: true}
	region := []string{id}
	for _, e := range incoming {
		if !seen[e.Source] {
			seen[e.Source] = true
			region = append(region, e.Source)
		}
	}
	for _, e := range outgoing {
		if !seen[e.Target] {
			seen[e.Target] = true
			region = append(region, e.Target)
		}
	}
	sort.Strings(region[1:])
	return region, nil
}

// nodesOutside returns up to limit node IDs not in the given region.
func (m *Monitor) nodesOutside(ctx context.Context, region []string, limit int) ([]string, error) {
	inRegion := make(map[string]bool, len(region))
	for _, id := range region {
		inRegion[id] = true
	}

	nodes, err := m.store.Nodes(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("healing: load nodes: %w", err)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	outside := make([]string, 0, limit)
	for _, node := range nodes {
		if inRegion[node.ID] {
			continue
		}
		outside = append(outside, node.ID)
		if len(outside) == limit {
			break
		}
	}
	return outside, nil
}

func (m *Monitor) anchorSet(ctx context.Context) (map[string]bool, error) {
	anchors, err := m.store.Nodes(ctx, models.NodeTypeAnchor)
	if err != nil {
		return nil, fmt.Errorf("healing: load anchors: %w", err)
	}
	set := make(map[string]bool, len(anchors))
	for _, a := range anchors {
		set[a.ID] = true
	}
	return set, nil
}

// nonAnchorIDs returns all non-anchor node IDs, sorted.
func (m *Monitor) nonAnchorIDs(ctx context.Context) ([]string, error) {
	nodes, err := m.store.Nodes(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("healing: load nodes: %w", err)
	}
	ids := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if !node.IsAnchor() {
			ids = append(ids, node.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// pathTail returns the final fraction of a path, at least one element for
// non-empty paths.
func pathTail(path []string, fraction float64) []string {
	if len(path) == 0 {
		return nil
	}
	n := int(float64(len(path)) * fraction)
	if n < 1 {
		n = 1
	}
	return path[len(path)-n:]
}

// coOccurring returns up to limit nodes appearing most often alongside the
// stuck node in the given tails.
func coOccurring(tails [][]string, stuck string, limit int) []string {
	counts := make(map[string]int)
	for _, tail := range tails {
		for _, id := range tail {
			if id != stuck {
				counts[id]++
			}
		}
	}

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}
