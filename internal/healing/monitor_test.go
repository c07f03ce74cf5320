package healing

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/ethos-sim/ethos/internal/constants"
	"github.com/ethos-sim/ethos/internal/learning"
	"github.com/ethos-sim/ethos/internal/models"
	"github.com/ethos-sim/ethos/internal/store"
)

func newTestMonitor(t *testing.T, s store.GraphStore) *Monitor {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	decayer := learning.NewDecayer(s, learning.DefaultDecayConfig())
	perturber := learning.NewPerturber(s, learning.DefaultPerturbConfig(), rng)
	return NewMonitor(s, decayer, perturber, DefaultConfig(), nil, nil, rng)
}

func freshNode(id string, nodeType models.NodeType, now time.Time) models.Node {
	return models.Node{ID: id, Type: nodeType, Baseline: 0.1, LastActivated: &now}
}

func TestRunCycle_HealthyGraph(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryGraphStore()
	now := time.Now()

	if err := s.CreateNode(ctx, freshNode("V1", models.NodeTypeAnchor, now)); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	for i := 1; i <= 9; i++ {
		id := fmt.Sprintf("c%d", i)
		if err := s.CreateNode(ctx, freshNode(id, models.NodeTypeConcept, now)); err != nil {
			t.Fatalf("CreateNode: %v", err)
		}
		edge := models.Edge{Source: "V1", Target: id, Weight: 0.5, LastUsed: now}
		if err := s.CreateEdge(ctx, edge); err != nil {
			t.Fatalf("CreateEdge: %v", err)
		}
	}

	m := newTestMonitor(t, s)
	for cycle := 1; cycle <= constants.SlowCheckCadence; cycle++ {
		report, err := m.RunCycle(ctx, now)
		if err != nil {
			t.Fatalf("cycle %d: %v", cycle, err)
		}
		if !report.Healthy {
			t.Errorf("cycle %d: findings %v, want healthy", cycle, report.Findings)
		}
		if report.Cycle != cycle {
			t.Errorf("report.Cycle = %d, want %d", report.Cycle, cycle)
		}
	}
}

func TestRunCycle_DeadZoneRepairedOnSlowCheck(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryGraphStore()
	now := time.Now()

	if err := s.CreateNode(ctx, freshNode("V1", models.NodeTypeAnchor, now)); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	for i := 1; i <= 6; i++ {
		if err := s.CreateNode(ctx, freshNode(fmt.Sprintf("c%d", i), models.NodeTypeConcept, now)); err != nil {
			t.Fatalf("CreateNode: %v", err)
		}
	}

	m := newTestMonitor(t, s)

	// The dead-zone detector only runs on the slow cadence, so the
	// isolated anchor goes unnoticed for the first cycles.
	for cycle := 1; cycle < constants.SlowCheckCadence; cycle++ {
		report, err := m.RunCycle(ctx, now)
		if err != nil {
			t.Fatalf("cycle %d: %v", cycle, err)
		}
		if !report.Healthy {
			t.Errorf("cycle %d: findings %v, want healthy", cycle, report.Findings)
		}
	}

	report, err := m.RunCycle(ctx, now)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	var deadZone *Finding
	for i, f := range report.Findings {
		if f.Type == FindingDeadZone {
			deadZone = &report.Findings[i]
		}
	}
	if deadZone == nil {
		t.Fatalf("findings = %v, want a dead-zone finding", report.Findings)
	}
	if len(deadZone.Nodes) != 1 || deadZone.Nodes[0] != "V1" {
		t.Errorf("dead-zone nodes = %v, want [V1]", deadZone.Nodes)
	}

	degree, err := s.NodeDegree(ctx, "V1")
	if err != nil {
		t.Fatalf("NodeDegree: %v", err)
	}
	if degree < constants.TargetConnectivity {
		t.Errorf("repaired degree = %d, want >= %d", degree, constants.TargetConnectivity)
	}

	edge, err := s.GetEdge(ctx, "V1", "c1")
	if err != nil {
		t.Fatalf("GetEdge: %v", err)
	}
	if edge == nil {
		t.Fatal("expected repair edge V1->c1")
	}
	if edge.Weight != constants.DeadZoneEdgeWeight {
		t.Errorf("repair edge weight = %.2f, want %.2f", edge.Weight, constants.DeadZoneEdgeWeight)
	}
	if edge.Direction != models.DirectionMutual {
		t.Errorf("repair edge direction = %q, want mutual", edge.Direction)
	}
	reverse, err := s.GetEdge(ctx, "c1", "V1")
	if err != nil {
		t.Fatalf("GetEdge: %v", err)
	}
	if reverse == nil {
		t.Error("expected reverse repair edge c1->V1")
	}
}

func TestRunCycle_LockInDecaysRegion(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryGraphStore()
	now := time.Now()

	for _, id := range []string{"hub", "mate", "x", "y", "z"} {
		if err := s.CreateNode(ctx, freshNode(id, models.NodeTypeConcept, now)); err != nil {
			t.Fatalf("CreateNode: %v", err)
		}
	}
	if err := s.CreateEdge(ctx, models.Edge{Source: "hub", Target: "mate", Weight: 0.7, LastUsed: now}); err != nil {
		t.Fatalf("CreateEdge: %v", err)
	}

	m := newTestMonitor(t, s)

	// Five captured trajectories whose tails always revisit hub and mate.
	for i := 0; i < constants.LockInWindow; i++ {
		m.Observe(models.Trajectory{
			Path:       []string{"x", "y", "mate", "hub"},
			CapturedBy: "V1",
			Steps:      4,
		})
	}

	report, err := m.RunCycle(ctx, now)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(report.Findings) != 1 || report.Findings[0].Type != FindingLockIn {
		t.Fatalf("findings = %v, want one lock-in", report.Findings)
	}
	if report.Findings[0].Nodes[0] != "hub" {
		t.Errorf("stuck node = %q, want hub", report.Findings[0].Nodes[0])
	}

	edge, err := s.GetEdge(ctx, "hub", "mate")
	if err != nil {
		t.Fatalf("GetEdge: %v", err)
	}
	want := 0.7 * constants.DefaultDecayConstant * constants.RegionDecayFactor
	if math.Abs(edge.Weight-want) > 1e-9 {
		t.Errorf("decayed weight = %.6f, want %.6f", edge.Weight, want)
	}
}

func TestRunCycle_LockInBelowShareIgnored(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryGraphStore()
	now := time.Now()

	for _, id := range []string{"a", "b", "c", "d"} {
		if err := s.CreateNode(ctx, freshNode(id, models.NodeTypeConcept, now)); err != nil {
			t.Fatalf("CreateNode: %v", err)
		}
	}

	m := newTestMonitor(t, s)
	paths := [][]string{
		{"a", "b", "c", "d"},
		{"b", "c", "d", "a"},
		{"c", "d", "a", "b"},
		{"d", "a", "b", "c"},
		{"a", "c", "b", "d"},
	}
	for _, p := range paths {
		m.Observe(models.Trajectory{Path: p, CapturedBy: "V1", Steps: len(p)})
	}

	report, err := m.RunCycle(ctx, now)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if !report.Healthy {
		t.Errorf("findings = %v, want healthy", report.Findings)
	}
}

func TestRunCycle_FalseBasinDecaysNeighborhood(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryGraphStore()
	now := time.Now()

	for _, id := range []string{"trap", "t2", "start"} {
		if err := s.CreateNode(ctx, freshNode(id, models.NodeTypeConcept, now)); err != nil {
			t.Fatalf("CreateNode: %v", err)
		}
	}
	if err := s.CreateEdge(ctx, models.Edge{Source: "trap", Target: "t2", Weight: 0.7, LastUsed: now}); err != nil {
		t.Fatalf("CreateEdge: %v", err)
	}

	m := newTestMonitor(t, s)

	// Three escaped runs all terminating at the same non-anchor node.
	for i := 0; i < constants.FalseBasinMinEscapes; i++ {
		m.Observe(models.Trajectory{Path: []string{"start", "trap"}, Steps: 2})
	}

	report, err := m.RunCycle(ctx, now)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(report.Findings) != 1 || report.Findings[0].Type != FindingFalseBasin {
		t.Fatalf("findings = %v, want one false-basin", report.Findings)
	}
	if report.Findings[0].Nodes[0] != "trap" {
		t.Errorf("basin region = %v, want trap first", report.Findings[0].Nodes)
	}

	edge, err := s.GetEdge(ctx, "trap", "t2")
	if err != nil {
		t.Fatalf("GetEdge: %v", err)
	}
	want := 0.7 * constants.DefaultDecayConstant * constants.RegionDecayFactor
	if math.Abs(edge.Weight-want) > 1e-9 {
		t.Errorf("decayed weight = %.6f, want %.6f", edge.Weight, want)
	}
}

func TestRunCycle_BlindnessPerturbsStaleNodes(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryGraphStore()
	now := time.Now()

	// No anchors, so only the blindness detector has anything to find.
	for _, id := range []string{"b1", "b2", "b3"} {
		if err := s.CreateNode(ctx, models.Node{ID: id, Type: models.NodeTypeConcept, Baseline: 0.1}); err != nil {
			t.Fatalf("CreateNode: %v", err)
		}
	}

	m := newTestMonitor(t, s)
	var report Report
	var err error
	for cycle := 1; cycle <= constants.SlowCheckCadence; cycle++ {
		report, err = m.RunCycle(ctx, now)
		if err != nil {
			t.Fatalf("cycle %d: %v", cycle, err)
		}
	}

	if len(report.Findings) != 1 || report.Findings[0].Type != FindingBlindness {
		t.Fatalf("findings = %v, want one blindness", report.Findings)
	}
	got := report.Findings[0].Nodes
	want := []string{"b1", "b2", "b3"}
	if len(got) != len(want) {
		t.Fatalf("blind nodes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("blind nodes = %v, want %v", got, want)
		}
	}

	for _, id := range want {
		node, err := s.GetNode(ctx, id)
		if err != nil {
			t.Fatalf("GetNode: %v", err)
		}
		if node.Activation <= 0 {
			t.Errorf("%s activation = %.3f, want > 0 after perturbation", id, node.Activation)
		}
		if node.LastActivated == nil {
			t.Errorf("%s LastActivated not stamped", id)
		}
	}
}

func TestObserve_WindowBounded(t *testing.T) {
	s := store.NewInMemoryGraphStore()
	m := newTestMonitor(t, s)

	for i := 1; i <= constants.TrajectoryWindowSize+5; i++ {
		m.Observe(models.Trajectory{Path: []string{"a"}, Steps: i})
	}

	if len(m.window) != constants.TrajectoryWindowSize {
		t.Fatalf("window length = %d, want %d", len(m.window), constants.TrajectoryWindowSize)
	}
	if m.window[0].Steps != 6 {
		t.Errorf("oldest retained trajectory Steps = %d, want 6", m.window[0].Steps)
	}
}
