package main

import (
	"context"
	"testing"

	"github.com/ethos-sim/ethos/internal/models"
	"github.com/ethos-sim/ethos/internal/store"
)

// Exercises the init -> seed -> spread -> align -> export flow end to end
// against a real on-disk store.
func TestWorkflow_SeedSpreadAlign(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	initProject(t, tmpDir)

	if _, err := runCmd(t, newSeedCmd(), "seed", "--root", tmpDir, "--concepts", "5", "--seed", "7"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// The scaffold plus concepts must be in the store.
	s, err := store.NewSQLiteGraphStore(tmpDir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ctx := context.Background()
	anchors, err := s.Nodes(ctx, models.NodeTypeAnchor)
	if err != nil {
		t.Fatalf("Nodes: %v", err)
	}
	if len(anchors) != models.AnchorCount {
		t.Fatalf("anchor count = %d, want %d", len(anchors), models.AnchorCount)
	}
	concepts, err := s.Nodes(ctx, models.NodeTypeConcept)
	if err != nil {
		t.Fatalf("Nodes: %v", err)
	}
	if len(concepts) != 5 {
		t.Fatalf("concept count = %d, want 5", len(concepts))
	}
	s.Close()

	if _, err := runCmd(t, newSpreadCmd(), "spread", "C1", "--root", tmpDir, "--strength", "0.9", "--seed", "7"); err != nil {
		t.Fatalf("spread failed: %v", err)
	}

	if _, err := runCmd(t, newAlignCmd(), "align", "--root", tmpDir, "--stimuli", "10", "--seed", "7"); err != nil {
		t.Fatalf("align failed: %v", err)
	}

	if _, err := runCmd(t, newExportCmd(), "export", "--root", tmpDir, "--format", "dot"); err != nil {
		t.Fatalf("export failed: %v", err)
	}
}

func TestWorkflow_Heal(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	initProject(t, tmpDir)
	if _, err := runCmd(t, newSeedCmd(), "seed", "--root", tmpDir, "--concepts", "3", "--seed", "7"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// Enough cycles to reach the slow-cadence detectors.
	if _, err := runCmd(t, newHealCmd(), "heal", "--root", tmpDir, "--cycles", "5", "--decay", "--seed", "7"); err != nil {
		t.Fatalf("heal failed: %v", err)
	}
}
