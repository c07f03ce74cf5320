package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeSnapAt(t *testing.T, dir, name string, createdAt time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := Write(path, &Snapshot{CreatedAt: createdAt}); err != nil {
		t.Fatalf("writing snapshot %s: %v", name, err)
	}
	return path
}

func infoList(paths ...string) []Info {
	now := time.Now()
	snaps := make([]Info, len(paths))
	for i, p := range paths {
		// Newest first, one hour apart.
		snaps[i] = Info{Path: p, CreatedAt: now.Add(-time.Duration(i) * time.Hour)}
	}
	return snaps
}

func TestKeepCount(t *testing.T) {
	snaps := infoList("a", "b", "c", "d")

	kept := KeepCount{N: 2}.Keep(snaps)
	if len(kept) != 2 || kept[0].Path != "a" || kept[1].Path != "b" {
		t.Errorf("KeepCount kept %v, want [a b]", kept)
	}

	if got := (KeepCount{N: 10}).Keep(snaps); len(got) != 4 {
		t.Errorf("KeepCount above list size should keep all, kept %d", len(got))
	}
}

func TestKeepWithin(t *testing.T) {
	snaps := infoList("fresh", "hourOld", "twoHoursOld")

	kept := KeepWithin{MaxAge: 90 * time.Minute}.Keep(snaps)
	if len(kept) != 2 {
		t.Fatalf("kept %d snapshots, want 2", len(kept))
	}
	for _, s := range kept {
		if s.Path == "twoHoursOld" {
			t.Error("KeepWithin kept a snapshot past the age cutoff")
		}
	}
}

func TestKeepUnion(t *testing.T) {
	snaps := infoList("a", "b", "c", "d")

	policy := KeepUnion{Policies: []KeepPolicy{
		KeepCount{N: 1},
		KeepWithin{MaxAge: 150 * time.Minute}, // keeps a, b, c
	}}
	kept := policy.Keep(snaps)
	if len(kept) != 3 {
		t.Fatalf("union kept %d, want 3", len(kept))
	}
	for _, s := range kept {
		if s.Path == "d" {
			t.Error("union should not keep a snapshot no sub-policy wants")
		}
	}
}

func TestList_SortsNewestFirstByHeader(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Names deliberately out of order relative to creation times.
	writeSnapAt(t, dir, "zzz-oldest.snap", base.Add(-2*time.Hour))
	writeSnapAt(t, dir, "aaa-newest.snap", base)
	writeSnapAt(t, dir, "mmm-middle.snap", base.Add(-time.Hour))

	// Non-snapshot files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("writing stray file: %v", err)
	}

	snaps, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("listed %d snapshots, want 3", len(snaps))
	}

	want := []string{"aaa-newest.snap", "mmm-middle.snap", "zzz-oldest.snap"}
	for i, name := range want {
		if filepath.Base(snaps[i].Path) != name {
			t.Errorf("snaps[%d] = %s, want %s", i, filepath.Base(snaps[i].Path), name)
		}
	}
}

func TestList_MissingDir(t *testing.T) {
	snaps, err := List(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if snaps != nil {
		t.Errorf("expected nil for missing dir, got %v", snaps)
	}
}

func TestPrune_DeletesBeyondPolicy(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	keepPath := writeSnapAt(t, dir, "graph-new.snap", base)
	prunePath := writeSnapAt(t, dir, "graph-old.snap", base.Add(-time.Hour))

	deleted, err := Prune(dir, KeepCount{N: 1})
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != prunePath {
		t.Errorf("deleted %v, want [%s]", deleted, prunePath)
	}
	if _, err := os.Stat(keepPath); err != nil {
		t.Errorf("kept snapshot missing: %v", err)
	}
	if _, err := os.Stat(prunePath); !os.IsNotExist(err) {
		t.Errorf("pruned snapshot still present: %v", err)
	}
}

func TestDefaultPath(t *testing.T) {
	path := DefaultPath("/tmp/snaps")
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "graph-") || !strings.HasSuffix(base, fileExt) {
		t.Errorf("unexpected snapshot filename %s", base)
	}
}

func TestParseAge(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"30d", 30 * 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"720h", 720 * time.Hour, false},
		{"90m", 90 * time.Minute, false},
		{"", 0, true},
		{"5x", 0, true},
		{"d", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseAge(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseAge(%q) should fail", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAge(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAge(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
