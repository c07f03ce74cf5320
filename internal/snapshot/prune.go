package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// fileExt is the snapshot file extension.
const fileExt = ".snap"

// DefaultDir returns the snapshot directory under a project root.
func DefaultDir(root string) string {
	return filepath.Join(root, ".ethos", "snapshots")
}

// DefaultPath builds a timestamped snapshot filename in dir.
func DefaultPath(dir string) string {
	ts := time.Now().Format("20060102-150405")
	return filepath.Join(dir, "graph-"+ts+fileExt)
}

// Info holds snapshot file metadata for pruning decisions.
type Info struct {
	Path      string
	Size      int64
	CreatedAt time.Time
}

// KeepPolicy decides which snapshots survive a prune. Input is sorted
// newest-first.
type KeepPolicy interface {
	Keep(snaps []Info) []Info
}

// KeepCount keeps the N most recent snapshots.
type KeepCount struct {
	N int
}

func (p KeepCount) Keep(snaps []Info) []Info {
	if len(snaps) <= p.N {
		return snaps
	}
	return snaps[:p.N]
}

// KeepWithin keeps snapshots created within the given age.
type KeepWithin struct {
	MaxAge time.Duration
}

func (p KeepWithin) Keep(snaps []Info) []Info {
	cutoff := time.Now().Add(-p.MaxAge)
	var keep []Info
	for _, s := range snaps {
		if s.CreatedAt.After(cutoff) {
			keep = append(keep, s)
		}
	}
	return keep
}

// KeepUnion keeps a snapshot if any sub-policy keeps it.
type KeepUnion struct {
	Policies []KeepPolicy
}

func (p KeepUnion) Keep(snaps []Info) []Info {
	kept := make(map[string]bool)
	for _, policy := range p.Policies {
		for _, s := range policy.Keep(snaps) {
			kept[s.Path] = true
		}
	}
	var result []Info
	for _, s := range snaps {
		if kept[s.Path] {
			result = append(result, s)
		}
	}
	return result
}

// List scans dir for snapshot files and returns them sorted newest-first.
// CreatedAt comes from the header so renamed files still sort correctly.
// A missing directory yields an empty list.
func List(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	var snaps []Info
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileExt {
			continue
		}
		path := filepath.Join(dir, e.Name())
		fi, err := e.Info()
		if err != nil {
			continue
		}

		info := Info{Path: path, Size: fi.Size(), CreatedAt: fi.ModTime()}
		if header, err := ReadHeader(path); err == nil {
			info.CreatedAt = header.CreatedAt
		}
		snaps = append(snaps, info)
	}

	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
	})
	return snaps, nil
}

// Prune deletes snapshots in dir that the policy does not keep and returns
// the deleted paths.
func Prune(dir string, policy KeepPolicy) ([]string, error) {
	snaps, err := List(dir)
	if err != nil {
		return nil, err
	}

	keepSet := make(map[string]bool)
	for _, s := range policy.Keep(snaps) {
		keepSet[s.Path] = true
	}

	var deleted []string
	for _, s := range snaps {
		if keepSet[s.Path] {
			continue
		}
		if err := os.Remove(s.Path); err != nil {
			return deleted, fmt.Errorf("pruning snapshot %s: %w", filepath.Base(s.Path), err)
		}
		deleted = append(deleted, s.Path)
	}
	return deleted, nil
}

// ParseAge parses age strings like "30d", "2w", or any standard Go duration.
func ParseAge(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty age string")
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid age: %q", s)
	}

	num, err := strconv.Atoi(strings.TrimRight(s, "dw"))
	if err != nil {
		return 0, fmt.Errorf("invalid age: %q", s)
	}
	switch s[len(s)-1] {
	case 'd':
		return time.Duration(num) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(num) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown age suffix in %q", s)
	}
}
