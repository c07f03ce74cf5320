package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ethos-sim/ethos/internal/snapshot"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save, restore, and manage graph snapshots",
		Long: `Snapshot captures the full graph (nodes and edges) into a compressed,
checksummed file under .ethos/snapshots/, and restores it later. Restores
run in merge mode by default; --mode replace clears the graph first.`,
	}

	cmd.AddCommand(
		newSnapshotSaveCmd(),
		newSnapshotRestoreCmd(),
		newSnapshotListCmd(),
		newSnapshotPruneCmd(),
	)
	return cmd
}

func newSnapshotSaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Capture the graph into a snapshot file",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, root, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			snap, err := snapshot.Capture(context.Background(), s)
			if err != nil {
				return err
			}

			path, _ := cmd.Flags().GetString("output")
			if path == "" {
				path = snapshot.DefaultPath(snapshot.DefaultDir(root))
			}
			if err := snapshot.Write(path, snap); err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
					"path":  path,
					"nodes": len(snap.Nodes),
					"edges": len(snap.Edges),
				})
			}
			fmt.Printf("Saved %d nodes, %d edges to %s\n", len(snap.Nodes), len(snap.Edges), path)
			return nil
		},
	}

	cmd.Flags().String("output", "", "Snapshot file path (default: timestamped file under .ethos/snapshots/)")
	return cmd
}

func newSnapshotRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Load a snapshot into the graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, _ := cmd.Flags().GetString("mode")

			if err := snapshot.Verify(args[0]); err != nil {
				return err
			}
			snap, err := snapshot.Read(args[0])
			if err != nil {
				return err
			}

			s, _, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			stats, err := snapshot.Apply(context.Background(), s, snap, snapshot.RestoreMode(mode))
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(stats)
			}
			fmt.Printf("Restored %d nodes (%d skipped), %d edges (%d skipped)\n",
				stats.NodesRestored, stats.NodesSkipped, stats.EdgesRestored, stats.EdgesSkipped)
			return nil
		},
	}

	cmd.Flags().String("mode", string(snapshot.RestoreMerge), "Restore mode: merge or replace")
	return cmd
}

func newSnapshotListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots under .ethos/snapshots/",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")

			snaps, err := snapshot.List(snapshot.DefaultDir(root))
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(snaps)
			}
			if len(snaps) == 0 {
				fmt.Println("No snapshots found.")
				return nil
			}
			for _, s := range snaps {
				fmt.Printf("%s  %s  %d bytes\n",
					s.CreatedAt.Format("2006-01-02 15:04:05"), filepath.Base(s.Path), s.Size)
			}
			return nil
		},
	}
}

func newSnapshotPruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old snapshots by count or age",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			keep, _ := cmd.Flags().GetInt("keep")
			maxAge, _ := cmd.Flags().GetString("max-age")

			var policies []snapshot.KeepPolicy
			if keep > 0 {
				policies = append(policies, snapshot.KeepCount{N: keep})
			}
			if maxAge != "" {
				age, err := snapshot.ParseAge(maxAge)
				if err != nil {
					return err
				}
				policies = append(policies, snapshot.KeepWithin{MaxAge: age})
			}
			if len(policies) == 0 {
				return fmt.Errorf("nothing to prune: pass --keep and/or --max-age")
			}

			deleted, err := snapshot.Prune(snapshot.DefaultDir(root), snapshot.KeepUnion{Policies: policies})
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{"deleted": deleted})
			}
			fmt.Printf("Deleted %d snapshot(s)\n", len(deleted))
			return nil
		},
	}

	cmd.Flags().Int("keep", 0, "Keep the N most recent snapshots")
	cmd.Flags().String("max-age", "", "Keep snapshots newer than this age (e.g. 30d, 2w, 720h)")
	return cmd
}
