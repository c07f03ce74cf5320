package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ethos-sim/ethos/internal/config"
	"github.com/ethos-sim/ethos/internal/store"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "ethos",
		Short: "Ethos - value-aligned graph dynamics engine",
		Long: `ethos maintains a weighted concept graph anchored on virtue nodes.

Stimuli injected into the graph propagate through weighted edges until they
are captured by a virtue basin or escape. The graph adapts through Hebbian
learning, temporal decay, and perturbation; a self-healing monitor repairs
pathological topologies, and an evolutionary search breeds topologies that
pass the alignment test.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for machine consumption)")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory")

	rootCmd.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newSeedCmd(),
		newSpreadCmd(),
		newAlignCmd(),
		newEvolveCmd(),
		newHealCmd(),
		newRankCmd(),
		newSnapshotCmd(),
		newExportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]string{"version": version})
			} else {
				fmt.Printf("ethos version %s\n", version)
			}
		},
	}
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize an ethos graph in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")

			ethosDir := filepath.Join(root, ".ethos")
			if err := os.MkdirAll(ethosDir, 0755); err != nil {
				return fmt.Errorf("failed to create .ethos directory: %w", err)
			}

			manifestPath := filepath.Join(ethosDir, "manifest.yaml")
			if _, err := os.Stat(manifestPath); os.IsNotExist(err) {
				manifest := `# Ethos Manifest
version: "1.0"
created: %s

# The graph database lives in this directory (ethos.db).
# Run 'ethos seed' to create the virtue scaffold.
# Run 'ethos align' to test how reliably stimuli reach virtue basins.
`
				content := fmt.Sprintf(manifest, time.Now().Format(time.RFC3339))
				if err := os.WriteFile(manifestPath, []byte(content), 0644); err != nil {
					return fmt.Errorf("failed to create manifest.yaml: %w", err)
				}
			}

			// Opening the store creates the database and schema.
			s, err := store.NewSQLiteGraphStore(root)
			if err != nil {
				return fmt.Errorf("failed to create graph store: %w", err)
			}
			s.Close()

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]string{
					"status": "initialized",
					"path":   ethosDir,
				})
			} else {
				fmt.Printf("Initialized .ethos/ in %s\n", root)
			}
			return nil
		},
	}
}

// openStore opens the project's SQLite graph store, failing when the
// project has not been initialized.
func openStore(cmd *cobra.Command) (*store.SQLiteGraphStore, string, error) {
	root, _ := cmd.Flags().GetString("root")

	ethosDir := filepath.Join(root, ".ethos")
	if _, err := os.Stat(ethosDir); os.IsNotExist(err) {
		return nil, "", fmt.Errorf(".ethos not initialized. Run 'ethos init' first")
	}

	s, err := store.NewSQLiteGraphStore(root)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open graph store: %w", err)
	}
	return s, root, nil
}

// loadConfig loads configuration from the default locations.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v, using defaults\n", err)
		return config.Default()
	}
	return cfg
}
