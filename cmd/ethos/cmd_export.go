package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ethos-sim/ethos/internal/visualization"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the graph as DOT or JSON",
		Long: `Export renders the current graph. DOT output can be piped straight to
Graphviz:

  ethos export --format dot | dot -Tsvg -o graph.svg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			ctx := context.Background()

			var content string
			switch visualization.Format(format) {
			case visualization.FormatDOT:
				content, err = visualization.RenderDOT(ctx, s)
				if err != nil {
					return err
				}
			case visualization.FormatJSON:
				graph, err := visualization.RenderJSON(ctx, s)
				if err != nil {
					return err
				}
				data, err := json.MarshalIndent(graph, "", "  ")
				if err != nil {
					return err
				}
				content = string(data) + "\n"
			default:
				return fmt.Errorf("unsupported format: %s (use dot or json)", format)
			}

			if output != "" {
				return os.WriteFile(output, []byte(content), 0644)
			}
			fmt.Print(content)
			return nil
		},
	}

	cmd.Flags().String("format", "json", "Output format: dot or json")
	cmd.Flags().String("output", "", "Write to file instead of stdout")

	return cmd
}
