package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/swimlane"
	"github.com/aretw0/swimlane/internal/presentation/graph"
	"github.com/aretw0/swimlane/internal/presentation/tui"
	"github.com/aretw0/swimlane/internal/scenario"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay [scenario.yaml]",
	Short: "Apply a scenario to an empty board and print the result",
	Long: `Decodes a YAML scenario, applies its events in order to a fresh in-memory
board and prints the board. Without a file, the built-in demo is used.

Formats:
- markdown (default): tables, styled when stdout is a terminal.
- mermaid: a flowchart with one lane per row.
- json: the board snapshot.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")

		sc := scenario.Demo()
		if len(args) == 1 {
			if sc, err = scenario.Load(args[0]); err != nil {
				return err
			}
		}

		events, err := sc.Events()
		if err != nil {
			return err
		}
		canvas := swimlane.New(swimlane.WithLogger(logger))
		if err := canvas.Workflow().Replay(events...); err != nil {
			return err
		}
		snap := canvas.Snapshot()

		out := cmd.OutOrStdout()
		switch format {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		case "mermaid":
			_, err := fmt.Fprint(out, graph.GenerateMermaid(snap))
			return err
		case "markdown":
			styled := out == os.Stdout && tui.IsTerminal(os.Stdout)
			rendered, err := tui.NewRenderer(styled)(tui.BoardMarkdown(sc.Name, snap))
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(out, rendered)
			return err
		default:
			return fmt.Errorf("unknown format %q", format)
		}
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringP("format", "f", "markdown", "Output format: markdown, mermaid or json")
}
