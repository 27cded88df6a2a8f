package main

import (
	"fmt"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <name>",
	Short: "Export the tree as a Mermaid diagram",
	Long: `Outputs a Mermaid diagram (graph TD) of the tree. Links are drawn as dashed edges
to the node they alias. --selected and --current highlight element IDs.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		selected, _ := cmd.Flags().GetIntSlice("selected")
		current, _ := cmd.Flags().GetInt("current")

		backend, err := cli.NewBackend(cfg)
		if err != nil {
			return err
		}
		defer backend.Close()

		doc, err := backend.Store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		overlay := &graph.Overlay{Selected: selected}
		if cmd.Flags().Changed("current") {
			overlay.Current = &current
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(doc, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().IntSlice("selected", nil, "Element IDs to highlight")
	graphCmd.Flags().Int("current", 0, "Element ID to mark as current")
}
