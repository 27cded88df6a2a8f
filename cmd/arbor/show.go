package main

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a tree outline",
	Long: `Prints the tree as an indented outline with the ID of every element.
With --watch the outline is printed again each time the stored tree changes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		details, _ := cmd.Flags().GetBool("details")
		watch, _ := cmd.Flags().GetBool("watch")
		name := args[0]
		out := cmd.OutOrStdout()

		outline := tui.NewOutline()
		outline.Details = details
		outline.Profile = tui.ProfileFor(out)

		backend, err := cli.NewBackend(cfg)
		if err != nil {
			return err
		}
		defer backend.Close()

		render := func(ctx context.Context) error {
			return renderOutline(ctx, backend.Store, name, outline, out)
		}
		if err := render(cmd.Context()); err != nil {
			return err
		}
		if !watch {
			return nil
		}

		w, ok := backend.Watchable()
		if !ok {
			return fmt.Errorf("the %s store cannot be watched", cfg.Store)
		}
		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		return cli.WatchTree(ctx, w, name, logger, func(ctx context.Context) error {
			fmt.Fprintln(out)
			return render(ctx)
		})
	},
}

func renderOutline(ctx context.Context, store ports.TreeStore, name string, outline *tui.Outline, out io.Writer) error {
	doc, err := store.Load(ctx, name)
	if err != nil {
		return err
	}
	return outline.Render(out, doc)
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolP("details", "d", false, "Show conditions and actions")
	showCmd.Flags().BoolP("watch", "w", false, "Print again on every change")
}
