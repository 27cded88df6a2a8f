package main

import (
	"context"
	"errors"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play <name>",
	Short: "Walk a tree interactively",
	Long: `Plays the tree in the terminal. Conditions are checked against the game state given
with --state; the built-in actions (set_flag, set, give, pay) update it as you go.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pairs, _ := cmd.Flags().GetStringSlice("state")
		quiet, _ := cmd.Flags().GetBool("quiet")
		state, err := cli.ParseState(pairs)
		if err != nil {
			return err
		}

		s, done, err := openSession(cmd, args[0], arbor.WithInvoker(cli.StateActions(state)))
		if err != nil {
			return err
		}
		defer done()

		out := cmd.OutOrStdout()
		if !quiet {
			tui.PrintBanner(out, tui.ProfileFor(out))
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		err = cli.Play(ctx, s, state, cmd.InOrStdin(), out)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().StringSlice("state", nil, "Initial game state as key=value (repeatable)")
	playCmd.Flags().BoolP("quiet", "q", false, "Skip the banner")
}
