package main

import (
	"fmt"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <name>",
	Short: "Check a stored tree for consistency",
	Long: `Reports structural errors that stop the tree from loading, plus warnings for dead
nodes, placeholder text, bad conditions and actions no handler is registered for.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		actions, _ := cmd.Flags().GetStringSlice("actions")
		strict, _ := cmd.Flags().GetBool("strict")
		if !cmd.Flags().Changed("actions") {
			actions = cli.StateActions(nil).Names()
		}

		backend, err := cli.NewBackend(cfg)
		if err != nil {
			return err
		}
		defer backend.Close()

		doc, err := backend.Store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		report := validator.Lint(doc, validator.WithActions(actions))
		out := cmd.OutOrStdout()
		for _, w := range report.Warnings() {
			fmt.Fprintln(out, w)
		}
		if err := report.Err(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		if strict && len(report.Warnings()) > 0 {
			return fmt.Errorf("validation failed: %d warnings", len(report.Warnings()))
		}
		fmt.Fprintln(out, "Tree is valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringSlice("actions", nil, "Registered action names (default: the built-in play actions)")
	validateCmd.Flags().Bool("strict", false, "Fail on warnings too")
}
