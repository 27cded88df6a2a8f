package main

import (
	"fmt"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create a tree",
	Long: `Creates a tree from the sample tavern dialogue, or with --empty a tree holding
only its root line.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		empty, _ := cmd.Flags().GetBool("empty")
		text, _ := cmd.Flags().GetString("text")

		var (
			t   *tree.Tree
			err error
		)
		if empty {
			root := domain.NewNodeData(domain.NodeTypeLine)
			if text != "" {
				root.Text = text
			}
			t = tree.New(root)
		} else if t, err = arbor.DefaultTree(); err != nil {
			return err
		}

		ed, release, err := openEditor()
		if err != nil {
			return err
		}
		defer release()
		if err := ed.Create(cmd.Context(), args[0], t); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%d elements)\n", args[0], t.Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().Bool("empty", false, "Start with only a root line")
	newCmd.Flags().String("text", "", "Root text of an empty tree")
}
