package main

import (
	"fmt"
	"strconv"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var addCmd = &cobra.Command{
	Use:   "add <name> <parent-id> <line|choice>",
	Short: "Append a node",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, err := domain.ParseNodeType(args[2])
		if err != nil {
			return err
		}
		return editTree(cmd, args[0], func(s *arbor.Session) error {
			parent, err := element(s, args[1])
			if err != nil {
				return err
			}
			h, err := s.Tree.AddNode(parent, typ)
			if err != nil {
				return err
			}
			if err := applyData(cmd.Flags(), s.Tree, h); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added #%d\n", idOf(s, h))
			return nil
		})
	},
}

var setCmd = &cobra.Command{
	Use:   "set <name> <id>",
	Short: "Edit the content of a node",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editTree(cmd, args[0], func(s *arbor.Session) error {
			h, err := element(s, args[1])
			if err != nil {
				return err
			}
			if s.Tree.IsLink(h) {
				return domain.Violation("set", "#%s is a link, edit its original", args[1])
			}
			return applyData(cmd.Flags(), s.Tree, h)
		})
	},
}

var linkCmd = &cobra.Command{
	Use:   "link <name> <parent-id> <target-id>",
	Short: "Append a link to an existing node",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editTree(cmd, args[0], func(s *arbor.Session) error {
			parent, err := element(s, args[1])
			if err != nil {
				return err
			}
			target, err := element(s, args[2])
			if err != nil {
				return err
			}
			h, err := s.Tree.AddLink(parent, target)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Linked #%d\n", idOf(s, h))
			return nil
		})
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <name> <id> <parent-id>",
	Short: "Move an element under another node",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editTree(cmd, args[0], func(s *arbor.Session) error {
			h, err := element(s, args[1])
			if err != nil {
				return err
			}
			parent, err := element(s, args[2])
			if err != nil {
				return err
			}
			if err := s.Tree.Move(h, parent); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved to #%d\n", idOf(s, h))
			return nil
		})
	},
}

var reorderCmd = &cobra.Command{
	Use:   "reorder <name> <id> <delta>",
	Short: "Shift an element among its siblings (-1 up, +1 down)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		delta, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid delta %q", args[2])
		}
		return editTree(cmd, args[0], func(s *arbor.Session) error {
			h, err := element(s, args[1])
			if err != nil {
				return err
			}
			return s.Tree.ChangePosition(h, delta)
		})
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <name> <id>",
	Short: "Remove an element, its subtree and every link into it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editTree(cmd, args[0], func(s *arbor.Session) error {
			h, err := element(s, args[1])
			if err != nil {
				return err
			}
			before := s.Tree.Len()
			if err := s.Tree.Remove(h); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d elements\n", before-s.Tree.Len())
			return nil
		})
	},
}

var copyCmd = &cobra.Command{
	Use:   "copy <name> <id> <parent-id>",
	Short: "Deep copy a node under another node",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editTree(cmd, args[0], func(s *arbor.Session) error {
			h, err := element(s, args[1])
			if err != nil {
				return err
			}
			parent, err := element(s, args[2])
			if err != nil {
				return err
			}
			if err := s.Copy(h); err != nil {
				return err
			}
			dup, err := s.PasteCopy(parent)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Copied to #%d\n", idOf(s, dup))
			return nil
		})
	},
}

// applyData sets the content fields whose flags were given.
func applyData(flags *pflag.FlagSet, t *tree.Tree, h tree.Handle) error {
	d, err := t.Data(h)
	if err != nil {
		return err
	}
	if d == nil {
		return domain.Violation("set", "node %s has no content", h)
	}
	updated := d.Clone()

	if flags.Changed("text") {
		updated.Text, _ = flags.GetString("text")
	}
	if flags.Changed("speaker") {
		updated.Speaker, _ = flags.GetString("speaker")
	}
	if flags.Changed("notes") {
		updated.Notes, _ = flags.GetString("notes")
	}
	if flags.Changed("if") {
		expr, _ := flags.GetString("if")
		updated.Condition = &domain.Condition{Expression: expr}
	}
	if flags.Changed("do") {
		name, _ := flags.GetString("do")
		pairs, _ := flags.GetStringSlice("arg")
		if name == "" {
			updated.Action = nil
		} else {
			args, err := cli.ParseState(pairs)
			if err != nil {
				return err
			}
			updated.Action = &domain.Action{Name: name}
			if len(args) > 0 {
				updated.Action.Args = args
			}
		}
	}
	return t.SetData(h, updated)
}

func addDataFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("text", "", "Text of the node")
	f.String("speaker", "", "Speaker of the line")
	f.String("notes", "", "Author notes")
	f.String("if", "", "Condition, e.g. 'gold >= 5 AND NOT banned'")
	f.String("do", "", "Action name; empty removes the action")
	f.StringSlice("arg", nil, "Action argument as key=value (repeatable)")
}

func init() {
	for _, c := range []*cobra.Command{addCmd, setCmd} {
		addDataFlags(c)
	}
	rootCmd.AddCommand(addCmd, setCmd, linkCmd, moveCmd, reorderCmd, removeCmd, copyCmd)
}
