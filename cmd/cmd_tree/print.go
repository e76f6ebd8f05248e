package cmd_tree

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
	"github.com/rskv-p/nested/mod/m_tree/tree_core"
	"github.com/rskv-p/nested/mod/m_tree/tree_type"

	"github.com/spf13/cobra"
)

var (
	enumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6F6F6F"))
	rootStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#78A9FF")).Bold(true)
	posStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8D8D8D"))
)

// newPrintCmd draws a subtree with its interval values.
func newPrintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "print <tree> [pk]",
		Short: "Print a tree or subtree",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, args[0], func(_ *env, s *tree_core.Store) error {
				ctx := cmd.Context()

				var pk int64
				var err error
				if len(args) == 2 {
					pk, err = parseID(args[1])
				} else {
					pk, err = s.GetRootID(ctx)
				}
				if err != nil {
					return err
				}

				nodes, err := s.GetTree(ctx, pk)
				if err != nil {
					return err
				}
				keys := make([]int64, len(nodes))
				for i, n := range nodes {
					keys[i] = n.PK
				}
				labels, err := s.Labels(ctx, keys)
				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), render(nodes, labels))
				return nil
			})
		},
	}
}

// render turns a pre-ordered subtree into a lipgloss tree.
func render(nodes []tree_type.Node, labels map[int64]string) string {
	type open struct {
		rgt int64
		t   *tree.Tree
	}
	var (
		top   *tree.Tree
		stack []open
	)
	for _, n := range nodes {
		for len(stack) > 0 && stack[len(stack)-1].rgt < n.Lft {
			stack = stack[:len(stack)-1]
		}
		label := fmt.Sprintf("%s %s", labels[n.PK], posStyle.Render(n.String()))
		t := tree.Root(label)
		if len(stack) == 0 {
			top = t
		} else {
			stack[len(stack)-1].t.Child(t)
		}
		stack = append(stack, open{rgt: n.Rgt, t: t})
	}
	if top == nil {
		return ""
	}
	return top.
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(enumStyle).
		RootStyle(rootStyle).
		String()
}
