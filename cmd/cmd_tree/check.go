package cmd_tree

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/rskv-p/nested/mod/m_tree/tree_core"

	"github.com/spf13/cobra"
)

var (
	okStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#42BE65")).Bold(true)
	badStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FA4D56")).Bold(true)
)

// newCheckCmd reports nested-set violations without changing anything.
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <tree>",
		Short: "Verify the nested-set structure of a tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, args[0], func(_ *env, s *tree_core.Store) error {
				v, err := s.Verify(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(v) == 0 {
					fmt.Fprintln(out, okStyle.Render("ok"), args[0])
					return nil
				}
				for _, x := range v {
					fmt.Fprintln(out, badStyle.Render("bad"), x.String())
				}
				return fmt.Errorf("%s: %d violation(s), run rebuild", args[0], len(v))
			})
		},
	}
}
