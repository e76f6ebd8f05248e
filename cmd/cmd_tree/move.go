package cmd_tree

import (
	"fmt"

	"github.com/rskv-p/nested/mod/m_tree/tree_core"
	"github.com/rskv-p/nested/mod/m_tree/tree_type"

	"github.com/spf13/cobra"
)

// newMoveCmd moves a node and its subtree next to or under a reference node.
func newMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <tree> <pk> <ref> [after|before|first-child|last-child]",
		Short: "Move a node relative to another",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			pk, err := parseID(args[1])
			if err != nil {
				return err
			}
			ref, err := parseID(args[2])
			if err != nil {
				return err
			}
			var pos tree_type.Position
			if len(args) == 4 {
				if pos, err = tree_type.ParsePosition(args[3]); err != nil {
					return err
				}
			}

			return withStore(cmd, args[0], func(_ *env, s *tree_core.Store) error {
				n, err := s.MoveByReference(cmd.Context(), pk, tree_type.Location{ReferenceID: ref, Position: pos})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "moved %s under %d\n", n, n.ParentID)
				return nil
			})
		},
	}
}
