package cmd_tree

import (
	"fmt"

	"github.com/rskv-p/nested/mod/m_tree/tree_core"

	"github.com/spf13/cobra"
)

// newRebuildCmd recomputes lft/rgt/level/path from parent links.
func newRebuildCmd() *cobra.Command {
	var opts tree_core.RebuildOptions
	cmd := &cobra.Command{
		Use:   "rebuild <tree>",
		Short: "Rebuild a tree from its parent links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, args[0], func(_ *env, s *tree_core.Store) error {
				next, err := s.Rebuild(cmd.Context(), opts)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rebuilt %s, next lft %d\n", args[0], next)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.Int64Var(&opts.ParentID, "parent", 0, "start node (default: the root)")
	f.Int64Var(&opts.LeftID, "left", 0, "lft given to the start node")
	f.Int64Var(&opts.Level, "level", 0, "level given to the start node")
	f.StringVar(&opts.Path, "path", "", "path given to the start node")
	return cmd
}
