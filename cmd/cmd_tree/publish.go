package cmd_tree

import (
	"fmt"
	"strconv"

	"github.com/rskv-p/nested/mod/m_tree/tree_core"

	"github.com/spf13/cobra"
)

// newPublishCmd sets a state on nodes and their descendants.
func newPublishCmd() *cobra.Command {
	var user int64
	cmd := &cobra.Command{
		Use:   "publish <tree> <state> <pk>...",
		Short: "Set the published state of nodes (1 published, 0 unpublished, 2 archived, -2 trashed)",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid state %q", args[1])
			}
			pks := make([]int64, 0, len(args)-2)
			for _, a := range args[2:] {
				pk, err := parseID(a)
				if err != nil {
					return err
				}
				pks = append(pks, pk)
			}

			return withStore(cmd, args[0], func(_ *env, s *tree_core.Store) error {
				if err := s.Publish(cmd.Context(), pks, state, user); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "state %d set on %v\n", state, pks)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&user, "user", 0, "acting user id, checked against checked_out")
	return cmd
}
