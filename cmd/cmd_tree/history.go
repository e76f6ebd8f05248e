package cmd_tree

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/spf13/cobra"
)

// newHistoryCmd lists the most recent journal entries.
func newHistoryCmd() *cobra.Command {
	var only string
	cmd := &cobra.Command{
		Use:   "history [n]",
		Short: "Show recent tree operations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 20
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid count %q", args[0])
				}
				n = v
			}

			e, err := open(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			if e.journal == nil {
				return fmt.Errorf("journal is disabled")
			}

			entries, err := e.journal.List(n, only)
			if err != nil {
				return err
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				BorderStyle(enumStyle).
				Headers("AT", "TABLE", "OP", "PK", "DETAIL")
			for _, x := range entries {
				t.Row(x.At.Local().Format(time.DateTime), x.Table, x.Op, strconv.FormatInt(x.PK, 10), x.Detail)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&only, "table", "", "only entries of this table")
	return cmd
}
