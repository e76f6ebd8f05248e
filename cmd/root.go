package cmd

import (
	"fmt"
	"os"

	"github.com/rskv-p/nested/cmd/cmd_tree"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "nested",
	Short:         "Nested-set tree maintenance",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default $NESTED_CONFIG or ./nested.config.json)")
	cmd_tree.Register(rootCmd)
}
