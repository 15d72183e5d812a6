package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/monorkin/iot-inventory/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	// Printing the version needs neither settings nor storage.
	PersistentPreRun:  func(cmd *cobra.Command, args []string) {},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "iot-inventory %s\n", version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
