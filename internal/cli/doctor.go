package cli

import (
	"github.com/spf13/cobra"

	"github.com/monorkin/iot-inventory/internal/globals"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the inventory for inconsistencies",
	Long: `Audit the stored records: every asset has at most one open checkout, loan
flags and phone holders agree with the open checkouts and no checkout was
returned before it was taken. Exits with status 3 when problems are found.`,
	Args: cobra.NoArgs,
	Run:  runDoctor,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show inventory and loan counts",
	Args:  cobra.NoArgs,
	Run:   runSummary,
}

func runDoctor(cmd *cobra.Command, args []string) {
	discrepancies, err := globals.Ledger.Verify(cmd.Context())
	if err != nil {
		exitWithError("Failed to verify inventory", err)
	}

	if err := writeDiscrepancies(cmd.OutOrStdout(), outputFormat, discrepancies); err != nil {
		exitWithError("Failed to print report", err)
	}

	if len(discrepancies) > 0 {
		globals.Logger.Warn("Inventory is inconsistent", "problems", len(discrepancies))
		exit(3)
	}
}

func runSummary(cmd *cobra.Command, args []string) {
	summary, err := globals.Queries.Summary(cmd.Context())
	if err != nil {
		exitWithError("Failed to build summary", err)
	}

	if err := writeSummary(cmd.OutOrStdout(), outputFormat, summary); err != nil {
		exitWithError("Failed to print summary", err)
	}
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(summaryCmd)
}
