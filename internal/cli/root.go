package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/monorkin/iot-inventory/internal/app"
	"github.com/monorkin/iot-inventory/internal/globals"
	"github.com/monorkin/iot-inventory/internal/models"
)

var (
	verbose      bool
	outputFormat string

	osExit = os.Exit
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "iot-inventory",
	Short: "Checkout ledger for IoT test devices and phones",
	Long: `Keeps track of which IoT device and which phone are lent out together, to whom
and why, and keeps the full history of every loan.

Without a subcommand the inventory is served on the D-Bus session bus as
io.stanko.IoTInventory so that desktop widgets can show and change loans.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := validateOutputFormat(outputFormat); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}

		if err := globals.Initialize(verbose); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := globals.Shutdown(); err != nil {
			globals.Logger.Warn("Failed to close storage", "error", err)
		}
	},
	Run: runService,
}

func runService(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service := app.NewApp(globals.Ledger, globals.Queries, globals.Settings.SummaryInterval(), globals.Logger)
	if err := service.Run(ctx); err != nil {
		exitWithError("Failed to start service", err)
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug) logging")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", outputTable, "Output format: table, json or yaml")
}

// exitWithError reports err on stderr and terminates the process. Ledger
// rule violations exit with 2, everything else with 1.
func exitWithError(action string, err error) {
	if globals.Logger != nil {
		globals.Logger.Debug(action, "error", err)
	}
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", action, err)
	exit(exitCode(err))
}

// exit closes the storage before terminating; os.Exit skips
// PersistentPostRun.
func exit(code int) {
	if err := globals.Shutdown(); err != nil && globals.Logger != nil {
		globals.Logger.Warn("Failed to close storage", "error", err)
	}
	osExit(code)
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrConflict):
		return 2
	default:
		return 1
	}
}

func parseID(arg, name string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil || id == 0 {
		return 0, &models.ValidationError{Field: name, Reason: fmt.Sprintf("%q is not a valid id", arg)}
	}
	return uint(id), nil
}

func mustParseID(arg, name string) uint {
	id, err := parseID(arg, name)
	if err != nil {
		exitWithError("Invalid argument", err)
	}
	return id
}
