package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/monorkin/iot-inventory/internal/config"
	"github.com/monorkin/iot-inventory/internal/database"
	"github.com/monorkin/iot-inventory/internal/globals"
)

var rollbackTo uint64

var databaseCmd = &cobra.Command{
	Use:     "database",
	Aliases: []string{"db"},
	Short:   "Inspect and maintain the SQLite database",
}

var databaseVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	Args:  cobra.NoArgs,
	Run:   runDatabaseVersion,
}

var databaseRollbackCmd = &cobra.Command{
	Use:   "rollback --to <version>",
	Short: "Revert schema migrations",
	Long: `Revert every applied schema migration newer than --to, newest first.

The next command re-applies pending migrations, so rolling back to 0 erases
the whole inventory.`,
	Args: cobra.NoArgs,
	Run:  runDatabaseRollback,
}

func requireDatabase() {
	if globals.Settings.Storage != config.StorageSQLite || database.DB == nil {
		exitWithError("Database unavailable", errors.New("storage is not sqlite"))
	}
}

func runDatabaseVersion(cmd *cobra.Command, args []string) {
	requireDatabase()

	version, err := database.CurrentSchemaVersion(database.DB)
	if err != nil {
		exitWithError("Failed to read schema version", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d\n", version)
}

func runDatabaseRollback(cmd *cobra.Command, args []string) {
	requireDatabase()

	target := database.SchemaVersion(rollbackTo)
	globals.Logger.Debug("Rolling back schema", "path", config.DBPath(), "target", target)

	if err := database.Rollback(database.DB, target); err != nil {
		exitWithError("Failed to roll back database", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Schema rolled back to version %d.\n", target)
}

func init() {
	rootCmd.AddCommand(databaseCmd)

	databaseRollbackCmd.Flags().Uint64Var(&rollbackTo, "to", 0, "Schema version to keep")
	databaseRollbackCmd.MarkFlagRequired("to")

	databaseCmd.AddCommand(databaseVersionCmd)
	databaseCmd.AddCommand(databaseRollbackCmd)
}
