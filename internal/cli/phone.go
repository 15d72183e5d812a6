package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/monorkin/iot-inventory/internal/globals"
	"github.com/monorkin/iot-inventory/internal/models"
)

var (
	phoneName            string
	phoneModel           string
	phoneOperatingSystem string
)

var phoneCmd = &cobra.Command{
	Use:     "phone",
	Aliases: []string{"p", "phones"},
	Short:   "Manage and list phones",
	Long:    `Commands for registering, editing and listing the phones devices are lent out with.`,
}

var phoneListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all known phones",
	Long:    `List all registered phones with their ID, name, model, operating system, loan state and current holder.`,
	Run:     runPhoneList,
}

var phoneAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new phone",
	Long: `Register a new phone. The phone starts out available for checkout.

Examples:
  iot-inventory phone add --name "Development Phone 1" --model "Pixel 7" --os Android`,
	Args: cobra.NoArgs,
	Run:  runPhoneAdd,
}

var phoneEditCmd = &cobra.Command{
	Use:   "edit <phone_id>",
	Short: "Change a phone's descriptive fields",
	Long:  `Change the name, model or operating system of a phone. Fields without a flag keep their value; the loan state and holder cannot be changed here.`,
	Args:  cobra.ExactArgs(1),
	Run:   runPhoneEdit,
}

var phoneRemoveCmd = &cobra.Command{
	Use:     "remove <phone_id>",
	Aliases: []string{"rm"},
	Short:   "Remove a phone",
	Long:    `Remove a phone from the inventory. A phone that is checked out cannot be removed; its checkout history is kept.`,
	Args:    cobra.ExactArgs(1),
	Run:     runPhoneRemove,
}

var phoneHistoryCmd = &cobra.Command{
	Use:   "history <phone_id>",
	Short: "Show every checkout of a phone",
	Long:  `Show every checkout of a phone, oldest first.`,
	Args:  cobra.ExactArgs(1),
	Run:   runPhoneHistory,
}

func runPhoneList(cmd *cobra.Command, args []string) {
	globals.Logger.Debug("Fetching phones")

	phones, err := globals.Queries.GetAllPhones(cmd.Context())
	if err != nil {
		exitWithError("Failed to fetch phones", err)
	}

	if err := writePhones(cmd.OutOrStdout(), outputFormat, phones); err != nil {
		exitWithError("Failed to print phones", err)
	}

	globals.Logger.Debug("Phone list completed", "count", len(phones))
}

func runPhoneAdd(cmd *cobra.Command, args []string) {
	phone := models.Phone{
		Name:            phoneName,
		Model:           phoneModel,
		OperatingSystem: phoneOperatingSystem,
	}

	id, err := globals.Ledger.AddPhone(cmd.Context(), phone)
	if err != nil {
		exitWithError("Failed to add phone", err)
	}

	printPhone(cmd, id, fmt.Sprintf("Added phone %d.", id))
}

func runPhoneEdit(cmd *cobra.Command, args []string) {
	id := mustParseID(args[0], "phone id")

	phone, err := globals.Queries.GetPhone(cmd.Context(), id)
	if err != nil {
		exitWithError("Failed to fetch phone", err)
	}

	flags := cmd.Flags()
	if flags.Changed("name") {
		phone.Name = phoneName
	}
	if flags.Changed("model") {
		phone.Model = phoneModel
	}
	if flags.Changed("os") {
		phone.OperatingSystem = phoneOperatingSystem
	}

	if err := globals.Ledger.EditPhone(cmd.Context(), phone); err != nil {
		exitWithError("Failed to edit phone", err)
	}

	printPhone(cmd, id, fmt.Sprintf("Updated phone %d.", id))
}

func runPhoneRemove(cmd *cobra.Command, args []string) {
	id := mustParseID(args[0], "phone id")

	if err := globals.Ledger.RemovePhone(cmd.Context(), id); err != nil {
		exitWithError("Failed to remove phone", err)
	}

	if err := writeRemoved(cmd.OutOrStdout(), outputFormat, models.KindPhone, id); err != nil {
		exitWithError("Failed to print result", err)
	}
}

func runPhoneHistory(cmd *cobra.Command, args []string) {
	id := mustParseID(args[0], "phone id")

	history, err := globals.Queries.PhoneHistory(cmd.Context(), id)
	if err != nil {
		exitWithError("Failed to fetch phone history", err)
	}

	if err := writeCheckOuts(cmd.OutOrStdout(), outputFormat, history); err != nil {
		exitWithError("Failed to print phone history", err)
	}
}

func printPhone(cmd *cobra.Command, id uint, message string) {
	if outputFormat == outputTable {
		fmt.Fprintln(cmd.OutOrStdout(), message)
		return
	}

	phone, err := globals.Queries.GetPhone(cmd.Context(), id)
	if err != nil {
		exitWithError("Failed to fetch phone", err)
	}
	if _, err := writeStructured(cmd.OutOrStdout(), outputFormat, newPhoneView(phone)); err != nil {
		exitWithError("Failed to print phone", err)
	}
}

func addPhoneFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&phoneName, "name", "", "Phone name")
	cmd.Flags().StringVar(&phoneModel, "model", "", "Phone model, e.g. Pixel 7")
	cmd.Flags().StringVar(&phoneOperatingSystem, "os", "", "Operating system, e.g. Android or iOS")
}

func init() {
	rootCmd.AddCommand(phoneCmd)

	addPhoneFlags(phoneAddCmd)
	phoneAddCmd.MarkFlagRequired("name")
	addPhoneFlags(phoneEditCmd)

	phoneCmd.AddCommand(phoneListCmd)
	phoneCmd.AddCommand(phoneAddCmd)
	phoneCmd.AddCommand(phoneEditCmd)
	phoneCmd.AddCommand(phoneRemoveCmd)
	phoneCmd.AddCommand(phoneHistoryCmd)
}
