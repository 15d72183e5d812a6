package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/monorkin/iot-inventory/internal/globals"
	"github.com/monorkin/iot-inventory/internal/models"
)

var (
	checkOutUser    string
	checkOutPurpose string
	listOpenOnly    bool
)

var checkOutCmd = &cobra.Command{
	Use:     "checkout",
	Aliases: []string{"c", "checkouts", "loan"},
	Short:   "Lend out and return devices",
	Long:    `Commands for checking a device out together with a phone, checking it back in and listing loans.`,
}

var checkOutOutCmd = &cobra.Command{
	Use:   "out <phone_id> <device_id>",
	Short: "Check a device out together with a phone",
	Long: `Check a device out together with a phone. Both must be available.

The borrower defaults to default_user and the purpose to default_purpose from
the settings file.

Examples:
  iot-inventory checkout out 1 1 --user alice
  iot-inventory checkout out 2 5 --user bob --purpose "Firmware testing"`,
	Args: cobra.ExactArgs(2),
	Run:  runCheckOutOut,
}

var checkOutInCmd = &cobra.Command{
	Use:   "in <checkout_id>",
	Short: "Check a device back in",
	Long:  `Close an open checkout and make its device and phone available again.`,
	Args:  cobra.ExactArgs(1),
	Run:   runCheckOutIn,
}

var checkOutHistoryCmd = &cobra.Command{
	Use:   "history <device|phone> <id>",
	Short: "Show every checkout of a device or phone",
	Long: `Show every checkout that lent out the given device or phone, oldest first.

Examples:
  iot-inventory checkout history device 1
  iot-inventory checkout history phone 2 -o json`,
	Args: cobra.ExactArgs(2),
	Run:  runCheckOutHistory,
}

var checkOutListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List checkouts",
	Long:    `List every checkout, or only the ones still open with --open.`,
	Args:    cobra.NoArgs,
	Run:     runCheckOutList,
}

func runCheckOutOut(cmd *cobra.Command, args []string) {
	phoneID := mustParseID(args[0], "phone id")
	deviceID := mustParseID(args[1], "device id")

	user := checkOutUser
	if !cmd.Flags().Changed("user") {
		user = globals.Settings.User()
	}
	purpose := checkOutPurpose
	if !cmd.Flags().Changed("purpose") {
		purpose = globals.Settings.DefaultPurpose
	}

	globals.Logger.Debug("Checking out device", "phone_id", phoneID, "device_id", deviceID, "user", user)

	checkOut, err := globals.Ledger.CheckOutDevice(cmd.Context(), phoneID, deviceID, user, purpose)
	if err != nil {
		exitWithError("Failed to check out device", err)
	}

	if outputFormat == outputTable {
		fmt.Fprintf(cmd.OutOrStdout(), "Checked out device %d with phone %d to %s (checkout %d).\n",
			checkOut.DeviceID, checkOut.PhoneID, checkOut.CheckedOutBy, checkOut.ID)
		return
	}
	if _, err := writeStructured(cmd.OutOrStdout(), outputFormat, newCheckOutView(checkOut)); err != nil {
		exitWithError("Failed to print checkout", err)
	}
}

func runCheckOutIn(cmd *cobra.Command, args []string) {
	id := mustParseID(args[0], "checkout id")

	if err := globals.Ledger.CheckInDevice(cmd.Context(), id); err != nil {
		exitWithError("Failed to check in device", err)
	}

	if outputFormat == outputTable {
		fmt.Fprintf(cmd.OutOrStdout(), "Checked in checkout %d.\n", id)
		return
	}

	checkOut, err := globals.Queries.GetCheckOut(cmd.Context(), id)
	if err != nil {
		exitWithError("Failed to fetch checkout", err)
	}
	if _, err := writeStructured(cmd.OutOrStdout(), outputFormat, newCheckOutView(checkOut)); err != nil {
		exitWithError("Failed to print checkout", err)
	}
}

func runCheckOutHistory(cmd *cobra.Command, args []string) {
	kind, err := models.ParseKind(args[0])
	if err != nil {
		exitWithError("Invalid argument", err)
	}
	id := mustParseID(args[1], string(kind)+" id")

	history, err := globals.Queries.GetHistoryFor(cmd.Context(), kind, id)
	if err != nil {
		exitWithError("Failed to fetch history", err)
	}

	if err := writeCheckOuts(cmd.OutOrStdout(), outputFormat, history); err != nil {
		exitWithError("Failed to print history", err)
	}
}

func runCheckOutList(cmd *cobra.Command, args []string) {
	list := globals.Queries.GetAllCheckOuts
	if listOpenOnly {
		list = globals.Queries.GetOpenCheckOuts
	}

	checkOuts, err := list(cmd.Context())
	if err != nil {
		exitWithError("Failed to fetch checkouts", err)
	}

	if err := writeCheckOuts(cmd.OutOrStdout(), outputFormat, checkOuts); err != nil {
		exitWithError("Failed to print checkouts", err)
	}
}

func init() {
	rootCmd.AddCommand(checkOutCmd)

	checkOutOutCmd.Flags().StringVarP(&checkOutUser, "user", "u", "", "Name of the borrower")
	checkOutOutCmd.Flags().StringVarP(&checkOutPurpose, "purpose", "p", "", "Why the device is needed")
	checkOutListCmd.Flags().BoolVar(&listOpenOnly, "open", false, "Only list checkouts that are not checked in")

	checkOutCmd.AddCommand(checkOutOutCmd)
	checkOutCmd.AddCommand(checkOutInCmd)
	checkOutCmd.AddCommand(checkOutListCmd)
	checkOutCmd.AddCommand(checkOutHistoryCmd)
}
