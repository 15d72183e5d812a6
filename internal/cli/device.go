package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/monorkin/iot-inventory/internal/discovery"
	"github.com/monorkin/iot-inventory/internal/globals"
	"github.com/monorkin/iot-inventory/internal/models"
)

var (
	deviceName         string
	deviceType         string
	deviceManufacturer string
	deviceModelNumber  string

	dataGenAt string

	discoverService string
	discoverTimeout time.Duration
	discoverAdd     bool
)

// deviceCmd represents the device command
var deviceCmd = &cobra.Command{
	Use:     "device",
	Aliases: []string{"d", "devices"},
	Short:   "Manage and list devices",
	Long:    `Commands for registering, editing and listing the IoT devices that can be checked out.`,
}

// deviceListCmd represents the device list command
var deviceListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all known devices",
	Long:    `List all registered devices with their ID, name, type, manufacturer, model, loan state and last data generation date.`,
	Run:     runDeviceList,
}

var deviceAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new device",
	Long: `Register a new device. The device starts out available for checkout.

Examples:
  iot-inventory device add --name "Smart Thermostat" --type Sensor --manufacturer Nest --model T3007ES`,
	Args: cobra.NoArgs,
	Run:  runDeviceAdd,
}

var deviceEditCmd = &cobra.Command{
	Use:   "edit <device_id>",
	Short: "Change a device's descriptive fields",
	Long:  `Change the name, type, manufacturer or model of a device. Fields without a flag keep their value; the loan state cannot be changed here.`,
	Args:  cobra.ExactArgs(1),
	Run:   runDeviceEdit,
}

var deviceRemoveCmd = &cobra.Command{
	Use:     "remove <device_id>",
	Aliases: []string{"rm"},
	Short:   "Remove a device",
	Long:    `Remove a device from the inventory. A device that is checked out cannot be removed; its checkout history is kept.`,
	Args:    cobra.ExactArgs(1),
	Run:     runDeviceRemove,
}

var deviceHistoryCmd = &cobra.Command{
	Use:   "history <device_id>",
	Short: "Show every checkout of a device",
	Long:  `Show every checkout of a device, oldest first.`,
	Args:  cobra.ExactArgs(1),
	Run:   runDeviceHistory,
}

var deviceDataGenCmd = &cobra.Command{
	Use:   "datagen <device_id>",
	Short: "Record that test data was generated with a device",
	Long: `Record the date test data was last generated with a device.

Examples:
  iot-inventory device datagen 1
  iot-inventory device datagen 1 --at 2025-03-01T10:00:00Z`,
	Args: cobra.ExactArgs(1),
	Run:  runDeviceDataGen,
}

var deviceDiscoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Look for devices on the local network",
	Long: `Browse the local network over mDNS for announced devices and optionally
register every one that was found.`,
	Args: cobra.NoArgs,
	Run:  runDeviceDiscover,
}

func runDeviceList(cmd *cobra.Command, args []string) {
	globals.Logger.Debug("Fetching devices")

	devices, err := globals.Queries.GetAllDevices(cmd.Context())
	if err != nil {
		exitWithError("Failed to fetch devices", err)
	}

	if err := writeDevices(cmd.OutOrStdout(), outputFormat, devices); err != nil {
		exitWithError("Failed to print devices", err)
	}

	globals.Logger.Debug("Device list completed", "count", len(devices))
}

func runDeviceAdd(cmd *cobra.Command, args []string) {
	device := models.Device{
		Name:         deviceName,
		Type:         deviceType,
		Manufacturer: deviceManufacturer,
		ModelNumber:  deviceModelNumber,
	}

	id, err := globals.Ledger.AddDevice(cmd.Context(), device)
	if err != nil {
		exitWithError("Failed to add device", err)
	}

	printDevice(cmd, id, fmt.Sprintf("Added device %d.", id))
}

func runDeviceEdit(cmd *cobra.Command, args []string) {
	id := mustParseID(args[0], "device id")

	device, err := globals.Queries.GetDevice(cmd.Context(), id)
	if err != nil {
		exitWithError("Failed to fetch device", err)
	}

	flags := cmd.Flags()
	if flags.Changed("name") {
		device.Name = deviceName
	}
	if flags.Changed("type") {
		device.Type = deviceType
	}
	if flags.Changed("manufacturer") {
		device.Manufacturer = deviceManufacturer
	}
	if flags.Changed("model") {
		device.ModelNumber = deviceModelNumber
	}

	if err := globals.Ledger.EditDevice(cmd.Context(), device); err != nil {
		exitWithError("Failed to edit device", err)
	}

	printDevice(cmd, id, fmt.Sprintf("Updated device %d.", id))
}

func runDeviceRemove(cmd *cobra.Command, args []string) {
	id := mustParseID(args[0], "device id")

	if err := globals.Ledger.RemoveDevice(cmd.Context(), id); err != nil {
		exitWithError("Failed to remove device", err)
	}

	if err := writeRemoved(cmd.OutOrStdout(), outputFormat, models.KindDevice, id); err != nil {
		exitWithError("Failed to print result", err)
	}
}

func runDeviceHistory(cmd *cobra.Command, args []string) {
	id := mustParseID(args[0], "device id")

	history, err := globals.Queries.DeviceHistory(cmd.Context(), id)
	if err != nil {
		exitWithError("Failed to fetch device history", err)
	}

	if err := writeCheckOuts(cmd.OutOrStdout(), outputFormat, history); err != nil {
		exitWithError("Failed to print device history", err)
	}
}

func runDeviceDataGen(cmd *cobra.Command, args []string) {
	id := mustParseID(args[0], "device id")

	at := time.Now()
	if dataGenAt != "" {
		parsed, err := time.Parse(time.RFC3339, dataGenAt)
		if err != nil {
			exitWithError("Invalid --at value", &models.ValidationError{Field: "date", Reason: err.Error()})
		}
		at = parsed
	}

	if err := globals.Ledger.RecordDataGeneration(cmd.Context(), id, at); err != nil {
		exitWithError("Failed to record data generation", err)
	}

	printDevice(cmd, id, fmt.Sprintf("Recorded data generation for device %d.", id))
}

func runDeviceDiscover(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	browser := discovery.NewBrowserWithLogger(globals.Logger)
	browser.SetTimeout(discoverTimeout)

	candidates, err := browser.Discover(ctx, discoverService)
	if err != nil {
		exitWithError("Failed to discover devices", err)
	}

	if err := writeCandidates(cmd.OutOrStdout(), outputFormat, candidates); err != nil {
		exitWithError("Failed to print discovered devices", err)
	}

	if !discoverAdd {
		return
	}

	for _, candidate := range candidates {
		id, err := globals.Ledger.AddDevice(ctx, candidate.Device())
		if err != nil {
			globals.Logger.Error("Failed to add discovered device", "instance", candidate.Instance, "error", err)
			fmt.Fprintf(os.Stderr, "Error: Failed to add %s: %v\n", candidate.Instance, err)
			continue
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Added device %d (%s).\n", id, candidate.Instance)
	}
}

// printDevice reports a mutation: the stored record for structured output,
// message otherwise.
func printDevice(cmd *cobra.Command, id uint, message string) {
	if outputFormat == outputTable {
		fmt.Fprintln(cmd.OutOrStdout(), message)
		return
	}

	device, err := globals.Queries.GetDevice(cmd.Context(), id)
	if err != nil {
		exitWithError("Failed to fetch device", err)
	}
	if _, err := writeStructured(cmd.OutOrStdout(), outputFormat, newDeviceView(device)); err != nil {
		exitWithError("Failed to print device", err)
	}
}

func addDeviceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&deviceName, "name", "", "Device name")
	cmd.Flags().StringVar(&deviceType, "type", "", "Device type, e.g. Sensor or Camera")
	cmd.Flags().StringVar(&deviceManufacturer, "manufacturer", "", "Manufacturer")
	cmd.Flags().StringVar(&deviceModelNumber, "model", "", "Model number")
}

func init() {
	rootCmd.AddCommand(deviceCmd)

	addDeviceFlags(deviceAddCmd)
	deviceAddCmd.MarkFlagRequired("name")
	addDeviceFlags(deviceEditCmd)

	deviceDataGenCmd.Flags().StringVar(&dataGenAt, "at", "", "Generation time in RFC 3339 format (defaults to now)")

	deviceDiscoverCmd.Flags().StringVar(&discoverService, "service", discovery.DEFAULT_SERVICE, "DNS-SD service type to browse for")
	deviceDiscoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", discovery.DEFAULT_TIMEOUT, "How long to listen for announcements")
	deviceDiscoverCmd.Flags().BoolVar(&discoverAdd, "add", false, "Register every discovered device")

	deviceCmd.AddCommand(deviceListCmd)
	deviceCmd.AddCommand(deviceAddCmd)
	deviceCmd.AddCommand(deviceEditCmd)
	deviceCmd.AddCommand(deviceRemoveCmd)
	deviceCmd.AddCommand(deviceHistoryCmd)
	deviceCmd.AddCommand(deviceDataGenCmd)
	deviceCmd.AddCommand(deviceDiscoverCmd)
}
