package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/monorkin/iot-inventory/internal/discovery"
	"github.com/monorkin/iot-inventory/internal/ledger"
	"github.com/monorkin/iot-inventory/internal/models"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"

	timestampFormat = "2006-01-02T15:04:05Z07:00"
)

func validateOutputFormat(format string) error {
	switch format {
	case outputTable, outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

// writeStructured encodes v as JSON or YAML. It reports false for the table
// format, leaving the rendering to the caller.
func writeStructured(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case outputJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return true, fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return true, err
	case outputYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return true, fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return true, encoder.Close()
	default:
		return false, nil
	}
}

type deviceView struct {
	ID              uint       `json:"id" yaml:"id"`
	Name            string     `json:"name" yaml:"name"`
	Type            string     `json:"type" yaml:"type"`
	Manufacturer    string     `json:"manufacturer" yaml:"manufacturer"`
	ModelNumber     string     `json:"model_number" yaml:"model_number"`
	IsCheckedOut    bool       `json:"is_checked_out" yaml:"is_checked_out"`
	LastDataGenDate *time.Time `json:"last_data_gen_date" yaml:"last_data_gen_date"`
}

type phoneView struct {
	ID              uint    `json:"id" yaml:"id"`
	Name            string  `json:"name" yaml:"name"`
	Model           string  `json:"model" yaml:"model"`
	OperatingSystem string  `json:"operating_system" yaml:"operating_system"`
	IsCheckedOut    bool    `json:"is_checked_out" yaml:"is_checked_out"`
	CheckedOutBy    *string `json:"checked_out_by" yaml:"checked_out_by"`
}

type checkOutView struct {
	ID           uint       `json:"id" yaml:"id"`
	PhoneID      uint       `json:"phone_id" yaml:"phone_id"`
	DeviceID     uint       `json:"device_id" yaml:"device_id"`
	CheckedOutBy string     `json:"checked_out_by" yaml:"checked_out_by"`
	CheckOutDate time.Time  `json:"check_out_date" yaml:"check_out_date"`
	CheckInDate  *time.Time `json:"check_in_date" yaml:"check_in_date"`
	Purpose      string     `json:"purpose" yaml:"purpose"`
}

func newDeviceView(device models.Device) deviceView {
	return deviceView{
		ID:              device.ID,
		Name:            device.Name,
		Type:            device.Type,
		Manufacturer:    device.Manufacturer,
		ModelNumber:     device.ModelNumber,
		IsCheckedOut:    device.IsCheckedOut,
		LastDataGenDate: device.LastDataGenDate,
	}
}

func newPhoneView(phone models.Phone) phoneView {
	return phoneView{
		ID:              phone.ID,
		Name:            phone.Name,
		Model:           phone.Model,
		OperatingSystem: phone.OperatingSystem,
		IsCheckedOut:    phone.IsCheckedOut,
		CheckedOutBy:    phone.CheckedOutBy,
	}
}

func newCheckOutView(checkOut models.CheckOut) checkOutView {
	return checkOutView{
		ID:           checkOut.ID,
		PhoneID:      checkOut.PhoneID,
		DeviceID:     checkOut.DeviceID,
		CheckedOutBy: checkOut.CheckedOutBy,
		CheckOutDate: checkOut.CheckOutDate,
		CheckInDate:  checkOut.CheckInDate,
		Purpose:      checkOut.Purpose,
	}
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(timestampFormat)
}

func formatOptionalString(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

type removedView struct {
	Kind    models.Kind `json:"kind" yaml:"kind"`
	ID      uint        `json:"id" yaml:"id"`
	Removed bool        `json:"removed" yaml:"removed"`
}

func writeRemoved(w io.Writer, format string, kind models.Kind, id uint) error {
	if handled, err := writeStructured(w, format, removedView{Kind: kind, ID: id, Removed: true}); handled {
		return err
	}

	_, err := fmt.Fprintf(w, "Removed %s %d.\n", kind, id)
	return err
}

func writeDevices(w io.Writer, format string, devices []models.Device) error {
	views := make([]deviceView, 0, len(devices))
	for _, device := range devices {
		views = append(views, newDeviceView(device))
	}
	if handled, err := writeStructured(w, format, views); handled {
		return err
	}

	if len(devices) == 0 {
		_, err := fmt.Fprintln(w, "No devices found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tMANUFACTURER\tMODEL\tCHECKED OUT\tLAST DATA GEN")
	fmt.Fprintln(tw, "--\t----\t----\t------------\t-----\t-----------\t-------------")

	for _, device := range devices {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%t\t%s\n",
			device.ID,
			device.Name,
			device.Type,
			device.Manufacturer,
			device.ModelNumber,
			device.IsCheckedOut,
			formatOptionalTime(device.LastDataGenDate),
		)
	}

	return tw.Flush()
}

func writePhones(w io.Writer, format string, phones []models.Phone) error {
	views := make([]phoneView, 0, len(phones))
	for _, phone := range phones {
		views = append(views, newPhoneView(phone))
	}
	if handled, err := writeStructured(w, format, views); handled {
		return err
	}

	if len(phones) == 0 {
		_, err := fmt.Fprintln(w, "No phones found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tNAME\tMODEL\tOS\tCHECKED OUT\tHOLDER")
	fmt.Fprintln(tw, "--\t----\t-----\t--\t-----------\t------")

	for _, phone := range phones {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\t%s\n",
			phone.ID,
			phone.Name,
			phone.Model,
			phone.OperatingSystem,
			phone.IsCheckedOut,
			formatOptionalString(phone.CheckedOutBy),
		)
	}

	return tw.Flush()
}

func writeCheckOuts(w io.Writer, format string, checkOuts []models.CheckOut) error {
	views := make([]checkOutView, 0, len(checkOuts))
	for _, checkOut := range checkOuts {
		views = append(views, newCheckOutView(checkOut))
	}
	if handled, err := writeStructured(w, format, views); handled {
		return err
	}

	if len(checkOuts) == 0 {
		_, err := fmt.Fprintln(w, "No checkouts found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tPHONE\tDEVICE\tUSER\tPURPOSE\tCHECKED OUT\tCHECKED IN")
	fmt.Fprintln(tw, "--\t-----\t------\t----\t-------\t-----------\t----------")

	for _, checkOut := range checkOuts {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%s\t%s\t%s\n",
			checkOut.ID,
			checkOut.PhoneID,
			checkOut.DeviceID,
			checkOut.CheckedOutBy,
			checkOut.Purpose,
			checkOut.CheckOutDate.Format(timestampFormat),
			formatOptionalTime(checkOut.CheckInDate),
		)
	}

	return tw.Flush()
}

func writeSummary(w io.Writer, format string, summary ledger.Summary) error {
	if handled, err := writeStructured(w, format, summary); handled {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Devices:\t%d\t(%d on loan)\n", summary.Devices, summary.DevicesOnLoan)
	fmt.Fprintf(tw, "Phones:\t%d\t(%d on loan)\n", summary.Phones, summary.PhonesOnLoan)
	fmt.Fprintf(tw, "Checkouts:\t%d\t(%d open)\n", summary.CheckOuts, summary.OpenCheckOuts)

	return tw.Flush()
}

func writeDiscrepancies(w io.Writer, format string, discrepancies []ledger.Discrepancy) error {
	if discrepancies == nil {
		discrepancies = []ledger.Discrepancy{}
	}
	if handled, err := writeStructured(w, format, discrepancies); handled {
		return err
	}

	if len(discrepancies) == 0 {
		_, err := fmt.Fprintln(w, "No problems found.")
		return err
	}

	for _, discrepancy := range discrepancies {
		if _, err := fmt.Fprintln(w, discrepancy.String()); err != nil {
			return err
		}
	}
	return nil
}

func writeCandidates(w io.Writer, format string, candidates []discovery.Candidate) error {
	if candidates == nil {
		candidates = []discovery.Candidate{}
	}
	if handled, err := writeStructured(w, format, candidates); handled {
		return err
	}

	if len(candidates) == 0 {
		_, err := fmt.Fprintln(w, "No devices discovered.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "NAME\tHOST\tIP ADDRESS\tPORT\tMANUFACTURER\tMODEL")
	fmt.Fprintln(tw, "----\t----\t----------\t----\t------------\t-----")

	for _, candidate := range candidates {
		device := candidate.Device()
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			candidate.Instance,
			candidate.Hostname,
			candidate.IP,
			candidate.Port,
			device.Manufacturer,
			device.ModelNumber,
		)
	}

	return tw.Flush()
}
