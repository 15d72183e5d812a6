package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/monorkin/iot-inventory/internal/discovery"
	"github.com/monorkin/iot-inventory/internal/ledger"
	"github.com/monorkin/iot-inventory/internal/models"
)

var (
	loanStart = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	loanEnd   = loanStart.Add(2 * time.Hour)
)

func sampleCheckOuts() []models.CheckOut {
	return []models.CheckOut{
		{ID: 1, PhoneID: 1, DeviceID: 2, CheckedOutBy: "alice", CheckOutDate: loanStart, CheckInDate: &loanEnd, Purpose: "Data Generation"},
		{ID: 2, PhoneID: 1, DeviceID: 2, CheckedOutBy: "bob", CheckOutDate: loanEnd},
	}
}

func TestValidateOutputFormat(t *testing.T) {
	for _, format := range []string{outputTable, outputJSON, outputYAML} {
		if err := validateOutputFormat(format); err != nil {
			t.Errorf("validateOutputFormat(%q) error: %v", format, err)
		}
	}
	if err := validateOutputFormat("xml"); err == nil {
		t.Error("validateOutputFormat(xml) accepted")
	}
}

func TestWriteDevicesTable(t *testing.T) {
	var out bytes.Buffer
	devices := []models.Device{
		{Model: gorm.Model{ID: 1}, Name: "Smart Thermostat", Type: "Sensor", Manufacturer: "Nest", ModelNumber: "T3007ES", LastDataGenDate: &loanStart},
		{Model: gorm.Model{ID: 2}, Name: "Doorbell", IsCheckedOut: true},
	}

	if err := writeDevices(&out, outputTable, devices); err != nil {
		t.Fatalf("writeDevices() error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[0], "LAST DATA GEN") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[2], "Smart Thermostat") || !strings.Contains(lines[2], "2025-03-01T09:30:00Z") {
		t.Errorf("first row = %q", lines[2])
	}
	if !strings.Contains(lines[3], "true") || !strings.HasSuffix(strings.TrimSpace(lines[3]), "-") {
		t.Errorf("second row = %q", lines[3])
	}
}

func TestWriteEmptyTables(t *testing.T) {
	tests := []struct {
		name  string
		write func(*bytes.Buffer) error
		want  string
	}{
		{"devices", func(b *bytes.Buffer) error { return writeDevices(b, outputTable, nil) }, "No devices found."},
		{"phones", func(b *bytes.Buffer) error { return writePhones(b, outputTable, nil) }, "No phones found."},
		{"checkouts", func(b *bytes.Buffer) error { return writeCheckOuts(b, outputTable, nil) }, "No checkouts found."},
		{"discrepancies", func(b *bytes.Buffer) error { return writeDiscrepancies(b, outputTable, nil) }, "No problems found."},
		{"candidates", func(b *bytes.Buffer) error { return writeCandidates(b, outputTable, nil) }, "No devices discovered."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := tt.write(&out); err != nil {
				t.Fatalf("write error: %v", err)
			}
			if got := strings.TrimSpace(out.String()); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteCheckOutsJSON(t *testing.T) {
	var out bytes.Buffer
	if err := writeCheckOuts(&out, outputJSON, sampleCheckOuts()); err != nil {
		t.Fatalf("writeCheckOuts() error: %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if len(decoded) != 2 {
		t.Fatalf("decoded %d checkouts, want 2", len(decoded))
	}
	if decoded[0]["checked_out_by"] != "alice" || decoded[0]["check_in_date"] != "2025-03-01T11:30:00Z" {
		t.Errorf("first checkout = %v", decoded[0])
	}
	if decoded[1]["check_in_date"] != nil {
		t.Errorf("open checkout check_in_date = %v, want null", decoded[1]["check_in_date"])
	}
}

func TestWritePhonesYAML(t *testing.T) {
	holder := "alice"
	phones := []models.Phone{
		{ID: 1, Name: "Development Phone 1", Model: "Pixel 7", OperatingSystem: "Android", IsCheckedOut: true, CheckedOutBy: &holder},
	}

	var out bytes.Buffer
	if err := writePhones(&out, outputYAML, phones); err != nil {
		t.Fatalf("writePhones() error: %v", err)
	}

	var decoded []phoneView
	if err := yaml.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, out.String())
	}
	if len(decoded) != 1 || decoded[0].Model != "Pixel 7" || decoded[0].CheckedOutBy == nil || *decoded[0].CheckedOutBy != "alice" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteStructuredEmptyListIsArray(t *testing.T) {
	var out bytes.Buffer
	if err := writeDevices(&out, outputJSON, nil); err != nil {
		t.Fatalf("writeDevices() error: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "[]" {
		t.Errorf("output = %q, want []", got)
	}
}

func TestWriteSummaryAndDiscrepancies(t *testing.T) {
	var out bytes.Buffer
	summary := ledger.Summary{Devices: 3, DevicesOnLoan: 1, Phones: 2, PhonesOnLoan: 1, CheckOuts: 4, OpenCheckOuts: 1}
	if err := writeSummary(&out, outputTable, summary); err != nil {
		t.Fatalf("writeSummary() error: %v", err)
	}
	if !strings.Contains(out.String(), "(1 on loan)") || !strings.Contains(out.String(), "(1 open)") {
		t.Errorf("summary = %q", out.String())
	}

	out.Reset()
	discrepancies := []ledger.Discrepancy{{Kind: models.KindDevice, ID: 2, Problem: "is flagged checked out without an open checkout"}}
	if err := writeDiscrepancies(&out, outputTable, discrepancies); err != nil {
		t.Fatalf("writeDiscrepancies() error: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "device 2: is flagged checked out without an open checkout" {
		t.Errorf("report = %q", got)
	}
}

func TestWriteCandidates(t *testing.T) {
	var out bytes.Buffer
	candidates := []discovery.Candidate{
		{Instance: "Living Room Sensor", Service: "_http._tcp", Hostname: "sensor-1.local", IP: "192.168.1.20", Port: 80, Text: map[string]string{"mf": "Nest"}},
	}

	if err := writeCandidates(&out, outputTable, candidates); err != nil {
		t.Fatalf("writeCandidates() error: %v", err)
	}
	if !strings.Contains(out.String(), "192.168.1.20") || !strings.Contains(out.String(), "Nest") {
		t.Errorf("output = %q", out.String())
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		arg     string
		want    uint
		wantErr bool
	}{
		{"1", 1, false},
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := parseID(tt.arg, "device id")
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseID(%q) error = %v, wantErr %t", tt.arg, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, models.ErrValidation) {
				t.Errorf("parseID(%q) error = %v, want ErrValidation", tt.arg, err)
			}
			if got != tt.want {
				t.Errorf("parseID(%q) = %d, want %d", tt.arg, got, tt.want)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&models.ValidationError{Field: "name", Reason: "must not be empty"}, 2},
		{fmt.Errorf("wrapped: %w", &models.NotFoundError{Kind: models.KindPhone, ID: 9}), 2},
		{&models.ConflictError{Kind: models.KindDevice, ID: 1, Reason: "is already checked out"}, 2},
		{errors.New("disk full"), 1},
	}

	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
