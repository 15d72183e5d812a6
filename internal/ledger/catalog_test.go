package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/monorkin/iot-inventory/internal/models"
	"gorm.io/gorm"
)

func TestEditDevicePreservesLoanState(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		f.seed(t)
		ctx := context.Background()

		if _, err := f.ledger.CheckOutDevice(ctx, 1, 1, "alice", ""); err != nil {
			t.Fatalf("CheckOutDevice() error: %v", err)
		}

		edit := models.Device{Model: gorm.Model{ID: 1}, Name: "Hallway Thermostat", Type: "Sensor", IsCheckedOut: false}
		if err := f.ledger.EditDevice(ctx, edit); err != nil {
			t.Fatalf("EditDevice() error: %v", err)
		}

		device := f.device(t, 1)
		if device.Name != "Hallway Thermostat" {
			t.Errorf("Name = %q", device.Name)
		}
		if !device.IsCheckedOut {
			t.Error("edit cleared the loan flag")
		}
		f.assertConsistent(t)
	})
}

func TestEditPhonePreservesHolder(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		f.seed(t)
		ctx := context.Background()

		if _, err := f.ledger.CheckOutDevice(ctx, 1, 1, "alice", ""); err != nil {
			t.Fatalf("CheckOutDevice() error: %v", err)
		}

		if err := f.ledger.EditPhone(ctx, models.Phone{ID: 1, Name: "Pixel 7 (lab)", Model: "Pixel 7", OperatingSystem: "Android 14"}); err != nil {
			t.Fatalf("EditPhone() error: %v", err)
		}

		phone := f.phone(t, 1)
		if phone.OperatingSystem != "Android 14" {
			t.Errorf("OperatingSystem = %q", phone.OperatingSystem)
		}
		if !phone.IsCheckedOut || phone.Holder() != "alice" {
			t.Errorf("edit changed loan state: %+v", phone)
		}
		f.assertConsistent(t)
	})
}

func TestEditUnknownAndInvalid(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		f.seed(t)
		ctx := context.Background()

		if err := f.ledger.EditPhone(ctx, models.Phone{ID: 42, Name: "Ghost"}); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("EditPhone(unknown) error = %v, want ErrNotFound", err)
		}
		if err := f.ledger.EditDevice(ctx, models.Device{Model: gorm.Model{ID: 1}}); !errors.Is(err, models.ErrValidation) {
			t.Errorf("EditDevice(blank name) error = %v, want ErrValidation", err)
		}
	})
}

func TestRecordDataGeneration(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		f.seed(t)
		ctx := context.Background()
		at := time.Date(2025, 6, 1, 9, 30, 0, 0, time.FixedZone("CEST", 2*60*60))

		if err := f.ledger.RecordDataGeneration(ctx, 1, at); err != nil {
			t.Fatalf("RecordDataGeneration() error: %v", err)
		}

		device := f.device(t, 1)
		if device.LastDataGenDate == nil || !device.LastDataGenDate.Equal(at) {
			t.Errorf("LastDataGenDate = %v, want %v", device.LastDataGenDate, at)
		}
		if device.IsCheckedOut {
			t.Error("recording data generation flipped the loan flag")
		}

		if err := f.ledger.RecordDataGeneration(ctx, 99, at); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("RecordDataGeneration(unknown) error = %v, want ErrNotFound", err)
		}
	})
}

func TestRemoveAssets(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		f.seed(t)
		ctx := context.Background()

		checkOut, err := f.ledger.CheckOutDevice(ctx, 1, 1, "alice", "")
		if err != nil {
			t.Fatalf("CheckOutDevice() error: %v", err)
		}

		if err := f.ledger.RemoveDevice(ctx, 1); !errors.Is(err, models.ErrConflict) {
			t.Errorf("RemoveDevice(on loan) error = %v, want ErrConflict", err)
		}
		if err := f.ledger.RemovePhone(ctx, 1); !errors.Is(err, models.ErrConflict) {
			t.Errorf("RemovePhone(on loan) error = %v, want ErrConflict", err)
		}

		if err := f.ledger.CheckInDevice(ctx, checkOut.ID); err != nil {
			t.Fatalf("CheckInDevice() error: %v", err)
		}

		if err := f.ledger.RemoveDevice(ctx, 1); err != nil {
			t.Errorf("RemoveDevice() error: %v", err)
		}
		if err := f.ledger.RemovePhone(ctx, 1); err != nil {
			t.Errorf("RemovePhone() error: %v", err)
		}
		if err := f.ledger.RemovePhone(ctx, 1); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("second RemovePhone() error = %v, want ErrNotFound", err)
		}

		devices, err := f.queries.GetAllDevices(ctx)
		if err != nil {
			t.Fatalf("GetAllDevices() error: %v", err)
		}
		if len(devices) != 0 {
			t.Errorf("GetAllDevices() = %+v, want empty", devices)
		}

		checkOuts, err := f.queries.GetAllCheckOuts(ctx)
		if err != nil {
			t.Fatalf("GetAllCheckOuts() error: %v", err)
		}
		if len(checkOuts) != 1 {
			t.Errorf("history lost on removal: %d checkouts", len(checkOuts))
		}

		id, err := f.ledger.AddDevice(ctx, models.Device{Name: "Replacement"})
		if err != nil {
			t.Fatalf("AddDevice() error: %v", err)
		}
		if id != 2 {
			t.Errorf("AddDevice() after removal id = %d, want 2", id)
		}
	})
}
