package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/monorkin/iot-inventory/internal/models"
	"github.com/monorkin/iot-inventory/internal/store"
)

// AddDevice registers a new, available device and returns its id.
func (l *Ledger) AddDevice(ctx context.Context, device models.Device) (uint, error) {
	device.ID = 0
	device.IsCheckedOut = false

	var id uint
	err := l.store.Update(ctx, func(tx store.Tx) error {
		var err error
		id, err = tx.Devices().Add(ctx, &device)
		return err
	})
	if err != nil {
		return 0, err
	}

	l.log(slog.LevelDebug, "Added device", "device_id", id, "name", device.Name)
	return id, nil
}

// AddPhone registers a new, available phone and returns its id.
func (l *Ledger) AddPhone(ctx context.Context, phone models.Phone) (uint, error) {
	phone.ID = 0
	phone.IsCheckedOut = false
	phone.CheckedOutBy = nil

	var id uint
	err := l.store.Update(ctx, func(tx store.Tx) error {
		var err error
		id, err = tx.Phones().Add(ctx, &phone)
		return err
	})
	if err != nil {
		return 0, err
	}

	l.log(slog.LevelDebug, "Added phone", "phone_id", id, "name", phone.Name)
	return id, nil
}

// EditDevice replaces the descriptive fields of a stored device. Loan state
// and the data generation date are kept from the stored record.
func (l *Ledger) EditDevice(ctx context.Context, device models.Device) error {
	return l.store.Update(ctx, func(tx store.Tx) error {
		stored, err := tx.Devices().GetByID(ctx, device.ID)
		if err != nil {
			return err
		}

		stored.Name = device.Name
		stored.Type = device.Type
		stored.Manufacturer = device.Manufacturer
		stored.ModelNumber = device.ModelNumber

		return tx.Devices().Update(ctx, stored)
	})
}

// EditPhone replaces the descriptive fields of a stored phone. Loan state is
// kept from the stored record.
func (l *Ledger) EditPhone(ctx context.Context, phone models.Phone) error {
	return l.store.Update(ctx, func(tx store.Tx) error {
		stored, err := tx.Phones().GetByID(ctx, phone.ID)
		if err != nil {
			return err
		}

		stored.Name = phone.Name
		stored.Model = phone.Model
		stored.OperatingSystem = phone.OperatingSystem

		return tx.Phones().Update(ctx, stored)
	})
}

// RecordDataGeneration stamps the last time the device produced data.
func (l *Ledger) RecordDataGeneration(ctx context.Context, deviceID uint, at time.Time) error {
	at = at.UTC()

	return l.store.Update(ctx, func(tx store.Tx) error {
		device, err := tx.Devices().GetByID(ctx, deviceID)
		if err != nil {
			return err
		}

		device.LastDataGenDate = &at
		return tx.Devices().Update(ctx, device)
	})
}

// RemoveDevice retires a device. It fails with a *models.ConflictError while
// the device is on loan; its past checkouts stay in the history.
func (l *Ledger) RemoveDevice(ctx context.Context, deviceID uint) error {
	err := l.store.Update(ctx, func(tx store.Tx) error {
		return tx.Devices().Delete(ctx, deviceID)
	})
	if err != nil {
		return err
	}

	l.log(slog.LevelDebug, "Removed device", "device_id", deviceID)
	return nil
}

// RemovePhone retires a phone under the same rule as RemoveDevice.
func (l *Ledger) RemovePhone(ctx context.Context, phoneID uint) error {
	err := l.store.Update(ctx, func(tx store.Tx) error {
		return tx.Phones().Delete(ctx, phoneID)
	})
	if err != nil {
		return err
	}

	l.log(slog.LevelDebug, "Removed phone", "phone_id", phoneID)
	return nil
}
