package ledger

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/monorkin/iot-inventory/internal/models"
	"github.com/monorkin/iot-inventory/internal/store"
)

// Queries is the read side of the inventory. Every method reads one
// consistent snapshot and never writes.
type Queries struct {
	store store.Store
}

func NewQueries(s store.Store) *Queries {
	return &Queries{store: s}
}

type Summary struct {
	Devices       int `json:"devices" yaml:"devices"`
	DevicesOnLoan int `json:"devices_on_loan" yaml:"devices_on_loan"`
	Phones        int `json:"phones" yaml:"phones"`
	PhonesOnLoan  int `json:"phones_on_loan" yaml:"phones_on_loan"`
	CheckOuts     int `json:"checkouts" yaml:"checkouts"`
	OpenCheckOuts int `json:"open_checkouts" yaml:"open_checkouts"`
}

func (q *Queries) GetAllDevices(ctx context.Context) ([]models.Device, error) {
	var devices []models.Device

	err := q.store.View(ctx, func(tx store.Tx) error {
		var err error
		devices, err = tx.Devices().GetAll(ctx)
		return err
	})

	return devices, err
}

func (q *Queries) GetAllPhones(ctx context.Context) ([]models.Phone, error) {
	var phones []models.Phone

	err := q.store.View(ctx, func(tx store.Tx) error {
		var err error
		phones, err = tx.Phones().GetAll(ctx)
		return err
	})

	return phones, err
}

func (q *Queries) GetDevice(ctx context.Context, id uint) (models.Device, error) {
	var device models.Device

	err := q.store.View(ctx, func(tx store.Tx) error {
		var err error
		device, err = tx.Devices().GetByID(ctx, id)
		return err
	})

	return device, err
}

func (q *Queries) GetPhone(ctx context.Context, id uint) (models.Phone, error) {
	var phone models.Phone

	err := q.store.View(ctx, func(tx store.Tx) error {
		var err error
		phone, err = tx.Phones().GetByID(ctx, id)
		return err
	})

	return phone, err
}

func (q *Queries) GetCheckOut(ctx context.Context, id uint) (models.CheckOut, error) {
	var checkOut models.CheckOut

	err := q.store.View(ctx, func(tx store.Tx) error {
		var err error
		checkOut, err = tx.CheckOuts().GetByID(ctx, id)
		return err
	})

	return checkOut, err
}

func (q *Queries) GetAllCheckOuts(ctx context.Context) ([]models.CheckOut, error) {
	var checkOuts []models.CheckOut

	err := q.store.View(ctx, func(tx store.Tx) error {
		var err error
		checkOuts, err = tx.CheckOuts().GetAll(ctx)
		return err
	})

	return checkOuts, err
}

// GetOpenCheckOuts lists the loans that have not been checked in yet.
func (q *Queries) GetOpenCheckOuts(ctx context.Context) ([]models.CheckOut, error) {
	checkOuts, err := q.GetAllCheckOuts(ctx)
	if err != nil {
		return nil, err
	}

	return slices.DeleteFunc(checkOuts, func(checkOut models.CheckOut) bool {
		return !checkOut.IsOpen()
	}), nil
}

// GetHistoryFor lists every checkout of the asset ordered by checkout date.
// An unknown asset id is a *models.NotFoundError.
func (q *Queries) GetHistoryFor(ctx context.Context, kind models.Kind, id uint) ([]models.CheckOut, error) {
	var history []models.CheckOut

	err := q.store.View(ctx, func(tx store.Tx) error {
		var err error
		switch kind {
		case models.KindDevice:
			_, err = tx.Devices().GetByID(ctx, id)
		case models.KindPhone:
			_, err = tx.Phones().GetByID(ctx, id)
		default:
			return fmt.Errorf("history is not kept for %s records", kind)
		}
		if err != nil {
			return err
		}

		checkOuts, err := tx.CheckOuts().GetAll(ctx)
		if err != nil {
			return err
		}

		for _, checkOut := range checkOuts {
			if checkOut.References(kind, id) {
				history = append(history, checkOut)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(history, func(a, b models.CheckOut) int {
		if c := a.CheckOutDate.Compare(b.CheckOutDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return history, nil
}

func (q *Queries) DeviceHistory(ctx context.Context, deviceID uint) ([]models.CheckOut, error) {
	return q.GetHistoryFor(ctx, models.KindDevice, deviceID)
}

func (q *Queries) PhoneHistory(ctx context.Context, phoneID uint) ([]models.CheckOut, error) {
	return q.GetHistoryFor(ctx, models.KindPhone, phoneID)
}

func (q *Queries) Summary(ctx context.Context) (Summary, error) {
	var summary Summary

	err := q.store.View(ctx, func(tx store.Tx) error {
		devices, err := tx.Devices().GetAll(ctx)
		if err != nil {
			return err
		}
		phones, err := tx.Phones().GetAll(ctx)
		if err != nil {
			return err
		}
		checkOuts, err := tx.CheckOuts().GetAll(ctx)
		if err != nil {
			return err
		}

		summary.Devices = len(devices)
		for _, device := range devices {
			if device.IsCheckedOut {
				summary.DevicesOnLoan++
			}
		}
		summary.Phones = len(phones)
		for _, phone := range phones {
			if phone.IsCheckedOut {
				summary.PhonesOnLoan++
			}
		}
		summary.CheckOuts = len(checkOuts)
		for _, checkOut := range checkOuts {
			if checkOut.IsOpen() {
				summary.OpenCheckOuts++
			}
		}
		return nil
	})

	return summary, err
}
