// Package ledger implements the checkout state machine on top of a store.
//
// Each device and each phone is either available or on loan. CheckOutDevice
// moves one device and one phone onto loan together and records a CheckOut;
// CheckInDevice closes that record and makes both available again. The
// IsCheckedOut flags on devices and phones (and Phone.CheckedOutBy) are a
// cached projection of the open checkouts and are written only here.
//
// Every command runs inside a single store Update and checks all of its
// preconditions before the first write, so a failed command changes nothing.
package ledger

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/monorkin/iot-inventory/internal/models"
	"github.com/monorkin/iot-inventory/internal/store"
)

type Ledger struct {
	store  store.Store
	now    func() time.Time
	logger *slog.Logger
}

func New(s store.Store) *Ledger {
	return NewWithLogger(s, nil)
}

func NewWithLogger(s store.Store, logger *slog.Logger) *Ledger {
	return &Ledger{
		store:  s,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

func (l *Ledger) log(level slog.Level, msg string, args ...any) {
	if l.logger != nil {
		l.logger.Log(context.Background(), level, msg, args...)
	}
}

// CheckOutDevice loans the device together with the phone to userName.
//
// It fails with a *models.NotFoundError when either id is unknown, a
// *models.ConflictError when either asset is already on loan and a
// *models.ValidationError when userName is blank, in that order.
func (l *Ledger) CheckOutDevice(ctx context.Context, phoneID, deviceID uint, userName, purpose string) (models.CheckOut, error) {
	var created models.CheckOut

	err := l.store.Update(ctx, func(tx store.Tx) error {
		phone, err := tx.Phones().GetByID(ctx, phoneID)
		if err != nil {
			return err
		}

		device, err := tx.Devices().GetByID(ctx, deviceID)
		if err != nil {
			return err
		}

		if !models.DeviceAvailable(&device) {
			return &models.ConflictError{Kind: models.KindDevice, ID: deviceID, Reason: "is already checked out"}
		}
		if !models.PhoneAvailable(&phone) {
			return &models.ConflictError{Kind: models.KindPhone, ID: phoneID, Reason: "is already checked out"}
		}

		userName = strings.TrimSpace(userName)
		if userName == "" {
			return &models.ValidationError{Field: "user name", Reason: "must not be empty"}
		}

		checkOut := models.CheckOut{
			PhoneID:      phoneID,
			DeviceID:     deviceID,
			CheckedOutBy: userName,
			CheckOutDate: l.now(),
			Purpose:      strings.TrimSpace(purpose),
		}
		if _, err := tx.CheckOuts().Add(ctx, &checkOut); err != nil {
			return err
		}

		device.IsCheckedOut = true
		if err := tx.Devices().Update(ctx, device); err != nil {
			return err
		}

		holder := userName
		phone.IsCheckedOut = true
		phone.CheckedOutBy = &holder
		if err := tx.Phones().Update(ctx, phone); err != nil {
			return err
		}

		created = checkOut
		return nil
	})
	if err != nil {
		return models.CheckOut{}, err
	}

	l.log(slog.LevelDebug, "Checked out device",
		"checkout_id", created.ID,
		"device_id", deviceID,
		"phone_id", phoneID,
		"user", created.CheckedOutBy,
	)

	return created, nil
}

// CheckInDevice closes an open checkout and returns its device and phone to
// the available pool. Checking in a closed record is a *models.ConflictError.
func (l *Ledger) CheckInDevice(ctx context.Context, checkOutID uint) error {
	var closed models.CheckOut

	err := l.store.Update(ctx, func(tx store.Tx) error {
		checkOut, err := tx.CheckOuts().GetByID(ctx, checkOutID)
		if err != nil {
			return err
		}

		if !checkOut.IsOpen() {
			return &models.ConflictError{Kind: models.KindCheckOut, ID: checkOutID, Reason: "is already checked in"}
		}

		device, err := tx.Devices().GetByID(ctx, checkOut.DeviceID)
		if err != nil {
			return err
		}

		phone, err := tx.Phones().GetByID(ctx, checkOut.PhoneID)
		if err != nil {
			return err
		}

		checkInDate := l.now()
		if checkInDate.Before(checkOut.CheckOutDate) {
			checkInDate = checkOut.CheckOutDate
		}
		checkOut.CheckInDate = &checkInDate
		if err := tx.CheckOuts().Update(ctx, checkOut); err != nil {
			return err
		}

		device.IsCheckedOut = false
		if err := tx.Devices().Update(ctx, device); err != nil {
			return err
		}

		phone.IsCheckedOut = false
		phone.CheckedOutBy = nil
		if err := tx.Phones().Update(ctx, phone); err != nil {
			return err
		}

		closed = checkOut
		return nil
	})
	if err != nil {
		return err
	}

	l.log(slog.LevelDebug, "Checked in device",
		"checkout_id", closed.ID,
		"device_id", closed.DeviceID,
		"phone_id", closed.PhoneID,
	)

	return nil
}
