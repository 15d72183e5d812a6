package ledger

import (
	"context"
	"fmt"

	"github.com/monorkin/iot-inventory/internal/models"
	"github.com/monorkin/iot-inventory/internal/store"
)

// Discrepancy is one broken ledger invariant found by Verify.
type Discrepancy struct {
	Kind    models.Kind `json:"kind" yaml:"kind"`
	ID      uint        `json:"id" yaml:"id"`
	Problem string      `json:"problem" yaml:"problem"`
}

func (d Discrepancy) String() string {
	return fmt.Sprintf("%s %d: %s", d.Kind, d.ID, d.Problem)
}

// Verify audits one snapshot of the store against the ledger invariants:
// at most one open checkout per asset, loan flags matching the open
// checkouts, the phone holder matching the borrower and check-in dates not
// preceding check-out dates. A healthy ledger yields no discrepancies.
func (l *Ledger) Verify(ctx context.Context) ([]Discrepancy, error) {
	var found []Discrepancy
	report := func(kind models.Kind, id uint, format string, args ...any) {
		found = append(found, Discrepancy{Kind: kind, ID: id, Problem: fmt.Sprintf(format, args...)})
	}

	err := l.store.View(ctx, func(tx store.Tx) error {
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

		openByDevice := make(map[uint]models.CheckOut)
		openByPhone := make(map[uint]models.CheckOut)
		for _, checkOut := range checkOuts {
			if !checkOut.IsOpen() {
				if checkOut.CheckInDate.Before(checkOut.CheckOutDate) {
					report(models.KindCheckOut, checkOut.ID, "checked in before it was checked out")
				}
				continue
			}

			if other, ok := openByDevice[checkOut.DeviceID]; ok {
				report(models.KindDevice, checkOut.DeviceID, "has open checkouts %d and %d", other.ID, checkOut.ID)
			}
			openByDevice[checkOut.DeviceID] = checkOut

			if other, ok := openByPhone[checkOut.PhoneID]; ok {
				report(models.KindPhone, checkOut.PhoneID, "has open checkouts %d and %d", other.ID, checkOut.ID)
			}
			openByPhone[checkOut.PhoneID] = checkOut
		}

		for _, device := range devices {
			_, open := openByDevice[device.ID]
			if device.IsCheckedOut != open {
				report(models.KindDevice, device.ID, "flagged checked out=%t but open checkout=%t", device.IsCheckedOut, open)
			}
		}

		for _, phone := range phones {
			checkOut, open := openByPhone[phone.ID]
			if phone.IsCheckedOut != open {
				report(models.KindPhone, phone.ID, "flagged checked out=%t but open checkout=%t", phone.IsCheckedOut, open)
			}
			if open && phone.Holder() != checkOut.CheckedOutBy {
				report(models.KindPhone, phone.ID, "holder %q does not match borrower %q", phone.Holder(), checkOut.CheckedOutBy)
			}
			if !open && phone.CheckedOutBy != nil {
				report(models.KindPhone, phone.ID, "holder %q set without an open checkout", phone.Holder())
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return found, nil
}
