package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/monorkin/iot-inventory/internal/ledger"
	"github.com/monorkin/iot-inventory/internal/models"
)

const (
	dbusName      = "io.stanko.IoTInventory"
	dbusPath      = "/io/stanko/IoTInventory"
	dbusInterface = "io.stanko.IoTInventory"

	errorValidation = dbusInterface + ".Error.Validation"
	errorNotFound   = dbusInterface + ".Error.NotFound"
	errorConflict   = dbusInterface + ".Error.Conflict"
	errorFailed     = dbusInterface + ".Error.Failed"
)

// DBusService exposes the ledger on the session bus. Only methods returning
// *dbus.Error are callable remotely.
type DBusService struct {
	app  *App
	conn *dbus.Conn
}

// NewDBusService creates a new DBUS service for the app
func NewDBusService(app *App) (*DBusService, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	service := &DBusService{
		app:  app,
		conn: conn,
	}

	err = conn.Export(service, dbus.ObjectPath(dbusPath), dbusInterface)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to export service: %w", err)
	}

	err = conn.Export(introspect.NewIntrospectable(introspectionNode()), dbus.ObjectPath(dbusPath), "org.freedesktop.DBus.Introspectable")
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to export introspection: %w", err)
	}

	reply, err := conn.RequestName(dbusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to request bus name: %w", err)
	}

	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, fmt.Errorf("name already taken")
	}

	return service, nil
}

func introspectionNode() *introspect.Node {
	return &introspect.Node{
		Name: dbusPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name: dbusInterface,
				Methods: []introspect.Method{
					{
						Name: "GetSummary",
						Args: []introspect.Arg{
							{Name: "summary", Direction: "out", Type: "a{sv}"},
						},
					},
					{
						Name: "GetOpenCheckOuts",
						Args: []introspect.Arg{
							{Name: "checkouts", Direction: "out", Type: "aa{sv}"},
						},
					},
					{
						Name: "CheckOutDevice",
						Args: []introspect.Arg{
							{Name: "phone_id", Direction: "in", Type: "u"},
							{Name: "device_id", Direction: "in", Type: "u"},
							{Name: "user_name", Direction: "in", Type: "s"},
							{Name: "purpose", Direction: "in", Type: "s"},
							{Name: "checkout_id", Direction: "out", Type: "u"},
						},
					},
					{
						Name: "CheckInDevice",
						Args: []introspect.Arg{
							{Name: "checkout_id", Direction: "in", Type: "u"},
						},
					},
					{
						Name: "Quit",
					},
				},
				Signals: []introspect.Signal{
					{
						Name: "CheckOutsChanged",
						Args: []introspect.Arg{
							{Name: "summary", Type: "a{sv}"},
						},
					},
				},
			},
		},
	}
}

// GetSummary returns inventory and loan counts.
func (s *DBusService) GetSummary() (map[string]dbus.Variant, *dbus.Error) {
	summary, err := s.app.queries.Summary(context.Background())
	if err != nil {
		return nil, dbusError(err)
	}

	return summaryVariant(summary), nil
}

// GetOpenCheckOuts returns every loan that has not been checked in.
func (s *DBusService) GetOpenCheckOuts() ([]map[string]dbus.Variant, *dbus.Error) {
	checkOuts, err := s.app.queries.GetOpenCheckOuts(context.Background())
	if err != nil {
		return nil, dbusError(err)
	}

	result := make([]map[string]dbus.Variant, 0, len(checkOuts))
	for _, checkOut := range checkOuts {
		result = append(result, checkOutVariant(checkOut))
	}

	return result, nil
}

func (s *DBusService) CheckOutDevice(phoneID, deviceID uint32, userName, purpose string) (uint32, *dbus.Error) {
	checkOut, err := s.app.ledger.CheckOutDevice(context.Background(), uint(phoneID), uint(deviceID), userName, purpose)
	if err != nil {
		return 0, dbusError(err)
	}

	s.notifyChanged()
	return uint32(checkOut.ID), nil
}

func (s *DBusService) CheckInDevice(checkOutID uint32) *dbus.Error {
	if err := s.app.ledger.CheckInDevice(context.Background(), uint(checkOutID)); err != nil {
		return dbusError(err)
	}

	s.notifyChanged()
	return nil
}

// Quit terminates the service
func (s *DBusService) Quit() *dbus.Error {
	s.app.Quit()
	return nil
}

func (s *DBusService) notifyChanged() {
	if err := s.EmitCheckOutsChanged(); err != nil {
		s.app.log(slog.LevelWarn, "Failed to emit checkout change", "error", err)
	}
}

// EmitCheckOutsChanged broadcasts the current summary. Without a bus
// connection it is a no-op.
func (s *DBusService) EmitCheckOutsChanged() error {
	if s.conn == nil {
		return nil
	}

	summary, err := s.app.queries.Summary(context.Background())
	if err != nil {
		return err
	}

	return s.conn.Emit(dbus.ObjectPath(dbusPath), dbusInterface+".CheckOutsChanged", summaryVariant(summary))
}

// StartPeriodicUpdates emits CheckOutsChanged every interval until ctx is
// done.
func (s *DBusService) StartPeriodicUpdates(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.notifyChanged()
			}
		}
	}()
}

// Close closes the DBUS connection
func (s *DBusService) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func summaryVariant(summary ledger.Summary) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"devices":         dbus.MakeVariant(uint32(summary.Devices)),
		"devices_on_loan": dbus.MakeVariant(uint32(summary.DevicesOnLoan)),
		"phones":          dbus.MakeVariant(uint32(summary.Phones)),
		"phones_on_loan":  dbus.MakeVariant(uint32(summary.PhonesOnLoan)),
		"checkouts":       dbus.MakeVariant(uint32(summary.CheckOuts)),
		"open_checkouts":  dbus.MakeVariant(uint32(summary.OpenCheckOuts)),
	}
}

func checkOutVariant(checkOut models.CheckOut) map[string]dbus.Variant {
	var checkedIn int64
	if checkOut.CheckInDate != nil {
		checkedIn = checkOut.CheckInDate.Unix()
	}

	return map[string]dbus.Variant{
		"id":             dbus.MakeVariant(uint32(checkOut.ID)),
		"phone_id":       dbus.MakeVariant(uint32(checkOut.PhoneID)),
		"device_id":      dbus.MakeVariant(uint32(checkOut.DeviceID)),
		"checked_out_by": dbus.MakeVariant(checkOut.CheckedOutBy),
		"purpose":        dbus.MakeVariant(checkOut.Purpose),
		"check_out_date": dbus.MakeVariant(checkOut.CheckOutDate.Unix()),
		"check_in_date":  dbus.MakeVariant(checkedIn),
	}
}

// dbusError maps ledger errors onto named bus errors.
func dbusError(err error) *dbus.Error {
	name := errorFailed
	switch {
	case errors.Is(err, models.ErrValidation):
		name = errorValidation
	case errors.Is(err, models.ErrNotFound):
		name = errorNotFound
	case errors.Is(err, models.ErrConflict):
		name = errorConflict
	}

	return dbus.NewError(name, []interface{}{err.Error()})
}
