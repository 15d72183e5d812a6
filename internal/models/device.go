package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type Device struct {
	gorm.Model
	Name            string `gorm:"not null"`
	Type            string
	Manufacturer    string
	ModelNumber     string
	IsCheckedOut    bool
	LastDataGenDate *time.Time
}

func (device *Device) Kind() Kind { return KindDevice }

func (device *Device) PrimaryKey() uint { return device.ID }

func (device *Device) SetPrimaryKey(id uint) { device.ID = id }

func (device *Device) Validate() error {
	if strings.TrimSpace(device.Name) == "" {
		return &ValidationError{Kind: KindDevice, Field: "name", Reason: "must not be empty"}
	}

	return nil
}

// IsValidForCheckout reports whether the device is a stored record that is
// currently available.
func (device *Device) IsValidForCheckout() bool {
	return device.ID != 0 && !device.IsCheckedOut
}

// Clone returns a copy that shares no memory with device.
func (device Device) Clone() Device {
	device.LastDataGenDate = cloneTime(device.LastDataGenDate)
	return device
}

// DeviceAvailable is IsValidForCheckout for a possibly absent device.
func DeviceAvailable(device *Device) bool {
	return device != nil && device.IsValidForCheckout()
}
