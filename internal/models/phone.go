package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Phone spells out gorm.Model's columns because its own Model field would
// collide with the embedded struct's name.
type Phone struct {
	ID              uint `gorm:"primarykey"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       gorm.DeletedAt `gorm:"index"`
	Name            string         `gorm:"not null"`
	Model           string
	OperatingSystem string
	IsCheckedOut    bool
	CheckedOutBy    *string
}

func (phone *Phone) Kind() Kind { return KindPhone }

func (phone *Phone) PrimaryKey() uint { return phone.ID }

func (phone *Phone) SetPrimaryKey(id uint) { phone.ID = id }

func (phone *Phone) Validate() error {
	if strings.TrimSpace(phone.Name) == "" {
		return &ValidationError{Kind: KindPhone, Field: "name", Reason: "must not be empty"}
	}

	return nil
}

// IsValidForCheckout reports whether the phone is a stored record that is
// currently available.
func (phone *Phone) IsValidForCheckout() bool {
	return phone.ID != 0 && !phone.IsCheckedOut
}

// Clone returns a copy that shares no memory with phone.
func (phone Phone) Clone() Phone {
	if phone.CheckedOutBy != nil {
		holder := *phone.CheckedOutBy
		phone.CheckedOutBy = &holder
	}
	return phone
}

// Holder returns the name of the current borrower, or an empty string.
func (phone *Phone) Holder() string {
	if phone.CheckedOutBy == nil {
		return ""
	}

	return *phone.CheckedOutBy
}

// PhoneAvailable is IsValidForCheckout for a possibly absent phone.
func PhoneAvailable(phone *Phone) bool {
	return phone != nil && phone.IsValidForCheckout()
}
