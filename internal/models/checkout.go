package models

import (
	"strings"
	"time"
)

const PurposeDataGeneration = "Data Generation"

// CheckOut is a single loan of a device together with the phone used with it.
// Once checked in the record is never modified again.
type CheckOut struct {
	ID           uint `gorm:"primarykey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	PhoneID      uint      `gorm:"not null;index"`
	DeviceID     uint      `gorm:"not null;index"`
	CheckedOutBy string    `gorm:"not null"`
	CheckOutDate time.Time `gorm:"not null"`
	CheckInDate  *time.Time
	Purpose      string
}

func (CheckOut) TableName() string { return "checkouts" }

func (checkOut *CheckOut) Kind() Kind { return KindCheckOut }

func (checkOut *CheckOut) PrimaryKey() uint { return checkOut.ID }

func (checkOut *CheckOut) SetPrimaryKey(id uint) { checkOut.ID = id }

func (checkOut *CheckOut) IsOpen() bool {
	return checkOut.CheckInDate == nil
}

// Clone returns a copy that shares no memory with checkOut.
func (checkOut CheckOut) Clone() CheckOut {
	checkOut.CheckInDate = cloneTime(checkOut.CheckInDate)
	return checkOut
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	copied := *t
	return &copied
}

// References reports whether the checkout loans the asset of the given kind.
func (checkOut *CheckOut) References(kind Kind, id uint) bool {
	switch kind {
	case KindDevice:
		return checkOut.DeviceID == id
	case KindPhone:
		return checkOut.PhoneID == id
	default:
		return false
	}
}

func (checkOut *CheckOut) Validate() error {
	switch {
	case strings.TrimSpace(checkOut.CheckedOutBy) == "":
		return &ValidationError{Kind: KindCheckOut, Field: "checked out by", Reason: "must not be empty"}
	case checkOut.PhoneID == 0:
		return &ValidationError{Kind: KindCheckOut, Field: "phone id", Reason: "must be set"}
	case checkOut.DeviceID == 0:
		return &ValidationError{Kind: KindCheckOut, Field: "device id", Reason: "must be set"}
	case checkOut.CheckInDate != nil && checkOut.CheckInDate.Before(checkOut.CheckOutDate):
		return &ValidationError{Kind: KindCheckOut, Field: "check in date", Reason: "precedes check out date"}
	}

	return nil
}
