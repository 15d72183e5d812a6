package models

import "fmt"

type Kind string

const (
	KindDevice   Kind = "device"
	KindPhone    Kind = "phone"
	KindCheckOut Kind = "checkout"
)

// ParseKind accepts the asset kinds a caller may filter history by.
func ParseKind(value string) (Kind, error) {
	switch Kind(value) {
	case KindDevice, KindPhone:
		return Kind(value), nil
	default:
		return "", &ValidationError{Field: "kind", Reason: fmt.Sprintf("%q is not device or phone", value)}
	}
}

// Entity is implemented by the pointer types of every stored record.
type Entity interface {
	Kind() Kind
	PrimaryKey() uint
	SetPrimaryKey(id uint)
	Validate() error
}
