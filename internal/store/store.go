// Package store holds the canonical copies of devices, phones and checkouts.
//
// Every read happens inside View and every write inside Update. A Store runs
// at most one Update at a time and Update is all-or-nothing: when the callback
// returns an error none of its writes become visible. View callbacks see a
// consistent snapshot and never observe a half-applied Update.
package store

import (
	"context"
	"errors"

	"github.com/monorkin/iot-inventory/internal/models"
)

var ErrReadOnly = errors.New("store: write inside a read-only transaction")

// Repository is the uniform contract for one entity type.
type Repository[T any] interface {
	// Add validates the entity, assigns the next unused id, stores it and
	// writes the id back into entity.
	Add(ctx context.Context, entity *T) (uint, error)

	// GetByID returns a *models.NotFoundError when no entity has the id.
	GetByID(ctx context.Context, id uint) (T, error)

	// GetAll returns every entity in insertion order. The slice is owned by
	// the caller.
	GetAll(ctx context.Context) ([]T, error)

	// Update replaces a stored entity. It returns a *models.NotFoundError when
	// the id does not exist.
	Update(ctx context.Context, entity T) error
}

// AssetRepository adds deletion for devices and phones. Deletion is logical:
// ids are never handed out again.
type AssetRepository[T any] interface {
	Repository[T]

	// Delete returns a *models.ConflictError while an open checkout references
	// the asset.
	Delete(ctx context.Context, id uint) error
}

type Tx interface {
	Devices() AssetRepository[models.Device]
	Phones() AssetRepository[models.Phone]
	CheckOuts() Repository[models.CheckOut]
}

type Store interface {
	View(ctx context.Context, fn func(tx Tx) error) error
	Update(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

type record[T any] interface {
	*T
	models.Entity
	Clone() T
}

func kindOf[T any, PT record[T]]() models.Kind {
	return PT(new(T)).Kind()
}

func openCheckOutConflict(kind models.Kind, id uint) error {
	return &models.ConflictError{Kind: kind, ID: id, Reason: "has an open checkout"}
}
