package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/monorkin/iot-inventory/internal/models"
)

// SQLStore persists through gorm. Writers are serialised in-process and each
// Update runs in a single database transaction; the schema's partial unique
// indexes back up the one-open-loan-per-asset rule.
type SQLStore struct {
	db *gorm.DB
	mu sync.RWMutex
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) View(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&sqlTx{db: db, readOnly: true})
	})
}

func (s *SQLStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&sqlTx{db: db})
	})
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

type sqlTx struct {
	db       *gorm.DB
	readOnly bool
}

func (tx *sqlTx) Devices() AssetRepository[models.Device] {
	return sqlAssetRepository[models.Device, *models.Device]{
		sqlRepository: sqlRepository[models.Device, *models.Device]{tx: tx},
		column:        "device_id",
	}
}

func (tx *sqlTx) Phones() AssetRepository[models.Phone] {
	return sqlAssetRepository[models.Phone, *models.Phone]{
		sqlRepository: sqlRepository[models.Phone, *models.Phone]{tx: tx},
		column:        "phone_id",
	}
}

func (tx *sqlTx) CheckOuts() Repository[models.CheckOut] {
	return sqlRepository[models.CheckOut, *models.CheckOut]{tx: tx}
}

type sqlRepository[T any, PT record[T]] struct {
	tx *sqlTx
}

func (r sqlRepository[T, PT]) Add(ctx context.Context, entity *T) (uint, error) {
	if r.tx.readOnly {
		return 0, ErrReadOnly
	}

	if err := PT(entity).Validate(); err != nil {
		return 0, err
	}

	PT(entity).SetPrimaryKey(0)
	if err := r.tx.db.WithContext(ctx).Create(entity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, &models.ConflictError{Kind: kindOf[T, PT](), Reason: "violates a uniqueness rule"}
		}
		return 0, fmt.Errorf("failed to insert %s: %w", kindOf[T, PT](), err)
	}

	return PT(entity).PrimaryKey(), nil
}

func (r sqlRepository[T, PT]) GetByID(ctx context.Context, id uint) (T, error) {
	var entity T

	err := r.tx.db.WithContext(ctx).First(&entity, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity, &models.NotFoundError{Kind: kindOf[T, PT](), ID: id}
	}
	if err != nil {
		return entity, fmt.Errorf("failed to fetch %s %d: %w", kindOf[T, PT](), id, err)
	}

	return entity, nil
}

func (r sqlRepository[T, PT]) GetAll(ctx context.Context) ([]T, error) {
	entities := []T{}

	if err := r.tx.db.WithContext(ctx).Order("id").Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("failed to list %ss: %w", kindOf[T, PT](), err)
	}

	return entities, nil
}

func (r sqlRepository[T, PT]) Update(ctx context.Context, entity T) error {
	if r.tx.readOnly {
		return ErrReadOnly
	}

	id := PT(&entity).PrimaryKey()
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}

	if err := PT(&entity).Validate(); err != nil {
		return err
	}

	if err := r.tx.db.WithContext(ctx).Save(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return &models.ConflictError{Kind: kindOf[T, PT](), ID: id, Reason: "violates a uniqueness rule"}
		}
		return fmt.Errorf("failed to update %s %d: %w", kindOf[T, PT](), id, err)
	}

	return nil
}

type sqlAssetRepository[T any, PT record[T]] struct {
	sqlRepository[T, PT]
	column string
}

func (r sqlAssetRepository[T, PT]) Delete(ctx context.Context, id uint) error {
	if r.tx.readOnly {
		return ErrReadOnly
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}

	var open int64
	err := r.tx.db.WithContext(ctx).
		Model(&models.CheckOut{}).
		Where(map[string]any{r.column: id}).
		Where("check_in_date IS NULL").
		Count(&open).
		Error
	if err != nil {
		return fmt.Errorf("failed to count open checkouts: %w", err)
	}

	kind := kindOf[T, PT]()
	if open > 0 {
		return openCheckOutConflict(kind, id)
	}

	if err := r.tx.db.WithContext(ctx).Delete(new(T), id).Error; err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", kind, id, err)
	}

	return nil
}
