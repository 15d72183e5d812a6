package store

import (
	"context"
	"sync"

	"github.com/monorkin/iot-inventory/internal/models"
)

type table[T any, PT record[T]] struct {
	rows   map[uint]T
	order  []uint
	nextID uint
}

func newTable[T any, PT record[T]]() *table[T, PT] {
	return &table[T, PT]{rows: make(map[uint]T)}
}

func (t *table[T, PT]) clone() *table[T, PT] {
	rows := make(map[uint]T, len(t.rows))
	for id, row := range t.rows {
		rows[id] = PT(&row).Clone()
	}

	order := make([]uint, len(t.order))
	copy(order, t.order)

	return &table[T, PT]{rows: rows, order: order, nextID: t.nextID}
}

func (t *table[T, PT]) all() []T {
	rows := make([]T, 0, len(t.order))
	for _, id := range t.order {
		rows = append(rows, t.get(id))
	}
	return rows
}

// get returns a detached copy of the row; callers can never write through it
// into the table.
func (t *table[T, PT]) get(id uint) T {
	row := t.rows[id]
	return PT(&row).Clone()
}

func (t *table[T, PT]) put(id uint, entity T) {
	t.rows[id] = PT(&entity).Clone()
}

func (t *table[T, PT]) insert(entity *T) uint {
	t.nextID++
	id := t.nextID

	PT(entity).SetPrimaryKey(id)
	t.put(id, *entity)
	t.order = append(t.order, id)

	return id
}

func (t *table[T, PT]) remove(id uint) {
	delete(t.rows, id)
	for i, ordered := range t.order {
		if ordered == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

type memoryState struct {
	devices   *table[models.Device, *models.Device]
	phones    *table[models.Phone, *models.Phone]
	checkOuts *table[models.CheckOut, *models.CheckOut]
}

func newMemoryState() memoryState {
	return memoryState{
		devices:   newTable[models.Device, *models.Device](),
		phones:    newTable[models.Phone, *models.Phone](),
		checkOuts: newTable[models.CheckOut, *models.CheckOut](),
	}
}

func (state memoryState) clone() memoryState {
	return memoryState{
		devices:   state.devices.clone(),
		phones:    state.phones.clone(),
		checkOuts: state.checkOuts.clone(),
	}
}

func (state memoryState) hasOpenCheckOut(kind models.Kind, id uint) bool {
	for _, checkOut := range state.checkOuts.rows {
		if checkOut.IsOpen() && checkOut.References(kind, id) {
			return true
		}
	}
	return false
}

// MemoryStore keeps everything in process memory behind one RWMutex. Update
// works on a copy of the state and swaps it in only when the callback
// succeeds.
type MemoryStore struct {
	mu    sync.RWMutex
	state memoryState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemoryState()}
}

func (s *MemoryStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(&memoryTx{state: s.state, readOnly: true})
}

func (s *MemoryStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(&memoryTx{state: working}); err != nil {
		return err
	}

	s.state = working
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

type memoryTx struct {
	state    memoryState
	readOnly bool
}

func (tx *memoryTx) Devices() AssetRepository[models.Device] {
	return memoryAssetRepository[models.Device, *models.Device]{
		memoryRepository: memoryRepository[models.Device, *models.Device]{tx: tx, table: tx.state.devices},
	}
}

func (tx *memoryTx) Phones() AssetRepository[models.Phone] {
	return memoryAssetRepository[models.Phone, *models.Phone]{
		memoryRepository: memoryRepository[models.Phone, *models.Phone]{tx: tx, table: tx.state.phones},
	}
}

func (tx *memoryTx) CheckOuts() Repository[models.CheckOut] {
	return memoryRepository[models.CheckOut, *models.CheckOut]{tx: tx, table: tx.state.checkOuts}
}

type memoryRepository[T any, PT record[T]] struct {
	tx    *memoryTx
	table *table[T, PT]
}

func (r memoryRepository[T, PT]) Add(_ context.Context, entity *T) (uint, error) {
	if r.tx.readOnly {
		return 0, ErrReadOnly
	}

	if err := PT(entity).Validate(); err != nil {
		return 0, err
	}

	return r.table.insert(entity), nil
}

func (r memoryRepository[T, PT]) GetByID(_ context.Context, id uint) (T, error) {
	if _, ok := r.table.rows[id]; !ok {
		var zero T
		return zero, &models.NotFoundError{Kind: kindOf[T, PT](), ID: id}
	}

	return r.table.get(id), nil
}

func (r memoryRepository[T, PT]) GetAll(_ context.Context) ([]T, error) {
	return r.table.all(), nil
}

func (r memoryRepository[T, PT]) Update(_ context.Context, entity T) error {
	if r.tx.readOnly {
		return ErrReadOnly
	}

	id := PT(&entity).PrimaryKey()
	if _, ok := r.table.rows[id]; !ok {
		return &models.NotFoundError{Kind: kindOf[T, PT](), ID: id}
	}

	if err := PT(&entity).Validate(); err != nil {
		return err
	}

	r.table.put(id, entity)
	return nil
}

type memoryAssetRepository[T any, PT record[T]] struct {
	memoryRepository[T, PT]
}

func (r memoryAssetRepository[T, PT]) Delete(_ context.Context, id uint) error {
	if r.tx.readOnly {
		return ErrReadOnly
	}

	kind := kindOf[T, PT]()
	if _, ok := r.table.rows[id]; !ok {
		return &models.NotFoundError{Kind: kind, ID: id}
	}

	if r.tx.state.hasOpenCheckOut(kind, id) {
		return openCheckOutConflict(kind, id)
	}

	r.table.remove(id)
	return nil
}
