package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/rental-core/internal/domain/entity"
	"github.com/jhoicas/rental-core/internal/domain/repository"
)

// Store persistencia en memoria con la misma semántica transaccional que Postgres:
// Run trabaja sobre una copia y solo la publica si fn no falla. Las transacciones se serializan.
type Store struct {
	mu   sync.Mutex
	data *state
}

type state struct {
	stock   map[string]entity.StockLevel
	units   map[string]entity.InventoryUnit
	txs     map[string]entity.TransactionHeader
	lines   map[string]entity.TransactionLine
	returns map[string]entity.RentalReturn
}

func NewStore() *Store {
	return &Store{data: &state{
		stock:   map[string]entity.StockLevel{},
		units:   map[string]entity.InventoryUnit{},
		txs:     map[string]entity.TransactionHeader{},
		lines:   map[string]entity.TransactionLine{},
		returns: map[string]entity.RentalReturn{},
	}}
}

func (s *state) clone() *state {
	c := &state{
		stock:   make(map[string]entity.StockLevel, len(s.stock)),
		units:   make(map[string]entity.InventoryUnit, len(s.units)),
		txs:     make(map[string]entity.TransactionHeader, len(s.txs)),
		lines:   make(map[string]entity.TransactionLine, len(s.lines)),
		returns: make(map[string]entity.RentalReturn, len(s.returns)),
	}
	for k, v := range s.stock {
		c.stock[k] = v
	}
	for k, v := range s.units {
		c.units[k] = v
	}
	for k, v := range s.txs {
		c.txs[k] = v
	}
	for k, v := range s.lines {
		c.lines[k] = v
	}
	for k, v := range s.returns {
		c.returns[k] = copyReturn(&v)
	}
	return c
}

// Run ejecuta fn en una transacción; si fn devuelve error los cambios se descartan.
func (s *Store) Run(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(work.repos(nil, func() *state { return work })); err != nil {
		return err
	}
	s.data = work
	return nil
}

// Repos repositorios fuera de transacción; cada llamada toma el lock del store.
// No usar dentro de Run.
func (s *Store) Repos() repository.Tx {
	return s.data.repos(&s.mu, func() *state { return s.data })
}

func (s *state) repos(mu sync.Locker, st func() *state) repository.Tx {
	b := base{mu: mu, st: st}
	return repository.Tx{
		Stock:        &StockLevelRepo{b},
		Units:        &InventoryUnitRepo{b},
		Transactions: &TransactionRepo{b},
		Lines:        &TransactionLineRepo{b},
		Returns:      &RentalReturnRepo{b},
	}
}

type base struct {
	mu sync.Locker
	st func() *state
}

func (b base) view(fn func(s *state) error) error {
	if b.mu != nil {
		b.mu.Lock()
		defer b.mu.Unlock()
	}
	return fn(b.st())
}

func copyReturn(r *entity.RentalReturn) entity.RentalReturn {
	c := *r
	c.Lines = make([]*entity.RentalReturnLine, len(r.Lines))
	for i, l := range r.Lines {
		lc := *l
		c.Lines[i] = &lc
	}
	return c
}
