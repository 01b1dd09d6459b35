package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/rental-core/internal/domain"
	"github.com/jhoicas/rental-core/internal/domain/entity"
	"github.com/jhoicas/rental-core/internal/domain/repository"
)

var (
	_ repository.StockLevelRepository      = (*StockLevelRepo)(nil)
	_ repository.InventoryUnitRepository   = (*InventoryUnitRepo)(nil)
	_ repository.TransactionRepository     = (*TransactionRepo)(nil)
	_ repository.TransactionLineRepository = (*TransactionLineRepo)(nil)
	_ repository.RentalReturnRepository    = (*RentalReturnRepo)(nil)
)

type StockLevelRepo struct{ base }

func (r *StockLevelRepo) Create(_ context.Context, s *entity.StockLevel) error {
	return r.view(func(st *state) error {
		for _, e := range st.stock {
			if e.SKUID == s.SKUID && e.LocationID == s.LocationID {
				return fmt.Errorf("%w: stock level for SKU %s at %s", domain.ErrDuplicate, s.SKUID, s.LocationID)
			}
		}
		st.stock[s.ID] = *s
		return nil
	})
}

func (r *StockLevelRepo) GetByID(_ context.Context, id string) (*entity.StockLevel, error) {
	var out *entity.StockLevel
	err := r.view(func(st *state) error {
		s, ok := st.stock[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = &s
		return nil
	})
	return out, err
}

func (r *StockLevelRepo) GetForUpdate(_ context.Context, skuID, locationID string) (*entity.StockLevel, error) {
	var out *entity.StockLevel
	err := r.view(func(st *state) error {
		for _, s := range st.stock {
			if s.SKUID == skuID && s.LocationID == locationID {
				c := s
				out = &c
				return nil
			}
		}
		return fmt.Errorf("%w: stock level for SKU %s at %s", domain.ErrNotFound, skuID, locationID)
	})
	return out, err
}

func (r *StockLevelRepo) Update(_ context.Context, s *entity.StockLevel) error {
	return r.view(func(st *state) error {
		if _, ok := st.stock[s.ID]; !ok {
			return domain.ErrNotFound
		}
		st.stock[s.ID] = *s
		return nil
	})
}

func (r *StockLevelRepo) ListByLocation(_ context.Context, locationID string) ([]*entity.StockLevel, error) {
	return r.list(func(s *entity.StockLevel) bool { return s.LocationID == locationID })
}

func (r *StockLevelRepo) ListBySKU(_ context.Context, skuID string) ([]*entity.StockLevel, error) {
	out, err := r.list(func(s *entity.StockLevel) bool { return s.SKUID == skuID })
	sort.Slice(out, func(i, j int) bool { return out[i].LocationID < out[j].LocationID })
	return out, err
}

func (r *StockLevelRepo) ListNeedingReorder(_ context.Context, locationID string) ([]*entity.StockLevel, error) {
	return r.list(func(s *entity.StockLevel) bool {
		return s.LocationID == locationID && s.IsActive && s.NeedsReorder()
	})
}

func (r *StockLevelRepo) list(keep func(s *entity.StockLevel) bool) ([]*entity.StockLevel, error) {
	var out []*entity.StockLevel
	err := r.view(func(st *state) error {
		for _, s := range st.stock {
			c := s
			if keep(&c) {
				out = append(out, &c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].SKUID < out[j].SKUID })
	return out, err
}

type InventoryUnitRepo struct{ base }

func (r *InventoryUnitRepo) Create(_ context.Context, u *entity.InventoryUnit) error {
	return r.view(func(st *state) error {
		for _, e := range st.units {
			if e.InventoryCode == u.InventoryCode {
				return fmt.Errorf("%w: inventory code %s", domain.ErrDuplicate, u.InventoryCode)
			}
			if u.SerialNumber != "" && e.SerialNumber == u.SerialNumber {
				return fmt.Errorf("%w: serial number %s", domain.ErrDuplicate, u.SerialNumber)
			}
		}
		st.units[u.ID] = *u
		return nil
	})
}

func (r *InventoryUnitRepo) GetByID(_ context.Context, id string) (*entity.InventoryUnit, error) {
	var out *entity.InventoryUnit
	err := r.view(func(st *state) error {
		u, ok := st.units[id]
		if !ok {
			return fmt.Errorf("%w: inventory unit %s", domain.ErrNotFound, id)
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *InventoryUnitRepo) GetForUpdate(ctx context.Context, id string) (*entity.InventoryUnit, error) {
	return r.GetByID(ctx, id)
}

func (r *InventoryUnitRepo) GetByCode(_ context.Context, code string) (*entity.InventoryUnit, error) {
	var out *entity.InventoryUnit
	err := r.view(func(st *state) error {
		for _, u := range st.units {
			if u.InventoryCode == code {
				c := u
				out = &c
				return nil
			}
		}
		return fmt.Errorf("%w: inventory code %s", domain.ErrNotFound, code)
	})
	return out, err
}

func (r *InventoryUnitRepo) Update(_ context.Context, u *entity.InventoryUnit) error {
	return r.view(func(st *state) error {
		if _, ok := st.units[u.ID]; !ok {
			return domain.ErrNotFound
		}
		st.units[u.ID] = *u
		return nil
	})
}

func (r *InventoryUnitRepo) ListBySKU(_ context.Context, skuID, locationID string, status entity.InventoryStatus) ([]*entity.InventoryUnit, error) {
	var out []*entity.InventoryUnit
	err := r.view(func(st *state) error {
		for _, u := range st.units {
			if u.SKUID != skuID || (locationID != "" && u.LocationID != locationID) || (status != "" && u.CurrentStatus != status) {
				continue
			}
			c := u
			out = append(out, &c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].InventoryCode < out[j].InventoryCode })
	return out, err
}

type TransactionRepo struct{ base }

func (r *TransactionRepo) Create(_ context.Context, h *entity.TransactionHeader) error {
	return r.view(func(st *state) error {
		for _, e := range st.txs {
			if e.TransactionNumber == h.TransactionNumber {
				return fmt.Errorf("%w: transaction number %s", domain.ErrDuplicate, h.TransactionNumber)
			}
		}
		st.txs[h.ID] = *h
		return nil
	})
}

func (r *TransactionRepo) GetByID(_ context.Context, id string) (*entity.TransactionHeader, error) {
	var out *entity.TransactionHeader
	err := r.view(func(st *state) error {
		h, ok := st.txs[id]
		if !ok {
			return fmt.Errorf("%w: transaction %s", domain.ErrNotFound, id)
		}
		out = &h
		return nil
	})
	return out, err
}

func (r *TransactionRepo) GetForUpdate(ctx context.Context, id string) (*entity.TransactionHeader, error) {
	return r.GetByID(ctx, id)
}

func (r *TransactionRepo) GetByNumber(_ context.Context, number string) (*entity.TransactionHeader, error) {
	var out *entity.TransactionHeader
	err := r.view(func(st *state) error {
		for _, h := range st.txs {
			if h.TransactionNumber == number {
				c := h
				out = &c
				return nil
			}
		}
		return fmt.Errorf("%w: transaction number %s", domain.ErrNotFound, number)
	})
	return out, err
}

func (r *TransactionRepo) Update(_ context.Context, h *entity.TransactionHeader) error {
	return r.view(func(st *state) error {
		if _, ok := st.txs[h.ID]; !ok {
			return domain.ErrNotFound
		}
		st.txs[h.ID] = *h
		return nil
	})
}

func (r *TransactionRepo) ListOverdueCandidates(_ context.Context, today time.Time, limit int) ([]string, error) {
	var found []*entity.TransactionHeader
	err := r.view(func(st *state) error {
		for _, h := range st.txs {
			c := h
			if c.IsActive && c.IsOverdueCandidate(today) {
				found = append(found, &c)
			}
		}
		return nil
	})
	sort.Slice(found, func(i, j int) bool { return found[i].TransactionNumber < found[j].TransactionNumber })
	ids := make([]string, 0, len(found))
	for _, h := range found {
		if limit > 0 && len(ids) == limit {
			break
		}
		ids = append(ids, h.ID)
	}
	return ids, err
}

type TransactionLineRepo struct{ base }

func (r *TransactionLineRepo) Create(_ context.Context, l *entity.TransactionLine) error {
	return r.view(func(st *state) error {
		for _, e := range st.lines {
			if e.TransactionID == l.TransactionID && e.LineNumber == l.LineNumber {
				return fmt.Errorf("%w: line %d of transaction %s", domain.ErrDuplicate, l.LineNumber, l.TransactionID)
			}
		}
		st.lines[l.ID] = *l
		return nil
	})
}

func (r *TransactionLineRepo) GetByID(_ context.Context, id string) (*entity.TransactionLine, error) {
	var out *entity.TransactionLine
	err := r.view(func(st *state) error {
		l, ok := st.lines[id]
		if !ok {
			return fmt.Errorf("%w: transaction line %s", domain.ErrNotFound, id)
		}
		out = &l
		return nil
	})
	return out, err
}

func (r *TransactionLineRepo) GetForUpdate(ctx context.Context, id string) (*entity.TransactionLine, error) {
	return r.GetByID(ctx, id)
}

func (r *TransactionLineRepo) Update(_ context.Context, l *entity.TransactionLine) error {
	return r.view(func(st *state) error {
		if _, ok := st.lines[l.ID]; !ok {
			return domain.ErrNotFound
		}
		st.lines[l.ID] = *l
		return nil
	})
}

func (r *TransactionLineRepo) ListByTransaction(_ context.Context, transactionID string) ([]*entity.TransactionLine, error) {
	var out []*entity.TransactionLine
	err := r.view(func(st *state) error {
		for _, l := range st.lines {
			if l.TransactionID == transactionID {
				c := l
				out = append(out, &c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].LineNumber < out[j].LineNumber })
	return out, err
}

type RentalReturnRepo struct{ base }

func (r *RentalReturnRepo) Create(_ context.Context, rr *entity.RentalReturn) error {
	return r.view(func(st *state) error {
		if _, ok := st.returns[rr.ID]; ok {
			return fmt.Errorf("%w: rental return %s", domain.ErrDuplicate, rr.ID)
		}
		st.returns[rr.ID] = copyReturn(rr)
		return nil
	})
}

func (r *RentalReturnRepo) GetByID(_ context.Context, id string) (*entity.RentalReturn, error) {
	var out *entity.RentalReturn
	err := r.view(func(st *state) error {
		rr, ok := st.returns[id]
		if !ok {
			return fmt.Errorf("%w: rental return %s", domain.ErrNotFound, id)
		}
		c := copyReturn(&rr)
		out = &c
		return nil
	})
	return out, err
}

func (r *RentalReturnRepo) ListByTransaction(_ context.Context, transactionID string) ([]*entity.RentalReturn, error) {
	var out []*entity.RentalReturn
	err := r.view(func(st *state) error {
		for _, rr := range st.returns {
			if rr.RentalTransactionID == transactionID {
				c := copyReturn(&rr)
				out = append(out, &c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ReturnDate.Before(out[j].ReturnDate) })
	return out, err
}
