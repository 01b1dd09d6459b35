package inventory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/rental-core/internal/domain"
	"github.com/jhoicas/rental-core/internal/domain/entity"
)

// StockOperation operación sobre un StockLevel; viaja en el evento stock.changed.
type StockOperation string

const (
	OpReceive     StockOperation = "RECEIVE"
	OpReserve     StockOperation = "RESERVE"
	OpRelease     StockOperation = "RELEASE"
	OpConfirmSale StockOperation = "CONFIRM_SALE"
	OpMarkDamaged StockOperation = "MARK_DAMAGED"
	OpRepair      StockOperation = "REPAIR"
	OpInTransit   StockOperation = "IN_TRANSIT"
)

// Apply despacha la operación al método del StockLevel.
func Apply(s *entity.StockLevel, op StockOperation, qty int, actor string, now time.Time) error {
	switch op {
	case OpReceive:
		return s.ReceiveStock(qty, actor, now)
	case OpReserve:
		return s.ReserveStock(qty, actor, now)
	case OpRelease:
		return s.ReleaseReservation(qty, actor, now)
	case OpConfirmSale:
		return s.ConfirmSale(qty, actor, now)
	case OpMarkDamaged:
		return s.MarkDamaged(qty, actor, now)
	case OpRepair:
		return s.RepairDamaged(qty, actor, now)
	case OpInTransit:
		return s.UpdateInTransit(qty, actor, now)
	}
	return fmt.Errorf("%w: unknown stock operation %q", domain.ErrInvalidInput, op)
}

// UnitsOf convierte una cantidad de línea a unidades de stock; solo se admiten enteros.
func UnitsOf(qty decimal.Decimal) (int, error) {
	if !qty.IsInteger() {
		return 0, fmt.Errorf("%w: stock quantity must be a whole number, got %s", domain.ErrInvalidQuantity, qty.String())
	}
	return int(qty.IntPart()), nil
}
