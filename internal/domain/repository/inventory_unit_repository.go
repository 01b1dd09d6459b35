package repository

import (
	"context"

	"github.com/jhoicas/rental-core/internal/domain/entity"
)

// InventoryUnitRepository define el puerto de persistencia para unidades serializadas.
// Create devuelve domain.ErrDuplicate si el código o el número de serie (no vacío) ya existen.
type InventoryUnitRepository interface {
	Create(ctx context.Context, u *entity.InventoryUnit) error
	GetByID(ctx context.Context, id string) (*entity.InventoryUnit, error)
	GetForUpdate(ctx context.Context, id string) (*entity.InventoryUnit, error)
	GetByCode(ctx context.Context, code string) (*entity.InventoryUnit, error)
	Update(ctx context.Context, u *entity.InventoryUnit) error
	ListBySKU(ctx context.Context, skuID, locationID string, status entity.InventoryStatus) ([]*entity.InventoryUnit, error)
}
