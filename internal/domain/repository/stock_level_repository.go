package repository

import (
	"context"

	"github.com/jhoicas/rental-core/internal/domain/entity"
)

// StockLevelRepository define el puerto de persistencia para StockLevel (SKU + ubicación).
// Dentro de una transacción, GetForUpdate bloquea la fila hasta el commit.
type StockLevelRepository interface {
	Create(ctx context.Context, s *entity.StockLevel) error
	GetByID(ctx context.Context, id string) (*entity.StockLevel, error)
	// GetForUpdate bloquea la fila del SKU en la ubicación (SELECT ... FOR UPDATE).
	GetForUpdate(ctx context.Context, skuID, locationID string) (*entity.StockLevel, error)
	Update(ctx context.Context, s *entity.StockLevel) error
	ListByLocation(ctx context.Context, locationID string) ([]*entity.StockLevel, error)
	// ListBySKU niveles del SKU en todas las ubicaciones.
	ListBySKU(ctx context.Context, skuID string) ([]*entity.StockLevel, error)
	// ListNeedingReorder niveles activos con disponible en o bajo el punto de reorden.
	ListNeedingReorder(ctx context.Context, locationID string) ([]*entity.StockLevel, error)
}
