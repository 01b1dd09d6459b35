package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/rental-core/internal/domain"
	"github.com/jhoicas/rental-core/internal/domain/inventory"
	"github.com/jhoicas/rental-core/internal/domain/repository"
)

// ReplenishmentUseCase genera la lista de reposición de una ubicación.
// Lectura sin bloqueo: no necesita transacción.
type ReplenishmentUseCase struct {
	stockRepo repository.StockLevelRepository
}

// NewReplenishmentUseCase construye el caso de uso de reposición.
func NewReplenishmentUseCase(stockRepo repository.StockLevelRepository) *ReplenishmentUseCase {
	return &ReplenishmentUseCase{stockRepo: stockRepo}
}

// GenerateReplenishmentList devuelve los SKUs de la ubicación en o bajo el punto de reorden,
// con la cantidad sugerida y prioridad por déficit (1 = más urgente).
func (uc *ReplenishmentUseCase) GenerateReplenishmentList(ctx context.Context, locationID string) ([]inventory.Suggestion, error) {
	if locationID == "" {
		return nil, fmt.Errorf("%w: location ID is required", domain.ErrInvalidInput)
	}
	levels, err := uc.stockRepo.ListNeedingReorder(ctx, locationID)
	if err != nil {
		return nil, err
	}
	return inventory.RankReplenishment(levels), nil
}
