package repository

import (
	"context"

	"github.com/jhoicas/rental-core/internal/domain/entity"
)

// RentalReturnRepository persiste la devolución junto con sus líneas.
type RentalReturnRepository interface {
	Create(ctx context.Context, r *entity.RentalReturn) error
	GetByID(ctx context.Context, id string) (*entity.RentalReturn, error)
	ListByTransaction(ctx context.Context, transactionID string) ([]*entity.RentalReturn, error)
}
