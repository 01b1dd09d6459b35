package repository

import (
	"context"
	"time"

	"github.com/jhoicas/rental-core/internal/domain/entity"
)

// TransactionRepository define el puerto de persistencia para cabeceras de transacción.
type TransactionRepository interface {
	Create(ctx context.Context, h *entity.TransactionHeader) error
	GetByID(ctx context.Context, id string) (*entity.TransactionHeader, error)
	GetForUpdate(ctx context.Context, id string) (*entity.TransactionHeader, error)
	GetByNumber(ctx context.Context, number string) (*entity.TransactionHeader, error)
	Update(ctx context.Context, h *entity.TransactionHeader) error
	// ListOverdueCandidates devuelve los IDs que podrían estar vencidos a la fecha dada.
	// Es un prefiltro: la decisión final la toma IsOverdueCandidate sobre la fila bloqueada.
	ListOverdueCandidates(ctx context.Context, today time.Time, limit int) ([]string, error)
}

// TransactionLineRepository líneas de una transacción, asociadas por TransactionID.
type TransactionLineRepository interface {
	Create(ctx context.Context, l *entity.TransactionLine) error
	GetByID(ctx context.Context, id string) (*entity.TransactionLine, error)
	GetForUpdate(ctx context.Context, id string) (*entity.TransactionLine, error)
	Update(ctx context.Context, l *entity.TransactionLine) error
	ListByTransaction(ctx context.Context, transactionID string) ([]*entity.TransactionLine, error)
}
