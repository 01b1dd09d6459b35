package inventory

import (
	"context"

	"github.com/jhoicas/rental-core/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad: si fn devuelve error se hace Rollback.
type TxRunner interface {
	Run(ctx context.Context, fn func(tx repository.Tx) error) error
}

// EventPublisher publica eventos de dominio después del commit. key es el ID del agregado.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}
