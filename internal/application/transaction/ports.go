package transaction

import (
	"context"
	"time"

	"github.com/jhoicas/rental-core/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
type TxRunner interface {
	Run(ctx context.Context, fn func(tx repository.Tx) error) error
}

// EventPublisher publica eventos de dominio después del commit. key es el ID del agregado.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// IdempotencyStore registra llaves de idempotencia de pagos.
// Claim devuelve false si la llave ya fue reclamada dentro del TTL.
type IdempotencyStore interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Forget(ctx context.Context, key string) error
}

// JobLocker lock distribuido para jobs que no deben correr en paralelo.
type JobLocker interface {
	Acquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name, owner string) error
}
