package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/rental-core/internal/application/inventory"
	"github.com/jhoicas/rental-core/internal/application/transaction"
	"github.com/jhoicas/rental-core/internal/domain/repository"
)

var (
	_ inventory.TxRunner   = (*TxRunner)(nil)
	_ transaction.TxRunner = (*TxRunner)(nil)
)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(tx repository.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(Repositories(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Repositories arma el juego de repositorios sobre q (pool para lecturas sueltas, tx dentro de Run).
func Repositories(q Querier) repository.Tx {
	return repository.Tx{
		Stock:        NewStockLevelRepository(q),
		Units:        NewInventoryUnitRepository(q),
		Transactions: NewTransactionRepository(q),
		Lines:        NewTransactionLineRepository(q),
		Returns:      NewRentalReturnRepository(q),
	}
}
