package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/rental-core/internal/domain"
)

// Querier lo que los repositorios necesitan de un pool o de una pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// rowScanner pgx.Row o pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return strings.Contains(err.Error(), "23505")
}

// mapErr traduce errores del driver a los sentinels del dominio.
func mapErr(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%w: %s", domain.ErrNotFound, op)
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %s", domain.ErrDuplicate, op)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// execOne ejecuta un UPDATE que debe tocar exactamente una fila.
func execOne(ctx context.Context, q Querier, op, sql string, args ...any) error {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return mapErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, op)
	}
	return nil
}
