package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/rental-core/internal/domain/entity"
	"github.com/jhoicas/rental-core/internal/domain/repository"
)

var _ repository.RentalReturnRepository = (*RentalReturnRepo)(nil)

// RentalReturnRepo devoluciones y sus líneas. Create debe correr dentro de una tx para que
// cabecera y líneas queden juntas.
type RentalReturnRepo struct {
	q Querier
}

func NewRentalReturnRepository(q Querier) *RentalReturnRepo {
	return &RentalReturnRepo{q: q}
}

const returnColumns = `id, rental_transaction_id, return_date, expected_return_date, return_type, return_status,
	processed_by, total_late_fee, total_damage_fee, total_cleaning_fee, deposit_released,
	deposit_release_amount, deposit_withheld_amount, deposit_release_date, finalized_by, finalized_at,
	notes, is_active, created_by, updated_by, created_at, updated_at`

const returnLineColumns = `id, return_id, inventory_unit_id, original_quantity, returned_quantity, condition_grade,
	late_fee, damage_fee, cleaning_fee, replacement_fee, is_processed, processed_by, processed_at,
	notes, is_active, created_by, updated_by, created_at, updated_at`

func (r *RentalReturnRepo) Create(ctx context.Context, rr *entity.RentalReturn) error {
	query := `INSERT INTO rental_returns (` + returnColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`
	_, err := r.q.Exec(ctx, query,
		rr.ID, rr.RentalTransactionID, rr.ReturnDate, rr.ExpectedReturnDate, rr.ReturnType, rr.ReturnStatus,
		rr.ProcessedBy, rr.TotalLateFee, rr.TotalDamageFee, rr.TotalCleaningFee, rr.DepositReleased,
		rr.DepositReleaseAmount, rr.DepositWithheldAmount, rr.DepositReleaseDate, rr.FinalizedBy, rr.FinalizedAt,
		rr.Notes, rr.IsActive, rr.CreatedBy, rr.UpdatedBy, rr.CreatedAt, rr.UpdatedAt,
	)
	if err != nil {
		return mapErr("insert rental return "+rr.ID, err)
	}

	lineQuery := `INSERT INTO rental_return_lines (` + returnLineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	for _, l := range rr.Lines {
		_, err := r.q.Exec(ctx, lineQuery,
			l.ID, l.ReturnID, l.InventoryUnitID, l.OriginalQuantity, l.ReturnedQuantity, l.ConditionGrade,
			l.LateFee, l.DamageFee, l.CleaningFee, l.ReplacementFee, l.IsProcessed, l.ProcessedBy, l.ProcessedAt,
			l.Notes, l.IsActive, l.CreatedBy, l.UpdatedBy, l.CreatedAt, l.UpdatedAt,
		)
		if err != nil {
			return mapErr("insert rental return line for unit "+l.InventoryUnitID, err)
		}
	}
	return nil
}

func (r *RentalReturnRepo) GetByID(ctx context.Context, id string) (*entity.RentalReturn, error) {
	rr, err := scanReturn(r.q.QueryRow(ctx, `SELECT `+returnColumns+` FROM rental_returns WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr("get rental return "+id, err)
	}
	if err := r.loadLines(ctx, rr); err != nil {
		return nil, err
	}
	return rr, nil
}

func (r *RentalReturnRepo) ListByTransaction(ctx context.Context, transactionID string) ([]*entity.RentalReturn, error) {
	query := `SELECT ` + returnColumns + `
		FROM rental_returns WHERE rental_transaction_id = $1
		ORDER BY created_at`
	rows, err := r.q.Query(ctx, query, transactionID)
	if err != nil {
		return nil, mapErr("list rental returns of "+transactionID, err)
	}
	var list []*entity.RentalReturn
	for rows.Next() {
		rr, err := scanReturn(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan rental return: %w", err)
		}
		list = append(list, rr)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Las líneas se cargan con las filas ya cerradas: una tx no admite dos result sets abiertos.
	for _, rr := range list {
		if err := r.loadLines(ctx, rr); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (r *RentalReturnRepo) loadLines(ctx context.Context, rr *entity.RentalReturn) error {
	query := `SELECT ` + returnLineColumns + `
		FROM rental_return_lines WHERE return_id = $1
		ORDER BY created_at, inventory_unit_id`
	rows, err := r.q.Query(ctx, query, rr.ID)
	if err != nil {
		return mapErr("list lines of rental return "+rr.ID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var l entity.RentalReturnLine
		err := rows.Scan(
			&l.ID, &l.ReturnID, &l.InventoryUnitID, &l.OriginalQuantity, &l.ReturnedQuantity, &l.ConditionGrade,
			&l.LateFee, &l.DamageFee, &l.CleaningFee, &l.ReplacementFee, &l.IsProcessed, &l.ProcessedBy, &l.ProcessedAt,
			&l.Notes, &l.IsActive, &l.CreatedBy, &l.UpdatedBy, &l.CreatedAt, &l.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("scan rental return line: %w", err)
		}
		rr.Lines = append(rr.Lines, &l)
	}
	return rows.Err()
}

func scanReturn(row rowScanner) (*entity.RentalReturn, error) {
	var rr entity.RentalReturn
	err := row.Scan(
		&rr.ID, &rr.RentalTransactionID, &rr.ReturnDate, &rr.ExpectedReturnDate, &rr.ReturnType, &rr.ReturnStatus,
		&rr.ProcessedBy, &rr.TotalLateFee, &rr.TotalDamageFee, &rr.TotalCleaningFee, &rr.DepositReleased,
		&rr.DepositReleaseAmount, &rr.DepositWithheldAmount, &rr.DepositReleaseDate, &rr.FinalizedBy, &rr.FinalizedAt,
		&rr.Notes, &rr.IsActive, &rr.CreatedBy, &rr.UpdatedBy, &rr.CreatedAt, &rr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rr, nil
}
