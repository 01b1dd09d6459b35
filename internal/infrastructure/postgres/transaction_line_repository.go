package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/rental-core/internal/domain/entity"
	"github.com/jhoicas/rental-core/internal/domain/repository"
)

var _ repository.TransactionLineRepository = (*TransactionLineRepo)(nil)

type TransactionLineRepo struct {
	q Querier
}

func NewTransactionLineRepository(q Querier) *TransactionLineRepo {
	return &TransactionLineRepo{q: q}
}

const lineColumns = `id, transaction_id, line_number, line_type, sku_id, inventory_unit_id, description,
	quantity, unit_price, discount_percentage, discount_amount, tax_rate, tax_amount, line_total,
	rental_period_value, rental_period_unit, rental_start_date, rental_end_date, returned_quantity,
	return_date, notes, is_active, created_by, updated_by, created_at, updated_at`

func (r *TransactionLineRepo) Create(ctx context.Context, l *entity.TransactionLine) error {
	query := `INSERT INTO transaction_lines (` + lineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
			$20, $21, $22, $23, $24, $25, $26)`
	_, err := r.q.Exec(ctx, query,
		l.ID, l.TransactionID, l.LineNumber, l.LineType, l.SKUID, l.InventoryUnitID, l.Description,
		l.Quantity, l.UnitPrice, l.DiscountPercentage, l.DiscountAmount, l.TaxRate, l.TaxAmount, l.LineTotal,
		l.RentalPeriodValue, l.RentalPeriodUnit, l.RentalStartDate, l.RentalEndDate, l.ReturnedQuantity,
		l.ReturnDate, l.Notes, l.IsActive, l.CreatedBy, l.UpdatedBy, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return mapErr(fmt.Sprintf("insert line %d of %s", l.LineNumber, l.TransactionID), err)
	}
	return nil
}

func (r *TransactionLineRepo) GetByID(ctx context.Context, id string) (*entity.TransactionLine, error) {
	l, err := scanLine(r.q.QueryRow(ctx, `SELECT `+lineColumns+` FROM transaction_lines WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr("get transaction line "+id, err)
	}
	return l, nil
}

func (r *TransactionLineRepo) GetForUpdate(ctx context.Context, id string) (*entity.TransactionLine, error) {
	l, err := scanLine(r.q.QueryRow(ctx, `SELECT `+lineColumns+` FROM transaction_lines WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapErr("get transaction line "+id+" for update", err)
	}
	return l, nil
}

func (r *TransactionLineRepo) Update(ctx context.Context, l *entity.TransactionLine) error {
	query := `
		UPDATE transaction_lines SET
			description = $2, quantity = $3, unit_price = $4, discount_percentage = $5,
			discount_amount = $6, tax_rate = $7, tax_amount = $8, line_total = $9,
			rental_period_value = $10, rental_period_unit = $11, rental_start_date = $12,
			rental_end_date = $13, returned_quantity = $14, return_date = $15, notes = $16,
			is_active = $17, updated_by = $18, updated_at = $19
		WHERE id = $1`
	return execOne(ctx, r.q, "update transaction line "+l.ID, query,
		l.ID, l.Description, l.Quantity, l.UnitPrice, l.DiscountPercentage,
		l.DiscountAmount, l.TaxRate, l.TaxAmount, l.LineTotal,
		l.RentalPeriodValue, l.RentalPeriodUnit, l.RentalStartDate,
		l.RentalEndDate, l.ReturnedQuantity, l.ReturnDate, l.Notes,
		l.IsActive, l.UpdatedBy, l.UpdatedAt,
	)
}

// ListByTransaction líneas ordenadas por número, bloqueadas si q es una tx (FOR UPDATE).
func (r *TransactionLineRepo) ListByTransaction(ctx context.Context, transactionID string) ([]*entity.TransactionLine, error) {
	query := `SELECT ` + lineColumns + `
		FROM transaction_lines WHERE transaction_id = $1
		ORDER BY line_number
		FOR UPDATE`
	rows, err := r.q.Query(ctx, query, transactionID)
	if err != nil {
		return nil, mapErr("list lines of "+transactionID, err)
	}
	defer rows.Close()
	var list []*entity.TransactionLine
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction line: %w", err)
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

func scanLine(row rowScanner) (*entity.TransactionLine, error) {
	var l entity.TransactionLine
	err := row.Scan(
		&l.ID, &l.TransactionID, &l.LineNumber, &l.LineType, &l.SKUID, &l.InventoryUnitID, &l.Description,
		&l.Quantity, &l.UnitPrice, &l.DiscountPercentage, &l.DiscountAmount, &l.TaxRate, &l.TaxAmount, &l.LineTotal,
		&l.RentalPeriodValue, &l.RentalPeriodUnit, &l.RentalStartDate, &l.RentalEndDate, &l.ReturnedQuantity,
		&l.ReturnDate, &l.Notes, &l.IsActive, &l.CreatedBy, &l.UpdatedBy, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
