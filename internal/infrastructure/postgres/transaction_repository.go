package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/rental-core/internal/domain/entity"
	"github.com/jhoicas/rental-core/internal/domain/repository"
)

var _ repository.TransactionRepository = (*TransactionRepo)(nil)

// TransactionRepo cabeceras de transacción sobre PostgreSQL.
type TransactionRepo struct {
	q Querier
}

func NewTransactionRepository(q Querier) *TransactionRepo {
	return &TransactionRepo{q: q}
}

const headerColumns = `id, transaction_number, transaction_type, transaction_date, customer_id, location_id,
	sales_person_id, status, payment_status, subtotal, discount_amount, tax_amount, total_amount,
	paid_amount, deposit_amount, payment_method, payment_reference, due_date, rental_start_date,
	rental_end_date, actual_return_date, notes, is_active, created_by, updated_by, created_at, updated_at`

func (r *TransactionRepo) Create(ctx context.Context, h *entity.TransactionHeader) error {
	query := `INSERT INTO transaction_headers (` + headerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
			$20, $21, $22, $23, $24, $25, $26, $27)`
	_, err := r.q.Exec(ctx, query,
		h.ID, h.TransactionNumber, h.TransactionType, h.TransactionDate, h.CustomerID, h.LocationID,
		h.SalesPersonID, h.Status, h.PaymentStatus, h.Subtotal, h.DiscountAmount, h.TaxAmount, h.TotalAmount,
		h.PaidAmount, h.DepositAmount, h.PaymentMethod, h.PaymentReference, h.DueDate, h.RentalStartDate,
		h.RentalEndDate, h.ActualReturnDate, h.Notes, h.IsActive, h.CreatedBy, h.UpdatedBy, h.CreatedAt, h.UpdatedAt,
	)
	if err != nil {
		return mapErr("insert transaction "+h.TransactionNumber, err)
	}
	return nil
}

func (r *TransactionRepo) GetByID(ctx context.Context, id string) (*entity.TransactionHeader, error) {
	return r.one(ctx, "get transaction "+id, `SELECT `+headerColumns+` FROM transaction_headers WHERE id = $1`, id)
}

// GetForUpdate bloquea la cabecera: serializa pagos, cambios de estado y el barrido de vencidos.
func (r *TransactionRepo) GetForUpdate(ctx context.Context, id string) (*entity.TransactionHeader, error) {
	return r.one(ctx, "get transaction "+id+" for update",
		`SELECT `+headerColumns+` FROM transaction_headers WHERE id = $1 FOR UPDATE`, id)
}

func (r *TransactionRepo) GetByNumber(ctx context.Context, number string) (*entity.TransactionHeader, error) {
	return r.one(ctx, "get transaction by number "+number,
		`SELECT `+headerColumns+` FROM transaction_headers WHERE transaction_number = $1`, number)
}

func (r *TransactionRepo) Update(ctx context.Context, h *entity.TransactionHeader) error {
	query := `
		UPDATE transaction_headers SET
			status = $2, payment_status = $3, subtotal = $4, discount_amount = $5, tax_amount = $6,
			total_amount = $7, paid_amount = $8, deposit_amount = $9, payment_method = $10,
			payment_reference = $11, due_date = $12, rental_start_date = $13, rental_end_date = $14,
			actual_return_date = $15, notes = $16, is_active = $17, updated_by = $18, updated_at = $19
		WHERE id = $1`
	return execOne(ctx, r.q, "update transaction "+h.ID, query,
		h.ID, h.Status, h.PaymentStatus, h.Subtotal, h.DiscountAmount, h.TaxAmount,
		h.TotalAmount, h.PaidAmount, h.DepositAmount, h.PaymentMethod,
		h.PaymentReference, h.DueDate, h.RentalStartDate, h.RentalEndDate,
		h.ActualReturnDate, h.Notes, h.IsActive, h.UpdatedBy, h.UpdatedAt,
	)
}

// ListOverdueCandidates traduce IsOverdueCandidate a SQL. Estados terminales: CANCELLED y REFUNDED.
func (r *TransactionRepo) ListOverdueCandidates(ctx context.Context, today time.Time, limit int) ([]string, error) {
	query := `
		SELECT id FROM transaction_headers
		WHERE is_active
		  AND status NOT IN ('CANCELLED', 'REFUNDED')
		  AND payment_status NOT IN ('PAID', 'OVERDUE', 'CANCELLED', 'REFUNDED')
		  AND (due_date < $1
		       OR (transaction_type = 'RENTAL' AND rental_end_date < $1 AND actual_return_date IS NULL))
		ORDER BY transaction_number
		LIMIT $2`
	rows, err := r.q.Query(ctx, query, entity.DateOf(today), limit)
	if err != nil {
		return nil, mapErr("list overdue candidates", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan overdue candidate: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *TransactionRepo) one(ctx context.Context, op, query string, args ...any) (*entity.TransactionHeader, error) {
	var h entity.TransactionHeader
	err := r.q.QueryRow(ctx, query, args...).Scan(
		&h.ID, &h.TransactionNumber, &h.TransactionType, &h.TransactionDate, &h.CustomerID, &h.LocationID,
		&h.SalesPersonID, &h.Status, &h.PaymentStatus, &h.Subtotal, &h.DiscountAmount, &h.TaxAmount, &h.TotalAmount,
		&h.PaidAmount, &h.DepositAmount, &h.PaymentMethod, &h.PaymentReference, &h.DueDate, &h.RentalStartDate,
		&h.RentalEndDate, &h.ActualReturnDate, &h.Notes, &h.IsActive, &h.CreatedBy, &h.UpdatedBy, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(op, err)
	}
	return &h, nil
}
