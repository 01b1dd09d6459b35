package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/rental-core/internal/domain/entity"
	"github.com/jhoicas/rental-core/internal/domain/repository"
)

var _ repository.InventoryUnitRepository = (*InventoryUnitRepo)(nil)

// InventoryUnitRepo unidades serializadas sobre PostgreSQL.
type InventoryUnitRepo struct {
	q Querier
}

func NewInventoryUnitRepository(q Querier) *InventoryUnitRepo {
	return &InventoryUnitRepo{q: q}
}

const unitColumns = `id, inventory_code, sku_id, location_id, serial_number, current_status, condition_grade,
	purchase_date, purchase_cost, current_value, last_inspection_date, total_rental_days, rental_count,
	notes, is_active, created_by, updated_by, created_at, updated_at`

func (r *InventoryUnitRepo) Create(ctx context.Context, u *entity.InventoryUnit) error {
	query := `INSERT INTO inventory_units (` + unitColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err := r.q.Exec(ctx, query,
		u.ID, u.InventoryCode, u.SKUID, u.LocationID, u.SerialNumber, u.CurrentStatus, u.ConditionGrade,
		u.PurchaseDate, u.PurchaseCost, u.CurrentValue, u.LastInspectionDate, u.TotalRentalDays, u.RentalCount,
		u.Notes, u.IsActive, u.CreatedBy, u.UpdatedBy, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return mapErr("insert inventory unit "+u.InventoryCode, err)
	}
	return nil
}

func (r *InventoryUnitRepo) GetByID(ctx context.Context, id string) (*entity.InventoryUnit, error) {
	return r.one(ctx, "get inventory unit "+id, `SELECT `+unitColumns+` FROM inventory_units WHERE id = $1`, id)
}

func (r *InventoryUnitRepo) GetForUpdate(ctx context.Context, id string) (*entity.InventoryUnit, error) {
	return r.one(ctx, "get inventory unit "+id+" for update",
		`SELECT `+unitColumns+` FROM inventory_units WHERE id = $1 FOR UPDATE`, id)
}

func (r *InventoryUnitRepo) GetByCode(ctx context.Context, code string) (*entity.InventoryUnit, error) {
	return r.one(ctx, "get inventory unit by code "+code,
		`SELECT `+unitColumns+` FROM inventory_units WHERE inventory_code = $1`, code)
}

func (r *InventoryUnitRepo) Update(ctx context.Context, u *entity.InventoryUnit) error {
	query := `
		UPDATE inventory_units SET
			location_id = $2, serial_number = $3, current_status = $4, condition_grade = $5,
			purchase_date = $6, purchase_cost = $7, current_value = $8, last_inspection_date = $9,
			total_rental_days = $10, rental_count = $11, notes = $12, is_active = $13,
			updated_by = $14, updated_at = $15
		WHERE id = $1`
	return execOne(ctx, r.q, "update inventory unit "+u.ID, query,
		u.ID, u.LocationID, u.SerialNumber, u.CurrentStatus, u.ConditionGrade,
		u.PurchaseDate, u.PurchaseCost, u.CurrentValue, u.LastInspectionDate,
		u.TotalRentalDays, u.RentalCount, u.Notes, u.IsActive,
		u.UpdatedBy, u.UpdatedAt,
	)
}

// ListBySKU unidades activas del SKU; locationID y status vacíos no filtran.
func (r *InventoryUnitRepo) ListBySKU(ctx context.Context, skuID, locationID string, status entity.InventoryStatus) ([]*entity.InventoryUnit, error) {
	query := `SELECT ` + unitColumns + `
		FROM inventory_units
		WHERE sku_id = $1 AND is_active
		  AND ($2::text = '' OR location_id = $2)
		  AND ($3::text = '' OR current_status = $3)
		ORDER BY inventory_code`
	rows, err := r.q.Query(ctx, query, skuID, locationID, string(status))
	if err != nil {
		return nil, mapErr("list inventory units by sku", err)
	}
	defer rows.Close()
	var list []*entity.InventoryUnit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory unit: %w", err)
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

func (r *InventoryUnitRepo) one(ctx context.Context, op, query string, args ...any) (*entity.InventoryUnit, error) {
	u, err := scanUnit(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapErr(op, err)
	}
	return u, nil
}

func scanUnit(row rowScanner) (*entity.InventoryUnit, error) {
	var u entity.InventoryUnit
	err := row.Scan(
		&u.ID, &u.InventoryCode, &u.SKUID, &u.LocationID, &u.SerialNumber, &u.CurrentStatus, &u.ConditionGrade,
		&u.PurchaseDate, &u.PurchaseCost, &u.CurrentValue, &u.LastInspectionDate, &u.TotalRentalDays, &u.RentalCount,
		&u.Notes, &u.IsActive, &u.CreatedBy, &u.UpdatedBy, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
