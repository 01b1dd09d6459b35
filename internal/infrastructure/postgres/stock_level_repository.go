package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/rental-core/internal/domain/entity"
	"github.com/jhoicas/rental-core/internal/domain/repository"
)

var _ repository.StockLevelRepository = (*StockLevelRepo)(nil)

// StockLevelRepo implementación de StockLevelRepository sobre PostgreSQL (usable con pool o tx).
type StockLevelRepo struct {
	q Querier
}

// NewStockLevelRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockLevelRepository(q Querier) *StockLevelRepo {
	return &StockLevelRepo{q: q}
}

const stockLevelColumns = `id, sku_id, location_id, quantity_on_hand, quantity_available, quantity_reserved,
	quantity_in_transit, quantity_damaged, reorder_point, reorder_quantity, maximum_stock, is_active,
	created_by, updated_by, created_at, updated_at`

func (r *StockLevelRepo) Create(ctx context.Context, s *entity.StockLevel) error {
	query := `INSERT INTO stock_levels (` + stockLevelColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(ctx, query,
		s.ID, s.SKUID, s.LocationID, s.OnHand(), s.Available(), s.Reserved(),
		s.InTransit(), s.Damaged(), s.ReorderPoint(), s.ReorderQuantity(), s.MaximumStock(), s.IsActive,
		s.CreatedBy, s.UpdatedBy, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return mapErr("insert stock level", err)
	}
	return nil
}

func (r *StockLevelRepo) GetByID(ctx context.Context, id string) (*entity.StockLevel, error) {
	query := `SELECT ` + stockLevelColumns + ` FROM stock_levels WHERE id = $1`
	s, err := scanStockLevel(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapErr("get stock level "+id, err)
	}
	return s, nil
}

// GetForUpdate obtiene el nivel y bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
func (r *StockLevelRepo) GetForUpdate(ctx context.Context, skuID, locationID string) (*entity.StockLevel, error) {
	query := `SELECT ` + stockLevelColumns + `
		FROM stock_levels WHERE sku_id = $1 AND location_id = $2
		FOR UPDATE`
	s, err := scanStockLevel(r.q.QueryRow(ctx, query, skuID, locationID))
	if err != nil {
		return nil, mapErr(fmt.Sprintf("get stock level %s@%s for update", skuID, locationID), err)
	}
	return s, nil
}

func (r *StockLevelRepo) Update(ctx context.Context, s *entity.StockLevel) error {
	query := `
		UPDATE stock_levels SET
			quantity_on_hand = $2, quantity_available = $3, quantity_reserved = $4,
			quantity_in_transit = $5, quantity_damaged = $6,
			reorder_point = $7, reorder_quantity = $8, maximum_stock = $9,
			is_active = $10, updated_by = $11, updated_at = $12
		WHERE id = $1`
	return execOne(ctx, r.q, "update stock level "+s.ID, query,
		s.ID, s.OnHand(), s.Available(), s.Reserved(), s.InTransit(), s.Damaged(),
		s.ReorderPoint(), s.ReorderQuantity(), s.MaximumStock(),
		s.IsActive, s.UpdatedBy, s.UpdatedAt,
	)
}

func (r *StockLevelRepo) ListByLocation(ctx context.Context, locationID string) ([]*entity.StockLevel, error) {
	query := `SELECT ` + stockLevelColumns + `
		FROM stock_levels WHERE location_id = $1
		ORDER BY sku_id`
	return r.list(ctx, "list stock levels by location", query, locationID)
}

func (r *StockLevelRepo) ListBySKU(ctx context.Context, skuID string) ([]*entity.StockLevel, error) {
	query := `SELECT ` + stockLevelColumns + `
		FROM stock_levels WHERE sku_id = $1
		ORDER BY location_id`
	return r.list(ctx, "list stock levels by SKU", query, skuID)
}

// ListNeedingReorder prefiltra en SQL con la misma regla que StockLevel.NeedsReorder.
func (r *StockLevelRepo) ListNeedingReorder(ctx context.Context, locationID string) ([]*entity.StockLevel, error) {
	query := `SELECT ` + stockLevelColumns + `
		FROM stock_levels
		WHERE location_id = $1 AND is_active AND quantity_available <= reorder_point
		ORDER BY sku_id`
	return r.list(ctx, "list stock levels needing reorder", query, locationID)
}

func (r *StockLevelRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.StockLevel, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer rows.Close()
	var list []*entity.StockLevel
	for rows.Next() {
		s, err := scanStockLevel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock level: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// scanStockLevel rehidrata a través del constructor: una fila que rompa la ecuación de
// conservación se reporta como error en vez de cargarse.
func scanStockLevel(row rowScanner) (*entity.StockLevel, error) {
	var (
		p      entity.StockLevelParams
		active bool
	)
	err := row.Scan(
		&p.ID, &p.SKUID, &p.LocationID, &p.QuantityOnHand, &p.QuantityAvailable, &p.QuantityReserved,
		&p.QuantityInTransit, &p.QuantityDamaged, &p.ReorderPoint, &p.ReorderQuantity, &p.MaximumStock, &active,
		&p.Audit.CreatedBy, &p.Audit.UpdatedBy, &p.Audit.CreatedAt, &p.Audit.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.IsActive = &active
	return entity.NewStockLevel(p)
}
