package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/rental-core/internal/domain"
	"github.com/jhoicas/rental-core/internal/domain/entity"
	"github.com/jhoicas/rental-core/internal/domain/repository"
	"github.com/jhoicas/rental-core/pkg/config"
)

// testPool conecta a TEST_DATABASE_URL; sin ella el test se salta.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, config.DBConfig{DatabaseURL: url, MaxConns: 4})
	if err != nil {
		t.Skipf("PostgreSQL not available: %v", err)
	}
	t.Cleanup(pool.Close)
	require.NoError(t, EnsureSchema(ctx, pool))
	return pool
}

func TestTxRunner_StockRollbackYCommit(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	runner := NewTxRunner(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)
	sku := "sku-" + uuid.NewString()

	s, err := entity.NewStockLevel(entity.StockLevelParams{
		SKUID: sku, LocationID: "loc-1", QuantityOnHand: 10, QuantityAvailable: 10,
		ReorderPoint: 20, ReorderQuantity: 15, Audit: entity.NewAudit("test", now),
	})
	require.NoError(t, err)
	require.NoError(t, runner.Run(ctx, func(tx repository.Tx) error { return tx.Stock.Create(ctx, s) }))

	err = runner.Run(ctx, func(tx repository.Tx) error {
		got, err := tx.Stock.GetForUpdate(ctx, sku, "loc-1")
		if err != nil {
			return err
		}
		if err := got.ReserveStock(4, "test", now); err != nil {
			return err
		}
		if err := tx.Stock.Update(ctx, got); err != nil {
			return err
		}
		return got.ReserveStock(100, "test", now)
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	repos := Repositories(pool)
	got, err := repos.Stock.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Available(), "la reserva parcial se revirtió")

	require.NoError(t, runner.Run(ctx, func(tx repository.Tx) error {
		got, err := tx.Stock.GetForUpdate(ctx, sku, "loc-1")
		if err != nil {
			return err
		}
		if err := got.ReserveStock(4, "test", now); err != nil {
			return err
		}
		return tx.Stock.Update(ctx, got)
	}))
	got, err = repos.Stock.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.Available())
	assert.Equal(t, 4, got.Reserved())

	reorder, err := repos.Stock.ListNeedingReorder(ctx, "loc-1")
	require.NoError(t, err)
	ids := make([]string, 0, len(reorder))
	for _, r := range reorder {
		ids = append(ids, r.ID)
	}
	assert.Contains(t, ids, s.ID)

	bySKU, err := repos.Stock.ListBySKU(ctx, sku)
	require.NoError(t, err)
	require.Len(t, bySKU, 1)
	assert.Equal(t, s.ID, bySKU[0].ID)

	dup, err := entity.NewStockLevel(entity.StockLevelParams{SKUID: sku, LocationID: "loc-1", Audit: entity.NewAudit("test", now)})
	require.NoError(t, err)
	err = repos.Stock.Create(ctx, dup)
	require.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = repos.Stock.GetForUpdate(ctx, sku, "no-existe")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransactionRepo_IdaYVuelta(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repos := Repositories(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	h, err := entity.NewTransactionHeader(entity.TransactionHeader{
		TransactionNumber: "IT-" + uuid.NewString(),
		TransactionType:   entity.TransactionTypeRental,
		TransactionDate:   start,
		CustomerID:        "cust-1",
		LocationID:        "loc-1",
		RentalStartDate:   &start,
		RentalEndDate:     &end,
		DepositAmount:     decimal.RequireFromString("100.00"),
		Audit:             entity.NewAudit("test", now),
	})
	require.NoError(t, err)
	l, err := entity.NewTransactionLine(entity.TransactionLine{
		TransactionID: h.ID, LineNumber: 1, LineType: entity.LineTypeProduct, SKUID: "sku-1",
		Description: "Carpa", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("45.50"),
		TaxRate: decimal.NewFromInt(8), RentalStartDate: &start, RentalEndDate: &end,
		Audit: entity.NewAudit("test", now),
	})
	require.NoError(t, err)
	require.NoError(t, h.ApplyLineTotals([]*entity.TransactionLine{l}, "test", now))

	runner := NewTxRunner(pool)
	require.NoError(t, runner.Run(ctx, func(tx repository.Tx) error {
		if err := tx.Transactions.Create(ctx, h); err != nil {
			return err
		}
		return tx.Lines.Create(ctx, l)
	}))

	got, err := repos.Transactions.GetByNumber(ctx, h.TransactionNumber)
	require.NoError(t, err)
	assert.Equal(t, h.ID, got.ID)
	assert.True(t, got.TotalAmount.Equal(h.TotalAmount), "%s != %s", got.TotalAmount, h.TotalAmount)
	require.NotNil(t, got.RentalEndDate)
	assert.True(t, got.RentalEndDate.Equal(end))
	assert.Equal(t, entity.TransactionStatusDraft, got.Status)

	lines, err := repos.Lines.ListByTransaction(ctx, h.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].LineTotal.Equal(l.LineTotal))

	ids, err := repos.Transactions.ListOverdueCandidates(ctx, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 1000)
	require.NoError(t, err)
	assert.Contains(t, ids, h.ID, "alquiler sin devolver tras su fecha de fin")

	require.NoError(t, got.MarkAsOverdue("test", now))
	require.NoError(t, repos.Transactions.Update(ctx, got))
	ids, err = repos.Transactions.ListOverdueCandidates(ctx, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 1000)
	require.NoError(t, err)
	assert.NotContains(t, ids, h.ID)

	_, err = repos.Transactions.GetByID(ctx, uuid.NewString())
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInventoryUnitRepo_SerialUnico(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repos := Repositories(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)
	serial := "SN-" + uuid.NewString()

	newUnit := func() *entity.InventoryUnit {
		u, err := entity.NewInventoryUnit(entity.InventoryUnit{
			InventoryCode: "IT-" + uuid.NewString(), SKUID: "sku-1", LocationID: "loc-1",
			SerialNumber: serial, Audit: entity.NewAudit("test", now),
		})
		require.NoError(t, err)
		return u
	}
	require.NoError(t, repos.Units.Create(ctx, newUnit()))
	require.ErrorIs(t, repos.Units.Create(ctx, newUnit()), domain.ErrDuplicate)
}
