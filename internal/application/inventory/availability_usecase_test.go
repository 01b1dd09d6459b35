package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/rental-core/internal/domain"
	"github.com/jhoicas/rental-core/internal/domain/entity"
	"github.com/jhoicas/rental-core/internal/infrastructure/memory"
)

func newAvailabilityUC(t *testing.T) *AvailabilityUseCase {
	t.Helper()
	ctx := context.Background()
	stock, store, _ := newStockUC(t)
	_, err := stock.CreateStockLevel(ctx, CreateStockLevelInput{SKUID: "sku-1", LocationID: "loc-2", OnHand: 7})
	require.NoError(t, err)
	_, err = stock.Reserve(ctx, StockInput{SKUID: "sku-1", LocationID: "loc-1", Quantity: 30, Actor: "ana"})
	require.NoError(t, err)
	_, err = stock.CreateStockLevel(ctx, CreateStockLevelInput{SKUID: "sku-carpa", LocationID: "loc-1", OnHand: 3})
	require.NoError(t, err)
	_, err = stock.CreateStockLevel(ctx, CreateStockLevelInput{SKUID: "sku-carpa", LocationID: "loc-2", OnHand: 1})
	require.NoError(t, err)

	units := NewUnitUseCase(store)
	for _, u := range []RegisterUnitInput{
		{InventoryCode: "CARPA-001", LocationID: "loc-1", SerialNumber: "SN-1", Condition: entity.ConditionGradeA},
		{InventoryCode: "CARPA-002", LocationID: "loc-1", SerialNumber: "SN-2", Condition: entity.ConditionGradeC},
		{InventoryCode: "CARPA-003", LocationID: "loc-1", Status: entity.InventoryStatusRented},
		{InventoryCode: "CARPA-004", LocationID: "loc-2", Condition: entity.ConditionGradeB},
	} {
		u.SKUID = "sku-carpa"
		if u.Status == "" {
			u.Status = entity.InventoryStatusAvailableRent
		}
		_, err := units.Register(ctx, u)
		require.NoError(t, err)
	}
	return NewAvailabilityUseCase(store.Repos().Stock, store.Repos().Units)
}

func TestAvailability_VentaPorUbicacion(t *testing.T) {
	uc := newAvailabilityUC(t)
	ctx := context.Background()

	a, err := uc.CheckAvailability(ctx, AvailabilityQuery{SKUID: "sku-1", Quantity: 80, LocationID: "loc-1"})
	require.NoError(t, err)
	assert.False(t, a.IsAvailable)
	assert.Equal(t, 70, a.Available)
	require.Len(t, a.Locations, 1)
	assert.Equal(t, LocationAvailability{LocationID: "loc-1", Available: 70, OnHand: 100, Reserved: 30}, a.Locations[0])

	a, err = uc.CheckAvailability(ctx, AvailabilityQuery{SKUID: "sku-1", Quantity: 75})
	require.NoError(t, err)
	assert.True(t, a.IsAvailable, "sumando las dos ubicaciones")
	assert.Equal(t, 77, a.Available)
	require.Len(t, a.Locations, 2)
	assert.Equal(t, "loc-2", a.Locations[1].LocationID)

	a, err = uc.CheckAvailability(ctx, AvailabilityQuery{SKUID: "sku-1", Quantity: 1, LocationID: "loc-9"})
	require.NoError(t, err, "sin nivel en la ubicación no es error")
	assert.False(t, a.IsAvailable)
	assert.Zero(t, a.Available)
	assert.Empty(t, a.Locations)
}

func TestAvailability_AlquilerCuentaUnidades(t *testing.T) {
	uc := newAvailabilityUC(t)
	ctx := context.Background()

	a, err := uc.CheckAvailability(ctx, AvailabilityQuery{SKUID: "sku-carpa", Quantity: 2, LocationID: "loc-1", ForRent: true})
	require.NoError(t, err)
	assert.True(t, a.IsAvailable)
	assert.Equal(t, 2, a.Available, "la alquilada no cuenta")
	require.Len(t, a.Locations, 1)
	assert.Equal(t, "CARPA-001", a.Locations[0].Units[0].InventoryCode)
	assert.Equal(t, "SN-1", a.Locations[0].Units[0].SerialNumber)

	a, err = uc.CheckAvailability(ctx, AvailabilityQuery{SKUID: "sku-carpa", Quantity: 2, ForRent: true, MinCondition: entity.ConditionGradeB})
	require.NoError(t, err)
	assert.True(t, a.IsAvailable)
	assert.Equal(t, 2, a.Available, "A en loc-1 y B en loc-2; la C queda fuera")
	require.Len(t, a.Locations, 2)
	assert.Equal(t, entity.ConditionGradeB, a.Locations[1].Units[0].Condition)

	a, err = uc.CheckAvailability(ctx, AvailabilityQuery{SKUID: "sku-carpa", Quantity: 1, ForRent: true, MinCondition: entity.ConditionGradeA, LocationID: "loc-2"})
	require.NoError(t, err)
	assert.False(t, a.IsAvailable)
}

func TestAvailability_ConsultaInvalida(t *testing.T) {
	repos := memory.NewStore().Repos()
	uc := NewAvailabilityUseCase(repos.Stock, repos.Units)
	ctx := context.Background()

	_, err := uc.CheckAvailability(ctx, AvailabilityQuery{Quantity: 1})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = uc.CheckAvailability(ctx, AvailabilityQuery{SKUID: "sku-1"})
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = uc.CheckAvailability(ctx, AvailabilityQuery{SKUID: "sku-1", Quantity: 1, MinCondition: "Z"})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAvailability_VariosSKUs(t *testing.T) {
	uc := newAvailabilityUC(t)

	res, err := uc.CheckMany(context.Background(), "loc-1", false, []AvailabilityQuery{
		{SKUID: "sku-1", Quantity: 10},
		{SKUID: "sku-carpa", Quantity: 5},
		{SKUID: "sku-1", Quantity: -1},
	})
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.True(t, res[0].IsAvailable)
	assert.Equal(t, 70, res[0].Available)
	assert.False(t, res[1].IsAvailable)
	assert.Equal(t, 3, res[1].Available)
	assert.Empty(t, res[1].Reason)
	assert.False(t, res[2].IsAvailable)
	assert.Contains(t, res[2].Reason, "requested quantity must be positive")
}
