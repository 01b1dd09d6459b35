package entity_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/rental-core/internal/domain"
	"github.com/jhoicas/rental-core/internal/domain/entity"
)

func newUnit(t *testing.T, status entity.InventoryStatus) *entity.InventoryUnit {
	t.Helper()
	u, err := entity.NewInventoryUnit(entity.InventoryUnit{
		InventoryCode: "INV-001",
		SKUID:         "sku-1",
		LocationID:    "loc-1",
		SerialNumber:  "SN123456",
		CurrentStatus: status,
	})
	require.NoError(t, err)
	return u
}

func TestNewInventoryUnit_Defaults(t *testing.T) {
	cost := decimal.RequireFromString("999.99")
	u, err := entity.NewInventoryUnit(entity.InventoryUnit{
		InventoryCode: "  INV-002 ",
		SKUID:         "sku-1",
		LocationID:    "loc-1",
		PurchaseCost:  &cost,
		Audit:         entity.Audit{CreatedBy: "test_user"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "INV-002", u.InventoryCode)
	assert.Equal(t, entity.InventoryStatusAvailableSale, u.CurrentStatus)
	assert.Equal(t, entity.ConditionGradeA, u.ConditionGrade)
	assert.Zero(t, u.RentalCount)
	assert.Zero(t, u.TotalRentalDays)
	assert.True(t, u.IsActive)
	assert.Equal(t, "test_user", u.CreatedBy)
	assert.Contains(t, u.String(), "INV-002")
}

func TestNewInventoryUnit_CodigoObligatorio(t *testing.T) {
	for _, code := range []string{"", "   "} {
		_, err := entity.NewInventoryUnit(entity.InventoryUnit{InventoryCode: code, SKUID: "s", LocationID: "l"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.ErrorContains(t, err, "inventory code is required")
	}
}

func TestNewInventoryUnit_ValoresInvalidos(t *testing.T) {
	neg := decimal.NewFromInt(-1)
	cases := []entity.InventoryUnit{
		{InventoryCode: "X", LocationID: "l"},
		{InventoryCode: "X", SKUID: "s"},
		{InventoryCode: "X", SKUID: "s", LocationID: "l", CurrentStatus: "BROKEN"},
		{InventoryCode: "X", SKUID: "s", LocationID: "l", ConditionGrade: "Z"},
		{InventoryCode: "X", SKUID: "s", LocationID: "l", PurchaseCost: &neg},
		{InventoryCode: "X", SKUID: "s", LocationID: "l", CurrentValue: &neg},
	}
	for _, c := range cases {
		_, err := entity.NewInventoryUnit(c)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
}

func TestInventoryUnit_TransicionesDocumentadas(t *testing.T) {
	u := newUnit(t, entity.InventoryStatusAvailableSale)
	assert.True(t, u.CanTransitionTo(entity.InventoryStatusReservedSale))
	assert.True(t, u.CanTransitionTo(entity.InventoryStatusInspectionPending))
	assert.True(t, u.CanTransitionTo(entity.InventoryStatusAvailableRent))
	assert.False(t, u.CanTransitionTo(entity.InventoryStatusRented))
	assert.False(t, u.CanTransitionTo(entity.InventoryStatusSold))

	u.CurrentStatus = entity.InventoryStatusAvailableRent
	assert.True(t, u.CanTransitionTo(entity.InventoryStatusReservedRent))
	assert.True(t, u.CanTransitionTo(entity.InventoryStatusInspectionPending))

	u.CurrentStatus = entity.InventoryStatusReservedSale
	assert.True(t, u.CanTransitionTo(entity.InventoryStatusSold))
	assert.True(t, u.CanTransitionTo(entity.InventoryStatusAvailableSale))

	u.CurrentStatus = entity.InventoryStatusRented
	assert.True(t, u.CanTransitionTo(entity.InventoryStatusInspectionPending))
	assert.True(t, u.CanTransitionTo(entity.InventoryStatusDamaged))
	assert.False(t, u.CanTransitionTo(entity.InventoryStatusAvailableRent))
}

// CanTransitionTo y UpdateStatus deben coincidir en todos los pares (from, to).
func TestInventoryUnit_PredicadoCoincideConUpdateStatus(t *testing.T) {
	for _, from := range entity.InventoryStatuses {
		for _, to := range entity.InventoryStatuses {
			u := newUnit(t, from)
			allowed := u.CanTransitionTo(to)
			err := u.UpdateStatus(to, "tester", testNow)

			if allowed {
				require.NoError(t, err, "%s -> %s", from, to)
				assert.Equal(t, to, u.CurrentStatus)
				assert.Equal(t, "tester", u.UpdatedBy)
				assert.Equal(t, testNow, u.UpdatedAt)
			} else {
				require.ErrorIs(t, err, domain.ErrIllegalTransition, "%s -> %s", from, to)
				assert.Equal(t, from, u.CurrentStatus, "rechazo sin mutación")
			}
		}
	}
}

func TestInventoryUnit_EstadosTerminales(t *testing.T) {
	for _, s := range []entity.InventoryStatus{entity.InventoryStatusLost, entity.InventoryStatusRetired} {
		assert.True(t, entity.InventoryTransitions.IsTerminal(s), s)
	}
}

func TestInventoryUnit_UpdateLocation(t *testing.T) {
	u := newUnit(t, entity.InventoryStatusAvailableRent)

	require.NoError(t, u.UpdateLocation("loc-2", "transfer_user", testNow))
	assert.Equal(t, "loc-2", u.LocationID)
	assert.Equal(t, "transfer_user", u.UpdatedBy)

	u.CurrentStatus = entity.InventoryStatusRented
	err := u.UpdateLocation("loc-3", "transfer_user", testNow)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
	assert.ErrorContains(t, err, "cannot move rented unit")
	assert.Equal(t, "loc-2", u.LocationID)
}

func TestInventoryUnit_RecordInspection(t *testing.T) {
	u := newUnit(t, entity.InventoryStatusInspectionPending)

	require.NoError(t, u.RecordInspection(entity.ConditionGradeB, "Inspection note", "inspector", testNow))
	require.NotNil(t, u.LastInspectionDate)
	assert.Equal(t, entity.DateOf(testNow), *u.LastInspectionDate)
	assert.Equal(t, entity.ConditionGradeB, u.ConditionGrade)
	assert.Equal(t, "inspector", u.UpdatedBy)
	assert.Contains(t, u.Notes, "Inspection note")

	require.NoError(t, u.UpdateCondition(entity.ConditionGradeC, "Scratch on lid", "inspector", testNow))
	assert.Contains(t, u.Notes, "Inspection note")
	assert.Contains(t, u.Notes, "Scratch on lid")
}

func TestInventoryUnit_IncrementRentalStats(t *testing.T) {
	u := newUnit(t, entity.InventoryStatusAvailableRent)

	require.NoError(t, u.IncrementRentalStats(7, "rental_system", testNow))
	require.NoError(t, u.IncrementRentalStats(3, "rental_system", testNow))
	assert.Equal(t, 2, u.RentalCount)
	assert.Equal(t, 10, u.TotalRentalDays)

	assert.ErrorIs(t, u.IncrementRentalStats(0, "rental_system", testNow), domain.ErrInvalidQuantity)
	assert.Equal(t, 2, u.RentalCount)
}

func TestInventoryUnit_ValorYBaja(t *testing.T) {
	u := newUnit(t, entity.InventoryStatusAvailableSale)

	require.NoError(t, u.UpdateValue(decimal.RequireFromString("900.00"), "valuation_system", testNow))
	require.NotNil(t, u.CurrentValue)
	assert.True(t, u.CurrentValue.Equal(decimal.NewFromInt(900)))
	assert.Error(t, u.UpdateValue(decimal.NewFromInt(-1), "valuation_system", testNow))

	u.Deactivate("admin", testNow)
	assert.False(t, u.IsActive)
	assert.Equal(t, "admin", u.UpdatedBy)
}

func TestInventoryUnit_Predicados(t *testing.T) {
	tests := []struct {
		status                              entity.InventoryStatus
		rentable, saleable, needsInspection bool
	}{
		{entity.InventoryStatusAvailableRent, true, false, false},
		{entity.InventoryStatusAvailableSale, false, true, false},
		{entity.InventoryStatusInspectionPending, false, false, true},
		{entity.InventoryStatusRented, false, false, false},
		{entity.InventoryStatusSold, false, false, false},
	}
	for _, tt := range tests {
		u := newUnit(t, tt.status)
		assert.Equal(t, tt.rentable, u.IsRentable(), tt.status)
		assert.Equal(t, tt.saleable, u.IsSaleable(), tt.status)
		assert.Equal(t, tt.needsInspection, u.RequiresInspection(), tt.status)
	}
}

func TestConditionGrade_AtLeast(t *testing.T) {
	assert.True(t, entity.ConditionGradeA.AtLeast(entity.ConditionGradeB))
	assert.True(t, entity.ConditionGradeB.AtLeast(entity.ConditionGradeB))
	assert.False(t, entity.ConditionGradeC.AtLeast(entity.ConditionGradeB))
	assert.True(t, entity.ConditionGradeD.AtLeast(""))
	assert.False(t, entity.ConditionGrade("Z").AtLeast(entity.ConditionGradeD))
}
