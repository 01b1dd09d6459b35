package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/rental-core/internal/domain/entity"
	"github.com/jhoicas/rental-core/internal/domain/repository"
)

// UnitUseCase ciclo de vida de unidades serializadas.
type UnitUseCase struct {
	txRunner TxRunner
	now      func() time.Time
}

func NewUnitUseCase(txRunner TxRunner) *UnitUseCase {
	return &UnitUseCase{txRunner: txRunner, now: time.Now}
}

// RegisterUnitInput alta de una unidad física.
type RegisterUnitInput struct {
	InventoryCode string
	SKUID         string
	LocationID    string
	SerialNumber  string
	Status        entity.InventoryStatus
	Condition     entity.ConditionGrade
	PurchaseDate  *time.Time
	PurchaseCost  *decimal.Decimal
	Notes         string
	Actor         string
}

// Register da de alta la unidad; un código de inventario o serie repetidos devuelven domain.ErrDuplicate.
func (uc *UnitUseCase) Register(ctx context.Context, in RegisterUnitInput) (*entity.InventoryUnit, error) {
	u, err := NewUnit(in, uc.now())
	if err != nil {
		return nil, err
	}
	if err := uc.txRunner.Run(ctx, func(tx repository.Tx) error {
		return tx.Units.Create(ctx, u)
	}); err != nil {
		return nil, err
	}
	return u, nil
}

// NewUnit arma la unidad a registrar; el valor actual arranca en el costo de compra.
func NewUnit(in RegisterUnitInput, now time.Time) (*entity.InventoryUnit, error) {
	return entity.NewInventoryUnit(entity.InventoryUnit{
		InventoryCode:  in.InventoryCode,
		SKUID:          in.SKUID,
		LocationID:     in.LocationID,
		SerialNumber:   in.SerialNumber,
		CurrentStatus:  in.Status,
		ConditionGrade: in.Condition,
		PurchaseDate:   in.PurchaseDate,
		PurchaseCost:   in.PurchaseCost,
		CurrentValue:   in.PurchaseCost,
		Notes:          in.Notes,
		Audit:          entity.NewAudit(in.Actor, now),
	})
}

func (uc *UnitUseCase) ChangeStatus(ctx context.Context, unitID string, target entity.InventoryStatus, actor string) (*entity.InventoryUnit, error) {
	return uc.mutate(ctx, unitID, func(u *entity.InventoryUnit, now time.Time) error {
		return u.UpdateStatus(target, actor, now)
	})
}

func (uc *UnitUseCase) Move(ctx context.Context, unitID, locationID, actor string) (*entity.InventoryUnit, error) {
	return uc.mutate(ctx, unitID, func(u *entity.InventoryUnit, now time.Time) error {
		return u.UpdateLocation(locationID, actor, now)
	})
}

func (uc *UnitUseCase) RecordInspection(ctx context.Context, unitID string, grade entity.ConditionGrade, note, actor string) (*entity.InventoryUnit, error) {
	return uc.mutate(ctx, unitID, func(u *entity.InventoryUnit, now time.Time) error {
		return u.RecordInspection(grade, note, actor, now)
	})
}

func (uc *UnitUseCase) Revalue(ctx context.Context, unitID string, value decimal.Decimal, actor string) (*entity.InventoryUnit, error) {
	return uc.mutate(ctx, unitID, func(u *entity.InventoryUnit, now time.Time) error {
		return u.UpdateValue(value, actor, now)
	})
}

// Deactivate baja lógica.
func (uc *UnitUseCase) Deactivate(ctx context.Context, unitID, actor string) (*entity.InventoryUnit, error) {
	return uc.mutate(ctx, unitID, func(u *entity.InventoryUnit, now time.Time) error {
		u.Deactivate(actor, now)
		return nil
	})
}

// mutate bloquea la unidad, aplica fn y persiste en la misma transacción.
func (uc *UnitUseCase) mutate(ctx context.Context, unitID string, fn func(u *entity.InventoryUnit, now time.Time) error) (*entity.InventoryUnit, error) {
	now := uc.now()
	var out *entity.InventoryUnit
	err := uc.txRunner.Run(ctx, func(tx repository.Tx) error {
		u, err := tx.Units.GetForUpdate(ctx, unitID)
		if err != nil {
			return err
		}
		if err := fn(u, now); err != nil {
			return err
		}
		out = u
		return tx.Units.Update(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
