package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/rental-core/internal/domain"
)

// InventoryStatus estado del ciclo de vida de una unidad física.
type InventoryStatus string

const (
	InventoryStatusAvailableSale     InventoryStatus = "AVAILABLE_SALE"
	InventoryStatusAvailableRent     InventoryStatus = "AVAILABLE_RENT"
	InventoryStatusReservedSale      InventoryStatus = "RESERVED_SALE"
	InventoryStatusReservedRent      InventoryStatus = "RESERVED_RENT"
	InventoryStatusRented            InventoryStatus = "RENTED"
	InventoryStatusSold              InventoryStatus = "SOLD"
	InventoryStatusInspectionPending InventoryStatus = "INSPECTION_PENDING"
	InventoryStatusInMaintenance     InventoryStatus = "IN_MAINTENANCE"
	InventoryStatusDamaged           InventoryStatus = "DAMAGED"
	InventoryStatusInTransit         InventoryStatus = "IN_TRANSIT"
	InventoryStatusLost              InventoryStatus = "LOST"
	InventoryStatusRetired           InventoryStatus = "RETIRED"
)

// InventoryStatuses todos los estados, en orden de declaración.
var InventoryStatuses = []InventoryStatus{
	InventoryStatusAvailableSale, InventoryStatusAvailableRent,
	InventoryStatusReservedSale, InventoryStatusReservedRent,
	InventoryStatusRented, InventoryStatusSold,
	InventoryStatusInspectionPending, InventoryStatusInMaintenance,
	InventoryStatusDamaged, InventoryStatusInTransit,
	InventoryStatusLost, InventoryStatusRetired,
}

// InventoryTransitions grafo de estados de la unidad. LOST y RETIRED son terminales.
var InventoryTransitions = domain.TransitionTable[InventoryStatus]{
	InventoryStatusAvailableSale: {InventoryStatusReservedSale, InventoryStatusAvailableRent, InventoryStatusInspectionPending, InventoryStatusInTransit, InventoryStatusRetired},
	InventoryStatusAvailableRent: {InventoryStatusReservedRent, InventoryStatusAvailableSale, InventoryStatusInspectionPending, InventoryStatusInTransit, InventoryStatusRetired},
	InventoryStatusReservedSale:  {InventoryStatusSold, InventoryStatusAvailableSale},
	InventoryStatusReservedRent:  {InventoryStatusRented, InventoryStatusAvailableRent},
	InventoryStatusRented:        {InventoryStatusInspectionPending, InventoryStatusDamaged, InventoryStatusLost},
	InventoryStatusSold:          {InventoryStatusInspectionPending},
	InventoryStatusInspectionPending: {
		InventoryStatusAvailableSale, InventoryStatusAvailableRent,
		InventoryStatusInMaintenance, InventoryStatusDamaged, InventoryStatusRetired,
	},
	InventoryStatusInMaintenance: {InventoryStatusInspectionPending, InventoryStatusRetired},
	InventoryStatusDamaged:       {InventoryStatusInMaintenance, InventoryStatusRetired},
	InventoryStatusInTransit:     {InventoryStatusAvailableSale, InventoryStatusAvailableRent, InventoryStatusInspectionPending},
}

// IsValid indica si el valor pertenece al enum.
func (s InventoryStatus) IsValid() bool {
	for _, v := range InventoryStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// ConditionGrade calificación de estado físico (A = como nuevo).
type ConditionGrade string

const (
	ConditionGradeA ConditionGrade = "A"
	ConditionGradeB ConditionGrade = "B"
	ConditionGradeC ConditionGrade = "C"
	ConditionGradeD ConditionGrade = "D"
)

func (g ConditionGrade) IsValid() bool {
	switch g {
	case ConditionGradeA, ConditionGradeB, ConditionGradeC, ConditionGradeD:
		return true
	}
	return false
}

// AtLeast la calificación es worst o mejor (A es la mejor). Un worst vacío acepta cualquiera.
func (g ConditionGrade) AtLeast(worst ConditionGrade) bool {
	if worst == "" {
		return true
	}
	return g.IsValid() && worst.IsValid() && g <= worst
}

// InventoryUnit representa una unidad física identificable (serie, código de inventario).
type InventoryUnit struct {
	ID                 string
	InventoryCode      string
	SKUID              string
	LocationID         string
	SerialNumber       string
	CurrentStatus      InventoryStatus
	ConditionGrade     ConditionGrade
	PurchaseDate       *time.Time
	PurchaseCost       *decimal.Decimal
	CurrentValue       *decimal.Decimal
	LastInspectionDate *time.Time
	TotalRentalDays    int
	RentalCount        int
	Notes              string
	IsActive           bool
	Audit
}

// NewInventoryUnit valida y da de alta una unidad recibida. Estado por defecto AVAILABLE_SALE, condición A.
// Los repositorios rehidratan la struct directamente, sin pasar por aquí.
func NewInventoryUnit(u InventoryUnit) (*InventoryUnit, error) {
	if isBlank(u.InventoryCode) {
		return nil, fmt.Errorf("%w: inventory code is required", domain.ErrInvalidInput)
	}
	if u.SKUID == "" {
		return nil, fmt.Errorf("%w: SKU ID is required", domain.ErrInvalidInput)
	}
	if u.LocationID == "" {
		return nil, fmt.Errorf("%w: location ID is required", domain.ErrInvalidInput)
	}
	if u.CurrentStatus == "" {
		u.CurrentStatus = InventoryStatusAvailableSale
	}
	if !u.CurrentStatus.IsValid() {
		return nil, fmt.Errorf("%w: unknown inventory status %q", domain.ErrInvalidInput, u.CurrentStatus)
	}
	if u.ConditionGrade == "" {
		u.ConditionGrade = ConditionGradeA
	}
	if !u.ConditionGrade.IsValid() {
		return nil, fmt.Errorf("%w: unknown condition grade %q", domain.ErrInvalidInput, u.ConditionGrade)
	}
	if u.PurchaseCost != nil && u.PurchaseCost.IsNegative() {
		return nil, fmt.Errorf("%w: purchase cost cannot be negative", domain.ErrInvalidInput)
	}
	if u.CurrentValue != nil && u.CurrentValue.IsNegative() {
		return nil, fmt.Errorf("%w: current value cannot be negative", domain.ErrInvalidInput)
	}
	if u.TotalRentalDays < 0 || u.RentalCount < 0 {
		return nil, fmt.Errorf("%w: rental statistics cannot be negative", domain.ErrInvalidInput)
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.IsActive = true
	u.InventoryCode = strings.TrimSpace(u.InventoryCode)
	return &u, nil
}

// CanTransitionTo consulta el grafo de estados; no muta.
func (u *InventoryUnit) CanTransitionTo(target InventoryStatus) bool {
	return InventoryTransitions.Allows(u.CurrentStatus, target)
}

// UpdateStatus cambia el estado si la transición es legal.
func (u *InventoryUnit) UpdateStatus(target InventoryStatus, actor string, now time.Time) error {
	if !u.CanTransitionTo(target) {
		return fmt.Errorf("%w: illegal transition from %s to %s", domain.ErrIllegalTransition, u.CurrentStatus, target)
	}
	u.CurrentStatus = target
	u.touch(actor, now)
	return nil
}

// UpdateLocation mueve la unidad; una unidad alquilada no se puede mover.
func (u *InventoryUnit) UpdateLocation(locationID, actor string, now time.Time) error {
	if u.CurrentStatus == InventoryStatusRented {
		return fmt.Errorf("%w: cannot move rented unit %s", domain.ErrIllegalTransition, u.InventoryCode)
	}
	if locationID == "" {
		return fmt.Errorf("%w: location ID is required", domain.ErrInvalidInput)
	}
	u.LocationID = locationID
	u.touch(actor, now)
	return nil
}

// UpdateCondition cambia la calificación y deja nota.
func (u *InventoryUnit) UpdateCondition(grade ConditionGrade, note, actor string, now time.Time) error {
	if !grade.IsValid() {
		return fmt.Errorf("%w: unknown condition grade %q", domain.ErrInvalidInput, grade)
	}
	u.ConditionGrade = grade
	u.Notes = appendNote(u.Notes, note)
	u.touch(actor, now)
	return nil
}

// RecordInspection fecha la inspección con el día de now.
func (u *InventoryUnit) RecordInspection(grade ConditionGrade, note, actor string, now time.Time) error {
	if err := u.UpdateCondition(grade, note, actor, now); err != nil {
		return err
	}
	d := DateOf(now)
	u.LastInspectionDate = &d
	return nil
}

// IncrementRentalStats suma un alquiler de days días.
func (u *InventoryUnit) IncrementRentalStats(days int, actor string, now time.Time) error {
	if days <= 0 {
		return fmt.Errorf("%w: rental days must be positive, got %d", domain.ErrInvalidQuantity, days)
	}
	u.RentalCount++
	u.TotalRentalDays += days
	u.touch(actor, now)
	return nil
}

// UpdateValue revaloriza la unidad.
func (u *InventoryUnit) UpdateValue(value decimal.Decimal, actor string, now time.Time) error {
	if value.IsNegative() {
		return fmt.Errorf("%w: current value cannot be negative", domain.ErrInvalidInput)
	}
	v := value
	u.CurrentValue = &v
	u.touch(actor, now)
	return nil
}

// Deactivate baja lógica.
func (u *InventoryUnit) Deactivate(actor string, now time.Time) {
	u.IsActive = false
	u.touch(actor, now)
}

func (u *InventoryUnit) IsRentable() bool         { return u.CurrentStatus == InventoryStatusAvailableRent }
func (u *InventoryUnit) IsSaleable() bool         { return u.CurrentStatus == InventoryStatusAvailableSale }
func (u *InventoryUnit) RequiresInspection() bool { return u.CurrentStatus == InventoryStatusInspectionPending }

func (u *InventoryUnit) String() string {
	return fmt.Sprintf("InventoryUnit(code=%s, status=%s, condition=%s)", u.InventoryCode, u.CurrentStatus, u.ConditionGrade)
}
