package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/rental-core/internal/domain"
	"github.com/jhoicas/rental-core/internal/domain/entity"
	"github.com/jhoicas/rental-core/internal/domain/repository"
)

// AvailabilityUseCase responde si se puede vender o alquilar una cantidad de un SKU.
// Venta mira el disponible del StockLevel; alquiler cuenta unidades AVAILABLE_RENT.
type AvailabilityUseCase struct {
	stockRepo repository.StockLevelRepository
	unitRepo  repository.InventoryUnitRepository
}

func NewAvailabilityUseCase(stockRepo repository.StockLevelRepository, unitRepo repository.InventoryUnitRepository) *AvailabilityUseCase {
	return &AvailabilityUseCase{stockRepo: stockRepo, unitRepo: unitRepo}
}

// AvailabilityQuery LocationID vacío consulta todas las ubicaciones del SKU.
type AvailabilityQuery struct {
	SKUID        string
	Quantity     int
	LocationID   string
	ForRent      bool
	MinCondition entity.ConditionGrade
}

type AvailableUnit struct {
	ID            string
	InventoryCode string
	SerialNumber  string
	Condition     entity.ConditionGrade
}

// LocationAvailability disponibilidad en una ubicación con la foto de su StockLevel.
type LocationAvailability struct {
	LocationID string
	Available  int
	OnHand     int
	Reserved   int
	Damaged    int
	Units      []AvailableUnit
}

type Availability struct {
	SKUID     string
	Requested int
	Available int
	// IsAvailable Available cubre Requested.
	IsAvailable bool
	Locations   []LocationAvailability
	// Reason motivo del rechazo de la consulta en CheckMany; vacío si se evaluó.
	Reason string
}

// CheckAvailability evalúa una consulta. Un SKU sin StockLevel en la ubicación no es error:
// se informa con disponible 0.
func (uc *AvailabilityUseCase) CheckAvailability(ctx context.Context, q AvailabilityQuery) (*Availability, error) {
	if q.SKUID == "" {
		return nil, fmt.Errorf("%w: SKU ID is required", domain.ErrInvalidInput)
	}
	if q.Quantity <= 0 {
		return nil, fmt.Errorf("%w: requested quantity must be positive, got %d", domain.ErrInvalidQuantity, q.Quantity)
	}
	if q.MinCondition != "" && !q.MinCondition.IsValid() {
		return nil, fmt.Errorf("%w: unknown condition grade %q", domain.ErrInvalidInput, q.MinCondition)
	}

	levels, err := uc.stockRepo.ListBySKU(ctx, q.SKUID)
	if err != nil {
		return nil, err
	}

	out := &Availability{SKUID: q.SKUID, Requested: q.Quantity}
	for _, s := range levels {
		if !s.IsActive || (q.LocationID != "" && s.LocationID != q.LocationID) {
			continue
		}
		loc, err := uc.atLocation(ctx, q, s)
		if err != nil {
			return nil, err
		}
		if loc.Available == 0 && q.LocationID == "" {
			continue
		}
		out.Available += loc.Available
		out.Locations = append(out.Locations, loc)
	}
	out.IsAvailable = out.Available >= q.Quantity
	return out, nil
}

func (uc *AvailabilityUseCase) atLocation(ctx context.Context, q AvailabilityQuery, s *entity.StockLevel) (LocationAvailability, error) {
	loc := LocationAvailability{
		LocationID: s.LocationID,
		OnHand:     s.OnHand(),
		Reserved:   s.Reserved(),
		Damaged:    s.Damaged(),
	}
	if !q.ForRent {
		loc.Available = s.Available()
		return loc, nil
	}
	units, err := uc.unitRepo.ListBySKU(ctx, q.SKUID, s.LocationID, entity.InventoryStatusAvailableRent)
	if err != nil {
		return loc, err
	}
	for _, u := range units {
		if !u.IsActive || !u.ConditionGrade.AtLeast(q.MinCondition) {
			continue
		}
		loc.Available++
		loc.Units = append(loc.Units, AvailableUnit{
			ID:            u.ID,
			InventoryCode: u.InventoryCode,
			SerialNumber:  u.SerialNumber,
			Condition:     u.ConditionGrade,
		})
	}
	return loc, nil
}

// CheckMany evalúa varias consultas con la misma ubicación y modo. Una consulta inválida queda
// con Reason y no detiene al resto; un error del repositorio sí.
func (uc *AvailabilityUseCase) CheckMany(ctx context.Context, locationID string, forRent bool, items []AvailabilityQuery) ([]Availability, error) {
	out := make([]Availability, 0, len(items))
	for _, it := range items {
		it.LocationID, it.ForRent = locationID, forRent
		a, err := uc.CheckAvailability(ctx, it)
		switch {
		case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidQuantity):
			out = append(out, Availability{SKUID: it.SKUID, Requested: it.Quantity, Reason: err.Error()})
		case err != nil:
			return nil, err
		default:
			out = append(out, *a)
		}
	}
	return out, nil
}
