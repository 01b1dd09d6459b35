package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/rental-core/internal/domain"
)

// StockLevel es el libro de cantidades de un SKU en una ubicación.
// Invariante: OnHand == Available + Reserved + Damaged. InTransit va aparte y solo
// se consulta para sugerir reposición. Las cantidades son privadas: solo cambian
// a través de las operaciones de la entidad.
type StockLevel struct {
	ID         string
	SKUID      string
	LocationID string
	IsActive   bool
	Audit

	onHand    int
	available int
	reserved  int
	inTransit int
	damaged   int

	reorderPoint    int
	reorderQuantity int
	maximumStock    *int
}

// StockLevelParams datos para crear o rehidratar un StockLevel (desde el repositorio).
type StockLevelParams struct {
	ID                string
	SKUID             string
	LocationID        string
	QuantityOnHand    int
	QuantityAvailable int
	QuantityReserved  int
	QuantityInTransit int
	QuantityDamaged   int
	ReorderPoint      int
	ReorderQuantity   int
	MaximumStock      *int
	IsActive          *bool
	Audit             Audit
}

// NewStockLevel valida cantidades no negativas y la ecuación de conservación.
func NewStockLevel(p StockLevelParams) (*StockLevel, error) {
	if p.SKUID == "" {
		return nil, fmt.Errorf("%w: SKU ID is required", domain.ErrInvalidInput)
	}
	if p.LocationID == "" {
		return nil, fmt.Errorf("%w: location ID is required", domain.ErrInvalidInput)
	}
	quantities := []struct {
		name string
		v    int
	}{
		{"quantity on hand", p.QuantityOnHand},
		{"quantity available", p.QuantityAvailable},
		{"quantity reserved", p.QuantityReserved},
		{"quantity in transit", p.QuantityInTransit},
		{"quantity damaged", p.QuantityDamaged},
		{"reorder point", p.ReorderPoint},
		{"reorder quantity", p.ReorderQuantity},
	}
	for _, q := range quantities {
		if q.v < 0 {
			return nil, fmt.Errorf("%w: %s cannot be negative", domain.ErrInvalidInput, q.name)
		}
	}
	if p.MaximumStock != nil && *p.MaximumStock < 0 {
		return nil, fmt.Errorf("%w: maximum stock cannot be negative", domain.ErrInvalidInput)
	}
	if sum := p.QuantityAvailable + p.QuantityReserved + p.QuantityDamaged; sum != p.QuantityOnHand {
		return nil, fmt.Errorf("%w: quantity mismatch: on hand %d != available %d + reserved %d + damaged %d",
			domain.ErrInvalidInput, p.QuantityOnHand, p.QuantityAvailable, p.QuantityReserved, p.QuantityDamaged)
	}

	id := p.ID
	if id == "" {
		id = uuid.New().String()
	}
	active := true
	if p.IsActive != nil {
		active = *p.IsActive
	}
	s := &StockLevel{
		ID:              id,
		SKUID:           p.SKUID,
		LocationID:      p.LocationID,
		IsActive:        active,
		Audit:           p.Audit,
		onHand:          p.QuantityOnHand,
		available:       p.QuantityAvailable,
		reserved:        p.QuantityReserved,
		inTransit:       p.QuantityInTransit,
		damaged:         p.QuantityDamaged,
		reorderPoint:    p.ReorderPoint,
		reorderQuantity: p.ReorderQuantity,
	}
	if p.MaximumStock != nil {
		m := *p.MaximumStock
		s.maximumStock = &m
	}
	return s, nil
}

func (s *StockLevel) OnHand() int          { return s.onHand }
func (s *StockLevel) Available() int       { return s.available }
func (s *StockLevel) Reserved() int        { return s.reserved }
func (s *StockLevel) InTransit() int       { return s.inTransit }
func (s *StockLevel) Damaged() int         { return s.damaged }
func (s *StockLevel) ReorderPoint() int    { return s.reorderPoint }
func (s *StockLevel) ReorderQuantity() int { return s.reorderQuantity }

// MaximumStock devuelve nil si no hay tope configurado.
func (s *StockLevel) MaximumStock() *int {
	if s.maximumStock == nil {
		return nil
	}
	m := *s.maximumStock
	return &m
}

// ReceiveStock suma qty a on hand y disponible.
func (s *StockLevel) ReceiveStock(qty int, actor string, now time.Time) error {
	if qty <= 0 {
		return fmt.Errorf("%w: receive quantity must be positive, got %d", domain.ErrInvalidQuantity, qty)
	}
	s.onHand += qty
	s.available += qty
	s.commit(actor, now)
	return nil
}

// ReserveStock pasa qty de disponible a reservado (on hand no cambia).
func (s *StockLevel) ReserveStock(qty int, actor string, now time.Time) error {
	if qty <= 0 {
		return fmt.Errorf("%w: reserve quantity must be positive, got %d", domain.ErrInvalidQuantity, qty)
	}
	if qty > s.available {
		return fmt.Errorf("%w: insufficient available: cannot reserve %d units, only %d available",
			domain.ErrInsufficientStock, qty, s.available)
	}
	s.available -= qty
	s.reserved += qty
	s.commit(actor, now)
	return nil
}

// ReleaseReservation devuelve qty reservadas a disponible.
func (s *StockLevel) ReleaseReservation(qty int, actor string, now time.Time) error {
	if qty <= 0 {
		return fmt.Errorf("%w: release quantity must be positive, got %d", domain.ErrInvalidQuantity, qty)
	}
	if qty > s.reserved {
		return fmt.Errorf("%w: cannot release %d units, only %d reserved", domain.ErrInsufficientStock, qty, s.reserved)
	}
	s.reserved -= qty
	s.available += qty
	s.commit(actor, now)
	return nil
}

// ConfirmSale saca qty reservadas del inventario: baja on hand y reservado.
// Disponible no cambia porque ya excluía las reservadas.
func (s *StockLevel) ConfirmSale(qty int, actor string, now time.Time) error {
	if qty <= 0 {
		return fmt.Errorf("%w: sale quantity must be positive, got %d", domain.ErrInvalidQuantity, qty)
	}
	if qty > s.reserved {
		return fmt.Errorf("%w: cannot sell %d units, only %d reserved", domain.ErrInsufficientStock, qty, s.reserved)
	}
	s.onHand -= qty
	s.reserved -= qty
	s.commit(actor, now)
	return nil
}

// MarkDamaged pasa qty de disponible a dañado.
func (s *StockLevel) MarkDamaged(qty int, actor string, now time.Time) error {
	if qty <= 0 {
		return fmt.Errorf("%w: damaged quantity must be positive, got %d", domain.ErrInvalidQuantity, qty)
	}
	if qty > s.available {
		return fmt.Errorf("%w: cannot mark %d units as damaged, only %d available", domain.ErrInsufficientStock, qty, s.available)
	}
	s.available -= qty
	s.damaged += qty
	s.commit(actor, now)
	return nil
}

// RepairDamaged devuelve qty dañadas a disponible.
func (s *StockLevel) RepairDamaged(qty int, actor string, now time.Time) error {
	if qty <= 0 {
		return fmt.Errorf("%w: repair quantity must be positive, got %d", domain.ErrInvalidQuantity, qty)
	}
	if qty > s.damaged {
		return fmt.Errorf("%w: cannot repair %d units, only %d damaged", domain.ErrInsufficientStock, qty, s.damaged)
	}
	s.damaged -= qty
	s.available += qty
	s.commit(actor, now)
	return nil
}

// UpdateInTransit registra la cantidad en camino hacia la ubicación.
func (s *StockLevel) UpdateInTransit(qty int, actor string, now time.Time) error {
	if qty < 0 {
		return fmt.Errorf("%w: quantity in transit cannot be negative", domain.ErrInvalidQuantity)
	}
	s.inTransit = qty
	s.commit(actor, now)
	return nil
}

// UpdateReorderLevels fija punto y cantidad de reorden; maximum nil elimina el tope.
func (s *StockLevel) UpdateReorderLevels(point, qty int, maximum *int, actor string, now time.Time) error {
	if point < 0 {
		return fmt.Errorf("%w: reorder point cannot be negative", domain.ErrInvalidInput)
	}
	if qty < 0 {
		return fmt.Errorf("%w: reorder quantity cannot be negative", domain.ErrInvalidInput)
	}
	if maximum != nil && *maximum < 0 {
		return fmt.Errorf("%w: maximum stock cannot be negative", domain.ErrInvalidInput)
	}
	s.reorderPoint = point
	s.reorderQuantity = qty
	s.maximumStock = nil
	if maximum != nil {
		m := *maximum
		s.maximumStock = &m
	}
	s.commit(actor, now)
	return nil
}

// NeedsReorder disponible en o bajo el punto de reorden.
func (s *StockLevel) NeedsReorder() bool {
	return s.available <= s.reorderPoint
}

// SuggestedOrderQuantity cantidad de reorden, recortada al espacio libre bajo el máximo
// (máximo - on hand - en tránsito). Nunca negativa.
func (s *StockLevel) SuggestedOrderQuantity() int {
	if !s.NeedsReorder() {
		return 0
	}
	qty := s.reorderQuantity
	if s.maximumStock != nil {
		room := *s.maximumStock - s.onHand - s.inTransit
		if room < 0 {
			return 0
		}
		if room < qty {
			qty = room
		}
	}
	return qty
}

func (s *StockLevel) String() string {
	return fmt.Sprintf("StockLevel(sku=%s, location=%s, on_hand=%d, available=%d, reserved=%d, damaged=%d)",
		s.SKUID, s.LocationID, s.onHand, s.available, s.reserved, s.damaged)
}

// commit verifica la conservación y sella auditoría. Una violación aquí es un bug del núcleo.
func (s *StockLevel) commit(actor string, now time.Time) {
	if s.available+s.reserved+s.damaged != s.onHand || s.available < 0 || s.reserved < 0 || s.damaged < 0 {
		panic(fmt.Sprintf("stock level %s: conservation broken: %s", s.ID, s))
	}
	s.touch(actor, now)
}
