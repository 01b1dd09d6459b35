package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/rental-core/internal/domain"
	"github.com/jhoicas/rental-core/internal/domain/entity"
	"github.com/jhoicas/rental-core/internal/domain/event"
	"github.com/jhoicas/rental-core/internal/domain/inventory"
	"github.com/jhoicas/rental-core/internal/domain/repository"
	"github.com/jhoicas/rental-core/pkg/logger"
)

// StockUseCase operaciones de cantidades sobre StockLevel. Cada llamada bloquea la fila
// (SELECT FOR UPDATE) dentro de una transacción y publica stock.changed tras el commit.
type StockUseCase struct {
	txRunner  TxRunner
	publisher EventPublisher
	log       *logger.Logger
	now       func() time.Time
}

// NewStockUseCase construye el caso de uso. publisher puede ser nil (no se publican eventos).
func NewStockUseCase(txRunner TxRunner, publisher EventPublisher, log *logger.Logger) *StockUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &StockUseCase{
		txRunner:  txRunner,
		publisher: publisher,
		log:       log.Component("stock"),
		now:       time.Now,
	}
}

// StockInput entrada común de las operaciones de cantidad.
type StockInput struct {
	SKUID      string
	LocationID string
	Quantity   int
	Actor      string
	Reference  string // documento que origina el movimiento (opcional)
}

func (uc *StockUseCase) Receive(ctx context.Context, in StockInput) (*entity.StockLevel, error) {
	return uc.apply(ctx, inventory.OpReceive, in)
}

func (uc *StockUseCase) Reserve(ctx context.Context, in StockInput) (*entity.StockLevel, error) {
	return uc.apply(ctx, inventory.OpReserve, in)
}

func (uc *StockUseCase) Release(ctx context.Context, in StockInput) (*entity.StockLevel, error) {
	return uc.apply(ctx, inventory.OpRelease, in)
}

func (uc *StockUseCase) ConfirmSale(ctx context.Context, in StockInput) (*entity.StockLevel, error) {
	return uc.apply(ctx, inventory.OpConfirmSale, in)
}

func (uc *StockUseCase) MarkDamaged(ctx context.Context, in StockInput) (*entity.StockLevel, error) {
	return uc.apply(ctx, inventory.OpMarkDamaged, in)
}

func (uc *StockUseCase) Repair(ctx context.Context, in StockInput) (*entity.StockLevel, error) {
	return uc.apply(ctx, inventory.OpRepair, in)
}

// SetInTransit fija la cantidad en tránsito (no es un delta).
func (uc *StockUseCase) SetInTransit(ctx context.Context, in StockInput) (*entity.StockLevel, error) {
	return uc.apply(ctx, inventory.OpInTransit, in)
}

func (uc *StockUseCase) apply(ctx context.Context, op inventory.StockOperation, in StockInput) (*entity.StockLevel, error) {
	if in.SKUID == "" || in.LocationID == "" {
		return nil, fmt.Errorf("%w: SKU ID and location ID are required", domain.ErrInvalidInput)
	}
	now := uc.now()
	var out *entity.StockLevel
	err := uc.txRunner.Run(ctx, func(tx repository.Tx) error {
		s, err := tx.Stock.GetForUpdate(ctx, in.SKUID, in.LocationID)
		if err != nil {
			return err
		}
		if err := inventory.Apply(s, op, in.Quantity, in.Actor, now); err != nil {
			return err
		}
		if err := tx.Stock.Update(ctx, s); err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.emit(ctx, out, op, in.Quantity, in.Reference, in.Actor, now)
	return out, nil
}

// CreateStockLevelInput alta de un SKU en una ubicación.
type CreateStockLevelInput struct {
	SKUID           string
	LocationID      string
	OnHand          int
	ReorderPoint    int
	ReorderQuantity int
	MaximumStock    *int
	Actor           string
}

// CreateStockLevel da de alta el nivel con todo lo que hay en mano como disponible.
// Un par SKU+ubicación repetido devuelve domain.ErrDuplicate desde el repositorio.
func (uc *StockUseCase) CreateStockLevel(ctx context.Context, in CreateStockLevelInput) (*entity.StockLevel, error) {
	now := uc.now()
	s, err := entity.NewStockLevel(entity.StockLevelParams{
		SKUID:             in.SKUID,
		LocationID:        in.LocationID,
		QuantityOnHand:    in.OnHand,
		QuantityAvailable: in.OnHand,
		ReorderPoint:      in.ReorderPoint,
		ReorderQuantity:   in.ReorderQuantity,
		MaximumStock:      in.MaximumStock,
		Audit:             entity.NewAudit(in.Actor, now),
	})
	if err != nil {
		return nil, err
	}
	if err := uc.txRunner.Run(ctx, func(tx repository.Tx) error {
		return tx.Stock.Create(ctx, s)
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateReorderLevels ajusta punto, cantidad de reorden y tope máximo.
func (uc *StockUseCase) UpdateReorderLevels(ctx context.Context, skuID, locationID string, point, qty int, maximum *int, actor string) (*entity.StockLevel, error) {
	now := uc.now()
	var out *entity.StockLevel
	err := uc.txRunner.Run(ctx, func(tx repository.Tx) error {
		s, err := tx.Stock.GetForUpdate(ctx, skuID, locationID)
		if err != nil {
			return err
		}
		if err := s.UpdateReorderLevels(point, qty, maximum, actor, now); err != nil {
			return err
		}
		out = s
		return tx.Stock.Update(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *StockUseCase) emit(ctx context.Context, s *entity.StockLevel, op inventory.StockOperation, qty int, ref, actor string, now time.Time) {
	if uc.publisher == nil {
		return
	}
	env, err := event.New(event.AggregateStockLevel, s.ID, event.TypeStockChanged, actor, StockChangedOf(s, op, qty, ref), now)
	if err == nil {
		err = uc.publisher.Publish(ctx, env.AggregateID, env)
	}
	if err != nil {
		uc.log.Error().Err(err).Str("stock_level_id", s.ID).Str("operation", string(op)).Msg("publicar stock.changed")
	}
}

// StockChangedOf payload del evento stock.changed con las cantidades finales.
func StockChangedOf(s *entity.StockLevel, op inventory.StockOperation, qty int, ref string) event.StockChanged {
	return event.StockChanged{
		StockLevelID: s.ID,
		SKUID:        s.SKUID,
		LocationID:   s.LocationID,
		Operation:    string(op),
		Quantity:     qty,
		OnHand:       s.OnHand(),
		Available:    s.Available(),
		Reserved:     s.Reserved(),
		Damaged:      s.Damaged(),
		Reference:    ref,
	}
}
