package transaction

import (
	"context"
	"time"

	appinventory "github.com/jhoicas/rental-core/internal/application/inventory"
	"github.com/jhoicas/rental-core/internal/domain/entity"
	"github.com/jhoicas/rental-core/internal/domain/event"
	"github.com/jhoicas/rental-core/internal/domain/inventory"
	"github.com/jhoicas/rental-core/pkg/logger"
)

// DefaultIdempotencyTTL vigencia de una llave de idempotencia de pago.
const DefaultIdempotencyTTL = 24 * time.Hour

// TransactionUseCase orquesta cabecera, líneas, stock y unidades en una sola transacción de BD
// por operación. Los eventos se publican después del commit; un fallo al publicar se registra
// en el log y no revierte nada.
type TransactionUseCase struct {
	txRunner    TxRunner
	publisher   EventPublisher
	idempotency IdempotencyStore
	log         *logger.Logger
	now         func() time.Time
	idemTTL     time.Duration
}

// NewTransactionUseCase construye el caso de uso. publisher e idempotency pueden ser nil.
func NewTransactionUseCase(txRunner TxRunner, publisher EventPublisher, idempotency IdempotencyStore, log *logger.Logger) *TransactionUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &TransactionUseCase{
		txRunner:    txRunner,
		publisher:   publisher,
		idempotency: idempotency,
		log:         log.Component("transaction"),
		now:         time.Now,
		idemTTL:     DefaultIdempotencyTTL,
	}
}

// SetIdempotencyTTL cambia la vigencia de las llaves de pago.
func (uc *TransactionUseCase) SetIdempotencyTTL(ttl time.Duration) {
	if ttl > 0 {
		uc.idemTTL = ttl
	}
}

// outbox eventos acumulados durante la transacción; solo se publican si hubo commit.
type outbox struct {
	pending []pendingEvent
}

type pendingEvent struct {
	aggregateType string
	aggregateID   string
	eventType     string
	data          any
}

func (o *outbox) add(aggregateType, aggregateID, eventType string, data any) {
	o.pending = append(o.pending, pendingEvent{aggregateType, aggregateID, eventType, data})
}

func (o *outbox) statusChanged(h *entity.TransactionHeader, from entity.TransactionStatus, reason string) {
	o.add(event.AggregateTransaction, h.ID, event.TypeTransactionStatusChanged, event.TransactionStatusChanged{
		TransactionID:     h.ID,
		TransactionNumber: h.TransactionNumber,
		From:              string(from),
		To:                string(h.Status),
		PaymentStatus:     string(h.PaymentStatus),
		Reason:            reason,
	})
}

func (o *outbox) paymentStatusChanged(h *entity.TransactionHeader, from entity.PaymentStatus) {
	o.add(event.AggregateTransaction, h.ID, event.TypePaymentStatusChanged, event.PaymentStatusChanged{
		TransactionID:     h.ID,
		TransactionNumber: h.TransactionNumber,
		Status:            string(h.Status),
		From:              string(from),
		To:                string(h.PaymentStatus),
		BalanceDue:        h.BalanceDue(),
	})
}

func (o *outbox) stockChanged(s *entity.StockLevel, op inventory.StockOperation, qty int, ref string) {
	o.add(event.AggregateStockLevel, s.ID, event.TypeStockChanged, appinventory.StockChangedOf(s, op, qty, ref))
}

func publishAll(ctx context.Context, pub EventPublisher, log *logger.Logger, o *outbox, actor string, now time.Time) {
	if pub == nil {
		return
	}
	for _, p := range o.pending {
		env, err := event.New(p.aggregateType, p.aggregateID, p.eventType, actor, p.data, now)
		if err == nil {
			err = pub.Publish(ctx, env.AggregateID, env)
		}
		if err != nil {
			log.Error().Err(err).
				Str("event_type", p.eventType).
				Str("aggregate_id", p.aggregateID).
				Msg("publicar evento")
		}
	}
}

func (uc *TransactionUseCase) flush(ctx context.Context, o *outbox, actor string, now time.Time) {
	publishAll(ctx, uc.publisher, uc.log, o, actor, now)
}
