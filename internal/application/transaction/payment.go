package transaction

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/rental-core/internal/domain"
	"github.com/jhoicas/rental-core/internal/domain/entity"
	"github.com/jhoicas/rental-core/internal/domain/event"
	"github.com/jhoicas/rental-core/internal/domain/repository"
)

// PaymentInput pago sobre una transacción existente.
type PaymentInput struct {
	TransactionID  string
	Amount         decimal.Decimal
	Method         entity.PaymentMethod
	Reference      string
	IdempotencyKey string // opcional; reintentos con la misma llave no duplican el pago
	Actor          string
}

// ApplyPayment aplica un pago. Con IdempotencyKey, un segundo intento dentro del TTL devuelve
// domain.ErrDuplicate sin tocar la transacción. Si el pago falla la llave se libera.
func (uc *TransactionUseCase) ApplyPayment(ctx context.Context, in PaymentInput) (*entity.TransactionHeader, error) {
	key := ""
	if in.IdempotencyKey != "" && uc.idempotency != nil {
		key = "payment:" + in.TransactionID + ":" + in.IdempotencyKey
		claimed, err := uc.idempotency.Claim(ctx, key, uc.idemTTL)
		if err != nil {
			return nil, fmt.Errorf("claim idempotency key: %w", err)
		}
		if !claimed {
			return nil, fmt.Errorf("%w: payment %s already applied", domain.ErrDuplicate, in.IdempotencyKey)
		}
	}

	now := uc.now()
	var (
		h   *entity.TransactionHeader
		out outbox
	)
	err := uc.txRunner.Run(ctx, func(tx repository.Tx) error {
		var err error
		h, err = tx.Transactions.GetForUpdate(ctx, in.TransactionID)
		if err != nil {
			return err
		}
		if err := h.ApplyPayment(in.Amount, in.Method, in.Reference, in.Actor, now); err != nil {
			return err
		}
		out.add(event.AggregateTransaction, h.ID, event.TypeTransactionPaymentApplied, paymentApplied(h, in.Amount))
		return tx.Transactions.Update(ctx, h)
	})
	if err != nil {
		if key != "" {
			if ferr := uc.idempotency.Forget(ctx, key); ferr != nil {
				uc.log.Warn().Err(ferr).Str("key", key).Msg("liberar llave de idempotencia")
			}
		}
		return nil, err
	}
	uc.flush(ctx, &out, in.Actor, now)
	return h, nil
}

// RefundTransaction reembolsa una transacción completada.
func (uc *TransactionUseCase) RefundTransaction(ctx context.Context, transactionID string, amount decimal.Decimal, reason, actor string) (*entity.TransactionHeader, error) {
	now := uc.now()
	var (
		h   *entity.TransactionHeader
		out outbox
	)
	err := uc.txRunner.Run(ctx, func(tx repository.Tx) error {
		var err error
		h, err = tx.Transactions.GetForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		from := h.Status
		if err := h.ProcessRefund(amount, reason, actor, now); err != nil {
			return err
		}
		out.statusChanged(h, from, reason)
		return tx.Transactions.Update(ctx, h)
	})
	if err != nil {
		return nil, err
	}
	uc.flush(ctx, &out, actor, now)
	return h, nil
}

// CompleteSale cierra una venta confirmada (CONFIRMED -> IN_PROGRESS -> COMPLETED).
func (uc *TransactionUseCase) CompleteSale(ctx context.Context, transactionID, actor string) (*entity.TransactionHeader, error) {
	now := uc.now()
	var (
		h   *entity.TransactionHeader
		out outbox
	)
	err := uc.txRunner.Run(ctx, func(tx repository.Tx) error {
		var err error
		h, err = tx.Transactions.GetForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		if !h.IsSale() {
			return fmt.Errorf("%w: can only complete sale transactions", domain.ErrIllegalTransition)
		}
		from := h.Status
		if from == entity.TransactionStatusConfirmed {
			if err := h.UpdateStatus(entity.TransactionStatusInProgress, actor, now); err != nil {
				return err
			}
		}
		if err := h.UpdateStatus(entity.TransactionStatusCompleted, actor, now); err != nil {
			return err
		}
		out.statusChanged(h, from, "")
		return tx.Transactions.Update(ctx, h)
	})
	if err != nil {
		return nil, err
	}
	uc.flush(ctx, &out, actor, now)
	return h, nil
}
