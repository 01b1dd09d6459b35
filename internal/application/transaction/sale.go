package transaction

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/rental-core/internal/domain"
	"github.com/jhoicas/rental-core/internal/domain/entity"
	"github.com/jhoicas/rental-core/internal/domain/event"
	"github.com/jhoicas/rental-core/internal/domain/inventory"
	"github.com/jhoicas/rental-core/internal/domain/repository"
)

// Payment pago que acompaña una confirmación.
type Payment struct {
	Amount    decimal.Decimal
	Method    entity.PaymentMethod
	Reference string
}

// ConfirmSale confirma una venta PENDING: descuenta del stock lo reservado por cada línea de
// producto, aplica el pago si viene y deja la cabecera en CONFIRMED.
func (uc *TransactionUseCase) ConfirmSale(ctx context.Context, transactionID string, payment *Payment, actor string) (*entity.TransactionHeader, error) {
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
			return fmt.Errorf("%w: can only confirm sale transactions", domain.ErrIllegalTransition)
		}
		from := h.Status
		if !h.CanTransitionTo(entity.TransactionStatusConfirmed) {
			return fmt.Errorf("%w: illegal transition from %s to %s", domain.ErrIllegalTransition, from, entity.TransactionStatusConfirmed)
		}
		lines, err := tx.Lines.ListByTransaction(ctx, h.ID)
		if err != nil {
			return err
		}
		if err := moveLineStock(ctx, tx, h, lines, inventory.OpConfirmSale, actor, now, &out); err != nil {
			return err
		}
		if payment != nil {
			if err := h.ApplyPayment(payment.Amount, payment.Method, payment.Reference, actor, now); err != nil {
				return err
			}
			out.add(event.AggregateTransaction, h.ID, event.TypeTransactionPaymentApplied, paymentApplied(h, payment.Amount))
		}
		if err := h.UpdateStatus(entity.TransactionStatusConfirmed, actor, now); err != nil {
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

// StartRental entrega un alquiler PENDING: las unidades reservadas pasan a RENTED y la cabecera
// queda IN_PROGRESS. payment (típicamente el depósito) es opcional.
func (uc *TransactionUseCase) StartRental(ctx context.Context, transactionID string, payment *Payment, actor string) (*entity.TransactionHeader, error) {
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
		if !h.IsRental() {
			return fmt.Errorf("%w: can only start rental transactions", domain.ErrIllegalTransition)
		}
		from := h.Status
		if err := h.UpdateStatus(entity.TransactionStatusConfirmed, actor, now); err != nil {
			return err
		}
		if err := h.UpdateStatus(entity.TransactionStatusInProgress, actor, now); err != nil {
			return err
		}
		lines, err := tx.Lines.ListByTransaction(ctx, h.ID)
		if err != nil {
			return err
		}
		if err := moveRentalUnits(ctx, tx, lines, entity.InventoryStatusRented, actor, now); err != nil {
			return err
		}
		if payment != nil {
			if err := h.ApplyPayment(payment.Amount, payment.Method, payment.Reference, actor, now); err != nil {
				return err
			}
			out.add(event.AggregateTransaction, h.ID, event.TypeTransactionPaymentApplied, paymentApplied(h, payment.Amount))
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

// CancelTransaction cancela la transacción. Si estaba PENDING devuelve lo apartado al enviarla:
// reservas de stock en ventas, unidades reservadas en alquileres. Antes de PENDING no hay
// nada apartado y después de CONFIRMED el stock ya salió.
func (uc *TransactionUseCase) CancelTransaction(ctx context.Context, transactionID, reason, actor string) (*entity.TransactionHeader, error) {
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
		if err := h.CancelTransaction(reason, actor, now); err != nil {
			return err
		}
		if from == entity.TransactionStatusPending {
			lines, err := tx.Lines.ListByTransaction(ctx, h.ID)
			if err != nil {
				return err
			}
			switch h.TransactionType {
			case entity.TransactionTypeSale:
				err = moveLineStock(ctx, tx, h, lines, inventory.OpRelease, actor, now, &out)
			case entity.TransactionTypeRental:
				err = moveRentalUnits(ctx, tx, lines, entity.InventoryStatusAvailableRent, actor, now)
			}
			if err != nil {
				return err
			}
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

func paymentApplied(h *entity.TransactionHeader, amount decimal.Decimal) event.TransactionPaymentApplied {
	return event.TransactionPaymentApplied{
		TransactionID: h.ID,
		Amount:        amount,
		PaidAmount:    h.PaidAmount,
		BalanceDue:    h.BalanceDue(),
		PaymentStatus: string(h.PaymentStatus),
		Method:        string(h.PaymentMethod),
		Reference:     h.PaymentReference,
	}
}
