package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/rental-core/internal/domain"
	"github.com/jhoicas/rental-core/internal/domain/entity"
	"github.com/jhoicas/rental-core/internal/domain/inventory"
	"github.com/jhoicas/rental-core/internal/domain/repository"
)

// LineInput una línea de la transacción a crear.
type LineInput struct {
	LineType           entity.LineItemType
	SKUID              string
	InventoryUnitID    string
	Description        string
	Quantity           decimal.Decimal
	UnitPrice          decimal.Decimal
	DiscountPercentage decimal.Decimal
	DiscountAmount     decimal.Decimal
	TaxRate            decimal.Decimal
	RentalPeriodValue  *int
	RentalPeriodUnit   entity.RentalPeriodUnit
	RentalStartDate    *time.Time
	RentalEndDate      *time.Time
}

// CreateInput cabecera y líneas de una transacción nueva.
type CreateInput struct {
	TransactionNumber string
	Type              entity.TransactionType
	CustomerID        string
	LocationID        string
	SalesPersonID     string
	DueDate           *time.Time
	RentalStartDate   *time.Time
	RentalEndDate     *time.Time
	DepositAmount     decimal.Decimal
	Notes             string
	Lines             []LineInput
	Actor             string
}

// CreateTransaction crea la cabecera en DRAFT con sus líneas numeradas desde 1 y los totales
// calculados a partir de ellas. Las líneas de alquiler sin fechas heredan las de la cabecera.
func (uc *TransactionUseCase) CreateTransaction(ctx context.Context, in CreateInput) (*entity.TransactionHeader, []*entity.TransactionLine, error) {
	if len(in.Lines) == 0 {
		return nil, nil, fmt.Errorf("%w: at least one line is required", domain.ErrInvalidInput)
	}
	now := uc.now()
	h, err := entity.NewTransactionHeader(entity.TransactionHeader{
		TransactionNumber: in.TransactionNumber,
		TransactionType:   in.Type,
		TransactionDate:   entity.DateOf(now),
		CustomerID:        in.CustomerID,
		LocationID:        in.LocationID,
		SalesPersonID:     in.SalesPersonID,
		DueDate:           in.DueDate,
		RentalStartDate:   in.RentalStartDate,
		RentalEndDate:     in.RentalEndDate,
		DepositAmount:     in.DepositAmount,
		Notes:             in.Notes,
		Audit:             entity.NewAudit(in.Actor, now),
	})
	if err != nil {
		return nil, nil, err
	}

	lines := make([]*entity.TransactionLine, 0, len(in.Lines))
	for i, li := range in.Lines {
		start, end := li.RentalStartDate, li.RentalEndDate
		if h.IsRental() && li.LineType == entity.LineTypeProduct && start == nil && end == nil {
			start, end = h.RentalStartDate, h.RentalEndDate
		}
		l, err := entity.NewTransactionLine(entity.TransactionLine{
			TransactionID:      h.ID,
			LineNumber:         i + 1,
			LineType:           li.LineType,
			SKUID:              li.SKUID,
			InventoryUnitID:    li.InventoryUnitID,
			Description:        li.Description,
			Quantity:           li.Quantity,
			UnitPrice:          li.UnitPrice,
			DiscountPercentage: li.DiscountPercentage,
			DiscountAmount:     li.DiscountAmount,
			TaxRate:            li.TaxRate,
			RentalPeriodValue:  li.RentalPeriodValue,
			RentalPeriodUnit:   li.RentalPeriodUnit,
			RentalStartDate:    start,
			RentalEndDate:      end,
			Audit:              entity.NewAudit(in.Actor, now),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		lines = append(lines, l)
	}
	if err := h.ApplyLineTotals(lines, in.Actor, now); err != nil {
		return nil, nil, err
	}

	err = uc.txRunner.Run(ctx, func(tx repository.Tx) error {
		if err := tx.Transactions.Create(ctx, h); err != nil {
			return err
		}
		for _, l := range lines {
			if err := tx.Lines.Create(ctx, l); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return h, lines, nil
}

// SubmitTransaction pasa de DRAFT a PENDING y aparta lo que la transacción va a consumir:
// en ventas reserva el stock de las líneas de producto, en alquileres reserva las unidades.
func (uc *TransactionUseCase) SubmitTransaction(ctx context.Context, transactionID, actor string) (*entity.TransactionHeader, error) {
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
		if err := h.UpdateStatus(entity.TransactionStatusPending, actor, now); err != nil {
			return err
		}
		lines, err := tx.Lines.ListByTransaction(ctx, h.ID)
		if err != nil {
			return err
		}
		switch h.TransactionType {
		case entity.TransactionTypeSale:
			err = moveLineStock(ctx, tx, h, lines, inventory.OpReserve, actor, now, &out)
		case entity.TransactionTypeRental:
			err = moveRentalUnits(ctx, tx, lines, entity.InventoryStatusReservedRent, actor, now)
		}
		if err != nil {
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

// moveLineStock aplica op con la cantidad pendiente de cada línea de producto activa,
// sobre el stock del SKU en la ubicación de la cabecera.
func moveLineStock(ctx context.Context, tx repository.Tx, h *entity.TransactionHeader, lines []*entity.TransactionLine,
	op inventory.StockOperation, actor string, now time.Time, out *outbox) error {
	for _, l := range lines {
		if !l.IsActive || l.LineType != entity.LineTypeProduct {
			continue
		}
		qty, err := inventory.UnitsOf(l.RemainingQuantity())
		if err != nil {
			return fmt.Errorf("line %d: %w", l.LineNumber, err)
		}
		if qty == 0 {
			continue
		}
		if h.LocationID == "" {
			return fmt.Errorf("%w: location ID is required to move stock", domain.ErrInvalidInput)
		}
		s, err := tx.Stock.GetForUpdate(ctx, l.SKUID, h.LocationID)
		if err != nil {
			return err
		}
		if err := inventory.Apply(s, op, qty, actor, now); err != nil {
			return fmt.Errorf("line %d: %w", l.LineNumber, err)
		}
		if err := tx.Stock.Update(ctx, s); err != nil {
			return err
		}
		out.stockChanged(s, op, qty, h.TransactionNumber)
	}
	return nil
}

// moveRentalUnits lleva cada unidad referenciada por las líneas al estado target.
func moveRentalUnits(ctx context.Context, tx repository.Tx, lines []*entity.TransactionLine,
	target entity.InventoryStatus, actor string, now time.Time) error {
	for _, l := range lines {
		if !l.IsActive || l.InventoryUnitID == "" {
			continue
		}
		u, err := tx.Units.GetForUpdate(ctx, l.InventoryUnitID)
		if err != nil {
			return err
		}
		if err := u.UpdateStatus(target, actor, now); err != nil {
			return fmt.Errorf("line %d: %w", l.LineNumber, err)
		}
		if err := tx.Units.Update(ctx, u); err != nil {
			return err
		}
	}
	return nil
}
