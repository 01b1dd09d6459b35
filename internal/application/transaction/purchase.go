package transaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appinventory "github.com/jhoicas/rental-core/internal/application/inventory"
	"github.com/jhoicas/rental-core/internal/domain"
	"github.com/jhoicas/rental-core/internal/domain/entity"
	"github.com/jhoicas/rental-core/internal/domain/event"
	"github.com/jhoicas/rental-core/internal/domain/inventory"
	"github.com/jhoicas/rental-core/internal/domain/repository"
)

// PurchaseItem un renglón de la compra. Con SerialNumbers se registra una unidad por serie y
// su cantidad debe coincidir con Quantity.
type PurchaseItem struct {
	SKUID          string
	Description    string
	Quantity       int
	UnitCost       decimal.Decimal
	SerialNumbers  []string
	ForRent        bool
	ConditionNotes string
}

// RecordPurchaseInput compra ya recibida y pagada al proveedor.
type RecordPurchaseInput struct {
	TransactionNumber string
	SupplierID        string
	LocationID        string
	PurchaseDate      time.Time
	TaxRate           decimal.Decimal
	InvoiceNumber     string
	InvoiceDate       *time.Time
	PaymentMethod     entity.PaymentMethod
	Notes             string
	Items             []PurchaseItem
	Actor             string
}

// RecordPurchase registra una compra completada en una sola transacción de BD: cabecera PURCHASE
// en COMPLETED y PAID, una línea por renglón más la línea TAX, el stock recibido en la ubicación
// (creando el StockLevel si no existía) y una unidad por número de serie.
func (uc *TransactionUseCase) RecordPurchase(ctx context.Context, in RecordPurchaseInput) (*entity.TransactionHeader, []*entity.TransactionLine, error) {
	if err := validatePurchase(in); err != nil {
		return nil, nil, err
	}
	now := uc.now()
	purchaseDate := in.PurchaseDate
	if purchaseDate.IsZero() {
		purchaseDate = now
	}
	h, err := entity.NewTransactionHeader(entity.TransactionHeader{
		TransactionNumber: in.TransactionNumber,
		TransactionType:   entity.TransactionTypePurchase,
		TransactionDate:   entity.DateOf(purchaseDate),
		CustomerID:        in.SupplierID,
		LocationID:        in.LocationID,
		Notes:             purchaseNotes(in),
		Audit:             entity.NewAudit(in.Actor, now),
	})
	if err != nil {
		return nil, nil, err
	}
	lines, err := purchaseLines(h, in, now)
	if err != nil {
		return nil, nil, err
	}
	if err := h.ApplyLineTotals(lines, in.Actor, now); err != nil {
		return nil, nil, err
	}
	for _, st := range []entity.TransactionStatus{
		entity.TransactionStatusPending, entity.TransactionStatusConfirmed,
		entity.TransactionStatusInProgress, entity.TransactionStatusCompleted,
	} {
		if err := h.UpdateStatus(st, in.Actor, now); err != nil {
			return nil, nil, err
		}
	}

	var out outbox
	if h.TotalAmount.IsPositive() {
		if err := h.ApplyPayment(h.TotalAmount, in.PaymentMethod, in.InvoiceNumber, in.Actor, now); err != nil {
			return nil, nil, err
		}
		out.add(event.AggregateTransaction, h.ID, event.TypeTransactionPaymentApplied, paymentApplied(h, h.TotalAmount))
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
		for _, it := range in.Items {
			if err := ensureStockLevel(ctx, tx, it.SKUID, in.LocationID, in.Actor, now); err != nil {
				return err
			}
		}
		if err := moveLineStock(ctx, tx, h, lines, inventory.OpReceive, in.Actor, now, &out); err != nil {
			return err
		}
		return registerPurchasedUnits(ctx, tx, in, purchaseDate, now)
	})
	if err != nil {
		return nil, nil, err
	}
	out.statusChanged(h, entity.TransactionStatusDraft, "purchase recorded")
	uc.flush(ctx, &out, in.Actor, now)
	return h, lines, nil
}

func validatePurchase(in RecordPurchaseInput) error {
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", domain.ErrInvalidInput)
	}
	if in.LocationID == "" {
		return fmt.Errorf("%w: location ID is required", domain.ErrInvalidInput)
	}
	if in.TaxRate.IsNegative() {
		return fmt.Errorf("%w: tax rate cannot be negative", domain.ErrInvalidInput)
	}
	seen := make(map[string]bool)
	for i, it := range in.Items {
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: item %d quantity must be positive, got %d", domain.ErrInvalidQuantity, i+1, it.Quantity)
		}
		if it.UnitCost.IsNegative() {
			return fmt.Errorf("%w: item %d unit cost cannot be negative", domain.ErrInvalidInput, i+1)
		}
		if len(it.SerialNumbers) > 0 && len(it.SerialNumbers) != it.Quantity {
			return fmt.Errorf("%w: item %d has %d serial numbers for quantity %d",
				domain.ErrInvalidInput, i+1, len(it.SerialNumbers), it.Quantity)
		}
		for _, sn := range it.SerialNumbers {
			if strings.TrimSpace(sn) == "" {
				return fmt.Errorf("%w: item %d has a blank serial number", domain.ErrInvalidInput, i+1)
			}
			if seen[sn] {
				return fmt.Errorf("%w: serial number %s appears twice", domain.ErrDuplicate, sn)
			}
			seen[sn] = true
		}
	}
	return nil
}

func purchaseNotes(in RecordPurchaseInput) string {
	var invoice []string
	if in.InvoiceNumber != "" {
		invoice = append(invoice, "Invoice: "+in.InvoiceNumber)
	}
	if in.InvoiceDate != nil {
		invoice = append(invoice, "Invoice Date: "+in.InvoiceDate.Format(time.DateOnly))
	}
	notes := strings.TrimSpace(in.Notes)
	if len(invoice) == 0 {
		return notes
	}
	if notes == "" {
		return strings.Join(invoice, " | ")
	}
	return notes + "\n" + strings.Join(invoice, " | ")
}

// purchaseLines una línea PRODUCT por renglón al costo de compra, y la TAX sobre el subtotal.
func purchaseLines(h *entity.TransactionHeader, in RecordPurchaseInput, now time.Time) ([]*entity.TransactionLine, error) {
	lines := make([]*entity.TransactionLine, 0, len(in.Items)+1)
	subtotal := decimal.Zero
	for i, it := range in.Items {
		desc := it.Description
		if strings.TrimSpace(desc) == "" {
			desc = it.SKUID
		}
		l, err := entity.NewTransactionLine(entity.TransactionLine{
			TransactionID: h.ID,
			LineNumber:    i + 1,
			LineType:      entity.LineTypeProduct,
			SKUID:         it.SKUID,
			Description:   desc,
			Quantity:      decimal.NewFromInt(int64(it.Quantity)),
			UnitPrice:     it.UnitCost,
			Audit:         entity.NewAudit(in.Actor, now),
		})
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		subtotal = subtotal.Add(l.LineTotal)
		lines = append(lines, l)
	}
	if in.TaxRate.IsPositive() && subtotal.IsPositive() {
		tax, err := entity.NewTransactionLine(entity.TransactionLine{
			TransactionID: h.ID,
			LineNumber:    len(lines) + 1,
			LineType:      entity.LineTypeTax,
			Description:   fmt.Sprintf("Purchase tax (%s%%)", in.TaxRate.String()),
			Quantity:      decimal.NewFromInt(1),
			UnitPrice:     subtotal.Mul(in.TaxRate).Div(decimal.NewFromInt(100)).Round(2),
			Audit:         entity.NewAudit(in.Actor, now),
		})
		if err != nil {
			return nil, err
		}
		lines = append(lines, tax)
	}
	return lines, nil
}

// ensureStockLevel da de alta en cero el StockLevel que falte para recibir la compra.
func ensureStockLevel(ctx context.Context, tx repository.Tx, skuID, locationID, actor string, now time.Time) error {
	_, err := tx.Stock.GetForUpdate(ctx, skuID, locationID)
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	s, err := entity.NewStockLevel(entity.StockLevelParams{
		SKUID:      skuID,
		LocationID: locationID,
		Audit:      entity.NewAudit(actor, now),
	})
	if err != nil {
		return err
	}
	return tx.Stock.Create(ctx, s)
}

// registerPurchasedUnits una unidad por serie, en condición A y disponible para venta o alquiler.
func registerPurchasedUnits(ctx context.Context, tx repository.Tx, in RecordPurchaseInput, purchaseDate, now time.Time) error {
	bought := entity.DateOf(purchaseDate)
	for i, it := range in.Items {
		status := entity.InventoryStatusAvailableSale
		if it.ForRent {
			status = entity.InventoryStatusAvailableRent
		}
		cost := it.UnitCost
		for _, sn := range it.SerialNumbers {
			u, err := appinventory.NewUnit(appinventory.RegisterUnitInput{
				InventoryCode: "INV-" + strings.ToUpper(uuid.NewString()[:8]),
				SKUID:         it.SKUID,
				LocationID:    in.LocationID,
				SerialNumber:  strings.TrimSpace(sn),
				Status:        status,
				Condition:     entity.ConditionGradeA,
				PurchaseDate:  &bought,
				PurchaseCost:  &cost,
				Notes:         it.ConditionNotes,
				Actor:         in.Actor,
			}, now)
			if err != nil {
				return fmt.Errorf("item %d: %w", i+1, err)
			}
			if err := tx.Units.Create(ctx, u); err != nil {
				return fmt.Errorf("item %d serial %s: %w", i+1, sn, err)
			}
		}
	}
	return nil
}
