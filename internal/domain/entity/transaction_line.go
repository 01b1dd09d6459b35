package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/rental-core/internal/domain"
)

// TransactionLine es una línea valorizada de una transacción, asociada por TransactionID
// (la cabecera no la contiene). DiscountAmount, TaxAmount y LineTotal son derivados:
// siempre se recalculan con CalculateLineTotal.
type TransactionLine struct {
	ID                 string
	TransactionID      string
	LineNumber         int
	LineType           LineItemType
	SKUID              string
	InventoryUnitID    string // unidad serializada, en alquileres
	Description        string
	Quantity           decimal.Decimal
	UnitPrice          decimal.Decimal
	DiscountPercentage decimal.Decimal
	DiscountAmount     decimal.Decimal
	TaxRate            decimal.Decimal
	TaxAmount          decimal.Decimal
	LineTotal          decimal.Decimal
	RentalPeriodValue  *int
	RentalPeriodUnit   RentalPeriodUnit
	RentalStartDate    *time.Time
	RentalEndDate      *time.Time
	ReturnedQuantity   decimal.Decimal
	ReturnDate         *time.Time
	Notes              string
	IsActive           bool
	Audit
}

// NewTransactionLine valida la línea según su tipo y calcula sus totales.
func NewTransactionLine(l TransactionLine) (*TransactionLine, error) {
	if l.TransactionID == "" {
		return nil, fmt.Errorf("%w: transaction ID is required", domain.ErrInvalidInput)
	}
	if l.LineNumber < 1 {
		return nil, fmt.Errorf("%w: line number must be positive", domain.ErrInvalidInput)
	}
	if !l.LineType.IsValid() {
		return nil, fmt.Errorf("%w: unknown line type %q", domain.ErrInvalidInput, l.LineType)
	}
	if isBlank(l.Description) {
		return nil, fmt.Errorf("%w: description is required", domain.ErrInvalidInput)
	}
	if l.Quantity.IsNegative() {
		return nil, fmt.Errorf("%w: quantity cannot be negative", domain.ErrInvalidInput)
	}
	if l.LineType.RequiresSKU() && l.SKUID == "" {
		return nil, fmt.Errorf("%w: SKU ID is required for %s lines", domain.ErrInvalidInput, l.LineType)
	}
	if l.TaxRate.IsNegative() {
		return nil, fmt.Errorf("%w: tax rate cannot be negative", domain.ErrInvalidInput)
	}
	if err := validateDiscount(l.DiscountPercentage, l.DiscountAmount); err != nil {
		return nil, err
	}
	if l.ReturnedQuantity.IsNegative() || l.ReturnedQuantity.GreaterThan(l.Quantity) {
		return nil, fmt.Errorf("%w: returned quantity must be between 0 and quantity", domain.ErrInvalidInput)
	}
	if l.RentalPeriodValue != nil {
		if *l.RentalPeriodValue <= 0 {
			return nil, fmt.Errorf("%w: rental period value must be positive", domain.ErrInvalidInput)
		}
		if l.RentalPeriodUnit == "" {
			return nil, fmt.Errorf("%w: rental period unit is required with a period value", domain.ErrInvalidInput)
		}
	}
	if l.RentalPeriodUnit != "" && !l.RentalPeriodUnit.IsValid() {
		return nil, fmt.Errorf("%w: unknown rental period unit %q", domain.ErrInvalidInput, l.RentalPeriodUnit)
	}
	if l.RentalStartDate != nil && l.RentalEndDate != nil && !DateOf(*l.RentalEndDate).After(DateOf(*l.RentalStartDate)) {
		return nil, fmt.Errorf("%w: rental end date must be after start date", domain.ErrInvalidInput)
	}
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	l.Description = strings.TrimSpace(l.Description)
	l.IsActive = true
	l.CalculateLineTotal()
	if !l.isSignedNegative() && l.LineTotal.IsNegative() {
		return nil, fmt.Errorf("%w: discount amount cannot exceed line subtotal", domain.ErrInvalidInput)
	}
	return &l, nil
}

func validateDiscount(percentage, amount decimal.Decimal) error {
	if percentage.IsPositive() && amount.IsPositive() {
		return fmt.Errorf("%w: cannot apply both discount percentage and discount amount", domain.ErrInvalidInput)
	}
	if percentage.IsNegative() || percentage.GreaterThan(hundred) {
		return fmt.Errorf("%w: discount percentage must be between 0 and 100", domain.ErrInvalidInput)
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: discount amount cannot be negative", domain.ErrInvalidInput)
	}
	return nil
}

// Subtotal cantidad × precio unitario, redondeado.
func (l *TransactionLine) Subtotal() decimal.Decimal {
	return round2(l.Quantity.Mul(l.UnitPrice))
}

func (l *TransactionLine) isSignedNegative() bool {
	return l.LineType == LineTypeDiscount
}

// CalculateLineTotal recalcula descuento, impuesto y total:
//
//	subtotal → descuento (porcentaje o monto fijo) → base gravable → impuesto → total
//
// Las líneas DISCOUNT totalizan -|subtotal|; las TAX traen el impuesto ya calculado.
// Ninguna de las dos aplica descuento ni impuesto propio.
func (l *TransactionLine) CalculateLineTotal() {
	subtotal := l.Subtotal()
	switch l.LineType {
	case LineTypeDiscount:
		l.TaxAmount = decimal.Zero
		l.LineTotal = subtotal.Abs().Neg()
		return
	case LineTypeTax:
		l.TaxAmount = decimal.Zero
		l.LineTotal = subtotal
		return
	}
	if l.DiscountPercentage.IsPositive() {
		l.DiscountAmount = round2(subtotal.Mul(l.DiscountPercentage).Div(hundred))
	} else {
		l.DiscountAmount = round2(l.DiscountAmount)
	}
	taxable := subtotal.Sub(l.DiscountAmount)
	l.TaxAmount = round2(taxable.Mul(l.TaxRate).Div(hundred))
	l.LineTotal = round2(taxable.Add(l.TaxAmount))
}

// ApplyDiscount aplica un descuento por porcentaje o por monto (no ambos) y recalcula el total.
// El modo elegido pone el otro en cero.
func (l *TransactionLine) ApplyDiscount(percentage, amount *decimal.Decimal, actor string, now time.Time) error {
	if percentage != nil && amount != nil {
		return fmt.Errorf("%w: cannot apply both discount percentage and discount amount", domain.ErrInvalidInput)
	}
	if percentage == nil && amount == nil {
		return fmt.Errorf("%w: discount percentage or amount is required", domain.ErrInvalidInput)
	}
	if l.IsFullyReturned() {
		return fmt.Errorf("%w: line %d is fully returned", domain.ErrIllegalTransition, l.LineNumber)
	}
	pct, amt := decimal.Zero, decimal.Zero
	if percentage != nil {
		pct = *percentage
	} else {
		amt = *amount
	}
	if err := validateDiscount(pct, amt); err != nil {
		return err
	}
	if amt.GreaterThan(l.Subtotal()) {
		return fmt.Errorf("%w: discount amount cannot exceed line subtotal", domain.ErrInvalidInput)
	}
	l.DiscountPercentage = pct
	l.DiscountAmount = amt
	l.CalculateLineTotal()
	l.touch(actor, now)
	return nil
}

// ProcessReturn registra la devolución de qty unidades de lo que queda por devolver.
func (l *TransactionLine) ProcessReturn(qty decimal.Decimal, returnDate time.Time, reason, actor string, now time.Time) error {
	if !qty.IsPositive() {
		return fmt.Errorf("%w: return quantity must be positive", domain.ErrInvalidQuantity)
	}
	if remaining := l.RemainingQuantity(); qty.GreaterThan(remaining) {
		return fmt.Errorf("%w: return quantity %s exceeds remaining quantity %s",
			domain.ErrInvalidQuantity, qty.String(), remaining.String())
	}
	l.ReturnedQuantity = l.ReturnedQuantity.Add(qty)
	d := DateOf(returnDate)
	l.ReturnDate = &d
	if reason != "" {
		l.Notes = appendNote(l.Notes, "Return: "+reason)
	}
	l.touch(actor, now)
	return nil
}

// UpdateRentalPeriod extiende o acorta el alquiler. En periodos por DAY el valor del periodo
// sigue a los días de alquiler.
func (l *TransactionLine) UpdateRentalPeriod(newEnd time.Time, actor string, now time.Time) error {
	if l.RentalStartDate == nil {
		return fmt.Errorf("%w: rental start date is not set", domain.ErrInvalidInput)
	}
	if !DateOf(newEnd).After(DateOf(*l.RentalStartDate)) {
		return fmt.Errorf("%w: rental end date must be after start date", domain.ErrInvalidInput)
	}
	if l.IsFullyReturned() {
		return fmt.Errorf("%w: line %d is fully returned", domain.ErrIllegalTransition, l.LineNumber)
	}
	end := DateOf(newEnd)
	l.RentalEndDate = &end
	if l.RentalPeriodUnit == RentalPeriodDay {
		days := l.RentalDays()
		l.RentalPeriodValue = &days
	}
	l.touch(actor, now)
	return nil
}

// AddNote nota de auditoría; permitida incluso con la línea devuelta.
func (l *TransactionLine) AddNote(note, actor string, now time.Time) {
	l.Notes = appendNote(l.Notes, note)
	l.touch(actor, now)
}

// RentalDays días entre inicio y fin (sin contar el día final); 0 sin fechas.
func (l *TransactionLine) RentalDays() int {
	if l.RentalStartDate == nil || l.RentalEndDate == nil {
		return 0
	}
	return daysBetween(*l.RentalStartDate, *l.RentalEndDate)
}

func (l *TransactionLine) RemainingQuantity() decimal.Decimal {
	return l.Quantity.Sub(l.ReturnedQuantity)
}

func (l *TransactionLine) IsPartiallyReturned() bool {
	return l.ReturnedQuantity.IsPositive() && l.ReturnedQuantity.LessThan(l.Quantity)
}

// IsFullyReturned una línea con cantidad cero nunca se considera devuelta.
func (l *TransactionLine) IsFullyReturned() bool {
	return l.Quantity.IsPositive() && l.ReturnedQuantity.Equal(l.Quantity)
}

// EffectiveUnitPrice precio unitario neto de descuento; 0 con cantidad cero.
func (l *TransactionLine) EffectiveUnitPrice() decimal.Decimal {
	if l.Quantity.IsZero() {
		return decimal.Zero
	}
	return round2(l.Quantity.Mul(l.UnitPrice).Sub(l.DiscountAmount).Div(l.Quantity))
}
