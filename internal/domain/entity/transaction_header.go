package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/rental-core/internal/domain"
)

// TransactionHeader cabecera de venta, alquiler o compra. BalanceDue es derivado de
// TotalAmount - PaidAmount y nunca se almacena.
type TransactionHeader struct {
	ID                string
	TransactionNumber string
	TransactionType   TransactionType
	TransactionDate   time.Time
	CustomerID        string
	LocationID        string
	SalesPersonID     string
	Status            TransactionStatus
	PaymentStatus     PaymentStatus
	Subtotal          decimal.Decimal
	DiscountAmount    decimal.Decimal
	TaxAmount         decimal.Decimal
	TotalAmount       decimal.Decimal
	PaidAmount        decimal.Decimal
	DepositAmount     decimal.Decimal
	PaymentMethod     PaymentMethod
	PaymentReference  string
	DueDate           *time.Time
	RentalStartDate   *time.Time
	RentalEndDate     *time.Time
	ActualReturnDate  *time.Time
	Notes             string
	IsActive          bool
	Audit
}

// NewTransactionHeader valida la cabecera según su tipo. Por defecto queda en DRAFT con cobro PENDING.
func NewTransactionHeader(h TransactionHeader) (*TransactionHeader, error) {
	if isBlank(h.TransactionNumber) {
		return nil, fmt.Errorf("%w: transaction number is required", domain.ErrInvalidInput)
	}
	if h.CustomerID == "" {
		return nil, fmt.Errorf("%w: customer ID is required", domain.ErrInvalidInput)
	}
	if !h.TransactionType.IsValid() {
		return nil, fmt.Errorf("%w: unknown transaction type %q", domain.ErrInvalidInput, h.TransactionType)
	}
	for name, v := range map[string]decimal.Decimal{
		"subtotal": h.Subtotal, "discount amount": h.DiscountAmount, "tax amount": h.TaxAmount,
		"total amount": h.TotalAmount, "paid amount": h.PaidAmount, "deposit amount": h.DepositAmount,
	} {
		if v.IsNegative() {
			return nil, fmt.Errorf("%w: %s cannot be negative", domain.ErrInvalidInput, name)
		}
	}
	if h.PaymentMethod != "" && !h.PaymentMethod.IsValid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", domain.ErrInvalidInput, h.PaymentMethod)
	}
	if h.TransactionType == TransactionTypeRental {
		if h.RentalStartDate == nil {
			return nil, fmt.Errorf("%w: rental start date is required", domain.ErrInvalidInput)
		}
		if h.RentalEndDate == nil {
			return nil, fmt.Errorf("%w: rental end date is required", domain.ErrInvalidInput)
		}
	}
	if h.RentalStartDate != nil && h.RentalEndDate != nil && !DateOf(*h.RentalEndDate).After(DateOf(*h.RentalStartDate)) {
		return nil, fmt.Errorf("%w: rental end date must be after start date", domain.ErrInvalidInput)
	}
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.Status == "" {
		h.Status = TransactionStatusDraft
	}
	if h.PaymentStatus == "" {
		h.PaymentStatus = PaymentStatusPending
	}
	h.TransactionNumber = strings.TrimSpace(h.TransactionNumber)
	h.IsActive = true
	return &h, nil
}

// BalanceDue saldo pendiente; negativo cuando hubo sobrepago.
func (h *TransactionHeader) BalanceDue() decimal.Decimal {
	return h.TotalAmount.Sub(h.PaidAmount)
}

func (h *TransactionHeader) IsPaidInFull() bool {
	return !h.BalanceDue().IsPositive()
}

func (h *TransactionHeader) IsSale() bool   { return h.TransactionType == TransactionTypeSale }
func (h *TransactionHeader) IsRental() bool { return h.TransactionType == TransactionTypeRental }

func (h *TransactionHeader) CanTransitionTo(target TransactionStatus) bool {
	return TransactionTransitions.Allows(h.Status, target)
}

// UpdateStatus mueve la cabecera por el grafo de estados.
func (h *TransactionHeader) UpdateStatus(target TransactionStatus, actor string, now time.Time) error {
	if !h.CanTransitionTo(target) {
		return fmt.Errorf("%w: illegal transition from %s to %s", domain.ErrIllegalTransition, h.Status, target)
	}
	h.Status = target
	h.touch(actor, now)
	return nil
}

// ApplyPayment suma un pago y recalcula el estado de cobro. No hay tope: un sobrepago
// deja la transacción PAID con saldo negativo.
func (h *TransactionHeader) ApplyPayment(amount decimal.Decimal, method PaymentMethod, reference, actor string, now time.Time) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: payment amount must be positive", domain.ErrInvalidInput)
	}
	if h.Status == TransactionStatusCancelled || h.Status == TransactionStatusRefunded {
		return fmt.Errorf("%w: cannot apply payment to %s transaction", domain.ErrIllegalTransition, h.Status)
	}
	if method != "" && !method.IsValid() {
		return fmt.Errorf("%w: unknown payment method %q", domain.ErrInvalidInput, method)
	}
	h.PaidAmount = round2(h.PaidAmount.Add(amount))
	if method != "" {
		h.PaymentMethod = method
	}
	if reference != "" {
		h.PaymentReference = reference
	}
	if h.IsPaidInFull() {
		h.PaymentStatus = PaymentStatusPaid
	} else {
		h.PaymentStatus = PaymentStatusPartiallyPaid
	}
	h.touch(actor, now)
	return nil
}

// CancelTransaction cancela la transacción desde cualquier estado que lo permita.
func (h *TransactionHeader) CancelTransaction(reason, actor string, now time.Time) error {
	if h.Status == TransactionStatusCancelled {
		return fmt.Errorf("%w: transaction is already cancelled", domain.ErrIllegalTransition)
	}
	if !h.CanTransitionTo(TransactionStatusCancelled) {
		return fmt.Errorf("%w: cannot cancel %s transaction", domain.ErrIllegalTransition, h.Status)
	}
	h.Status = TransactionStatusCancelled
	h.PaymentStatus = PaymentStatusCancelled
	if reason != "" {
		h.Notes = appendNote(h.Notes, "Cancelled: "+reason)
	}
	h.touch(actor, now)
	return nil
}

// ProcessRefund reembolsa hasta lo efectivamente pagado de una transacción completada.
func (h *TransactionHeader) ProcessRefund(amount decimal.Decimal, reason, actor string, now time.Time) error {
	if h.Status != TransactionStatusCompleted {
		return fmt.Errorf("%w: can only refund completed transactions", domain.ErrIllegalTransition)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: refund amount must be positive", domain.ErrInvalidInput)
	}
	if amount.GreaterThan(h.PaidAmount) {
		return fmt.Errorf("%w: refund amount %s exceeds paid amount %s",
			domain.ErrInvalidInput, amount.StringFixed(2), h.PaidAmount.StringFixed(2))
	}
	h.PaidAmount = round2(h.PaidAmount.Sub(amount))
	h.Status = TransactionStatusRefunded
	h.PaymentStatus = PaymentStatusRefunded
	h.Notes = appendNote(h.Notes, fmt.Sprintf("Refund %s: %s", amount.StringFixed(2), reason))
	h.touch(actor, now)
	return nil
}

// CompleteRentalReturn registra la devolución física del alquiler y lo completa.
func (h *TransactionHeader) CompleteRentalReturn(returnDate time.Time, actor string, now time.Time) error {
	if !h.IsRental() {
		return fmt.Errorf("%w: can only process return for rental transactions", domain.ErrIllegalTransition)
	}
	if h.Status == TransactionStatusCancelled || h.Status == TransactionStatusRefunded {
		return fmt.Errorf("%w: cannot process return for %s rental", domain.ErrIllegalTransition, h.Status)
	}
	d := DateOf(returnDate)
	h.ActualReturnDate = &d
	h.Status = TransactionStatusCompleted
	h.touch(actor, now)
	return nil
}

// MarkAsOverdue marca el cobro como vencido.
func (h *TransactionHeader) MarkAsOverdue(actor string, now time.Time) error {
	if h.PaymentStatus == PaymentStatusPaid {
		return fmt.Errorf("%w: cannot mark paid transaction overdue", domain.ErrIllegalTransition)
	}
	h.PaymentStatus = PaymentStatusOverdue
	h.touch(actor, now)
	return nil
}

// IsOverdueCandidate la transacción debe marcarse vencida a la fecha today: cobro abierto y
// vencimiento pasado, o un alquiler cuya fecha de fin pasó sin devolución registrada.
func (h *TransactionHeader) IsOverdueCandidate(today time.Time) bool {
	if TransactionTransitions.IsTerminal(h.Status) {
		return false
	}
	switch h.PaymentStatus {
	case PaymentStatusPaid, PaymentStatusOverdue, PaymentStatusCancelled, PaymentStatusRefunded:
		return false
	}
	d := DateOf(today)
	if h.DueDate != nil && DateOf(*h.DueDate).Before(d) {
		return true
	}
	return h.IsRental() && h.RentalEndDate != nil && h.ActualReturnDate == nil &&
		DateOf(*h.RentalEndDate).Before(d)
}

// RentalDays días de alquiler contando ambos extremos; 0 sin fechas.
func (h *TransactionHeader) RentalDays() int {
	if h.RentalStartDate == nil || h.RentalEndDate == nil {
		return 0
	}
	return daysBetween(*h.RentalStartDate, *h.RentalEndDate) + 1
}

// DaysUsed días efectivamente alquilados: hasta la devolución real si existe.
func (h *TransactionHeader) DaysUsed() int {
	if h.RentalStartDate == nil {
		return 0
	}
	if h.ActualReturnDate == nil {
		return h.RentalDays()
	}
	days := daysBetween(*h.RentalStartDate, *h.ActualReturnDate) + 1
	if days < 1 {
		return 1
	}
	return days
}

// ApplyLineTotals recalcula los importes de la cabecera a partir de sus líneas activas.
// Solo mientras la transacción sigue abierta a edición (DRAFT o PENDING).
func (h *TransactionHeader) ApplyLineTotals(lines []*TransactionLine, actor string, now time.Time) error {
	if h.Status != TransactionStatusDraft && h.Status != TransactionStatusPending {
		return fmt.Errorf("%w: cannot change totals of %s transaction", domain.ErrIllegalTransition, h.Status)
	}
	subtotal, discount, tax, total := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	for _, l := range lines {
		if l.TransactionID != h.ID {
			return fmt.Errorf("%w: line %d belongs to another transaction", domain.ErrInvalidInput, l.LineNumber)
		}
		if !l.IsActive {
			continue
		}
		switch l.LineType {
		case LineTypeDiscount:
			discount = discount.Add(l.LineTotal.Abs())
		case LineTypeTax:
			tax = tax.Add(l.LineTotal)
		default:
			subtotal = subtotal.Add(l.Subtotal())
			discount = discount.Add(l.DiscountAmount)
			tax = tax.Add(l.TaxAmount)
		}
		total = total.Add(l.LineTotal)
	}
	if total.IsNegative() {
		return fmt.Errorf("%w: total amount cannot be negative", domain.ErrInvalidInput)
	}
	h.Subtotal = round2(subtotal)
	h.DiscountAmount = round2(discount)
	h.TaxAmount = round2(tax)
	h.TotalAmount = round2(total)
	h.touch(actor, now)
	return nil
}

func (h *TransactionHeader) AddNote(note, actor string, now time.Time) {
	h.Notes = appendNote(h.Notes, note)
	h.touch(actor, now)
}

func (h *TransactionHeader) String() string {
	return fmt.Sprintf("%s %s [%s/%s] total=%s balance=%s",
		h.TransactionType, h.TransactionNumber, h.Status, h.PaymentStatus,
		h.TotalAmount.StringFixed(2), h.BalanceDue().StringFixed(2))
}
