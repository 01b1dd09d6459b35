package entity

import "github.com/jhoicas/rental-core/internal/domain"

// TransactionType variante cerrada de transacción; la validación se ramifica por este tag.
type TransactionType string

const (
	TransactionTypeSale     TransactionType = "SALE"
	TransactionTypeRental   TransactionType = "RENTAL"
	TransactionTypePurchase TransactionType = "PURCHASE"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeSale, TransactionTypeRental, TransactionTypePurchase:
		return true
	}
	return false
}

// TransactionStatus estado de la cabecera.
type TransactionStatus string

const (
	TransactionStatusDraft      TransactionStatus = "DRAFT"
	TransactionStatusPending    TransactionStatus = "PENDING"
	TransactionStatusConfirmed  TransactionStatus = "CONFIRMED"
	TransactionStatusInProgress TransactionStatus = "IN_PROGRESS"
	TransactionStatusCompleted  TransactionStatus = "COMPLETED"
	TransactionStatusCancelled  TransactionStatus = "CANCELLED"
	TransactionStatusRefunded   TransactionStatus = "REFUNDED"
)

// TransactionStatuses todos los estados de cabecera.
var TransactionStatuses = []TransactionStatus{
	TransactionStatusDraft, TransactionStatusPending, TransactionStatusConfirmed,
	TransactionStatusInProgress, TransactionStatusCompleted,
	TransactionStatusCancelled, TransactionStatusRefunded,
}

// TransactionTransitions grafo de estados de la cabecera. CANCELLED y REFUNDED son terminales;
// COMPLETED solo sale hacia REFUNDED.
var TransactionTransitions = domain.TransitionTable[TransactionStatus]{
	TransactionStatusDraft:      {TransactionStatusPending, TransactionStatusCancelled},
	TransactionStatusPending:    {TransactionStatusConfirmed, TransactionStatusCancelled},
	TransactionStatusConfirmed:  {TransactionStatusInProgress, TransactionStatusCancelled},
	TransactionStatusInProgress: {TransactionStatusCompleted, TransactionStatusCancelled},
	TransactionStatusCompleted:  {TransactionStatusRefunded},
}

// PaymentStatus sub-estado de cobro, independiente del estado de la transacción.
type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "PENDING"
	PaymentStatusPartiallyPaid PaymentStatus = "PARTIALLY_PAID"
	PaymentStatusPaid          PaymentStatus = "PAID"
	PaymentStatusOverdue       PaymentStatus = "OVERDUE"
	PaymentStatusCancelled     PaymentStatus = "CANCELLED"
	PaymentStatusRefunded      PaymentStatus = "REFUNDED"
)

// PaymentMethod medio de pago.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard    PaymentMethod = "DEBIT_CARD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCheck        PaymentMethod = "CHECK"
	PaymentMethodStoreCredit  PaymentMethod = "STORE_CREDIT"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCreditCard, PaymentMethodDebitCard,
		PaymentMethodBankTransfer, PaymentMethodCheck, PaymentMethodStoreCredit:
		return true
	}
	return false
}

// LineItemType tipo de línea.
type LineItemType string

const (
	LineTypeProduct  LineItemType = "PRODUCT"
	LineTypeService  LineItemType = "SERVICE"
	LineTypeDiscount LineItemType = "DISCOUNT"
	LineTypeTax      LineItemType = "TAX"
	LineTypeFee      LineItemType = "FEE"
	LineTypeDeposit  LineItemType = "DEPOSIT"
)

func (t LineItemType) IsValid() bool {
	switch t {
	case LineTypeProduct, LineTypeService, LineTypeDiscount, LineTypeTax, LineTypeFee, LineTypeDeposit:
		return true
	}
	return false
}

// RequiresSKU líneas de producto y servicio referencian un SKU.
func (t LineItemType) RequiresSKU() bool {
	return t == LineTypeProduct || t == LineTypeService
}

// RentalPeriodUnit unidad del periodo de alquiler.
type RentalPeriodUnit string

const (
	RentalPeriodHour  RentalPeriodUnit = "HOUR"
	RentalPeriodDay   RentalPeriodUnit = "DAY"
	RentalPeriodWeek  RentalPeriodUnit = "WEEK"
	RentalPeriodMonth RentalPeriodUnit = "MONTH"
)

func (u RentalPeriodUnit) IsValid() bool {
	switch u {
	case RentalPeriodHour, RentalPeriodDay, RentalPeriodWeek, RentalPeriodMonth:
		return true
	}
	return false
}
