package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tipos de evento publicados tras el commit.
const (
	TypeTransactionStatusChanged  = "transaction.status_changed"
	TypeTransactionPaymentApplied = "transaction.payment_applied"
	TypePaymentStatusChanged      = "transaction.payment_status_changed"
	TypeStockChanged              = "stock.changed"
	TypeRentalReturned            = "rental.returned"
)

// Tipos de agregado.
const (
	AggregateTransaction = "transaction"
	AggregateStockLevel  = "stock_level"
)

// Envelope sobre común de los eventos; la clave del mensaje es AggregateID.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Actor         string          `json:"actor,omitempty"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
}

// New serializa data dentro de un sobre nuevo.
func New(aggregateType, aggregateID, eventType, actor string, data any, now time.Time) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s: %w", eventType, err)
	}
	return Envelope{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Actor:         actor,
		Data:          raw,
		Timestamp:     now.UTC(),
	}, nil
}

// Decode deserializa Data en out.
func (e Envelope) Decode(out any) error {
	return json.Unmarshal(e.Data, out)
}

type TransactionStatusChanged struct {
	TransactionID     string `json:"transaction_id"`
	TransactionNumber string `json:"transaction_number"`
	From              string `json:"from"`
	To                string `json:"to"`
	PaymentStatus     string `json:"payment_status"`
	Reason            string `json:"reason,omitempty"`
}

type TransactionPaymentApplied struct {
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	BalanceDue    decimal.Decimal `json:"balance_due"`
	PaymentStatus string          `json:"payment_status"`
	Method        string          `json:"method,omitempty"`
	Reference     string          `json:"reference,omitempty"`
}

// PaymentStatusChanged cambio del estado de pago sin cambio de estado de la transacción (vencimiento).
type PaymentStatusChanged struct {
	TransactionID     string          `json:"transaction_id"`
	TransactionNumber string          `json:"transaction_number"`
	Status            string          `json:"status"`
	From              string          `json:"from"`
	To                string          `json:"to"`
	BalanceDue        decimal.Decimal `json:"balance_due"`
}

// StockChanged foto de las cantidades después de la operación.
type StockChanged struct {
	StockLevelID string `json:"stock_level_id"`
	SKUID        string `json:"sku_id"`
	LocationID   string `json:"location_id"`
	Operation    string `json:"operation"`
	Quantity     int    `json:"quantity"`
	OnHand       int    `json:"on_hand"`
	Available    int    `json:"available"`
	Reserved     int    `json:"reserved"`
	Damaged      int    `json:"damaged"`
	Reference    string `json:"reference,omitempty"`
}

type RentalReturned struct {
	TransactionID  string          `json:"transaction_id"`
	ReturnID       string          `json:"return_id"`
	UnitIDs        []string        `json:"unit_ids"`
	DaysLate       int             `json:"days_late"`
	LateFee        decimal.Decimal `json:"late_fee"`
	DepositRelease decimal.Decimal `json:"deposit_release"`
}
