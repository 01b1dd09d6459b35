package event_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/rental-core/internal/domain/event"
)

func TestNew_SobreConDatos(t *testing.T) {
	now := time.Date(2024, 3, 15, 7, 0, 0, 0, time.FixedZone("COT", -5*3600))
	env, err := event.New(event.AggregateTransaction, "tx-1", event.TypeTransactionPaymentApplied, "caja",
		event.TransactionPaymentApplied{
			TransactionID: "tx-1",
			Amount:        decimal.RequireFromString("60.00"),
			BalanceDue:    decimal.RequireFromString("40.00"),
			PaymentStatus: "PARTIALLY_PAID",
		}, now)
	require.NoError(t, err)

	assert.NotEmpty(t, env.ID)
	assert.Equal(t, "tx-1", env.AggregateID)
	assert.Equal(t, time.UTC, env.Timestamp.Location())

	raw, err := json.Marshal(env)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"event_type":"transaction.payment_applied"`)

	var got event.TransactionPaymentApplied
	require.NoError(t, env.Decode(&got))
	assert.True(t, got.BalanceDue.Equal(decimal.RequireFromString("40")))
	assert.Equal(t, "PARTIALLY_PAID", got.PaymentStatus)
}

func TestNew_DatosNoSerializables(t *testing.T) {
	_, err := event.New(event.AggregateStockLevel, "s", event.TypeStockChanged, "", make(chan int), time.Now())
	require.Error(t, err)
}
