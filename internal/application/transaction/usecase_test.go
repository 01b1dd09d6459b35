package transaction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/rental-core/internal/domain"
	"github.com/jhoicas/rental-core/internal/domain/entity"
	"github.com/jhoicas/rental-core/internal/domain/event"
	"github.com/jhoicas/rental-core/internal/domain/repository"
	"github.com/jhoicas/rental-core/internal/infrastructure/memory"
)

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

type fixture struct {
	ctx    context.Context
	store  *memory.Store
	events *memory.EventLog
	keys   *memory.Keys
	uc     *TransactionUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:    context.Background(),
		store:  memory.NewStore(),
		events: &memory.EventLog{},
		keys:   memory.NewKeys(),
	}
	f.uc = NewTransactionUseCase(f.store, f.events, f.keys, nil)
	f.uc.now = func() time.Time { return fixedNow }
	return f
}

func (f *fixture) stock(t *testing.T, sku string, onHand int) {
	t.Helper()
	s, err := entity.NewStockLevel(entity.StockLevelParams{
		SKUID: sku, LocationID: "loc-1", QuantityOnHand: onHand, QuantityAvailable: onHand,
	})
	require.NoError(t, err)
	require.NoError(t, f.store.Run(f.ctx, func(tx repository.Tx) error { return tx.Stock.Create(f.ctx, s) }))
}

func (f *fixture) getStock(t *testing.T, sku string) *entity.StockLevel {
	t.Helper()
	s, err := f.store.Repos().Stock.GetForUpdate(f.ctx, sku, "loc-1")
	require.NoError(t, err)
	return s
}

func (f *fixture) getTx(t *testing.T, id string) *entity.TransactionHeader {
	t.Helper()
	h, err := f.store.Repos().Transactions.GetByID(f.ctx, id)
	require.NoError(t, err)
	return h
}

func (f *fixture) sale(t *testing.T, number string, due *time.Time) (*entity.TransactionHeader, []*entity.TransactionLine) {
	t.Helper()
	h, lines, err := f.uc.CreateTransaction(f.ctx, CreateInput{
		TransactionNumber: number,
		Type:              entity.TransactionTypeSale,
		CustomerID:        "cust-1",
		LocationID:        "loc-1",
		DueDate:           due,
		Actor:             "caja",
		Lines: []LineInput{
			{LineType: entity.LineTypeProduct, SKUID: "sku-1", Description: "Mesa", Quantity: dec("3"),
				UnitPrice: dec("100.00"), DiscountPercentage: dec("10"), TaxRate: dec("8")},
			{LineType: entity.LineTypeFee, Description: "Entrega", Quantity: dec("1"), UnitPrice: dec("20.00")},
		},
	})
	require.NoError(t, err)
	return h, lines
}

func TestVenta_FlujoCompleto(t *testing.T) {
	f := newFixture(t)
	f.stock(t, "sku-1", 100)

	h, lines := f.sale(t, "V-1", nil)
	assert.Equal(t, entity.TransactionStatusDraft, h.Status)
	assert.True(t, h.TotalAmount.Equal(dec("311.60")), "total %s", h.TotalAmount)
	require.Len(t, lines, 2)
	assert.Equal(t, 2, lines[1].LineNumber)

	_, err := f.uc.SubmitTransaction(f.ctx, h.ID, "caja")
	require.NoError(t, err)
	s := f.getStock(t, "sku-1")
	assert.Equal(t, 97, s.Available())
	assert.Equal(t, 3, s.Reserved())

	got, err := f.uc.ConfirmSale(f.ctx, h.ID, &Payment{Amount: dec("150.00"), Method: entity.PaymentMethodCash}, "caja")
	require.NoError(t, err)
	assert.Equal(t, entity.TransactionStatusConfirmed, got.Status)
	assert.Equal(t, entity.PaymentStatusPartiallyPaid, got.PaymentStatus)
	assert.True(t, got.BalanceDue().Equal(dec("161.60")))

	s = f.getStock(t, "sku-1")
	assert.Equal(t, 97, s.OnHand())
	assert.Equal(t, 97, s.Available())
	assert.Equal(t, 0, s.Reserved())

	assert.Len(t, f.events.OfType(event.TypeTransactionStatusChanged), 2)
	assert.Len(t, f.events.OfType(event.TypeStockChanged), 2)
	assert.Len(t, f.events.OfType(event.TypeTransactionPaymentApplied), 1)

	_, err = f.uc.CompleteSale(f.ctx, h.ID, "caja")
	require.NoError(t, err)
	refunded, err := f.uc.RefundTransaction(f.ctx, h.ID, dec("50.00"), "defecto", "gerente")
	require.NoError(t, err)
	assert.Equal(t, entity.TransactionStatusRefunded, refunded.Status)
	assert.True(t, refunded.PaidAmount.Equal(dec("100.00")))
}

func TestConfirmSale_DesdeDraftNoMueveStock(t *testing.T) {
	f := newFixture(t)
	f.stock(t, "sku-1", 100)
	h, _ := f.sale(t, "V-1", nil)

	_, err := f.uc.ConfirmSale(f.ctx, h.ID, nil, "caja")
	require.ErrorIs(t, err, domain.ErrIllegalTransition)
	assert.Equal(t, 100, f.getStock(t, "sku-1").OnHand())
	assert.Empty(t, f.events.Events())
}

func TestSubmit_StockInsuficienteRevierte(t *testing.T) {
	f := newFixture(t)
	f.stock(t, "sku-1", 2)
	h, _ := f.sale(t, "V-1", nil)

	_, err := f.uc.SubmitTransaction(f.ctx, h.ID, "caja")
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, entity.TransactionStatusDraft, f.getTx(t, h.ID).Status)
	assert.Equal(t, 2, f.getStock(t, "sku-1").Available())
}

func TestCancelar_LiberaReservaSoloEnPending(t *testing.T) {
	f := newFixture(t)
	f.stock(t, "sku-1", 100)

	h, _ := f.sale(t, "V-1", nil)
	_, err := f.uc.SubmitTransaction(f.ctx, h.ID, "caja")
	require.NoError(t, err)
	got, err := f.uc.CancelTransaction(f.ctx, h.ID, "cliente desistió", "caja")
	require.NoError(t, err)
	assert.Equal(t, entity.TransactionStatusCancelled, got.Status)
	s := f.getStock(t, "sku-1")
	assert.Equal(t, 100, s.Available())
	assert.Equal(t, 0, s.Reserved())

	_, err = f.uc.CancelTransaction(f.ctx, h.ID, "", "caja")
	require.ErrorIs(t, err, domain.ErrIllegalTransition)

	_, err = f.uc.ApplyPayment(f.ctx, PaymentInput{TransactionID: h.ID, Amount: dec("10"), Actor: "caja"})
	require.ErrorIs(t, err, domain.ErrIllegalTransition)
	assert.Contains(t, err.Error(), "cannot apply payment")

	draft, _ := f.sale(t, "V-2", nil)
	_, err = f.uc.CancelTransaction(f.ctx, draft.ID, "", "caja")
	require.NoError(t, err)
	assert.Equal(t, 100, f.getStock(t, "sku-1").Available())
}

func TestApplyPayment_Idempotente(t *testing.T) {
	f := newFixture(t)
	h, _ := f.sale(t, "V-1", nil)
	pay := PaymentInput{TransactionID: h.ID, Amount: dec("100.00"), Method: entity.PaymentMethodBankTransfer, IdempotencyKey: "k-1", Actor: "caja"}

	_, err := f.uc.ApplyPayment(f.ctx, pay)
	require.NoError(t, err)
	_, err = f.uc.ApplyPayment(f.ctx, pay)
	require.ErrorIs(t, err, domain.ErrDuplicate)
	assert.True(t, f.getTx(t, h.ID).PaidAmount.Equal(dec("100.00")))

	bad := PaymentInput{TransactionID: h.ID, Amount: dec("-5"), IdempotencyKey: "k-2", Actor: "caja"}
	_, err = f.uc.ApplyPayment(f.ctx, bad)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	bad.Amount = dec("5")
	_, err = f.uc.ApplyPayment(f.ctx, bad)
	require.NoError(t, err, "la llave de un pago fallido se libera")
	assert.True(t, f.getTx(t, h.ID).PaidAmount.Equal(dec("105.00")))
}

func TestApplyPayment_ErrorDePublicacionNoRevierte(t *testing.T) {
	f := newFixture(t)
	h, _ := f.sale(t, "V-1", nil)
	f.events.Err = errors.New("broker caído")

	_, err := f.uc.ApplyPayment(f.ctx, PaymentInput{TransactionID: h.ID, Amount: dec("10"), Actor: "caja"})
	require.NoError(t, err)
	assert.True(t, f.getTx(t, h.ID).PaidAmount.Equal(dec("10")))
}

func TestReturnLine_VentaDevuelveAlStock(t *testing.T) {
	f := newFixture(t)
	f.stock(t, "sku-1", 100)
	h, lines := f.sale(t, "V-1", nil)

	_, err := f.uc.ReturnLine(f.ctx, ReturnLineInput{LineID: lines[0].ID, Quantity: dec("1"), ReturnDate: fixedNow, Actor: "caja"})
	require.ErrorIs(t, err, domain.ErrIllegalTransition, "una venta en borrador no admite devoluciones")

	_, err = f.uc.SubmitTransaction(f.ctx, h.ID, "caja")
	require.NoError(t, err)
	_, err = f.uc.ConfirmSale(f.ctx, h.ID, nil, "caja")
	require.NoError(t, err)

	line, err := f.uc.ReturnLine(f.ctx, ReturnLineInput{LineID: lines[0].ID, Quantity: dec("2"), ReturnDate: fixedNow, Reason: "sobrante", Actor: "caja"})
	require.NoError(t, err)
	assert.True(t, line.IsPartiallyReturned())
	s := f.getStock(t, "sku-1")
	assert.Equal(t, 99, s.OnHand())
	assert.Equal(t, 99, s.Available())

	changes := f.events.OfType(event.TypeStockChanged)
	require.NotEmpty(t, changes)
	var payload event.StockChanged
	require.NoError(t, changes[len(changes)-1].Decode(&payload))
	assert.Equal(t, event.StockChanged{
		StockLevelID: s.ID, SKUID: "sku-1", LocationID: "loc-1", Operation: "RECEIVE", Quantity: 2,
		OnHand: 99, Available: 99, Reference: "V-1",
	}, payload)

	_, err = f.uc.ReturnLine(f.ctx, ReturnLineInput{LineID: lines[0].ID, Quantity: dec("2"), ReturnDate: fixedNow, Actor: "caja"})
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.Contains(t, err.Error(), "exceeds remaining quantity")
	assert.Equal(t, 99, f.getStock(t, "sku-1").OnHand())
}

func TestAlquiler_FlujoCompletoConAtraso(t *testing.T) {
	f := newFixture(t)
	unit, err := entity.NewInventoryUnit(entity.InventoryUnit{
		InventoryCode: "CARPA-001", SKUID: "sku-carpa", LocationID: "loc-1",
		CurrentStatus: entity.InventoryStatusAvailableRent,
	})
	require.NoError(t, err)
	require.NoError(t, f.store.Run(f.ctx, func(tx repository.Tx) error { return tx.Units.Create(f.ctx, unit) }))

	h, lines, err := f.uc.CreateTransaction(f.ctx, CreateInput{
		TransactionNumber: "A-1",
		Type:              entity.TransactionTypeRental,
		CustomerID:        "cust-1",
		LocationID:        "loc-1",
		RentalStartDate:   day(2024, 3, 10),
		RentalEndDate:     day(2024, 3, 13),
		DepositAmount:     dec("100.00"),
		Actor:             "mostrador",
		Lines: []LineInput{{
			LineType: entity.LineTypeProduct, SKUID: "sku-carpa", InventoryUnitID: unit.ID,
			Description: "Carpa 3x3", Quantity: dec("1"), UnitPrice: dec("150.00"),
		}},
	})
	require.NoError(t, err)
	require.NotNil(t, lines[0].RentalStartDate, "la línea hereda las fechas de la cabecera")
	assert.Equal(t, 3, lines[0].RentalDays())

	_, err = f.uc.SubmitTransaction(f.ctx, h.ID, "mostrador")
	require.NoError(t, err)
	u, err := f.store.Repos().Units.GetByID(f.ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InventoryStatusReservedRent, u.CurrentStatus)

	started, err := f.uc.StartRental(f.ctx, h.ID, &Payment{Amount: dec("150.00"), Method: entity.PaymentMethodCash}, "mostrador")
	require.NoError(t, err)
	assert.Equal(t, entity.TransactionStatusInProgress, started.Status)
	assert.Equal(t, entity.PaymentStatusPaid, started.PaymentStatus)

	rr, err := f.uc.CompleteRentalReturn(f.ctx, CompleteRentalReturnInput{
		TransactionID:    h.ID,
		ReturnDate:       fixedNow,
		LateFeeDailyRate: dec("5.00"),
		Units:            map[string]ReturnedUnit{unit.ID: {Condition: entity.ConditionGradeC, DamageFee: dec("20.00")}},
		Actor:            "mostrador",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, rr.DaysLate())
	assert.True(t, rr.TotalLateFee.Equal(dec("10.00")))
	assert.True(t, rr.TotalDamageFee.Equal(dec("20.00")))
	assert.True(t, rr.DepositReleaseAmount.Equal(dec("70.00")))
	assert.True(t, rr.DepositWithheldAmount.Equal(dec("30.00")))
	assert.Equal(t, entity.ReturnStatusCompleted, rr.ReturnStatus)
	require.Len(t, rr.Lines, 1)
	assert.Equal(t, entity.ConditionGradeC, rr.Lines[0].ConditionGrade)

	hdr := f.getTx(t, h.ID)
	assert.Equal(t, entity.TransactionStatusCompleted, hdr.Status)
	require.NotNil(t, hdr.ActualReturnDate)

	u, err = f.store.Repos().Units.GetByID(f.ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InventoryStatusInspectionPending, u.CurrentStatus)
	assert.Equal(t, entity.ConditionGradeC, u.ConditionGrade, "la condición devuelta pasa a la unidad")
	assert.Equal(t, 1, u.RentalCount)
	assert.Equal(t, 6, u.TotalRentalDays)

	stored, err := f.store.Repos().Returns.ListByTransaction(f.ctx, h.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Len(t, f.events.OfType(event.TypeRentalReturned), 1)
}

func (f *fixture) rentalUnit(t *testing.T, code string) *entity.InventoryUnit {
	t.Helper()
	u, err := entity.NewInventoryUnit(entity.InventoryUnit{
		InventoryCode: code, SKUID: "sku-carpa", LocationID: "loc-1",
		CurrentStatus: entity.InventoryStatusAvailableRent,
	})
	require.NoError(t, err)
	require.NoError(t, f.store.Run(f.ctx, func(tx repository.Tx) error { return tx.Units.Create(f.ctx, u) }))
	return u
}

func (f *fixture) rental(t *testing.T, number, unitID string) *entity.TransactionHeader {
	t.Helper()
	h, _, err := f.uc.CreateTransaction(f.ctx, CreateInput{
		TransactionNumber: number, Type: entity.TransactionTypeRental, CustomerID: "c", LocationID: "loc-1",
		RentalStartDate: day(2024, 3, 10), RentalEndDate: day(2024, 3, 13), DepositAmount: dec("100.00"), Actor: "x",
		Lines: []LineInput{{LineType: entity.LineTypeProduct, SKUID: "sku-carpa", InventoryUnitID: unitID,
			Description: "Carpa 3x3", Quantity: dec("1"), UnitPrice: dec("150.00")}},
	})
	require.NoError(t, err)
	return h
}

func (f *fixture) getUnit(t *testing.T, id string) *entity.InventoryUnit {
	t.Helper()
	u, err := f.store.Repos().Units.GetByID(f.ctx, id)
	require.NoError(t, err)
	return u
}

func TestCompleteRentalReturn_Rechazos(t *testing.T) {
	f := newFixture(t)
	sale, _ := f.sale(t, "V-1", nil)
	_, err := f.uc.CompleteRentalReturn(f.ctx, CompleteRentalReturnInput{TransactionID: sale.ID, ReturnDate: fixedNow, Actor: "x"})
	require.ErrorIs(t, err, domain.ErrIllegalTransition)
	assert.Contains(t, err.Error(), "can only process return for rental")

	unit := f.rentalUnit(t, "CARPA-001")
	h := f.rental(t, "A-1", unit.ID)
	_, err = f.uc.CompleteRentalReturn(f.ctx, CompleteRentalReturnInput{
		TransactionID: h.ID, ReturnDate: fixedNow, Actor: "x",
		Units: map[string]ReturnedUnit{"ajena": {}},
	})
	require.ErrorIs(t, err, domain.ErrIllegalTransition, "un alquiler en borrador nunca salió")

	_, err = f.uc.SubmitTransaction(f.ctx, h.ID, "x")
	require.NoError(t, err)
	_, err = f.uc.CompleteRentalReturn(f.ctx, CompleteRentalReturnInput{TransactionID: h.ID, ReturnDate: fixedNow, Actor: "x"})
	require.ErrorIs(t, err, domain.ErrIllegalTransition, "reservado pero no entregado")

	_, err = f.uc.StartRental(f.ctx, h.ID, nil, "x")
	require.NoError(t, err)
	_, err = f.uc.CompleteRentalReturn(f.ctx, CompleteRentalReturnInput{
		TransactionID: h.ID, ReturnDate: fixedNow, Actor: "x",
		Units: map[string]ReturnedUnit{"ajena": {}},
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, entity.TransactionStatusInProgress, f.getTx(t, h.ID).Status)

	u := f.getUnit(t, unit.ID)
	assert.Equal(t, entity.InventoryStatusRented, u.CurrentStatus)
	assert.Zero(t, u.RentalCount)
	stored, err := f.store.Repos().Returns.ListByTransaction(f.ctx, h.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Empty(t, f.events.OfType(event.TypeRentalReturned))
}

func TestCompleteRentalReturn_BorradorNoTocaUnidades(t *testing.T) {
	f := newFixture(t)
	unit := f.rentalUnit(t, "CARPA-001")
	h := f.rental(t, "A-1", unit.ID)

	_, err := f.uc.CompleteRentalReturn(f.ctx, CompleteRentalReturnInput{TransactionID: h.ID, ReturnDate: fixedNow, Actor: "x"})
	require.ErrorIs(t, err, domain.ErrIllegalTransition)

	assert.Equal(t, entity.TransactionStatusDraft, f.getTx(t, h.ID).Status)
	u := f.getUnit(t, unit.ID)
	assert.Equal(t, entity.InventoryStatusAvailableRent, u.CurrentStatus)
	assert.Zero(t, u.RentalCount)
	assert.Zero(t, u.TotalRentalDays)
	stored, err := f.store.Repos().Returns.ListByTransaction(f.ctx, h.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestCompleteRentalReturn_SegundaDevolucionRechazada(t *testing.T) {
	f := newFixture(t)
	unit := f.rentalUnit(t, "CARPA-001")
	h := f.rental(t, "A-1", unit.ID)
	_, err := f.uc.SubmitTransaction(f.ctx, h.ID, "x")
	require.NoError(t, err)
	_, err = f.uc.StartRental(f.ctx, h.ID, nil, "x")
	require.NoError(t, err)

	in := CompleteRentalReturnInput{TransactionID: h.ID, ReturnDate: *day(2024, 3, 13), Actor: "x"}
	first, err := f.uc.CompleteRentalReturn(f.ctx, in)
	require.NoError(t, err)
	assert.True(t, first.DepositReleaseAmount.Equal(dec("100.00")))

	_, err = f.uc.CompleteRentalReturn(f.ctx, in)
	require.ErrorIs(t, err, domain.ErrIllegalTransition)

	stored, err := f.store.Repos().Returns.ListByTransaction(f.ctx, h.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1, "el depósito se libera una sola vez")
	assert.Equal(t, 1, f.getUnit(t, unit.ID).RentalCount)
	assert.Len(t, f.events.OfType(event.TypeRentalReturned), 1)
}

func TestOverdueSweeper(t *testing.T) {
	f := newFixture(t)
	overdue, _ := f.sale(t, "V-1", day(2024, 3, 1))
	paid, _ := f.sale(t, "V-2", day(2024, 3, 1))
	notYet, _ := f.sale(t, "V-3", day(2024, 3, 20))
	_, err := f.uc.ApplyPayment(f.ctx, PaymentInput{TransactionID: paid.ID, Amount: dec("311.60"), Actor: "caja"})
	require.NoError(t, err)

	sw := NewOverdueSweeper(f.store, f.keys, f.events, nil, SweepConfig{BatchSize: 10})
	sw.now = func() time.Time { return fixedNow }

	res, err := sw.SweepOverdue(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Candidates: 1, Marked: 1}, res)
	assert.Equal(t, entity.PaymentStatusOverdue, f.getTx(t, overdue.ID).PaymentStatus)
	assert.Equal(t, entity.PaymentStatusPaid, f.getTx(t, paid.ID).PaymentStatus)
	assert.Equal(t, entity.PaymentStatusPending, f.getTx(t, notYet.ID).PaymentStatus)

	changes := f.events.OfType(event.TypePaymentStatusChanged)
	require.Len(t, changes, 1)
	assert.Equal(t, overdue.ID, changes[0].AggregateID)
	var payload event.PaymentStatusChanged
	require.NoError(t, changes[0].Decode(&payload))
	assert.Equal(t, string(entity.PaymentStatusPending), payload.From)
	assert.Equal(t, string(entity.PaymentStatusOverdue), payload.To)
	assert.Equal(t, string(entity.TransactionStatusDraft), payload.Status)
	assert.True(t, payload.BalanceDue.Equal(dec("311.60")))
	assert.Empty(t, f.events.OfType(event.TypeTransactionStatusChanged), "el estado de la transacción no cambia")

	res, err = sw.SweepOverdue(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Candidates, "ya marcada")

	ok, err := f.keys.Acquire(f.ctx, OverdueLockName, "otro-proceso", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = sw.SweepOverdue(f.ctx)
	require.ErrorIs(t, err, domain.ErrConflict)
}
