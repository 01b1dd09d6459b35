package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/rental-core/internal/domain"
)

type ReturnType string

const (
	ReturnTypeFull    ReturnType = "FULL"
	ReturnTypePartial ReturnType = "PARTIAL"
)

func (t ReturnType) IsValid() bool {
	return t == ReturnTypeFull || t == ReturnTypePartial
}

type ReturnStatus string

const (
	ReturnStatusInitiated    ReturnStatus = "INITIATED"
	ReturnStatusInInspection ReturnStatus = "IN_INSPECTION"
	ReturnStatusCompleted    ReturnStatus = "COMPLETED"
	ReturnStatusCancelled    ReturnStatus = "CANCELLED"
)

// ReturnTransitions COMPLETED y CANCELLED son terminales.
var ReturnTransitions = domain.TransitionTable[ReturnStatus]{
	ReturnStatusInitiated:    {ReturnStatusInInspection, ReturnStatusCompleted, ReturnStatusCancelled},
	ReturnStatusInInspection: {ReturnStatusCompleted, ReturnStatusCancelled},
}

// RentalReturn devolución de un alquiler: líneas por unidad, cargos y liberación del depósito.
type RentalReturn struct {
	ID                    string
	RentalTransactionID   string
	ReturnDate            time.Time
	ExpectedReturnDate    *time.Time
	ReturnType            ReturnType
	ReturnStatus          ReturnStatus
	ProcessedBy           string
	Lines                 []*RentalReturnLine
	TotalLateFee          decimal.Decimal
	TotalDamageFee        decimal.Decimal
	TotalCleaningFee      decimal.Decimal
	DepositReleased       bool
	DepositReleaseAmount  decimal.Decimal
	DepositWithheldAmount decimal.Decimal
	DepositReleaseDate    *time.Time
	FinalizedBy           string
	FinalizedAt           *time.Time
	Notes                 string
	IsActive              bool
	Audit
}

// NewRentalReturn valida la cabecera de la devolución. Por defecto FULL e INITIATED.
func NewRentalReturn(r RentalReturn) (*RentalReturn, error) {
	if r.RentalTransactionID == "" {
		return nil, fmt.Errorf("%w: rental transaction ID is required", domain.ErrInvalidInput)
	}
	if r.ReturnDate.IsZero() {
		return nil, fmt.Errorf("%w: return date is required", domain.ErrInvalidInput)
	}
	if r.ReturnType == "" {
		r.ReturnType = ReturnTypeFull
	}
	if !r.ReturnType.IsValid() {
		return nil, fmt.Errorf("%w: unknown return type %q", domain.ErrInvalidInput, r.ReturnType)
	}
	if r.ReturnStatus == "" {
		r.ReturnStatus = ReturnStatusInitiated
	}
	for name, v := range map[string]decimal.Decimal{
		"late fee": r.TotalLateFee, "damage fee": r.TotalDamageFee, "cleaning fee": r.TotalCleaningFee,
	} {
		if v.IsNegative() {
			return nil, fmt.Errorf("%w: %s cannot be negative", domain.ErrInvalidInput, name)
		}
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.ReturnDate = DateOf(r.ReturnDate)
	r.IsActive = true
	return &r, nil
}

func (r *RentalReturn) IsLate() bool {
	return r.DaysLate() > 0
}

// DaysLate días de atraso respecto a la fecha esperada; 0 si no hay fecha esperada.
func (r *RentalReturn) DaysLate() int {
	if r.ExpectedReturnDate == nil {
		return 0
	}
	if d := daysBetween(*r.ExpectedReturnDate, r.ReturnDate); d > 0 {
		return d
	}
	return 0
}

// CalculateLateFees tarifa diaria × días de atraso.
func (r *RentalReturn) CalculateLateFees(dailyRate decimal.Decimal) (decimal.Decimal, error) {
	if dailyRate.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: daily late rate cannot be negative", domain.ErrInvalidInput)
	}
	return round2(dailyRate.Mul(decimal.NewFromInt(int64(r.DaysLate())))), nil
}

func (r *RentalReturn) CalculateDamageFees() decimal.Decimal {
	total := decimal.Zero
	for _, l := range r.Lines {
		total = total.Add(l.DamageFee)
	}
	return total
}

func (r *RentalReturn) CalculateCleaningFees() decimal.Decimal {
	total := decimal.Zero
	for _, l := range r.Lines {
		total = total.Add(l.CleaningFee)
	}
	return total
}

// CalculateDepositRelease depósito menos cargos registrados, nunca negativo.
func (r *RentalReturn) CalculateDepositRelease(deposit decimal.Decimal) decimal.Decimal {
	release := deposit.Sub(r.TotalLateFee).Sub(r.TotalDamageFee).Sub(r.TotalCleaningFee)
	if release.IsNegative() {
		return decimal.Zero
	}
	return round2(release)
}

// AddLine agrega una unidad devuelta. Una unidad aparece una sola vez por devolución.
func (r *RentalReturn) AddLine(l *RentalReturnLine, actor string, now time.Time) error {
	if ReturnTransitions.IsTerminal(r.ReturnStatus) {
		return fmt.Errorf("%w: cannot add lines to %s return", domain.ErrIllegalTransition, r.ReturnStatus)
	}
	if l.ReturnID != r.ID {
		return fmt.Errorf("%w: line belongs to another return", domain.ErrInvalidInput)
	}
	for _, existing := range r.Lines {
		if existing.InventoryUnitID == l.InventoryUnitID {
			return fmt.Errorf("%w: unit %s already in return", domain.ErrDuplicate, l.InventoryUnitID)
		}
	}
	r.Lines = append(r.Lines, l)
	r.touch(actor, now)
	return nil
}

func (r *RentalReturn) UpdateStatus(target ReturnStatus, actor string, now time.Time) error {
	if !ReturnTransitions.Allows(r.ReturnStatus, target) {
		return fmt.Errorf("%w: illegal transition from %s to %s", domain.ErrIllegalTransition, r.ReturnStatus, target)
	}
	r.ReturnStatus = target
	r.touch(actor, now)
	return nil
}

// FinalizeReturn fija los cargos totales y completa la devolución.
func (r *RentalReturn) FinalizeReturn(lateFee, damageFee, cleaningFee decimal.Decimal, notes, actor string, now time.Time) error {
	if !ReturnTransitions.Allows(r.ReturnStatus, ReturnStatusCompleted) {
		return fmt.Errorf("%w: cannot finalize %s return", domain.ErrIllegalTransition, r.ReturnStatus)
	}
	if lateFee.IsNegative() || damageFee.IsNegative() || cleaningFee.IsNegative() {
		return fmt.Errorf("%w: fees cannot be negative", domain.ErrInvalidInput)
	}
	r.TotalLateFee = round2(lateFee)
	r.TotalDamageFee = round2(damageFee)
	r.TotalCleaningFee = round2(cleaningFee)
	r.ReturnStatus = ReturnStatusCompleted
	r.FinalizedBy = actor
	r.FinalizedAt = &now
	r.Notes = appendNote(r.Notes, notes)
	r.touch(actor, now)
	return nil
}

// RecordDepositRelease registra cuánto del depósito se devolvió y cuánto se retuvo.
func (r *RentalReturn) RecordDepositRelease(release, withheld decimal.Decimal, releaseDate time.Time, notes, actor string, now time.Time) error {
	if r.ReturnStatus != ReturnStatusCompleted {
		return fmt.Errorf("%w: deposit can only be released on completed returns", domain.ErrIllegalTransition)
	}
	if r.DepositReleased {
		return fmt.Errorf("%w: deposit already released", domain.ErrIllegalTransition)
	}
	if release.IsNegative() || withheld.IsNegative() {
		return fmt.Errorf("%w: deposit amounts cannot be negative", domain.ErrInvalidInput)
	}
	r.DepositReleased = true
	r.DepositReleaseAmount = round2(release)
	r.DepositWithheldAmount = round2(withheld)
	r.DepositReleaseDate = &releaseDate
	r.Notes = appendNote(r.Notes, notes)
	r.touch(actor, now)
	return nil
}

// FeeKind tipo de cargo de una línea de devolución.
type FeeKind string

const (
	FeeLate        FeeKind = "LATE"
	FeeDamage      FeeKind = "DAMAGE"
	FeeCleaning    FeeKind = "CLEANING"
	FeeReplacement FeeKind = "REPLACEMENT"
)

// RentalReturnLine una unidad dentro de una devolución.
type RentalReturnLine struct {
	ID               string
	ReturnID         string
	InventoryUnitID  string
	OriginalQuantity int
	ReturnedQuantity int
	ConditionGrade   ConditionGrade
	LateFee          decimal.Decimal
	DamageFee        decimal.Decimal
	CleaningFee      decimal.Decimal
	ReplacementFee   decimal.Decimal
	IsProcessed      bool
	ProcessedBy      string
	ProcessedAt      *time.Time
	Notes            string
	IsActive         bool
	Audit
}

func NewRentalReturnLine(l RentalReturnLine) (*RentalReturnLine, error) {
	if l.ReturnID == "" {
		return nil, fmt.Errorf("%w: return ID is required", domain.ErrInvalidInput)
	}
	if l.InventoryUnitID == "" {
		return nil, fmt.Errorf("%w: inventory unit ID is required", domain.ErrInvalidInput)
	}
	if l.OriginalQuantity < 1 {
		return nil, fmt.Errorf("%w: original quantity must be positive", domain.ErrInvalidQuantity)
	}
	if err := l.checkReturned(l.ReturnedQuantity); err != nil {
		return nil, err
	}
	if l.ConditionGrade == "" {
		l.ConditionGrade = ConditionGradeA
	}
	if !l.ConditionGrade.IsValid() {
		return nil, fmt.Errorf("%w: unknown condition grade %q", domain.ErrInvalidInput, l.ConditionGrade)
	}
	for _, f := range []decimal.Decimal{l.LateFee, l.DamageFee, l.CleaningFee, l.ReplacementFee} {
		if f.IsNegative() {
			return nil, fmt.Errorf("%w: fees cannot be negative", domain.ErrInvalidInput)
		}
	}
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	l.IsActive = true
	return &l, nil
}

func (l *RentalReturnLine) checkReturned(qty int) error {
	if qty < 0 {
		return fmt.Errorf("%w: returned quantity cannot be negative", domain.ErrInvalidQuantity)
	}
	if qty > l.OriginalQuantity {
		return fmt.Errorf("%w: cannot return more than originally rented (%d)", domain.ErrInvalidQuantity, l.OriginalQuantity)
	}
	return nil
}

func (l *RentalReturnLine) UpdateReturnQuantity(qty int, actor string, now time.Time) error {
	if l.IsProcessed {
		return fmt.Errorf("%w: return line already processed", domain.ErrIllegalTransition)
	}
	if err := l.checkReturned(qty); err != nil {
		return err
	}
	l.ReturnedQuantity = qty
	l.touch(actor, now)
	return nil
}

func (l *RentalReturnLine) UpdateCondition(grade ConditionGrade, note, actor string, now time.Time) error {
	if !grade.IsValid() {
		return fmt.Errorf("%w: unknown condition grade %q", domain.ErrInvalidInput, grade)
	}
	l.ConditionGrade = grade
	l.Notes = appendNote(l.Notes, note)
	l.touch(actor, now)
	return nil
}

// SetFee fija un cargo de la línea.
func (l *RentalReturnLine) SetFee(kind FeeKind, amount decimal.Decimal, actor string, now time.Time) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: %s fee cannot be negative", domain.ErrInvalidInput, kind)
	}
	amount = round2(amount)
	switch kind {
	case FeeLate:
		l.LateFee = amount
	case FeeDamage:
		l.DamageFee = amount
	case FeeCleaning:
		l.CleaningFee = amount
	case FeeReplacement:
		l.ReplacementFee = amount
	default:
		return fmt.Errorf("%w: unknown fee kind %q", domain.ErrInvalidInput, kind)
	}
	l.touch(actor, now)
	return nil
}

func (l *RentalReturnLine) ProcessLine(actor string, now time.Time) error {
	if l.IsProcessed {
		return fmt.Errorf("%w: return line already processed", domain.ErrIllegalTransition)
	}
	l.IsProcessed = true
	l.ProcessedBy = actor
	l.ProcessedAt = &now
	l.touch(actor, now)
	return nil
}

func (l *RentalReturnLine) CalculateTotalFees() decimal.Decimal {
	return l.LateFee.Add(l.DamageFee).Add(l.CleaningFee).Add(l.ReplacementFee)
}
