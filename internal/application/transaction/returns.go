package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/rental-core/internal/domain"
	"github.com/jhoicas/rental-core/internal/domain/entity"
	"github.com/jhoicas/rental-core/internal/domain/event"
	"github.com/jhoicas/rental-core/internal/domain/inventory"
	"github.com/jhoicas/rental-core/internal/domain/repository"
)

// ReturnLineInput devolución parcial o total de una línea.
type ReturnLineInput struct {
	LineID     string
	Quantity   decimal.Decimal
	ReturnDate time.Time
	Reason     string
	Actor      string
}

// ReturnLine registra la devolución sobre la línea. En ventas, las unidades devueltas de una
// línea de producto vuelven al stock de la ubicación de la cabecera.
func (uc *TransactionUseCase) ReturnLine(ctx context.Context, in ReturnLineInput) (*entity.TransactionLine, error) {
	now := uc.now()
	var (
		line *entity.TransactionLine
		out  outbox
	)
	err := uc.txRunner.Run(ctx, func(tx repository.Tx) error {
		var err error
		line, err = tx.Lines.GetForUpdate(ctx, in.LineID)
		if err != nil {
			return err
		}
		h, err := tx.Transactions.GetForUpdate(ctx, line.TransactionID)
		if err != nil {
			return err
		}
		switch h.Status {
		case entity.TransactionStatusConfirmed, entity.TransactionStatusInProgress, entity.TransactionStatusCompleted:
		default:
			return fmt.Errorf("%w: cannot return lines of %s transaction", domain.ErrIllegalTransition, h.Status)
		}
		if err := line.ProcessReturn(in.Quantity, in.ReturnDate, in.Reason, in.Actor, now); err != nil {
			return err
		}
		if h.IsSale() && line.LineType == entity.LineTypeProduct {
			qty, err := inventory.UnitsOf(in.Quantity)
			if err != nil {
				return err
			}
			s, err := tx.Stock.GetForUpdate(ctx, line.SKUID, h.LocationID)
			if err != nil {
				return err
			}
			if err := s.ReceiveStock(qty, in.Actor, now); err != nil {
				return err
			}
			if err := tx.Stock.Update(ctx, s); err != nil {
				return err
			}
			out.stockChanged(s, inventory.OpReceive, qty, h.TransactionNumber)
		}
		return tx.Lines.Update(ctx, line)
	})
	if err != nil {
		return nil, err
	}
	uc.flush(ctx, &out, in.Actor, now)
	return line, nil
}

// ReturnedUnit estado en que volvió una unidad alquilada.
type ReturnedUnit struct {
	Condition   entity.ConditionGrade
	DamageFee   decimal.Decimal
	CleaningFee decimal.Decimal
	Notes       string
}

// CompleteRentalReturnInput cierre de un alquiler. Units es opcional: las unidades del alquiler
// que no aparezcan vuelven en condición A sin cargos.
type CompleteRentalReturnInput struct {
	TransactionID    string
	ReturnDate       time.Time
	LateFeeDailyRate decimal.Decimal
	Units            map[string]ReturnedUnit
	Notes            string
	Actor            string
}

// CompleteRentalReturn cierra un alquiler IN_PROGRESS: completa la cabecera, manda cada unidad a inspección
// sumando los días usados a sus estadísticas, cobra atraso y daños contra el depósito y persiste
// la devolución.
func (uc *TransactionUseCase) CompleteRentalReturn(ctx context.Context, in CompleteRentalReturnInput) (*entity.RentalReturn, error) {
	now := uc.now()
	var (
		rr  *entity.RentalReturn
		out outbox
	)
	err := uc.txRunner.Run(ctx, func(tx repository.Tx) error {
		h, err := tx.Transactions.GetForUpdate(ctx, in.TransactionID)
		if err != nil {
			return err
		}
		if !h.IsRental() {
			return fmt.Errorf("%w: can only process return for rental transactions", domain.ErrIllegalTransition)
		}
		// solo un alquiler entregado (IN_PROGRESS) se devuelve, y una sola vez.
		if h.Status != entity.TransactionStatusInProgress {
			return fmt.Errorf("%w: cannot return rental %s in status %s", domain.ErrIllegalTransition, h.TransactionNumber, h.Status)
		}
		from := h.Status
		if err := h.CompleteRentalReturn(in.ReturnDate, in.Actor, now); err != nil {
			return err
		}
		rr, err = entity.NewRentalReturn(entity.RentalReturn{
			RentalTransactionID: h.ID,
			ReturnDate:          in.ReturnDate,
			ExpectedReturnDate:  h.RentalEndDate,
			ReturnType:          entity.ReturnTypeFull,
			ProcessedBy:         in.Actor,
			Audit:               entity.NewAudit(in.Actor, now),
		})
		if err != nil {
			return err
		}

		lines, err := tx.Lines.ListByTransaction(ctx, h.ID)
		if err != nil {
			return err
		}
		seen := make(map[string]bool, len(lines))
		unitIDs := make([]string, 0, len(lines))
		for _, l := range lines {
			if !l.IsActive || l.InventoryUnitID == "" {
				continue
			}
			seen[l.InventoryUnitID] = true
			unitIDs = append(unitIDs, l.InventoryUnitID)
			if err := uc.returnRentalUnit(ctx, tx, h, l, rr, in, now); err != nil {
				return fmt.Errorf("line %d: %w", l.LineNumber, err)
			}
		}
		for unitID := range in.Units {
			if !seen[unitID] {
				return fmt.Errorf("%w: unit %s is not part of rental %s", domain.ErrInvalidInput, unitID, h.TransactionNumber)
			}
		}

		lateFee, err := rr.CalculateLateFees(in.LateFeeDailyRate)
		if err != nil {
			return err
		}
		if err := rr.FinalizeReturn(lateFee, rr.CalculateDamageFees(), rr.CalculateCleaningFees(), in.Notes, in.Actor, now); err != nil {
			return err
		}
		release := rr.CalculateDepositRelease(h.DepositAmount)
		if err := rr.RecordDepositRelease(release, h.DepositAmount.Sub(release), now, "", in.Actor, now); err != nil {
			return err
		}
		if err := tx.Returns.Create(ctx, rr); err != nil {
			return err
		}
		if err := tx.Transactions.Update(ctx, h); err != nil {
			return err
		}

		out.statusChanged(h, from, "rental returned")
		out.add(event.AggregateTransaction, h.ID, event.TypeRentalReturned, event.RentalReturned{
			TransactionID:  h.ID,
			ReturnID:       rr.ID,
			UnitIDs:        unitIDs,
			DaysLate:       rr.DaysLate(),
			LateFee:        rr.TotalLateFee,
			DepositRelease: rr.DepositReleaseAmount,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.flush(ctx, &out, in.Actor, now)
	return rr, nil
}

func (uc *TransactionUseCase) returnRentalUnit(ctx context.Context, tx repository.Tx, h *entity.TransactionHeader,
	l *entity.TransactionLine, rr *entity.RentalReturn, in CompleteRentalReturnInput, now time.Time) error {
	u, err := tx.Units.GetForUpdate(ctx, l.InventoryUnitID)
	if err != nil {
		return err
	}
	if err := u.UpdateStatus(entity.InventoryStatusInspectionPending, in.Actor, now); err != nil {
		return err
	}
	if err := u.IncrementRentalStats(h.DaysUsed(), in.Actor, now); err != nil {
		return err
	}
	ru := in.Units[u.ID]
	if ru.Condition != "" {
		if err := u.UpdateCondition(ru.Condition, ru.Notes, in.Actor, now); err != nil {
			return err
		}
	}
	if err := tx.Units.Update(ctx, u); err != nil {
		return err
	}

	if remaining := l.RemainingQuantity(); remaining.IsPositive() {
		if err := l.ProcessReturn(remaining, in.ReturnDate, "rental return", in.Actor, now); err != nil {
			return err
		}
		if err := tx.Lines.Update(ctx, l); err != nil {
			return err
		}
	}

	rl, err := entity.NewRentalReturnLine(entity.RentalReturnLine{
		ReturnID:         rr.ID,
		InventoryUnitID:  u.ID,
		OriginalQuantity: 1,
		ReturnedQuantity: 1,
		ConditionGrade:   ru.Condition,
		DamageFee:        ru.DamageFee,
		CleaningFee:      ru.CleaningFee,
		Notes:            ru.Notes,
		Audit:            entity.NewAudit(in.Actor, now),
	})
	if err != nil {
		return err
	}
	if err := rl.ProcessLine(in.Actor, now); err != nil {
		return err
	}
	return rr.AddLine(rl, in.Actor, now)
}
