package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/rental-core/internal/domain"
	"github.com/jhoicas/rental-core/internal/domain/repository"
	"github.com/jhoicas/rental-core/pkg/logger"
)

// OverdueLockName nombre del lock distribuido del barrido.
const OverdueLockName = "jobs:overdue-sweep"

// SweepConfig parámetros del barrido de vencidos.
type SweepConfig struct {
	BatchSize int
	LockTTL   time.Duration
	Actor     string
}

// SweepResult conteo de un barrido.
type SweepResult struct {
	Candidates int
	Marked     int
	Skipped    int
	Failed     int
}

// OverdueSweeper marca como vencidas las transacciones con cobro abierto fuera de plazo.
type OverdueSweeper struct {
	txRunner  TxRunner
	locker    JobLocker
	publisher EventPublisher
	log       *logger.Logger
	cfg       SweepConfig
	now       func() time.Time
}

// NewOverdueSweeper construye el job. locker nil = sin lock (un solo proceso).
func NewOverdueSweeper(txRunner TxRunner, locker JobLocker, publisher EventPublisher, log *logger.Logger, cfg SweepConfig) *OverdueSweeper {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if cfg.Actor == "" {
		cfg.Actor = "overdue-job"
	}
	return &OverdueSweeper{
		txRunner:  txRunner,
		locker:    locker,
		publisher: publisher,
		log:       log.Component("overdue"),
		cfg:       cfg,
		now:       time.Now,
	}
}

// SweepOverdue corre un barrido bajo el lock del job. Cada transacción se marca en su propia
// transacción de BD; los fallos individuales se registran y se saltan. Si otro proceso tiene el
// lock devuelve domain.ErrConflict.
func (s *OverdueSweeper) SweepOverdue(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	if s.locker != nil {
		owner := uuid.New().String()
		ok, err := s.locker.Acquire(ctx, OverdueLockName, owner, s.cfg.LockTTL)
		if err != nil {
			return res, fmt.Errorf("acquire overdue lock: %w", err)
		}
		if !ok {
			return res, fmt.Errorf("%w: overdue sweep already running", domain.ErrConflict)
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), OverdueLockName, owner); err != nil {
				s.log.Warn().Err(err).Msg("liberar lock del barrido")
			}
		}()
	}

	now := s.now()
	var ids []string
	err := s.txRunner.Run(ctx, func(tx repository.Tx) error {
		var err error
		ids, err = tx.Transactions.ListOverdueCandidates(ctx, now, s.cfg.BatchSize)
		return err
	})
	if err != nil {
		return res, fmt.Errorf("list overdue candidates: %w", err)
	}
	res.Candidates = len(ids)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		marked, out, err := s.markOne(ctx, id, now)
		switch {
		case err != nil:
			res.Failed++
			s.log.Error().Err(err).Str("transaction_id", id).Msg("marcar vencida")
		case !marked:
			res.Skipped++
		default:
			res.Marked++
			publishAll(ctx, s.publisher, s.log, out, s.cfg.Actor, now)
		}
	}

	s.log.Info().
		Int("candidates", res.Candidates).
		Int("marked", res.Marked).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("barrido de vencidos")
	return res, nil
}

// markOne vuelve a evaluar la candidatura con la fila bloqueada: pudo pagarse entre el listado y aquí.
func (s *OverdueSweeper) markOne(ctx context.Context, id string, now time.Time) (bool, *outbox, error) {
	var (
		marked bool
		out    outbox
	)
	err := s.txRunner.Run(ctx, func(tx repository.Tx) error {
		h, err := tx.Transactions.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !h.IsOverdueCandidate(now) {
			return nil
		}
		from := h.PaymentStatus
		if err := h.MarkAsOverdue(s.cfg.Actor, now); err != nil {
			return err
		}
		marked = true
		out.paymentStatusChanged(h, from)
		return tx.Transactions.Update(ctx, h)
	})
	return marked, &out, err
}
