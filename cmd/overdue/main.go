package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhoicas/rental-core/internal/application/transaction"
	"github.com/jhoicas/rental-core/internal/infrastructure/kafka"
	"github.com/jhoicas/rental-core/internal/infrastructure/postgres"
	"github.com/jhoicas/rental-core/internal/infrastructure/redis"
	"github.com/jhoicas/rental-core/pkg/config"
	"github.com/jhoicas/rental-core/pkg/logger"
)

// overdue corre un barrido de transacciones vencidas y termina. Pensado para cron.
// Sale con 1 si el barrido no pudo correr y con 2 si alguna transacción falló.
func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("conexión a PostgreSQL")
		return 1
	}
	defer pool.Close()

	redisClient, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("conexión a Redis")
		return 1
	}
	defer redisClient.Close()

	var publisher transaction.EventPublisher
	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := producer.Close(); err != nil {
				log.Warn().Err(err).Msg("cerrar productor kafka")
			}
		}()
		publisher = producer
	} else {
		log.Warn().Msg("KAFKA_BROKERS vacío: los eventos no se publican")
	}

	sweeper := transaction.NewOverdueSweeper(
		postgres.NewTxRunner(pool),
		redis.NewStore(redisClient),
		publisher,
		log,
		transaction.SweepConfig{
			BatchSize: cfg.Jobs.OverdueBatchSize,
			LockTTL:   cfg.Jobs.OverdueLockTTL,
			Actor:     cfg.Jobs.OverdueActor,
		},
	)

	res, err := sweeper.SweepOverdue(ctx)
	if err != nil {
		log.Error().Err(err).Msg("barrido de vencidos")
		return 1
	}
	if res.Failed > 0 {
		return 2
	}
	return 0
}
