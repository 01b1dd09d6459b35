package main

import (
	"context"
	"os"
	"time"

	"github.com/jhoicas/rental-core/internal/infrastructure/postgres"
	"github.com/jhoicas/rental-core/pkg/config"
	"github.com/jhoicas/rental-core/pkg/logger"
)

// migrate crea las tablas que falten.
func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: cfg.App.Name})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("conexión a PostgreSQL")
		return 1
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Error().Err(err).Msg("crear esquema")
		return 1
	}
	log.Info().Str("db", cfg.DB.DBName).Msg("esquema al día")
	return 0
}
