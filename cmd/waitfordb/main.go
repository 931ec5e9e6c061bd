// Command waitfordb blocks until the accounts database accepts
// connections. It is meant to run before the server (or management
// scripts) in container entrypoints, so that dependents never race a
// Postgres instance that is still starting up.
package main

import (
	"context"
	"fmt"
	"os"

	"accounts-server/internal/config"
	"accounts-server/internal/logger"
	"accounts-server/internal/waitfordb"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: "json",
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	ctx := context.Background()

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		zap.L().Fatal("Unable to parse postgres config", zap.Error(err))
	}

	prober := waitfordb.NewProber(func(ctx context.Context) error {
		// Каждая попытка открывает свежее соединение
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return err
		}
		defer pool.Close()
		return pool.Ping(ctx)
	}, log)

	if err := prober.Run(ctx); err != nil {
		zap.L().Fatal("Database never became available", zap.Error(err))
	}
}
