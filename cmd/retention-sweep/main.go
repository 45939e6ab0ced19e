// cmd/retention-sweep/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"lead-capture/internal/common/config"
	"lead-capture/internal/common/database"
	"lead-capture/internal/common/logger"
	csr "lead-capture/internal/workers/roi/create-submission-record"
)

func main() {
	days := flag.Int("days", 0, "Delete submissions older than this many days (defaults to retention.days)")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall deadline for the sweep")
	configPath := flag.String("config", "", "Config file path (defaults to configs/config.yaml lookup)")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	if *days == 0 {
		*days = cfg.Retention.Days
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres setup failed", zap.Error(err))
	}
	defer pg.Close()
	if err := pg.Ping(ctx); err != nil {
		zapLog.Fatal("postgres unreachable", zap.Error(err))
	}

	encKey, err := csr.DecodeKey(cfg.Security.FieldEncryptionKey)
	if err != nil {
		zapLog.Fatal("invalid field encryption key", zap.Error(err))
	}
	cipher, err := csr.NewFieldCipher(encKey, []byte(cfg.Security.BlindIndexKey))
	if err != nil {
		zapLog.Fatal("field cipher setup failed", zap.Error(err))
	}

	store := csr.NewHandler(csr.LoadConfig(), pg.DB, cipher, log)
	deleted, err := store.SweepExpired(ctx, *days)
	if err != nil {
		zapLog.Error("retention sweep failed", zap.Error(err))
		pg.Close()
		os.Exit(1)
	}

	zapLog.Info("Retention sweep finished", zap.Int("days", *days), zap.Int64("deleted", deleted))
}
