// cmd/lead-server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	awsclient "lead-capture/internal/common/aws"
	"lead-capture/internal/common/config"
	"lead-capture/internal/common/database"
	"lead-capture/internal/common/logger"
	"lead-capture/internal/common/observability"
	"lead-capture/internal/common/ratelimit"
	"lead-capture/internal/server"

	es "lead-capture/internal/workers/communication/email-send"
	gdpr "lead-capture/internal/workers/compliance/gdpr-request"
	cls "lead-capture/internal/workers/crm/crm-lead-sync"
	il "lead-capture/internal/workers/data-access/index-lead"
	dn "lead-capture/internal/workers/notification/dispatch-notifications"
	cp "lead-capture/internal/workers/roi/calculate-projection"
	csr "lead-capture/internal/workers/roi/create-submission-record"
	sl "lead-capture/internal/workers/roi/score-lead"
	vs "lead-capture/internal/workers/roi/validate-submission"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting lead server...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Fatal("observability setup failed", zap.Error(err))
	}

	ctx := context.Background()
	var checks []server.Check

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	encKey, err := csr.DecodeKey(cfg.Security.FieldEncryptionKey)
	if err != nil {
		zapLog.Fatal("invalid field encryption key", zap.Error(err))
	}
	cipher, err := csr.NewFieldCipher(encKey, []byte(cfg.Security.BlindIndexKey))
	if err != nil {
		zapLog.Fatal("field cipher setup failed", zap.Error(err))
	}

	store := csr.NewHandler(csr.LoadConfig(), pg.DB, cipher, log)
	if err := store.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("schema setup failed", zap.Error(err))
	}
	checks = append(checks, server.Check{Name: "postgres", Ping: store.Ping})

	// --- Rate limit backend ---
	window := config.GetDuration(cfg.RateLimit.Window)
	if window <= 0 {
		window = ratelimit.DefaultWindow
	}

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Backend == "redis" {
		var redis *database.RedisClient
		err = retryWithBackoff(func() error {
			redis = database.NewRedis(cfg.Database.Redis)
			if err := redis.Ping(ctx); err != nil {
				redis.Close()
				return err
			}
			return nil
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()
		zapLog.Info("Redis connected successfully")

		limiter = ratelimit.NewRedisLimiter(redis.Client, window, cfg.RateLimit.KeyPrefix)
		checks = append(checks, server.Check{Name: "redis", Ping: redis.Ping})
	} else {
		limiter = ratelimit.NewMemoryLimiter(window)
		zapLog.Warn("Using in-memory rate limiter; quotas are per instance")
	}

	gate := ratelimit.NewGate(limiter, ratelimit.Limits(
		cfg.RateLimit.Calculate,
		cfg.RateLimit.Submit,
		cfg.RateLimit.Status,
		cfg.RateLimit.GDPR,
	), log)

	// --- Notification channels ---
	emailCfg := es.DefaultConfig()
	emailCfg.Provider = cfg.Integrations.Email.Provider
	emailCfg.FromEmail = cfg.Integrations.Email.FromEmail
	emailCfg.FromName = cfg.Integrations.Email.FromName
	emailCfg.SalesRecipients = cfg.Integrations.Email.SalesRecipients
	emailCfg.CalendarURL = cfg.Integrations.Email.CalendarURL
	emailCfg.SMTPHost = cfg.Integrations.SMTP.Host
	emailCfg.SMTPPort = cfg.Integrations.SMTP.Port
	emailCfg.SMTPUsername = cfg.Integrations.SMTP.Username
	emailCfg.SMTPPassword = cfg.Integrations.SMTP.Password
	emailCfg.UseTLS = cfg.Integrations.SMTP.UseTLS

	emailDeps := es.ServiceDependencies{Logger: log}
	if emailCfg.Provider == es.ProviderSES {
		sesClient, err := awsclient.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client setup failed", zap.Error(err))
		}
		emailDeps.SES = sesClient
	}
	emailService, err := es.NewService(emailDeps, emailCfg)
	if err != nil {
		zapLog.Fatal("email service setup failed", zap.Error(err))
	}
	if !emailService.Enabled() {
		zapLog.Warn("Email provider disabled; confirmations will not be sent")
	}

	crmCfg := cls.DefaultConfig()
	crmCfg.BaseURL = cfg.Integrations.HubSpot.BaseURL
	crmCfg.AccessToken = cfg.Integrations.HubSpot.AccessToken
	crmCfg.Timeout = config.GetDuration(cfg.Integrations.HubSpot.Timeout)
	crmCfg.RequestsPerSecond = cfg.Integrations.HubSpot.RequestsPerSecond
	crmCfg.Burst = cfg.Integrations.HubSpot.Burst
	crmCfg.Pipeline = cfg.Integrations.HubSpot.Pipeline
	crmCfg.DealStage = cfg.Integrations.HubSpot.DealStage

	crmService, err := cls.NewService(cls.ServiceDependencies{Logger: log}, crmCfg)
	if err != nil {
		zapLog.Fatal("crm service setup failed", zap.Error(err))
	}
	if !crmService.Enabled() {
		zapLog.Warn("HubSpot access token missing; CRM sync disabled")
	}

	indexCfg := il.DefaultConfig()
	indexCfg.Index = cfg.Database.Elasticsearch.Index

	var indexer *il.Handler
	if cfg.Notifications.IndexEnabled {
		// --- Init Elasticsearch with retry ---
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")

		indexer = il.NewHandler(indexCfg, esClient.Client, log)
		if err := indexer.EnsureIndex(ctx); err != nil {
			zapLog.Warn("lead index setup failed; indexing will be retried per lead", zap.Error(err))
		}
		checks = append(checks, server.Check{Name: "elasticsearch", Ping: esClient.Ping})
	} else {
		indexer = il.NewHandler(indexCfg, nil, log)
	}

	dispatchCfg := &dn.Config{
		Workers:         cfg.Notifications.Workers,
		QueueSize:       cfg.Notifications.QueueSize,
		MaxAttempts:     cfg.Notifications.MaxAttempts,
		RetryDelay:      config.GetDuration(cfg.Notifications.RetryDelay),
		AttemptTimeout:  config.GetDuration(cfg.Notifications.AttemptLimit),
		EmailEnabled:    cfg.Notifications.EmailEnabled,
		CRMEnabled:      cfg.Notifications.CRMEnabled,
		SMSEnabled:      cfg.Notifications.SMSEnabled,
		IndexEnabled:    cfg.Notifications.IndexEnabled,
		SalesAlertPhone: cfg.Integrations.AWS.SNS.SalesAlertPhone,
		SMSSenderID:     cfg.Integrations.AWS.SNS.SenderID,
	}
	if err := dispatchCfg.Validate(); err != nil {
		zapLog.Fatal("invalid notification config", zap.Error(err))
	}

	dispatchDeps := dn.Dependencies{
		Logger:        log,
		Store:         store,
		Email:         emailService,
		CRM:           crmService,
		Indexer:       indexer,
		Observability: obs,
	}
	if dispatchCfg.SMSEnabled && dispatchCfg.SalesAlertPhone != "" {
		snsClient, err := awsclient.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client setup failed", zap.Error(err))
		}
		dispatchDeps.SNS = snsClient
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	queue := dn.NewChannelQueue(dn.NewHandler(dispatchCfg, dispatchDeps))
	queue.Start(workerCtx)

	// --- Retention ---
	if cfg.Retention.Enabled {
		go store.RunRetention(workerCtx, config.GetDuration(cfg.Retention.SweepInterval), cfg.Retention.Days)
		zapLog.Info("Retention sweep scheduled",
			zap.Int("days", cfg.Retention.Days),
			zap.Duration("interval", config.GetDuration(cfg.Retention.SweepInterval)),
		)
	}

	// --- HTTP ---
	srv := server.New(&server.Config{
		TrustProxyHeaders: len(cfg.App.TrustedProxies) > 0,
		CORSOrigins:       cfg.App.CORSOrigins,
	}, server.Dependencies{
		Logger:        log,
		Validator:     vs.NewHandler(nil, log),
		Projector:     cp.NewHandler(nil, log),
		Scorer:        sl.NewHandler(nil, log),
		Store:         store,
		Queue:         queue,
		GDPR:          gdpr.NewHandler(nil, store, log),
		Gate:          gate,
		Observability: obs,
		Checks:        checks,
	})

	httpServer := &http.Server{
		Addr:              cfg.App.Addr(),
		Handler:           srv.Routes(),
		ReadTimeout:       config.GetDuration(cfg.App.ReadTimeout),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      config.GetDuration(cfg.App.WriteTimeout),
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.App.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	drained := make(chan struct{})
	go func() {
		queue.Close()
		close(drained)
	}()
	select {
	case <-drained:
	case <-shutdownCtx.Done():
		zapLog.Warn("Notification queue not drained before deadline", zap.Int("pending", queue.Len()))
		stopWorkers()
		<-drained
	}
	stopWorkers()

	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down observability", zap.Error(err))
	}

	zapLog.Info("Lead server stopped gracefully")
}
