// Package main provides the entrypoint for the envlake ingestion service.
//
// The binary serves the HTTP trigger API by default. With -run it
// executes a single ingestion run and exits, which is how the container
// is invoked from batch schedulers.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/envlake/envlake/internal/airquality"
	"github.com/envlake/envlake/internal/airquality/openaq"
	"github.com/envlake/envlake/internal/api"
	"github.com/envlake/envlake/internal/api/middleware"
	"github.com/envlake/envlake/internal/config"
	"github.com/envlake/envlake/internal/database"
	"github.com/envlake/envlake/internal/dataset/ecdc"
	"github.com/envlake/envlake/internal/dataset/eurostat"
	"github.com/envlake/envlake/internal/dataset/who"
	"github.com/envlake/envlake/internal/featureflags"
	"github.com/envlake/envlake/internal/runlog"
	"github.com/envlake/envlake/internal/storage"
	"github.com/envlake/envlake/internal/telemetry"
	"github.com/envlake/envlake/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "envlake-ingest"

	runSource := flag.String("run", "", "run one ingestion source (openaq, ecdc, eurostat, who, all) and exit")
	flag.Parse()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().Str("build_time", BuildTime).Msg("starting envlake ingestion service")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx := context.Background()

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	// Bronze store. An unset bucket still boots the service; every run is
	// then rejected by validation with a 500 result.
	var store storage.Store
	if cfg.S3Bucket != "" {
		s3Store, err := storage.NewS3Store(storage.S3Config{
			Bucket: cfg.S3Bucket,
			Region: cfg.S3Region,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize object store")
		}
		store = s3Store
		log.Info().Str("bucket", cfg.S3Bucket).Msg("object store initialized")
	} else {
		store = storage.NewMemoryStore()
		log.Warn().Msg("S3_BUCKET not set, runs will be rejected")
	}

	// Database-backed run history and feature flags when configured.
	var (
		history   runlog.Repository = runlog.NewMemoryRepository()
		flagsRepo featureflags.Repository
	)
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, database.Config{URL: cfg.DatabaseURL})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		history = runlog.NewPostgresRepository(pool)
		flagsRepo = featureflags.NewPostgresRepository(pool)
		log.Info().Msg("database connected")
	}
	flags := featureflags.NewService(featureflags.ServiceConfig{
		Repository: flagsRepo,
		Logger:     log,
	})

	jobs := buildJobs(cfg, store, log)

	runner := worker.NewRunner(worker.RunnerConfig{
		Config:  cfg,
		Jobs:    jobs,
		Flags:   flags,
		History: history,
		Logger:  log,
	})

	// One-shot mode: run and exit with the run's outcome.
	if *runSource != "" {
		result := runner.Run(ctx, *runSource)
		_ = json.NewEncoder(os.Stdout).Encode(result)
		if result.StatusCode != 200 {
			os.Exit(1)
		}
		return
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	if cfg.ScheduleEvery > 0 {
		scheduler := worker.NewScheduler(worker.SchedulerConfig{
			Runner: runner,
			Every:  cfg.ScheduleEvery,
			Logger: log,
		})
		if err := scheduler.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start scheduler")
		}
		defer scheduler.Stop()
	}

	if cfg.PubSubProject != "" && cfg.PubSubSubscription != "" {
		pubsubCtx, cancelPubSub := context.WithCancel(ctx)
		defer cancelPubSub()

		handler, err := worker.NewPubSubHandler(pubsubCtx, worker.PubSubConfig{
			ProjectID:        cfg.PubSubProject,
			SubscriptionName: cfg.PubSubSubscription,
			Runner:           runner,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize pubsub handler")
		}
		defer handler.Close()

		go func() {
			if err := handler.Start(pubsubCtx); err != nil {
				log.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
	}

	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		ServiceName: serviceName,
		Logger:      log,
		Metrics:     metrics,
		Runner:      runner,
		History:     history,
		Flags:       flags,
		FlagsRepo:   flagsRepo,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
		// Triggered runs execute synchronously and can take minutes.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// buildJobs wires every ingestion source against the shared store.
func buildJobs(cfg *config.Config, store storage.Store, log zerolog.Logger) map[string]worker.Job {
	openaqClient := openaq.NewClient(openaq.ClientConfig{
		APIKey: cfg.OpenAQAPIKey,
	})

	airService := airquality.NewService(airquality.ServiceConfig{
		Source:    openaqClient,
		Store:     store,
		Prefix:    cfg.PrefixFor(worker.SourceOpenAQ),
		Countries: cfg.Countries,
		DateFrom:  cfg.DateFrom,
		DateTo:    cfg.DateTo,
		Logger:    log,
		Tracer:    telemetry.Tracer("airquality"),
	})

	return map[string]worker.Job{
		worker.SourceOpenAQ: airService,
		worker.SourceECDC: ecdc.NewJob(ecdc.JobConfig{
			Store:  store,
			Prefix: cfg.PrefixFor(worker.SourceECDC),
			Logger: log,
		}),
		worker.SourceEurostat: eurostat.NewJob(eurostat.JobConfig{
			Store:  store,
			Prefix: cfg.PrefixFor(worker.SourceEurostat),
			Logger: log,
		}),
		worker.SourceWHO: who.NewJob(who.JobConfig{
			Store:  store,
			Prefix: cfg.PrefixFor(worker.SourceWHO),
			Logger: log,
		}),
	}
}
