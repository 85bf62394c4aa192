package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"levelscope/internal/adapters/config"
	"levelscope/internal/adapters/errors/noop"
	"levelscope/internal/adapters/errors/sentry"
	"levelscope/internal/adapters/kafka"
	"levelscope/internal/adapters/redis"
	pipeline "levelscope/internal/analysis"
	"levelscope/internal/analysis/tuning"
	"levelscope/internal/consumers"
	"levelscope/internal/events"
	"levelscope/internal/metrics"
	"levelscope/internal/services/analysis"
	"levelscope/pkg/errors"
	"levelscope/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := loadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := initLogger(cfg); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infow("Starting", "app", cfg.App.Name, "env", cfg.App.Env, "mode", cfg.Analysis.Mode)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)
	log = logger.Get()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cancel, cfg, errorTracker, log); err != nil {
		log.ErrorWithContext(ctx, err, map[string]string{"component": "main"})
		flushTracker(errorTracker, log)
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, errorTracker errors.Tracker, log *logger.Logger) error {
	engine, err := pipeline.NewEngine(cfg.Analysis.Apply(tuning.Default()))
	if err != nil {
		return err
	}

	switch cfg.Analysis.Mode {
	case config.ModeFile:
		svc, closeCache, err := initService(ctx, cfg, engine, nil, log)
		if err != nil {
			return err
		}
		defer closeCache()
		return runFile(ctx, svc, cfg.Analysis.InputFile, os.Stdout)

	case config.ModeConsumer:
		return runConsumer(ctx, cancel, cfg, engine, errorTracker, log)
	}

	return errors.Wrapf(errors.ErrInvalidInput, "unknown mode %q", cfg.Analysis.Mode)
}

// loadConfig loads application configuration from environment
func loadConfig() (*config.Config, error) {
	return config.Load()
}

// initLogger initializes structured logging
func initLogger(cfg *config.Config) error {
	level := cfg.App.LogLevel
	if cfg.App.Debug {
		level = "debug"
	}
	return logger.Init(level, cfg.App.Env)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnw("Failed to initialize Sentry", "error", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// initService builds the analysis service, with a Redis cache when enabled.
// The returned func releases the cache connection.
func initService(
	ctx context.Context,
	cfg *config.Config,
	engine *pipeline.Engine,
	publisher analysis.ResultPublisher,
	log *logger.Logger,
) (*analysis.Service, func(), error) {
	closeCache := func() {}
	deps := analysis.Deps{
		Engine:    engine,
		Publisher: publisher,
		Log:       log,
	}

	if cfg.Analysis.CacheEnabled {
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			// the cache is an optimisation; run without it
			log.Warnw("Analysis cache disabled", "addr", cfg.Redis.Addr(), "error", err)
		} else {
			deps.Cache = analysis.NewCache(client, cfg.Analysis.CacheTTL, log)
			closeCache = func() { _ = client.Close() }
			log.Infow("Analysis cache enabled", "addr", cfg.Redis.Addr(), "ttl", cfg.Analysis.CacheTTL)
		}
	}

	svc, err := analysis.NewService(deps)
	if err != nil {
		closeCache()
		return nil, nil, err
	}
	return svc, closeCache, nil
}

// runFile analyzes one request file and writes the result JSON to out
func runFile(ctx context.Context, svc *analysis.Service, path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open input %s", path)
	}
	defer f.Close()

	req, err := readRequest(f)
	if err != nil {
		return errors.Wrapf(err, "read input %s", path)
	}

	result, err := svc.Analyze(ctx, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// readRequest decodes a request document: {"symbol", "interval", "now", "bars"}
func readRequest(r io.Reader) (pipeline.Request, error) {
	var req pipeline.Request
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return pipeline.Request{}, errors.Wrapf(errors.ErrInvalidInput, "decode request: %v", err)
	}
	return req, nil
}

func runConsumer(
	ctx context.Context,
	cancel context.CancelFunc,
	cfg *config.Config,
	engine *pipeline.Engine,
	errorTracker errors.Tracker,
	log *logger.Logger,
) error {
	if cfg.Metrics.Enabled {
		metrics.Init()
		go func() {
			if err := metrics.StartServer(ctx, cfg.Metrics.Addr); err != nil {
				log.Errorw("Metrics server stopped", "addr", cfg.Metrics.Addr, "error", err)
			}
		}()
		log.Infow("Metrics server started", "addr", cfg.Metrics.Addr)
	}

	producer := kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
	defer func() {
		if err := producer.Close(); err != nil {
			log.Warnw("Failed to close producer", "error", err)
		}
	}()

	publisher := events.NewPublisher(producer, events.Topics{
		Completed: cfg.Kafka.CompletedTopic,
		Failed:    cfg.Kafka.FailedTopic,
	}, log)

	svc, closeCache, err := initService(ctx, cfg, engine, publisher, log)
	if err != nil {
		return err
	}
	defer closeCache()

	reader := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.GroupID,
		Topic:   cfg.Kafka.RequestTopic,
	})
	defer reader.Close()

	consumer := consumers.NewAnalysisRequestConsumer(
		reader,
		svc,
		publisher,
		cfg.Kafka.ConsumeRate,
		cfg.Kafka.ConsumeBurst,
		log,
	)

	done := make(chan error, 1)
	go func() { done <- consumer.Start(ctx) }()

	log.Info("System initialized successfully")
	waitForShutdown(ctx, cancel, done, errorTracker, log)
	return <-done
}

// waitForShutdown blocks until a signal arrives or the consumer exits, then
// cancels ctx and flushes the error tracker
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, done chan error, errorTracker errors.Tracker, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		log.Infow("Shutting down...", "signal", sig.String())
	case err := <-done:
		// hand the result back to the caller
		done <- err
		log.Info("Consumer exited, shutting down...")
	case <-ctx.Done():
	}

	cancel()
	flushTracker(errorTracker, log)
	log.Info("Shutdown complete")
}

func flushTracker(errorTracker errors.Tracker, log *logger.Logger) {
	if errorTracker == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := errorTracker.Flush(ctx); err != nil {
		log.Warnw("Failed to flush error tracker", "error", err)
	}
}
