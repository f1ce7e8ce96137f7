package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tiny_mvto/pkg/logger"
	"tiny_mvto/pkg/memwatch"
	"tiny_mvto/pkg/telemetry"
	"tiny_mvto/pkg/txn"
)

func main() {
	var (
		workload     = flag.String("workload", "passing", "workload to run: passing or hello")
		players      = flag.Int("players", 2, "concurrent players in the passing workload")
		rounds       = flag.Int("rounds", 50000, "rounds per player in the passing workload")
		seed         = flag.Uint64("seed", 0, "random seed of the passing workload")
		policy       = flag.String("policy", "eager", "collection policy: eager or deferred")
		logLevel     = flag.String("log-level", "info", "log level")
		logFormat    = flag.String("log-format", "console", "log format: json or console")
		metricsAddr  = flag.String("metrics-addr", "", "serve prometheus metrics on this address, e.g. :9464")
		memThreshold = flag.Uint64("mem-threshold", 0, "heap bytes above which a collector pass is requested (0 disables)")
	)
	flag.Parse()

	log, err := logger.New(logger.Config{Level: *logLevel, Format: *logFormat, OutputFile: "stderr", Service: "driver"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(log, config{
		workload:     *workload,
		players:      *players,
		rounds:       *rounds,
		seed:         *seed,
		policy:       *policy,
		metricsAddr:  *metricsAddr,
		memThreshold: *memThreshold,
	}); err != nil {
		log.Error("driver failed", zap.Error(err))
		os.Exit(1)
	}
}

type config struct {
	workload     string
	players      int
	rounds       int
	seed         uint64
	policy       string
	metricsAddr  string
	memThreshold uint64
}

func parsePolicy(s string) (txn.CollectPolicy, error) {
	switch s {
	case "eager":
		return txn.CollectEager, nil
	case "deferred":
		return txn.CollectDeferred, nil
	default:
		return 0, fmt.Errorf("unknown collection policy %q", s)
	}
}

func run(log *zap.Logger, cfg config) error {
	policy, err := parsePolicy(cfg.policy)
	if err != nil {
		return err
	}

	tel, shutdownTelemetry, err := telemetry.New(telemetry.Config{
		Enabled:     cfg.metricsAddr != "",
		ServiceName: "tiny_mvto",
		Addr:        cfg.metricsAddr,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			log.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	engine := txn.NewEngine(
		txn.WithLogger(log),
		txn.WithMeter(tel.Meter),
		txn.WithCollectPolicy(policy),
	)
	engine.Start()

	watcher := &memwatch.Watcher{
		Threshold: cfg.memThreshold,
		Hook:      engine.OnMemoryPressure,
		Logger:    log,
	}
	go watcher.Run(ctx)

	started := time.Now()
	switch cfg.workload {
	case "passing":
		var result passingResult
		result, err = playPassing(ctx, engine, cfg.players, cfg.rounds, cfg.seed)
		if err == nil {
			log.Info("game over",
				zap.Int("moves", result.moves),
				zap.Int("idle", result.idle),
				zap.Int("aborted", result.aborted),
				zap.Int("balls", result.balls))
		}
	case "hello":
		var value string
		value, err = helloWorld(ctx, engine)
		if err == nil {
			log.Info("hello", zap.String("value", value))
		}
	default:
		err = fmt.Errorf("unknown workload %q", cfg.workload)
	}

	if _, cerr := engine.Collect().Await(ctx); cerr == nil {
		if stats, serr := engine.Stats().Await(ctx); serr == nil {
			log.Info("engine stats",
				zap.Int("keys", stats.Keys),
				zap.Int("versions", stats.Versions),
				zap.Int("pending", stats.Pending),
				zap.Int("records", stats.Records))
		}
	}

	if _, serr := engine.Shutdown().Wait(); serr != nil {
		log.Warn("engine shutdown", zap.Error(serr))
	}
	log.Info("elapsed", zap.Duration("elapsed", time.Since(started)))
	return err
}
