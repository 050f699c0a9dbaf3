package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/krisalay/qrstore"
	"github.com/krisalay/qrstore/api"
	"github.com/krisalay/qrstore/config"
	"github.com/krisalay/qrstore/engine"
	"github.com/krisalay/qrstore/httpapi"
	"github.com/krisalay/qrstore/metrics"
	"github.com/krisalay/qrstore/notify"
	"github.com/krisalay/qrstore/redisstore"
	"github.com/krisalay/qrstore/types"
	"github.com/krisalay/qrstore/writepolicy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("qrstore exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------- Metrics ----------------
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewPrometheus(reg)

	// ---------------- Update events ----------------
	sink, closeSink, err := newSink(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSink()
	policy := writepolicy.NewWriteBackPolicy(sink, cfg.EventBuffer, logger)

	// ---------------- Store ----------------
	store, err := newStore(ctx, cfg, policy, m)
	if err != nil {
		policy.Close()
		return err
	}
	defer store.Close()

	logger.Info("qrstore starting",
		"addr", cfg.Addr,
		"backend", cfg.Backend,
		"data_ttl", cfg.DataTTL,
		"cooldown_ttl", cfg.CooldownTTL,
	)

	// ---------------- HTTP ----------------
	h := httpapi.NewHandler(store, cfg.CooldownTTL, logger)
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: h.Routes(map[string]http.Handler{
			"GET /metrics": promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("qrstore shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newStore builds the configured backend. An unreachable Redis aborts startup.
func newStore(ctx context.Context, cfg config.Config, policy writepolicy.WritePolicy, m types.Metrics) (api.Store, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		client, err := redisstore.Dial(dialCtx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return redisstore.New(client, cfg.DataTTL, cfg.CooldownTTL, policy, m), nil

	default:
		eng := engine.NewGuardEngine(cfg.DataTTL, cfg.CooldownTTL, nil, policy, m)
		s := qrstore.NewGuardedStore(cfg.Shards, eng)
		s.StartSweeper(cfg.SweepInterval)
		return s, nil
	}
}

// newSink publishes to RabbitMQ when configured, otherwise logs updates.
func newSink(cfg config.Config, logger *slog.Logger) (types.Sink, func(), error) {
	if cfg.AMQPURL == "" {
		return notify.LogSink{Logger: logger}, func() {}, nil
	}

	conn, ch, err := notify.SetupConn(cfg.AMQPURL, logger)
	if err != nil {
		return nil, nil, err
	}
	return notify.NewPublisher(ch), func() {
		ch.Close()
		conn.Close()
	}, nil
}
