package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds every startup tunable.
type Config struct {
	Addr          string
	DataTTL       time.Duration
	CooldownTTL   time.Duration
	Backend       string
	RedisURL      string
	AMQPURL       string
	Shards        int
	SweepInterval time.Duration
	EventBuffer   int
	LogLevel      slog.Level
}

/*
Load parses command-line flags. Each flag falls back to an environment
variable, then to a built-in default:

	-addr            ADDR (or PORT)     :8080
	-data-ttl        QR_DATA_TTL        300 (seconds, or a Go duration like 5m)
	-cooldown-ttl    QR_COOLDOWN_TTL    5
	-backend         QR_BACKEND         memory
	-redis-url       REDIS_URL          redis://localhost:6379/0
	-amqp-url        AMQP_URL           (empty: log updates instead)
	-shards          QR_SHARDS          32
	-sweep-interval  QR_SWEEP_INTERVAL  1m
	-event-buffer    QR_EVENT_BUFFER    1024
	-log-level       LOG_LEVEL          info
*/
func Load(args []string, getenv func(string) string) (Config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	addr := env("ADDR", "")
	if addr == "" {
		addr = ":" + env("PORT", "8080")
	}

	fs := flag.NewFlagSet("qrstore", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		cfg                         Config
		dataTTL, cooldownTTL, sweep string
		logLevel                    string
	)
	fs.StringVar(&cfg.Addr, "addr", addr, "HTTP listen address")
	fs.StringVar(&dataTTL, "data-ttl", env("QR_DATA_TTL", "300"), "how long a written value stays readable (seconds or duration)")
	fs.StringVar(&cooldownTTL, "cooldown-ttl", env("QR_COOLDOWN_TTL", "5"), "minimum spacing between writes to one id (seconds or duration)")
	fs.StringVar(&cfg.Backend, "backend", env("QR_BACKEND", BackendMemory), "slot backend: memory or redis")
	fs.StringVar(&cfg.RedisURL, "redis-url", env("REDIS_URL", "redis://localhost:6379/0"), "Redis URL for the redis backend")
	fs.StringVar(&cfg.AMQPURL, "amqp-url", env("AMQP_URL", ""), "RabbitMQ URL for update events; empty logs them")
	fs.StringVar(&sweep, "sweep-interval", env("QR_SWEEP_INTERVAL", "1m"), "memory backend sweep interval, 0 disables")
	fs.StringVar(&logLevel, "log-level", env("LOG_LEVEL", "info"), "debug, info, warn or error")

	shards, err := strconv.Atoi(env("QR_SHARDS", "32"))
	if err != nil {
		return Config{}, fmt.Errorf("QR_SHARDS: %w", err)
	}
	buffer, err := strconv.Atoi(env("QR_EVENT_BUFFER", "1024"))
	if err != nil {
		return Config{}, fmt.Errorf("QR_EVENT_BUFFER: %w", err)
	}
	fs.IntVar(&cfg.Shards, "shards", shards, "memory backend shard count")
	fs.IntVar(&cfg.EventBuffer, "event-buffer", buffer, "queued update events before dropping")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.DataTTL, err = parseSeconds(dataTTL); err != nil {
		return Config{}, fmt.Errorf("data-ttl: %w", err)
	}
	if cfg.CooldownTTL, err = parseSeconds(cooldownTTL); err != nil {
		return Config{}, fmt.Errorf("cooldown-ttl: %w", err)
	}
	if cfg.SweepInterval, err = parseSeconds(sweep); err != nil {
		return Config{}, fmt.Errorf("sweep-interval: %w", err)
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
		return Config{}, fmt.Errorf("log-level: %w", err)
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var errs []error
	if c.DataTTL <= 0 {
		errs = append(errs, errors.New("data-ttl must be positive"))
	}
	if c.CooldownTTL <= 0 {
		errs = append(errs, errors.New("cooldown-ttl must be positive"))
	}
	if c.SweepInterval < 0 {
		errs = append(errs, errors.New("sweep-interval must not be negative"))
	}
	if c.Shards < 1 {
		errs = append(errs, errors.New("shards must be at least 1"))
	}
	if c.EventBuffer < 1 {
		errs = append(errs, errors.New("event-buffer must be at least 1"))
	}
	if c.Backend != BackendMemory && c.Backend != BackendRedis {
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	return errors.Join(errs...)
}

// parseSeconds accepts a bare integer as seconds, otherwise a Go duration.
func parseSeconds(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}
