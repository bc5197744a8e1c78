package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"vacancy-vault/internal/config"
	"vacancy-vault/internal/detection"
	"vacancy-vault/internal/logging"
	"vacancy-vault/internal/monitoring"
	"vacancy-vault/internal/parking"
	"vacancy-vault/internal/server"
	"vacancy-vault/internal/store"
)

type lotStore interface {
	parking.Store
	parking.Ledger
}

// app owns everything built from one Config.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	telemetry *parking.TelemetryProvider
	registry  *prometheus.Registry
	store     lotStore
	lot       *parking.Service
	oracle    *detection.Client
	closers   []io.Closer
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := logging.Init(cfg.Logging); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	a := &app{cfg: cfg, log: logging.Component("main")}
	if err := a.build(ctx); err != nil {
		if cerr := a.Close(); cerr != nil {
			a.log.Error().Err(cerr).Msg("close after failed start")
		}
		return nil, err
	}
	return a, nil
}

// build fills in a step by step. On error, whatever was set up is released
// by Close.
func (a *app) build(ctx context.Context) error {
	cfg := a.cfg

	monitor, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return fmt.Errorf("init sentry: %w", err)
	}
	monitoring.Init(monitor)

	a.telemetry, err = parking.NewTelemetryProvider(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	loc, err := cfg.Lot.Location()
	if err != nil {
		return fmt.Errorf("lot timezone: %w", err)
	}
	if err := a.openStore(ctx, loc); err != nil {
		return err
	}

	holidays, err := a.store.LoadHolidays(ctx)
	if err != nil {
		return fmt.Errorf("load holidays: %w", err)
	}
	calendar := parking.NewHolidayCalendar(holidays)

	rates, err := cfg.Pricing.RateTable()
	if err != nil {
		return err
	}
	opts := []parking.Option{
		parking.WithMaxDuration(cfg.Lot.MaxDurationHours),
		parking.WithClock(func() time.Time { return time.Now().In(loc) }),
	}
	if cfg.Pricing.HolidayRush {
		opts = append(opts, parking.WithHolidays(calendar))
	}
	engine, err := parking.NewInstrumentedEngine(parking.NewEngine(rates, opts...), a.telemetry)
	if err != nil {
		return fmt.Errorf("instrument engine: %w", err)
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := parking.NewPromMetrics(a.registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	a.lot = parking.NewService(engine, a.store, a.store,
		parking.WithCapacity(cfg.Lot.Capacity),
		parking.WithMetrics(metrics),
		parking.WithCalendar(calendar),
		parking.WithLogger(logging.Component("lot")),
	)
	a.oracle = detection.NewClient(cfg.Detection)

	a.log.Info().
		Str("backend", cfg.Store.Backend).
		Int("capacity", cfg.Lot.Capacity).
		Int("holidays", calendar.Len()).
		Bool("holiday_rush", cfg.Pricing.HolidayRush).
		Msg("parking lot ready")
	return nil
}

func (a *app) openStore(ctx context.Context, loc *time.Location) error {
	switch a.cfg.Store.Backend {
	case config.BackendRedis:
		rs, err := store.DialRedis(ctx, a.cfg.Store.Redis, loc)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		a.store = rs
		a.closers = append(a.closers, rs)
	default:
		fs, err := store.NewFileStore(a.cfg.Store.Dir, loc)
		if err != nil {
			return fmt.Errorf("open data dir: %w", err)
		}
		a.store = fs
	}
	return nil
}

func (a *app) newServer() *server.Server {
	return server.NewServer(a.cfg.Server, a.cfg.Telemetry.ServiceName, a.lot, a.oracle, a.registry)
}

func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	if a.telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.telemetry.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
		}
	}
	monitoring.Current().Flush(2 * time.Second)
	return errors.Join(errs...)
}
