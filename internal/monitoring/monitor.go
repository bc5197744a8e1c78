package monitoring

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// Monitor reports errors and panics to an external tracker.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Flush(time.Duration)                       {}

type Config struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
	Release          string  `json:"release"`
}

func (c Config) Validate() error {
	if c.TracesSampleRate < 0 || c.TracesSampleRate > 1 {
		return fmt.Errorf("traces_sample_rate must be within 0-1, got %v", c.TracesSampleRate)
	}
	return nil
}

// NewSentryMonitor returns a NopMonitor when no DSN is configured.
func NewSentryMonitor(cfg Config) (Monitor, error) {
	if cfg.DSN == "" {
		return NopMonitor{}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		TracesSampleRate: cfg.TracesSampleRate,
		Release:          cfg.Release,
	})
	if err != nil {
		return nil, err
	}
	return &sentryMonitor{hub: sentry.CurrentHub()}, nil
}

type sentryMonitor struct {
	hub *sentry.Hub
}

func (s *sentryMonitor) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	if len(tags) == 0 {
		s.hub.CaptureException(err)
		return
	}
	s.hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		s.hub.CaptureException(err)
	})
}

func (s *sentryMonitor) Flush(timeout time.Duration) { s.hub.Flush(timeout) }

var current Monitor = NopMonitor{}

// Init sets the process-wide monitor.
func Init(m Monitor) {
	if m != nil {
		current = m
	}
}

func Current() Monitor { return current }

func CaptureException(err error, tags map[string]string) {
	current.CaptureException(err, tags)
}
