package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type Config struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
}

func (c *Config) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

func (c Config) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Level)); err != nil {
		return fmt.Errorf("logging level: %w", err)
	}
	return nil
}

var logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Init configures the process logger. Output goes to stderr so the shell
// keeps stdout to itself.
func Init(cfg Config) error {
	return InitWriter(cfg, os.Stderr)
}

func InitWriter(cfg Config, out io.Writer) error {
	cfg.SetDefaults()
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return err
	}

	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.Development {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
			Level(level).
			With().
			Timestamp().
			Caller().
			Logger()
	} else {
		logger = zerolog.New(out).
			Level(level).
			With().
			Timestamp().
			Logger()
	}
	return nil
}

// Component returns a child logger tagged with the component name.
func Component(name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

// Trace adds the trace and span ids of ctx to l, if a span is active.
func Trace(ctx context.Context, l zerolog.Logger) zerolog.Logger {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return l
	}

	return l.With().
		Str("traceId", span.SpanContext().TraceID().String()).
		Str("spanId", span.SpanContext().SpanID().String()).
		Logger()
}

func WithContext(ctx context.Context) zerolog.Logger {
	return Trace(ctx, logger)
}

func Info(ctx context.Context) *zerolog.Event {
	l := WithContext(ctx)
	return l.Info()
}

func Error(ctx context.Context) *zerolog.Event {
	l := WithContext(ctx)
	return l.Error()
}

func Debug(ctx context.Context) *zerolog.Event {
	l := WithContext(ctx)
	return l.Debug()
}
