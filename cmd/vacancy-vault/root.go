package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"vacancy-vault/internal/config"
	"vacancy-vault/internal/logging"
	"vacancy-vault/internal/parking"
)

const defaultConfigPath = "config.yaml"

var (
	cfgPath string
	mode    string
	port    string
)

var rootCmd = &cobra.Command{
	Use:          "vacancy-vault",
	Short:        "Parking lot slot allocation and pricing",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultConfigPath, "configuration file (YAML or JSON)")
	rootCmd.Flags().StringVarP(&mode, "mode", "m", "cli", "run mode: cli, server or both")
	rootCmd.Flags().StringVarP(&port, "port", "p", "", "HTTP port, overrides server.port")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// loadConfig reads .env, then the config file. The default file may be absent.
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	path := cfgPath
	if path == defaultConfigPath {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if port != "" {
		cfg.Server.Port = port
	}
	return cfg, nil
}

// withApp builds the app, hands it to fn and always closes it.
func withApp(ctx context.Context, fn func(*app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			a.log.Error().Err(cerr).Msg("close")
		}
	}()
	return fn(a)
}

func run(cmd *cobra.Command, args []string) error {
	switch mode {
	case "cli", "server", "both":
	default:
		return fmt.Errorf("invalid mode %q: must be cli, server or both", mode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withApp(ctx, func(a *app) error {
		switch mode {
		case "cli":
			runCLI(ctx, a, cmd)
			return nil
		case "server":
			return serve(ctx, a)
		default:
			return runBoth(ctx, a, cmd)
		}
	})
}

// startShell runs the shell in the background. The returned channel closes
// when the shell returns. A shell blocked on input is abandoned when the
// process exits.
func startShell(ctx context.Context, a *app, cmd *cobra.Command) <-chan struct{} {
	in, out := cmd.InOrStdin(), cmd.OutOrStdout()
	shell := parking.NewShell(a.lot, a.telemetry, in, out)

	done := make(chan struct{})
	go func() {
		defer close(done)
		fmt.Fprintf(out, "Parking lot with %d slots. Type help for commands.\n", a.lot.Capacity())
		shell.Run(ctx)
	}()
	return done
}

func runCLI(ctx context.Context, a *app, cmd *cobra.Command) {
	select {
	case <-startShell(ctx, a, cmd):
	case <-ctx.Done():
		a.log.Info().Msg("shutting down")
	}
}

// serve runs the HTTP server until ctx is done, then drains it.
func serve(ctx context.Context, a *app) error {
	srv := a.newServer()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Info(ctx).Str("address", srv.GetAddress()).Msg("serving HTTP API")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// runBoth serves HTTP while the shell reads the terminal. It returns as soon
// as the shell exits, the server fails, or ctx is done.
func runBoth(ctx context.Context, a *app, cmd *cobra.Command) error {
	srvCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverDone := make(chan error, 1)
	go func() { serverDone <- serve(srvCtx, a) }()

	shellDone := startShell(ctx, a, cmd)

	select {
	case <-shellDone:
		cancel()
		return <-serverDone
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}
}
