package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/kessl/xptrack/internal/api"
	"codeberg.org/kessl/xptrack/internal/config"
	"codeberg.org/kessl/xptrack/internal/errors"
	"codeberg.org/kessl/xptrack/internal/logger"
	"codeberg.org/kessl/xptrack/internal/pid"
	"codeberg.org/kessl/xptrack/internal/profile"
	"codeberg.org/kessl/xptrack/internal/rate"
	"codeberg.org/kessl/xptrack/internal/sampler"
	"codeberg.org/kessl/xptrack/internal/source"
	"codeberg.org/kessl/xptrack/internal/store"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Printf("failed to parse log level: %v\n", err)
		os.Exit(1)
	}
	logger.Init(level, logger.IsService())
	logger.Debug().Msg("Config loaded")

	if err := pid.Write(); err != nil {
		logger.Fatal().Err(err).Msg("failed to write pid file")
	}

	if err := run(cfg); err != nil {
		logger.Error().Err(err).Msg("daemon exited with error")
	}

	if err := pid.Remove(); err != nil {
		logger.Error().Err(err).Msg("failed to remove pid file")
	}
	logger.Info().Msg("Exiting...")
}

func run(cfg *config.Config) error {
	errFactory := errors.New()

	st, err := store.Open(cfg.Database)
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close sample store")
		}
	}()

	manual := source.NewManualSource()
	svc := sampler.New(st, manual, cfg.Interval)

	if err := svc.Hydrate(context.Background()); err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}
	defer svc.Stop()

	handler := api.NewHandler(api.HandlerDeps{
		Store:    st,
		Sampler:  svc,
		Engine:   rate.NewEngine(st),
		Manual:   manual,
		Profiles: profile.NewStore(cfg.ProfileDir),
	})

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("listen", cfg.Listen).Msg("HTTP API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- errFactory.Wrap(errors.ErrServeHTTP, err)
			return
		}
		serveErr <- nil
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shut down HTTP server")
	}

	return <-serveErr
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
