// Package main runs the intranet simulator daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nullgrid/nullgrid/internal/api"
	"github.com/nullgrid/nullgrid/internal/auth"
	"github.com/nullgrid/nullgrid/internal/config"
	"github.com/nullgrid/nullgrid/internal/coordinator"
	"github.com/nullgrid/nullgrid/internal/events"
	"github.com/nullgrid/nullgrid/internal/persist"
	"github.com/nullgrid/nullgrid/internal/presence"
	"github.com/nullgrid/nullgrid/internal/service"
	"github.com/nullgrid/nullgrid/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("configuration error", "err", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := persist.NewEngine(cfg.DataFile, cfg.StoreKey, log)
	st, err := engine.Load()
	if err != nil {
		// Fail closed: a corrupt or foreign-key artifact must never be
		// silently replaced with a fresh store.
		return err
	}

	adminHash, err := auth.HashSecret(cfg.AdminSecret, cfg.Pepper)
	if err != nil {
		return err
	}
	if _, err := store.EnsureAdmin(st, cfg.AdminIdentity, cfg.AdminName, adminHash, time.Now().UTC()); err != nil {
		return err
	}

	tracker := presence.NewTracker(cfg.SessionQueueSize)
	state := &coordinator.State{Store: st, Sessions: tracker}
	bus := events.NewBus(tracker, nil, log)
	co := coordinator.New(engine, bus, state, coordinator.Options{
		FlushInterval: cfg.FlushInterval,
		Logger:        log,
	})

	coDone := make(chan struct{})
	go func() {
		co.Run(ctx)
		close(coDone)
	}()

	tokens := auth.NewTokenIssuer(cfg.JWTSecret)
	accounts := service.NewAccountService(co, cfg.Pepper, log)
	srv := api.NewServer(
		co,
		tokens,
		service.NewAuthService(co, tokens, cfg.Pepper, log),
		accounts,
		service.NewTicketService(co, log),
		service.NewFeedService(co, cfg.BroadcastRetention, cfg.RadioRetention, log),
		service.NewSessionService(co, log),
		log,
	)

	sched := startMaintenance(ctx, cfg, engine, accounts, log)
	defer func() {
		<-sched.Stop().Done()
	}()

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(cfg.AuthRateLimit),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", "err", err)
	}

	// The coordinator makes its final flush once its context is gone.
	<-coDone
	return nil
}
