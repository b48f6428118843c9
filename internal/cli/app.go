// Package cli is the command-line front end of the contest store. Each
// command opens durable storage, loads the store, runs, and closes the store
// again so queued writes reach storage before the process exits.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"contest-store/internal/contest"
	"contest-store/internal/platform/config"
	"contest-store/internal/platform/kv"
	"contest-store/internal/platform/logger"
	"contest-store/internal/platform/metrics"
)

// Opener opens the durable storage described by cfg.
type Opener func(ctx context.Context, cfg config.Store) (kv.Storage, error)

// App carries the settings and collaborators shared by every command.
type App struct {
	Settings config.Settings
	Open     Opener
	Out      io.Writer
	ErrOut   io.Writer
	Metrics  *metrics.Metrics
}

// NewApp returns an App that opens storage with kv.Open.
func NewApp(settings config.Settings, out, errOut io.Writer) *App {
	return &App{
		Settings: settings,
		Open:     kv.Open,
		Out:      out,
		ErrOut:   errOut,
		Metrics:  metrics.New(),
	}
}

// env is what a command body gets to work with.
type env struct {
	repo contest.Repository
	svc  *contest.Service
	log  *slog.Logger
}

// withStore opens storage, loads the store, runs fn and tears everything down
// in reverse order. The store is closed even when fn fails so pending writes
// are not lost.
func (a *App) withStore(ctx context.Context, fn func(ctx context.Context, e env) error) (err error) {
	log := logger.New(a.Settings.LogLevel, a.Settings.LogFormat, a.ErrOut)

	storage, err := a.Open(ctx, a.Settings.Store)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close storage: %w", cerr)
		}
	}()

	repo := contest.NewMirroredRepository(storage, log, a.Metrics)
	defer repo.Close()

	ready, err := repo.Load(ctx)
	if err != nil {
		return err
	}
	log.Debug("store ready",
		slog.String("driver", a.Settings.Store.Driver),
		slog.Int("submissions", ready.Submissions),
		slog.Bool("seeded", ready.Seeded))

	return fn(ctx, env{repo: repo, svc: contest.NewService(repo), log: log})
}
