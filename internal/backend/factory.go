// Package backend wires the configured ledger store behind the dashboard's
// repository ports.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"saldo/internal/core"
	"saldo/internal/dashboard"
	"saldo/internal/fx"
	"saldo/internal/memory"
	"saldo/internal/ports"
	"saldo/internal/storage"
)

// Store is everything a backend must serve: every read port plus FX quotes.
type Store interface {
	ports.TransactionReader
	ports.AccountReader
	ports.AdjustmentReader
	ports.CurrencyResolver
	ports.CategoryReader
	fx.RateSource
	Pivot() string
}

var (
	_ Store = (*memory.Store)(nil)
	_ Store = (*storage.SQLiteRepository)(nil)
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

type Result struct {
	Store   Store
	Cleanup CleanupFunc
}

// Repositories exposes the store as the dashboard's repository bundle.
func (r *Result) Repositories() dashboard.Repositories {
	return dashboard.Repositories{
		Transactions: r.Store,
		Accounts:     r.Store,
		Adjustments:  r.Store,
		Currency:     r.Store,
		Categories:   r.Store,
	}
}

// Close runs the cleanup function if there is one.
func (r *Result) Close() error {
	if r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Ping reports whether the store can serve reads. Stores without an
// underlying connection are always ready.
func (r *Result) Ping(ctx context.Context) error {
	if p, ok := r.Store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, config.Pivot)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	if config.SeedFile != "" {
		if err := f.seedIfEmpty(ctx, repo, config.SeedFile); err != nil {
			repo.Close()
			return nil, err
		}
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"pivot", repo.Pivot())

	return &Result{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

// seedIfEmpty imports the seed ledger into a database that has no users yet.
func (f *DefaultFactory) seedIfEmpty(ctx context.Context, repo *storage.SQLiteRepository, path string) error {
	empty, err := repo.IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("inspect database: %w", err)
	}
	if !empty {
		f.logger.Debug("Database already populated, skipping seed", "seed_file", path)
		return nil
	}

	seed, err := memory.LoadFile(path)
	if err != nil {
		return fmt.Errorf("load seed: %w", err)
	}
	if err := checkPivot(seed.Pivot(), repo.Pivot()); err != nil {
		return err
	}
	if err := seed.CopyTo(ctx, repo); err != nil {
		return fmt.Errorf("import seed: %w", err)
	}

	f.logger.Info("Seeded SQLite database", "seed_file", path)
	return nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	var store *memory.Store
	if config.SeedFile == "" {
		store = memory.New(config.Pivot)
	} else {
		var err error
		if store, err = memory.LoadFile(config.SeedFile); err != nil {
			return nil, fmt.Errorf("failed to load seed: %w", err)
		}
		if err := checkPivot(store.Pivot(), config.Pivot); err != nil {
			return nil, err
		}
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile, "pivot", store.Pivot())

	return &Result{Store: store}, nil
}

// checkPivot fails when stored quotes are relative to a different currency
// than the one configured. An empty configured pivot accepts anything.
func checkPivot(stored, configured string) error {
	if configured == "" || core.NormalizeCurrency(configured) == stored {
		return nil
	}
	return fmt.Errorf("seed quotes are against %s but FX pivot is %s", stored, core.NormalizeCurrency(configured))
}
