// Package dashboard composes the analytics engine into the three read models
// exposed to clients: the monthly dashboard, the evolution table and the
// net-worth trend.
//
// Each request fetches fresh snapshots concurrently, resolves every FX rate
// it needs in a single batch and then runs the math synchronously.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"saldo/internal/analytics"
	"saldo/internal/core"
	"saldo/internal/fx"
	"saldo/internal/ports"
)

// Repositories bundles the read ports the service depends on.
type Repositories struct {
	Transactions ports.TransactionReader
	Accounts     ports.AccountReader
	Adjustments  ports.AdjustmentReader
	Currency     ports.CurrencyResolver
	Categories   ports.CategoryReader
}

type Service struct {
	repos       Repositories
	resolver    *fx.Resolver
	now         func() time.Time
	simulations int
	logger      *slog.Logger
}

type Option func(*Service)

// WithClock replaces time.Now. The clock decides which month is in progress.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSimulations sets the number of forecast simulations.
func WithSimulations(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.simulations = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(repos Repositories, rates fx.RateSource, opts ...Option) *Service {
	s := &Service{
		repos:       repos,
		now:         time.Now,
		simulations: analytics.DefaultSimulations,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resolver = fx.NewResolver(rates, s.logger.With("component", "fx"))
	return s
}

// horizon is the exclusive end of observable data: midnight after today.
func (s *Service) horizon() time.Time {
	return core.DateOf(s.now()).AddDays(1).Time()
}

// ledgerData is everything one request reads from the repositories.
type ledgerData struct {
	base        string
	accounts    []core.AccountSnapshot
	txs         []core.TransactionSnapshot
	adjustments []core.BalanceAdjustmentSnapshot
	categories  map[string]core.CategoryMeta
}

// fetch loads the user's ledger strictly before until. Archived accounts are
// included so that historical balances stay complete.
func (s *Service) fetch(ctx context.Context, userID string, until time.Time) (*ledgerData, error) {
	data := &ledgerData{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		base, err := s.repos.Currency.ResolveBaseCurrency(gctx, userID)
		if err != nil {
			return fmt.Errorf("resolve base currency: %w", err)
		}
		data.base = core.NormalizeCurrency(base)
		return nil
	})

	g.Go(func() error {
		accounts, err := s.repos.Accounts.GetAccountSnapshots(gctx, userID, true)
		if err != nil {
			return fmt.Errorf("get accounts: %w", err)
		}
		ids := make([]string, len(accounts))
		for i, a := range accounts {
			ids[i] = a.ID
		}
		var adjustments []core.BalanceAdjustmentSnapshot
		if len(ids) > 0 {
			adjustments, err = s.repos.Adjustments.GetAccountAdjustmentSnapshots(gctx, userID, ids, until)
			if err != nil {
				return fmt.Errorf("get adjustments: %w", err)
			}
		}
		data.accounts = accounts
		data.adjustments = adjustments
		return nil
	})

	g.Go(func() error {
		txs, err := s.repos.Transactions.GetTransactionSnapshots(gctx, userID, ports.TransactionFilter{To: until})
		if err != nil {
			return fmt.Errorf("get transactions: %w", err)
		}
		data.txs = txs
		return nil
	})

	g.Go(func() error {
		meta, err := s.repos.Categories.GetCategoryMeta(gctx, userID)
		if err != nil {
			return fmt.Errorf("get categories: %w", err)
		}
		data.categories = make(map[string]core.CategoryMeta, len(meta))
		for _, m := range meta {
			data.categories[m.ID] = m
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}
