// Package ports declares the read-side repositories the analytics engine
// depends on. Every call is scoped to an explicit user.
package ports

//go:generate mockgen -destination=mocks/mock_ports.go -package=mocks saldo/internal/ports TransactionReader,AccountReader,AdjustmentReader,CurrencyResolver,CategoryReader

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

// ErrNotFound is returned by repositories for an unknown user.
var ErrNotFound = errors.New("not found")

// TransactionFilter narrows a snapshot query. Zero values mean unbounded:
// From is inclusive, To is exclusive, an empty Type matches both kinds and
// no AccountIDs matches every account.
type TransactionFilter struct {
	From             time.Time
	To               time.Time
	ExcludeTransfers bool
	Type             core.TransactionType
	AccountIDs       []string
}

// Match reports whether tx passes the filter.
func (f TransactionFilter) Match(tx core.TransactionSnapshot) bool {
	if !f.From.IsZero() && tx.OccurredAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !tx.OccurredAt.Before(f.To) {
		return false
	}
	if f.ExcludeTransfers && tx.IsTransfer {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if len(f.AccountIDs) > 0 && !slices.Contains(f.AccountIDs, tx.AccountID) {
		return false
	}
	return true
}

type (
	TransactionReader interface {
		GetTransactionSnapshots(ctx context.Context, userID string, filter TransactionFilter) ([]core.TransactionSnapshot, error)
	}

	AccountReader interface {
		GetAccountSnapshots(ctx context.Context, userID string, includeArchived bool) ([]core.AccountSnapshot, error)
	}

	// AdjustmentReader returns balance adjustments of the given accounts.
	// A zero before returns all of them.
	AdjustmentReader interface {
		GetAccountAdjustmentSnapshots(ctx context.Context, userID string, accountIDs []string, before time.Time) ([]core.BalanceAdjustmentSnapshot, error)
	}

	CurrencyResolver interface {
		ResolveBaseCurrency(ctx context.Context, userID string) (string, error)
	}

	CategoryReader interface {
		GetCategoryMeta(ctx context.Context, userID string) ([]core.CategoryMeta, error)
	}
)

// LedgerWriter loads ledger data into a backend. Seeding copies a JSON
// fixture into SQLite through it.
type LedgerWriter interface {
	SetBaseCurrency(ctx context.Context, userID, code string) error
	CreateAccount(ctx context.Context, userID string, a core.AccountSnapshot) error
	CreateCategory(ctx context.Context, userID string, c core.CategoryMeta) error
	AddTransaction(ctx context.Context, userID string, tx core.TransactionSnapshot) error
	AddAdjustment(ctx context.Context, userID string, a core.BalanceAdjustmentSnapshot) error
	UpsertQuote(ctx context.Context, currency string, day core.Date, rate decimal.Decimal) error
}
