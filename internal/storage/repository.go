package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
	"saldo/internal/fx"
	"saldo/internal/ports"

	_ "modernc.org/sqlite"
)

// DefaultPivot is the currency fx_quotes rates are expressed against.
const DefaultPivot = "EUR"

type SQLiteRepository struct {
	db    *sql.DB
	pivot string
}

func NewSQLiteRepository(dbPath, pivot string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if pivot == "" {
		pivot = DefaultPivot
	}
	return &SQLiteRepository{db: db, pivot: core.NormalizeCurrency(pivot)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Pivot returns the currency stored quotes are relative to.
func (r *SQLiteRepository) Pivot() string {
	return r.pivot
}

// Ping checks that the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// IsEmpty reports whether no user has been stored yet.
func (r *SQLiteRepository) IsEmpty(ctx context.Context) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n == 0, nil
}

// GetTransactionSnapshots implements ports.TransactionReader. Rows come back
// in insertion order within the same instant.
func (r *SQLiteRepository) GetTransactionSnapshots(ctx context.Context, userID string, filter ports.TransactionFilter) ([]core.TransactionSnapshot, error) {
	query := `SELECT id, account_id, amount, currency, occurred_at, type, category_id, is_mandatory, is_transfer
		FROM transactions WHERE user_id = ?`
	args := []any{userID}
	if !filter.From.IsZero() {
		query += ` AND occurred_at >= ?`
		args = append(args, filter.From.UnixNano())
	}
	if !filter.To.IsZero() {
		query += ` AND occurred_at < ?`
		args = append(args, filter.To.UnixNano())
	}
	if filter.ExcludeTransfers {
		query += ` AND is_transfer = 0`
	}
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(filter.Type))
	}
	if len(filter.AccountIDs) > 0 {
		query += ` AND account_id IN (` + placeholders(len(filter.AccountIDs)) + `)`
		for _, id := range filter.AccountIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY occurred_at, rowid`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.TransactionSnapshot
	for rows.Next() {
		var (
			tx                  core.TransactionSnapshot
			amount, currency    string
			typ                 string
			occurredAt          int64
			mandatory, transfer bool
		)
		if err := rows.Scan(&tx.ID, &tx.AccountID, &amount, &currency, &occurredAt, &typ, &tx.CategoryID, &mandatory, &transfer); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("transaction %s amount: %w", tx.ID, err)
		}
		tx.Money = core.NewMoney(d, currency)
		tx.OccurredAt = time.Unix(0, occurredAt).UTC()
		tx.Type = core.TransactionType(typ)
		tx.IsMandatory = mandatory
		tx.IsTransfer = transfer
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// GetAccountSnapshots implements ports.AccountReader.
func (r *SQLiteRepository) GetAccountSnapshots(ctx context.Context, userID string, includeArchived bool) ([]core.AccountSnapshot, error) {
	query := `SELECT id, name, currency, is_liquid, created_at, archived FROM accounts WHERE user_id = ?`
	if !includeArchived {
		query += ` AND archived = 0`
	}
	query += ` ORDER BY rowid`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var out []core.AccountSnapshot
	for rows.Next() {
		var (
			a         core.AccountSnapshot
			createdAt int64
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.CurrencyCode, &a.IsLiquid, &createdAt, &a.Archived); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.CreatedAt = time.Unix(0, createdAt).UTC()
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return out, nil
}

// GetAccountAdjustmentSnapshots implements ports.AdjustmentReader.
func (r *SQLiteRepository) GetAccountAdjustmentSnapshots(ctx context.Context, userID string, accountIDs []string, before time.Time) ([]core.BalanceAdjustmentSnapshot, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}
	query := `SELECT b.account_id, b.amount, a.currency, b.occurred_at
		FROM balance_adjustments b JOIN accounts a ON a.id = b.account_id
		WHERE b.user_id = ? AND b.account_id IN (` + placeholders(len(accountIDs)) + `)`
	args := []any{userID}
	for _, id := range accountIDs {
		args = append(args, id)
	}
	if !before.IsZero() {
		query += ` AND b.occurred_at < ?`
		args = append(args, before.UnixNano())
	}
	query += ` ORDER BY b.occurred_at, b.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query adjustments: %w", err)
	}
	defer rows.Close()

	var out []core.BalanceAdjustmentSnapshot
	for rows.Next() {
		var (
			adj              core.BalanceAdjustmentSnapshot
			amount, currency string
			occurredAt       int64
		)
		if err := rows.Scan(&adj.AccountID, &amount, &currency, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("adjustment amount: %w", err)
		}
		adj.Amount = core.NewMoney(d, currency)
		adj.OccurredAt = time.Unix(0, occurredAt).UTC()
		out = append(out, adj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate adjustments: %w", err)
	}
	return out, nil
}

// ResolveBaseCurrency implements ports.CurrencyResolver.
func (r *SQLiteRepository) ResolveBaseCurrency(ctx context.Context, userID string) (string, error) {
	var code string
	err := r.db.QueryRowContext(ctx, `SELECT base_currency FROM users WHERE id = ?`, userID).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("base currency of user %q: %w", userID, ports.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("query base currency: %w", err)
	}
	return code, nil
}

// GetCategoryMeta implements ports.CategoryReader.
func (r *SQLiteRepository) GetCategoryMeta(ctx context.Context, userID string) ([]core.CategoryMeta, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, color, is_mandatory FROM categories WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryMeta
	for rows.Next() {
		var c core.CategoryMeta
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.IsMandatory); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

// PivotQuotes implements fx.RateSource with one query per currency: the
// latest quote dated on or before each requested day wins.
func (r *SQLiteRepository) PivotQuotes(ctx context.Context, keys []fx.Key) (map[fx.Key]decimal.Decimal, error) {
	out := make(map[fx.Key]decimal.Decimal, len(keys))
	byCurrency := make(map[string][]fx.Key)
	for _, k := range keys {
		cur := core.NormalizeCurrency(k.Currency)
		if cur == r.pivot {
			out[k] = decimal.NewFromInt(1)
			continue
		}
		byCurrency[cur] = append(byCurrency[cur], k)
	}

	for cur, ks := range byCurrency {
		latest := ks[0].Day
		for _, k := range ks[1:] {
			if latest.Before(k.Day) {
				latest = k.Day
			}
		}
		history, err := r.quoteHistory(ctx, cur, latest)
		if err != nil {
			return nil, err
		}
		for _, k := range ks {
			i := sort.Search(len(history), func(i int) bool { return k.Day.Before(history[i].day) })
			if i > 0 {
				out[k] = history[i-1].rate
			}
		}
	}

	slog.DebugContext(ctx, "Loaded fx quotes from SQLite", "keys", len(keys), "found", len(out))
	return out, nil
}

type dayRate struct {
	day  core.Date
	rate decimal.Decimal
}

func (r *SQLiteRepository) quoteHistory(ctx context.Context, currency string, upTo core.Date) ([]dayRate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT day, rate FROM fx_quotes WHERE currency = ? AND day <= ? ORDER BY day`, currency, upTo.String())
	if err != nil {
		return nil, fmt.Errorf("query fx quotes: %w", err)
	}
	defer rows.Close()

	var out []dayRate
	for rows.Next() {
		var day, rate string
		if err := rows.Scan(&day, &rate); err != nil {
			return nil, fmt.Errorf("scan fx quote: %w", err)
		}
		var q dayRate
		if err := q.day.UnmarshalText([]byte(day)); err != nil {
			return nil, err
		}
		if q.rate, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("fx quote %s %s: %w", currency, day, err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// SetBaseCurrency creates the user or updates its base currency.
func (r *SQLiteRepository) SetBaseCurrency(ctx context.Context, userID, code string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, base_currency) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET base_currency = excluded.base_currency`,
		userID, core.NormalizeCurrency(code))
	if err != nil {
		return fmt.Errorf("set base currency: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, userID string, a core.AccountSnapshot) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, user_id, name, currency, is_liquid, created_at, archived) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, userID, a.Name, core.NormalizeCurrency(a.CurrencyCode), a.IsLiquid, a.CreatedAt.UnixNano(), a.Archived)
	if err != nil {
		return fmt.Errorf("create account %s: %w", a.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, userID string, c core.CategoryMeta) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, id, name, color, is_mandatory) VALUES (?, ?, ?, ?, ?)`,
		userID, c.ID, c.Name, c.Color, c.IsMandatory)
	if err != nil {
		return fmt.Errorf("create category %s: %w", c.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) AddTransaction(ctx context.Context, userID string, tx core.TransactionSnapshot) error {
	if tx.Type != core.Income && tx.Type != core.Expense {
		return fmt.Errorf("transaction %s: unknown type %q", tx.ID, tx.Type)
	}
	var held string
	err := r.db.QueryRowContext(ctx,
		`SELECT currency FROM accounts WHERE user_id = ? AND id = ?`, userID, tx.AccountID).Scan(&held)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// The foreign key rejects unknown accounts on insert.
	case err != nil:
		return fmt.Errorf("add transaction %s: %w", tx.ID, err)
	case held != core.NormalizeCurrency(tx.Money.Currency):
		return fmt.Errorf("add transaction %s: %w: account %s holds %s, got %s",
			tx.ID, core.ErrCurrencyMismatch, tx.AccountID, held, tx.Money.Currency)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, account_id, amount, currency, occurred_at, type, category_id, is_mandatory, is_transfer)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, userID, tx.AccountID, tx.Money.Amount.String(), tx.Money.Currency, tx.OccurredAt.UnixNano(),
		string(tx.Type), tx.CategoryID, tx.IsMandatory, tx.IsTransfer)
	if err != nil {
		return fmt.Errorf("add transaction %s: %w", tx.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) AddAdjustment(ctx context.Context, userID string, a core.BalanceAdjustmentSnapshot) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO balance_adjustments (user_id, account_id, amount, occurred_at) VALUES (?, ?, ?, ?)`,
		userID, a.AccountID, a.Amount.Amount.String(), a.OccurredAt.UnixNano())
	if err != nil {
		return fmt.Errorf("add adjustment for %s: %w", a.AccountID, err)
	}
	return nil
}

func (r *SQLiteRepository) UpsertQuote(ctx context.Context, currency string, day core.Date, rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return fmt.Errorf("fx quote %s on %s: rate must be positive", currency, day)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO fx_quotes (currency, day, rate) VALUES (?, ?, ?)
		 ON CONFLICT(currency, day) DO UPDATE SET rate = excluded.rate`,
		core.NormalizeCurrency(currency), day.String(), rate.String())
	if err != nil {
		return fmt.Errorf("upsert fx quote: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
