// Package memory is an in-process ledger backend seeded from a JSON file.
// It implements every read port and the fx rate source.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
	"saldo/internal/fx"
	"saldo/internal/ports"
)

// DefaultPivot is the currency every stored quote is expressed against.
const DefaultPivot = "EUR"

type ledger struct {
	base         string
	accounts     []core.AccountSnapshot
	categories   []core.CategoryMeta
	transactions []core.TransactionSnapshot
	adjustments  []core.BalanceAdjustmentSnapshot
}

type quote struct {
	day  core.Date
	rate decimal.Decimal
}

type Store struct {
	mu     sync.RWMutex
	pivot  string
	users  map[string]*ledger
	quotes map[string][]quote
}

func New(pivot string) *Store {
	if pivot == "" {
		pivot = DefaultPivot
	}
	return &Store{
		pivot:  core.NormalizeCurrency(pivot),
		users:  make(map[string]*ledger),
		quotes: make(map[string][]quote),
	}
}

func (s *Store) user(userID string) *ledger {
	l, ok := s.users[userID]
	if !ok {
		l = &ledger{}
		s.users[userID] = l
	}
	return l
}

func (s *Store) SetBaseCurrency(userID, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(userID).base = core.NormalizeCurrency(code)
}

func (s *Store) AddAccount(userID string, a core.AccountSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.CurrencyCode = core.NormalizeCurrency(a.CurrencyCode)
	l := s.user(userID)
	l.accounts = append(l.accounts, a)
}

func (s *Store) AddCategory(userID string, c core.CategoryMeta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.user(userID)
	l.categories = append(l.categories, c)
}

func (s *Store) AddTransaction(userID string, tx core.TransactionSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.user(userID)
	l.transactions = append(l.transactions, tx)
}

func (s *Store) AddAdjustment(userID string, a core.BalanceAdjustmentSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.user(userID)
	l.adjustments = append(l.adjustments, a)
}

// AddQuote records how many units of currency one pivot unit buys from day on.
func (s *Store) AddQuote(currency string, day core.Date, rate decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	currency = core.NormalizeCurrency(currency)
	qs := append(s.quotes[currency], quote{day: day, rate: rate})
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].day.Before(qs[j].day) })
	s.quotes[currency] = qs
}

func (s *Store) GetTransactionSnapshots(ctx context.Context, userID string, filter ports.TransactionFilter) ([]core.TransactionSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	var out []core.TransactionSnapshot
	for _, tx := range l.transactions {
		if filter.Match(tx) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *Store) GetAccountSnapshots(ctx context.Context, userID string, includeArchived bool) ([]core.AccountSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	var out []core.AccountSnapshot
	for _, a := range l.accounts {
		if a.Archived && !includeArchived {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) GetAccountAdjustmentSnapshots(ctx context.Context, userID string, accountIDs []string, before time.Time) ([]core.BalanceAdjustmentSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	var out []core.BalanceAdjustmentSnapshot
	for _, a := range l.adjustments {
		if !slices.Contains(accountIDs, a.AccountID) {
			continue
		}
		if !before.IsZero() && !a.OccurredAt.Before(before) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) ResolveBaseCurrency(ctx context.Context, userID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.users[userID]
	if !ok || l.base == "" {
		return "", fmt.Errorf("base currency of user %q: %w", userID, ports.ErrNotFound)
	}
	return l.base, nil
}

func (s *Store) GetCategoryMeta(ctx context.Context, userID string) ([]core.CategoryMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	return slices.Clone(l.categories), nil
}

// PivotQuotes returns, for each key, the latest quote dated on or before the
// key's day. The pivot currency always quotes 1.
func (s *Store) PivotQuotes(ctx context.Context, keys []fx.Key) (map[fx.Key]decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[fx.Key]decimal.Decimal, len(keys))
	for _, k := range keys {
		if core.NormalizeCurrency(k.Currency) == s.pivot {
			out[k] = decimal.NewFromInt(1)
			continue
		}
		qs := s.quotes[core.NormalizeCurrency(k.Currency)]
		i := sort.Search(len(qs), func(i int) bool { return k.Day.Before(qs[i].day) })
		if i == 0 {
			continue
		}
		out[k] = qs[i-1].rate
	}
	return out, nil
}

type (
	seedFile struct {
		Pivot  string              `json:"pivot"`
		Quotes []seedQuote         `json:"quotes"`
		Users  map[string]seedUser `json:"users"`
	}

	seedQuote struct {
		Currency string          `json:"currency"`
		Day      core.Date       `json:"day"`
		Rate     decimal.Decimal `json:"rate"`
	}

	seedUser struct {
		BaseCurrency string            `json:"baseCurrency"`
		Accounts     []seedAccount     `json:"accounts"`
		Categories   []seedCategory    `json:"categories"`
		Transactions []seedTransaction `json:"transactions"`
		Adjustments  []seedAdjustment  `json:"adjustments"`
	}

	seedCategory struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Color     string `json:"color"`
		Mandatory bool   `json:"mandatory"`
	}

	seedAccount struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Currency  string    `json:"currency"`
		Liquid    bool      `json:"liquid"`
		CreatedAt time.Time `json:"createdAt"`
		Archived  bool      `json:"archived"`
	}

	seedTransaction struct {
		ID         string               `json:"id"`
		AccountID  string               `json:"accountId"`
		Amount     decimal.Decimal      `json:"amount"`
		Currency   string               `json:"currency"`
		OccurredAt time.Time            `json:"occurredAt"`
		Type       core.TransactionType `json:"type"`
		CategoryID string               `json:"categoryId"`
		Mandatory  bool                 `json:"mandatory"`
		Transfer   bool                 `json:"transfer"`
	}

	seedAdjustment struct {
		AccountID  string          `json:"accountId"`
		Amount     decimal.Decimal `json:"amount"`
		OccurredAt time.Time       `json:"occurredAt"`
	}
)

// Load builds a store from a JSON seed.
func Load(r io.Reader) (*Store, error) {
	var seed seedFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	s := New(seed.Pivot)
	for _, q := range seed.Quotes {
		s.AddQuote(q.Currency, q.Day, q.Rate)
	}
	for userID, u := range seed.Users {
		s.SetBaseCurrency(userID, u.BaseCurrency)
		currencies := make(map[string]string, len(u.Accounts))
		for _, a := range u.Accounts {
			currencies[a.ID] = a.Currency
			s.AddAccount(userID, core.AccountSnapshot{
				ID:           a.ID,
				Name:         a.Name,
				CurrencyCode: a.Currency,
				IsLiquid:     a.Liquid,
				CreatedAt:    a.CreatedAt.UTC(),
				Archived:     a.Archived,
			})
		}
		for _, c := range u.Categories {
			s.AddCategory(userID, core.CategoryMeta{ID: c.ID, Name: c.Name, Color: c.Color, IsMandatory: c.Mandatory})
		}
		for _, t := range u.Transactions {
			currency := t.Currency
			if currency == "" {
				currency = currencies[t.AccountID]
			}
			if held := currencies[t.AccountID]; held != "" && core.NormalizeCurrency(held) != core.NormalizeCurrency(currency) {
				return nil, fmt.Errorf("transaction %s: %w: account %s holds %s, got %s",
					t.ID, core.ErrCurrencyMismatch, t.AccountID, held, currency)
			}
			if t.Type != core.Income && t.Type != core.Expense {
				return nil, fmt.Errorf("transaction %s: unknown type %q", t.ID, t.Type)
			}
			s.AddTransaction(userID, core.TransactionSnapshot{
				ID:          t.ID,
				AccountID:   t.AccountID,
				Money:       core.NewMoney(t.Amount, currency),
				OccurredAt:  t.OccurredAt.UTC(),
				Type:        t.Type,
				CategoryID:  t.CategoryID,
				IsMandatory: t.Mandatory,
				IsTransfer:  t.Transfer,
			})
		}
		for _, a := range u.Adjustments {
			s.AddAdjustment(userID, core.BalanceAdjustmentSnapshot{
				AccountID:  a.AccountID,
				Amount:     core.NewMoney(a.Amount, currencies[a.AccountID]),
				OccurredAt: a.OccurredAt.UTC(),
			})
		}
	}
	return s, nil
}

// LoadFile reads a JSON seed from path.
func LoadFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Pivot returns the currency stored quotes are relative to.
func (s *Store) Pivot() string {
	return s.pivot
}

// CopyTo writes every quote and every user's ledger through w, users in ID
// order and records in insertion order.
func (s *Store) CopyTo(ctx context.Context, w ports.LedgerWriter) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	currencies := make([]string, 0, len(s.quotes))
	for c := range s.quotes {
		currencies = append(currencies, c)
	}
	slices.Sort(currencies)
	for _, c := range currencies {
		for _, q := range s.quotes[c] {
			if err := w.UpsertQuote(ctx, c, q.day, q.rate); err != nil {
				return err
			}
		}
	}

	users := make([]string, 0, len(s.users))
	for id := range s.users {
		users = append(users, id)
	}
	slices.Sort(users)
	for _, id := range users {
		if err := copyLedger(ctx, w, id, s.users[id]); err != nil {
			return fmt.Errorf("user %s: %w", id, err)
		}
	}
	return nil
}

func copyLedger(ctx context.Context, w ports.LedgerWriter, userID string, l *ledger) error {
	if err := w.SetBaseCurrency(ctx, userID, l.base); err != nil {
		return err
	}
	for _, a := range l.accounts {
		if err := w.CreateAccount(ctx, userID, a); err != nil {
			return err
		}
	}
	for _, c := range l.categories {
		if err := w.CreateCategory(ctx, userID, c); err != nil {
			return err
		}
	}
	for _, tx := range l.transactions {
		if err := w.AddTransaction(ctx, userID, tx); err != nil {
			return err
		}
	}
	for _, a := range l.adjustments {
		if err := w.AddAdjustment(ctx, userID, a); err != nil {
			return err
		}
	}
	return nil
}
