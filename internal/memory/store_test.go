package memory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/core"
	"saldo/internal/fx"
	"saldo/internal/ports"
)

const seed = `{
  "pivot": "EUR",
  "quotes": [
    {"currency": "USD", "day": "2024-01-01", "rate": "1.10"},
    {"currency": "USD", "day": "2024-03-01", "rate": "1.05"}
  ],
  "users": {
    "u1": {
      "baseCurrency": "eur",
      "accounts": [
        {"id": "a1", "name": "Main", "currency": "EUR", "liquid": true, "createdAt": "2024-01-01T00:00:00Z"},
        {"id": "a2", "name": "Old", "currency": "USD", "createdAt": "2024-01-01T00:00:00Z", "archived": true}
      ],
      "categories": [{"id": "food", "name": "Food", "color": "#0f0", "mandatory": false}],
      "adjustments": [{"accountId": "a1", "amount": "100", "occurredAt": "2024-01-01T00:00:03Z"}],
      "transactions": [
        {"id": "t1", "accountId": "a1", "amount": "12.50", "occurredAt": "2024-01-05T10:00:00Z", "type": "expense", "categoryId": "food"},
        {"id": "t2", "accountId": "a2", "amount": "40", "occurredAt": "2024-02-05T10:00:00Z", "type": "income", "transfer": true}
      ]
    }
  }
}`

func loadSeed(t *testing.T) *Store {
	t.Helper()
	s, err := Load(strings.NewReader(seed))
	require.NoError(t, err)
	return s
}

func TestLoadSeed(t *testing.T) {
	s := loadSeed(t)
	ctx := context.Background()

	base, err := s.ResolveBaseCurrency(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "EUR", base)

	txs, err := s.GetTransactionSnapshots(ctx, "u1", ports.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.True(t, txs[0].Money.Amount.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, "EUR", txs[0].Money.Currency)
	assert.Equal(t, "USD", txs[1].Money.Currency, "currency falls back to the account's")

	cats, err := s.GetCategoryMeta(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []core.CategoryMeta{{ID: "food", Name: "Food", Color: "#0f0"}}, cats)
}

func TestLoadRejectsUnknownTransactionType(t *testing.T) {
	_, err := Load(strings.NewReader(`{"users": {"u": {"transactions": [{"id": "x", "type": "refund"}]}}}`))
	assert.Error(t, err)
}

func TestLoadRejectsTransactionInForeignCurrency(t *testing.T) {
	_, err := Load(strings.NewReader(`{"users": {"u": {
		"accounts": [{"id": "a", "currency": "USD", "createdAt": "2024-01-01T00:00:00Z"}],
		"transactions": [{"id": "x", "accountId": "a", "amount": "100", "currency": "JPY", "occurredAt": "2024-01-02T00:00:00Z", "type": "income"}]
	}}}`))
	assert.ErrorIs(t, err, core.ErrCurrencyMismatch)
}

func TestAccountsAndAdjustmentsFilters(t *testing.T) {
	s := loadSeed(t)
	ctx := context.Background()

	active, err := s.GetAccountSnapshots(ctx, "u1", false)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	all, err := s.GetAccountSnapshots(ctx, "u1", true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	adjs, err := s.GetAccountAdjustmentSnapshots(ctx, "u1", []string{"a1"}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, adjs, 1)

	adjs, err = s.GetAccountAdjustmentSnapshots(ctx, "u1", []string{"a1"}, time.Date(2024, 1, 1, 0, 0, 3, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, adjs, "before is exclusive")
}

func TestUnknownUser(t *testing.T) {
	s := loadSeed(t)
	_, err := s.ResolveBaseCurrency(context.Background(), "nobody")
	assert.ErrorIs(t, err, ports.ErrNotFound)

	txs, err := s.GetTransactionSnapshots(context.Background(), "nobody", ports.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestPivotQuotesUseLatestOnOrBeforeDay(t *testing.T) {
	s := loadSeed(t)
	keys := []fx.Key{
		{Currency: "USD", Day: core.NewDate(2023, time.December, 31)},
		{Currency: "USD", Day: core.NewDate(2024, time.January, 1)},
		{Currency: "USD", Day: core.NewDate(2024, time.February, 29)},
		{Currency: "USD", Day: core.NewDate(2024, time.March, 1)},
		{Currency: "EUR", Day: core.NewDate(1999, time.January, 1)},
	}

	quotes, err := s.PivotQuotes(context.Background(), keys)
	require.NoError(t, err)

	_, ok := quotes[keys[0]]
	assert.False(t, ok, "no quote before the first one")
	assert.True(t, quotes[keys[1]].Equal(decimal.RequireFromString("1.10")))
	assert.True(t, quotes[keys[2]].Equal(decimal.RequireFromString("1.10")))
	assert.True(t, quotes[keys[3]].Equal(decimal.RequireFromString("1.05")))
	assert.True(t, quotes[keys[4]].Equal(decimal.NewFromInt(1)))
}

func TestStoreHonoursCancelledContext(t *testing.T) {
	s := New("")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetAccountSnapshots(ctx, "u", false)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.PivotQuotes(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
