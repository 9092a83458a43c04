// Package ledger rebuilds account balances from an ordered stream of
// transaction deltas and absolute balance adjustments.
//
// The replay is cursor based: callers keep a State (one Cursor per account)
// and advance it through non-decreasing boundaries, so a month-by-month loop
// touches every event once.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

// AnchorWindow is how close to account creation a lone adjustment must be to
// count as the opening balance.
const AnchorWindow = 5 * time.Second

var ErrBoundaryRegressed = errors.New("ledger: boundary earlier than cursor position")

type (
	// Event is one entry of an account's replay stream.
	Event struct {
		OccurredAt   time.Time
		Amount       decimal.Decimal
		IsAdjustment bool
		// Anchor marks an opening-balance adjustment re-dated to account creation.
		Anchor bool
		seq    int
	}

	// Delta is a signed balance movement produced by a transaction. An empty
	// Currency means the amount is already in the account's currency.
	Delta struct {
		AccountID  string
		OccurredAt time.Time
		Amount     decimal.Decimal
		Currency   string
	}

	// Stream holds each account's events sorted in replay order.
	Stream map[string][]Event

	// Cursor is the replay position of one account: the index of the next
	// unapplied event, the balance at the last boundary it was advanced to and
	// that boundary. When an opening anchor sits exactly on the boundary behind
	// same-instant transactions, Balance is the anchor's amount while Index
	// still points at the first of those transactions.
	Cursor struct {
		Index    int
		Balance  decimal.Decimal
		Boundary time.Time
	}

	// State maps account IDs to their cursor.
	State map[string]Cursor
)

// DeltasFromTransactions turns transaction snapshots into signed deltas
// tagged with the transaction currency. Transfers are included: they still
// move balances.
func DeltasFromTransactions(txs []core.TransactionSnapshot) []Delta {
	out := make([]Delta, 0, len(txs))
	for _, tx := range txs {
		signed := tx.Signed()
		out = append(out, Delta{
			AccountID:  tx.AccountID,
			OccurredAt: tx.OccurredAt,
			Amount:     signed.Amount,
			Currency:   signed.Currency,
		})
	}
	return out
}

// BuildEventStream merges deltas and adjustments into one sorted stream per
// account. Only accounts listed in accounts get a stream; movements on
// unknown accounts are dropped. A delta or adjustment in a currency other
// than its account's fails with core.ErrCurrencyMismatch.
//
// Ordering: timestamp ascending, then transactions before adjustments, then
// insertion order (deltas first, in input order, then adjustments).
func BuildEventStream(accounts []core.AccountSnapshot, deltas []Delta, adjustments []core.BalanceAdjustmentSnapshot) (Stream, error) {
	stream := make(Stream, len(accounts))
	createdAt := make(map[string]time.Time, len(accounts))
	currency := make(map[string]string, len(accounts))
	for _, a := range accounts {
		stream[a.ID] = nil
		createdAt[a.ID] = a.CreatedAt
		currency[a.ID] = core.NormalizeCurrency(a.CurrencyCode)
	}

	seq := 0
	for _, d := range deltas {
		if _, ok := stream[d.AccountID]; !ok {
			continue
		}
		if err := checkCurrency(d.AccountID, currency[d.AccountID], d.Currency); err != nil {
			return nil, err
		}
		stream[d.AccountID] = append(stream[d.AccountID], Event{
			OccurredAt: d.OccurredAt.UTC(),
			Amount:     d.Amount,
			seq:        seq,
		})
		seq++
	}

	byAccount := make(map[string][]core.BalanceAdjustmentSnapshot)
	for _, adj := range adjustments {
		if _, ok := stream[adj.AccountID]; !ok {
			continue
		}
		if err := checkCurrency(adj.AccountID, currency[adj.AccountID], adj.Amount.Currency); err != nil {
			return nil, err
		}
		byAccount[adj.AccountID] = append(byAccount[adj.AccountID], adj)
	}

	for accountID, adjs := range byAccount {
		anchorAt, anchored := openingAnchor(createdAt[accountID], adjs)
		for _, adj := range adjs {
			ev := Event{
				OccurredAt:   adj.OccurredAt.UTC(),
				Amount:       adj.Amount.Amount,
				IsAdjustment: true,
				seq:          seq,
			}
			if anchored {
				ev.OccurredAt = anchorAt
				ev.Anchor = true
			}
			stream[accountID] = append(stream[accountID], ev)
			seq++
		}
	}

	for _, events := range stream {
		sortEvents(events)
	}
	return stream, nil
}

func checkCurrency(accountID, account, movement string) error {
	movement = core.NormalizeCurrency(movement)
	if movement == "" || account == "" || movement == account {
		return nil
	}
	return fmt.Errorf("%w: account %s holds %s, movement in %s", core.ErrCurrencyMismatch, accountID, account, movement)
}

// openingAnchor reports whether a single adjustment sits within AnchorWindow
// of account creation. Two or more early adjustments are replayed as dated.
func openingAnchor(createdAt time.Time, adjs []core.BalanceAdjustmentSnapshot) (time.Time, bool) {
	if len(adjs) != 1 || createdAt.IsZero() {
		return time.Time{}, false
	}
	diff := adjs[0].OccurredAt.Sub(createdAt)
	if diff < 0 {
		diff = -diff
	}
	if diff > AnchorWindow {
		return time.Time{}, false
	}
	return createdAt.UTC(), true
}

func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.OccurredAt.Equal(b.OccurredAt) {
			return a.OccurredAt.Before(b.OccurredAt)
		}
		if a.IsAdjustment != b.IsAdjustment {
			return !a.IsAdjustment
		}
		return a.seq < b.seq
	})
}

// applies reports whether ev belongs to the replay prefix before boundary.
// Anchors count at a boundary equal to account creation.
func (ev Event) applies(boundary time.Time) bool {
	if ev.Anchor {
		return !ev.OccurredAt.After(boundary)
	}
	return ev.OccurredAt.Before(boundary)
}

// AdvanceToBoundary replays every account of stream up to boundary starting
// from its cursor in state and returns the updated state. The input state is
// not modified. Accounts missing from state start at index 0 with a zero balance.
//
// Boundaries must be non-decreasing per account; a regression returns
// ErrBoundaryRegressed instead of re-scanning.
func AdvanceToBoundary(boundary time.Time, stream Stream, state State) (State, error) {
	next := make(State, len(stream))
	for id, c := range state {
		next[id] = c
	}
	for accountID, events := range stream {
		cur, ok := next[accountID]
		if ok && boundary.Before(cur.Boundary) {
			return nil, fmt.Errorf("%w: account %s at %s, requested %s",
				ErrBoundaryRegressed, accountID, cur.Boundary.Format(time.RFC3339), boundary.Format(time.RFC3339))
		}
		next[accountID] = advance(cur, events, boundary)
	}
	return next, nil
}

func advance(cur Cursor, events []Event, boundary time.Time) Cursor {
	balance := cur.Balance
	i := cur.Index
	for ; i < len(events); i++ {
		ev := events[i]
		if !ev.applies(boundary) {
			break
		}
		if ev.IsAdjustment {
			balance = ev.Amount
		} else {
			balance = balance.Add(ev.Amount)
		}
	}
	// Transactions at the creation instant sort ahead of the anchor but do not
	// apply at that boundary; the anchor still does. The cursor stays on the
	// first of them, and the anchor resets the balance again once they apply.
	for j := i; j < len(events) && events[j].OccurredAt.Equal(boundary); j++ {
		if events[j].Anchor {
			balance = events[j].Amount
			break
		}
	}
	return Cursor{Index: i, Balance: balance, Boundary: boundary}
}

// BalancesAt replays the whole stream once up to boundary.
func BalancesAt(boundary time.Time, stream Stream) map[string]decimal.Decimal {
	state, _ := AdvanceToBoundary(boundary, stream, nil)
	return state.Balances()
}

// Balances extracts the balance of every account in the state.
func (s State) Balances() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(s))
	for id, c := range s {
		out[id] = c.Balance
	}
	return out
}

// EarliestActivity returns the earliest event timestamp across the stream,
// or false when the stream is empty.
func (s Stream) EarliestActivity() (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, events := range s {
		if len(events) == 0 {
			continue
		}
		if !found || events[0].OccurredAt.Before(earliest) {
			earliest = events[0].OccurredAt
			found = true
		}
	}
	return earliest, found
}
