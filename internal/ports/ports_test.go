package ports

import (
	"testing"
	"time"

	"saldo/internal/core"
)

func TestTransactionFilterMatch(t *testing.T) {
	at := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)
	tx := core.TransactionSnapshot{AccountID: "a1", OccurredAt: at, Type: core.Expense}
	transfer := tx
	transfer.IsTransfer = true

	tests := []struct {
		name   string
		filter TransactionFilter
		tx     core.TransactionSnapshot
		want   bool
	}{
		{"empty filter", TransactionFilter{}, tx, true},
		{"from inclusive", TransactionFilter{From: at}, tx, true},
		{"to exclusive", TransactionFilter{To: at}, tx, false},
		{"before from", TransactionFilter{From: at.Add(time.Second)}, tx, false},
		{"transfer excluded", TransactionFilter{ExcludeTransfers: true}, transfer, false},
		{"transfer kept", TransactionFilter{}, transfer, true},
		{"type mismatch", TransactionFilter{Type: core.Income}, tx, false},
		{"type match", TransactionFilter{Type: core.Expense}, tx, true},
		{"account listed", TransactionFilter{AccountIDs: []string{"a0", "a1"}}, tx, true},
		{"account not listed", TransactionFilter{AccountIDs: []string{"a2"}}, tx, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(tt.tx); got != tt.want {
				t.Fatalf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}
