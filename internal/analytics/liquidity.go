package analytics

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
	"saldo/internal/fx"
)

// DaysPerMonth is the average month length used to express runway in months.
const DaysPerMonth = 30.44

const (
	runwayGoodMonths    = 6
	runwayAverageMonths = 3
)

type Runway struct {
	Months float64 `json:"months"`
	Status Status  `json:"status"`
}

// LiquidAssets sums the balances of active liquid accounts at the boundary
// at, each converted into base currency on the day just before at.
func LiquidAssets(accounts []core.AccountSnapshot, balances map[string]decimal.Decimal, table *fx.Table, at time.Time) (decimal.Decimal, error) {
	day := fx.BoundaryDay(at)
	total := decimal.Zero
	for _, acc := range accounts {
		if !acc.IsLiquid || acc.Archived {
			continue
		}
		balance, ok := balances[acc.ID]
		if !ok || balance.IsZero() {
			continue
		}
		converted, err := table.ConvertOn(core.NewMoney(balance, acc.CurrencyCode), day)
		if err != nil {
			return decimal.Zero, fmt.Errorf("account %s: %w", acc.ID, err)
		}
		total = total.Add(converted)
	}
	return total, nil
}

// AverageDailyExpense divides the expenses recorded in [windowStart,
// windowEnd) by the number of days between the later of windowStart and the
// earliest tracked activity and windowEnd. It is 0 when nothing was tracked
// before windowEnd.
func AverageDailyExpense(daily map[core.Date]float64, windowStart, windowEnd, earliest time.Time) float64 {
	if earliest.IsZero() || !earliest.Before(windowEnd) {
		return 0
	}
	start := windowStart
	if earliest.After(start) {
		start = earliest
	}
	days := core.DateOf(start).DaysUntil(core.DateOf(windowEnd))
	if days < 1 {
		days = 1
	}

	from, to := core.DateOf(windowStart), core.DateOf(windowEnd)
	var sum float64
	for d, v := range daily {
		if d.Before(from) || !d.Before(to) {
			continue
		}
		sum += v
	}
	return sum / float64(days)
}

// ComputeRunway expresses liquid assets in months of average spending.
// It is nil when the average daily expense is not positive.
func ComputeRunway(liquid, avgDaily float64) *Runway {
	denominator := avgDaily * DaysPerMonth
	if denominator <= 0 {
		return nil
	}
	months := liquid / denominator
	if months < 0 {
		months = 0
	}
	return &Runway{Months: months, Status: RunwayStatus(months)}
}

func RunwayStatus(months float64) Status {
	switch {
	case months > runwayGoodMonths:
		return StatusGood
	case months >= runwayAverageMonths:
		return StatusAverage
	default:
		return StatusPoor
	}
}
