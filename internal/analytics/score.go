package analytics

const (
	minScoreSignals    = 3
	liquidMonthsTarget = 12
)

// ScoreInputs are the optional sub-signals folded into the month score.
// Nil means "not computable this month".
type ScoreInputs struct {
	SavingsRate          *float64
	LiquidMonths         *float64
	StabilityScore       *float64
	DiscretionaryPercent *float64
	PeakSharePercent     *float64
}

type SpendingBreakdown struct {
	Mandatory            float64  `json:"mandatory"`
	Discretionary        float64  `json:"discretionary"`
	DiscretionaryPercent *float64 `json:"discretionaryPercent"`
}

// AggregateMonthScore is the mean of the present sub-signals, each scaled to
// 0..100. Fewer than three present signals yield nil.
func AggregateMonthScore(in ScoreInputs) *float64 {
	var signals []float64
	add := func(v *float64, f func(float64) float64) {
		if v != nil {
			signals = append(signals, clamp(f(*v), 0, 100))
		}
	}
	add(in.SavingsRate, func(v float64) float64 { return v * 100 })
	add(in.LiquidMonths, func(v float64) float64 { return v / liquidMonthsTarget * 100 })
	add(in.StabilityScore, func(v float64) float64 { return v })
	add(in.DiscretionaryPercent, func(v float64) float64 { return 100 - v })
	add(in.PeakSharePercent, func(v float64) float64 { return 100 - v })

	if len(signals) < minScoreSignals {
		return nil
	}
	var sum float64
	for _, s := range signals {
		sum += s
	}
	return ptr(clamp(sum/float64(len(signals)), 0, 100))
}

// SavingsRate is the share of income left after expenses, as a fraction.
func SavingsRate(income, expense float64) *float64 {
	if income <= 0 {
		return nil
	}
	return ptr((income - expense) / income)
}

func SpendingSplit(mandatory, discretionary float64) SpendingBreakdown {
	out := SpendingBreakdown{Mandatory: mandatory, Discretionary: discretionary}
	if total := mandatory + discretionary; total > 0 {
		out.DiscretionaryPercent = ptr(discretionary / total * 100)
	}
	return out
}
