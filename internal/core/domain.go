package core

import (
	"errors"
	"fmt"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	TransactionType string

	// Date is a UTC calendar day. It is comparable and used as a map key
	// for every day-granular aggregation.
	Date struct {
		Year  int
		Month time.Month
		Day   int
	}

	TransactionSnapshot struct {
		ID          string
		AccountID   string
		Money       Money
		OccurredAt  time.Time
		Type        TransactionType
		CategoryID  string
		IsMandatory bool
		IsTransfer  bool // Moves balances but is excluded from income/expense aggregations
	}

	// BalanceAdjustmentSnapshot is an authoritative "the balance was Amount at
	// OccurredAt" correction. Amount is absolute, not a delta.
	BalanceAdjustmentSnapshot struct {
		AccountID  string
		Amount     Money
		OccurredAt time.Time
	}

	AccountSnapshot struct {
		ID           string
		Name         string
		CurrencyCode string
		IsLiquid     bool
		CreatedAt    time.Time
		Archived     bool
	}

	CategoryMeta struct {
		ID          string
		Name        string
		Color       string
		IsMandatory bool
	}
)

var (
	ErrInvalidYear   = errors.New("invalid year")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidWindow = errors.New("invalid months window")
)

// MaxMonthsWindow bounds evolution and net-worth requests.
const MaxMonthsWindow = 120

// ValidationError reports a client-supplied parameter that is out of range.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidateYearMonth checks that year and month identify a real month.
func ValidateYearMonth(year, month int) error {
	if year < 1970 || year > 9999 {
		return &ValidationError{Field: "year", Message: fmt.Sprintf("%d is out of range", year), Err: ErrInvalidYear}
	}
	if month < 1 || month > 12 {
		return &ValidationError{Field: "month", Message: fmt.Sprintf("%d is out of range", month), Err: ErrInvalidMonth}
	}
	return nil
}

// ValidateMonthsWindow checks the number of months requested for a trend.
func ValidateMonthsWindow(n int) error {
	if n < 1 || n > MaxMonthsWindow {
		return &ValidationError{Field: "months", Message: fmt.Sprintf("must be between 1 and %d", MaxMonthsWindow), Err: ErrInvalidWindow}
	}
	return nil
}

// Signed returns the balance delta of the transaction: income adds, expense subtracts.
func (t TransactionSnapshot) Signed() Money {
	if t.Type == Expense {
		return t.Money.Neg()
	}
	return t.Money
}

// DateOf returns the UTC calendar day containing t.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{Year: y, Month: m, Day: d}
}

// NewDate creates a Date from year, month, day.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// DaysUntil returns the number of calendar days from d to other (negative if other is earlier).
func (d Date) DaysUntil(other Date) int {
	return int(other.Time().Sub(d.Time()).Hours() / 24)
}

func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	return d.Time().Format(time.DateOnly)
}

// MonthStart returns the first instant of the given month in UTC.
func MonthStart(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days in the month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MarshalText renders the day as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	t, err := time.Parse(time.DateOnly, string(b))
	if err != nil {
		return fmt.Errorf("parse date: %w", err)
	}
	*d = DateOf(t)
	return nil
}
