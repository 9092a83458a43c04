package core

import (
	"errors"
	"testing"
	"time"
)

func TestValidateYearMonth(t *testing.T) {
	cases := []struct {
		year, month int
		ok          bool
	}{
		{2025, 1, true},
		{2025, 12, true},
		{2025, 0, false},
		{2025, 13, false},
		{1969, 5, false},
		{10000, 5, false},
	}
	for i, tc := range cases {
		err := ValidateYearMonth(tc.year, tc.month)
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok {
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("case %d expected ValidationError, got %v", i, err)
			}
		}
	}
}

func TestValidateMonthsWindow(t *testing.T) {
	if err := ValidateMonthsWindow(12); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := ValidateMonthsWindow(0); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
	if err := ValidateMonthsWindow(MaxMonthsWindow + 1); err == nil {
		t.Fatalf("expected error for oversized window")
	}
}

func TestDateArithmetic(t *testing.T) {
	d := DateOf(time.Date(2024, 2, 28, 23, 59, 0, 0, time.UTC))
	if d != NewDate(2024, time.February, 28) {
		t.Fatalf("unexpected date %v", d)
	}
	if next := d.AddDays(1); next != NewDate(2024, time.February, 29) {
		t.Fatalf("expected leap day, got %v", next)
	}
	if n := d.DaysUntil(NewDate(2024, time.March, 31)); n != 32 {
		t.Fatalf("expected 32 days, got %d", n)
	}
	if DaysIn(2024, time.February) != 29 || DaysIn(2023, time.February) != 28 {
		t.Fatalf("unexpected days in February")
	}

	// A non-UTC instant maps to its UTC day.
	loc := time.FixedZone("UTC+2", 2*3600)
	if got := DateOf(time.Date(2024, 3, 1, 1, 0, 0, 0, loc)); got != NewDate(2024, time.February, 29) {
		t.Fatalf("expected UTC day, got %v", got)
	}
}
