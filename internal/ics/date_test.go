package ics

import (
	"errors"
	"testing"

	"github.com/losredoe132/muellabfuhr-reminder/internal/model"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want model.Date
	}{
		{"20260105", model.Date{Year: 2026, Month: 1, Day: 5}},
		{"20251231", model.Date{Year: 2025, Month: 12, Day: 31}},
		{"20240229", model.Date{Year: 2024, Month: 2, Day: 29}}, // leap year
		{"20000229", model.Date{Year: 2000, Month: 2, Day: 29}}, // 400-year rule
		{"00010101", model.Date{Year: 1, Month: 1, Day: 1}},
		{"99991231", model.Date{Year: 9999, Month: 12, Day: 31}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if err != nil {
				t.Fatalf("ParseDate(%q) returned error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseDateFormatErrors(t *testing.T) {
	inputs := []string{
		"",
		"2026",
		"2026010",   // 7 digits
		"202601055", // 9 digits
		"2026-1-05",
		"2026010a",
		"+2026015", // sign is not a digit
		" 20260105",
		"2026 105",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := ParseDate(in)
			if !errors.Is(err, ErrDateFormat) {
				t.Errorf("ParseDate(%q) error = %v, want ErrDateFormat", in, err)
			}
		})
	}
}

func TestParseDateRangeErrors(t *testing.T) {
	inputs := []string{
		"20260005", // month 0
		"20261305", // month 13
		"20260100", // day 0
		"20260132", // day 32
		"20250229", // not a leap year
		"19000229", // century rule
		"20260431", // april has 30 days
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := ParseDate(in)
			if !errors.Is(err, ErrDateRange) {
				t.Errorf("ParseDate(%q) error = %v, want ErrDateRange", in, err)
			}
		})
	}
}
