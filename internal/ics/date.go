package ics

import (
	"errors"
	"fmt"

	"github.com/losredoe132/muellabfuhr-reminder/internal/model"
)

var (
	// ErrDateFormat reports input that is not exactly eight ASCII digits.
	ErrDateFormat = errors.New("date must be 8 digits (YYYYMMDD)")
	// ErrDateRange reports a well-formed value naming no real calendar day.
	ErrDateRange = errors.New("no such calendar date")
)

// ParseDate decodes a compact YYYYMMDD value into a Date. The input
// must be exactly eight ASCII digits and must name a real day of the
// proleptic Gregorian calendar; leap days are accepted only in leap
// years.
func ParseDate(s string) (model.Date, error) {
	if len(s) != 8 {
		return model.Date{}, fmt.Errorf("%w: got %d bytes", ErrDateFormat, len(s))
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return model.Date{}, fmt.Errorf("%w: byte %d is %q", ErrDateFormat, i, s[i])
		}
	}

	year := digits(s[0:4])
	month := digits(s[4:6])
	day := digits(s[6:8])

	if month < 1 || month > 12 || day < 1 || day > daysIn(year, month) {
		return model.Date{}, fmt.Errorf("%w: %s", ErrDateRange, s)
	}

	return model.Date{Year: uint16(year), Month: uint8(month), Day: uint8(day)}, nil
}

// digits parses a run of ASCII digits already validated by the caller.
func digits(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}

func daysIn(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			return 29
		}
		return 28
	default:
		return 0
	}
}
