package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Date is a whole calendar day in the proleptic Gregorian calendar.
// It carries no time of day and no timezone; the pickup feed publishes
// all-day events only.
type Date struct {
	Year  uint16
	Month uint8
	Day   uint8
}

// Time returns the date as a time.Time at midnight UTC, which is how
// all-day events are rendered into feeds and payloads.
func (d Date) Time() time.Time {
	return time.Date(int(d.Year), time.Month(d.Month), int(d.Day), 0, 0, 0, 0, time.UTC)
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Before reports whether d falls strictly before other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// MarshalJSON renders the date as its YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// DateOf truncates a point in time to its calendar day.
func DateOf(t time.Time) Date {
	y, m, day := t.Date()
	return Date{Year: uint16(y), Month: uint8(m), Day: uint8(day)}
}

// Category is one of the waste-collection categories the municipality
// publishes. The zero value is invalid; categories only come out of
// CategoryFromSummary.
type Category uint8

const (
	CategoryRecyclable Category = iota + 1 // yellow bin/bag, packaging
	CategoryBioWaste                       // green bin, organic waste
	CategoryPaper                          // blue bin
	CategoryResidual                       // black bin
	CategoryLeafBags                       // seasonal leaf bags
	CategoryTrees                          // christmas tree collection
)

// summaries maps the exact event summary strings of the municipal feed
// onto categories. Matching is case-sensitive and happens after
// whitespace trimming only; anything else is unknown.
var summaries = map[string]Category{
	"Abfuhr gelbe Wertstofftonne/-sack": CategoryRecyclable,
	"Abfuhr grüne Biotonne":             CategoryBioWaste,
	"Abfuhr blaue Papiertonne":          CategoryPaper,
	"Abfuhr schwarze Restmülltonne":     CategoryResidual,
	"Abfuhr Laubsäcke":                  CategoryLeafBags,
	"Abfuhr Weihnachtsbäume":            CategoryTrees,
}

// CategoryFromSummary resolves a trimmed event summary to its category.
// The boolean is false for summaries outside the known vocabulary.
func CategoryFromSummary(s string) (Category, bool) {
	c, ok := summaries[s]
	return c, ok
}

// Summary returns the feed's German summary line for the category.
func (c Category) Summary() string {
	for s, cat := range summaries {
		if cat == c {
			return s
		}
	}
	return ""
}

// Key returns a stable machine-readable identifier, used in JSON
// payloads, feed UIDs and metric labels.
func (c Category) Key() string {
	switch c {
	case CategoryRecyclable:
		return "recyclable-packaging"
	case CategoryBioWaste:
		return "bio-waste"
	case CategoryPaper:
		return "paper"
	case CategoryResidual:
		return "residual-waste"
	case CategoryLeafBags:
		return "leaf-bags"
	case CategoryTrees:
		return "holiday-trees"
	default:
		return "unknown"
	}
}

func (c Category) String() string { return c.Key() }

// MarshalJSON renders the category as its stable key.
func (c Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Key())
}

// PickupEvent is one collection appointment: a category picked up on a
// date. Events are only ever constructed whole; the parser never leaks
// a partial record.
type PickupEvent struct {
	Date     Date     `json:"date"`
	Category Category `json:"category"`
}

// Schedule is one decoded pickup plan, as handed to downstream
// consumers. Events keep their document order.
type Schedule struct {
	FetchedAt time.Time     `json:"fetched_at"`
	Events    []PickupEvent `json:"events"`
}

// NextAfter returns the earliest event on or after day.
func (s Schedule) NextAfter(day Date) (PickupEvent, bool) {
	var best PickupEvent
	found := false
	for _, ev := range s.Events {
		if ev.Date.Before(day) {
			continue
		}
		if !found || ev.Date.Before(best.Date) {
			best = ev
			found = true
		}
	}
	return best, found
}
