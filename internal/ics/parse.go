package ics

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/losredoe132/muellabfuhr-reminder/internal/log"
	"github.com/losredoe132/muellabfuhr-reminder/internal/model"
)

var (
	// ErrMalformedStartDate reports a DTSTART line outside the feed's
	// fixed all-day Berlin shape.
	ErrMalformedStartDate = errors.New("malformed DTSTART line")
	// ErrIncompleteRecord reports an event record that closed before
	// both its date and its category were captured.
	ErrIncompleteRecord = errors.New("incomplete event record")
)

// The municipal feed is rigid enough to scan with plain prefix checks:
// one DTSTART with exactly this parameter sequence and one SUMMARY per
// VEVENT. Anything that deviates is a feed change we want to fail
// loudly on, not paper over.
const (
	startTrigger = "DTSTART;"
	startPrefix  = "DTSTART;TZID=Europe/Berlin;VALUE=DATE:"
	startLineLen = len(startPrefix) + 8
	summaryTag   = "SUMMARY:"
	recordClose  = "END:VEVENT"
)

type scanState uint8

const (
	stateIdle scanState = iota
	stateAwaitingClose
)

// record accumulates the fields of the event currently being scanned.
// Capturing either field moves it to stateAwaitingClose; only a
// successful close resets it.
type record struct {
	state       scanState
	date        model.Date
	hasDate     bool
	category    model.Category
	hasCategory bool
}

func (r *record) setDate(d model.Date) {
	r.date = d
	r.hasDate = true
	r.state = stateAwaitingClose
}

func (r *record) setCategory(c model.Category) {
	r.category = c
	r.hasCategory = true
	r.state = stateAwaitingClose
}

// close validates the record, emits its event and resets the scratch
// state for the next record.
func (r *record) close() (model.PickupEvent, error) {
	if r.state == stateIdle || !r.hasDate || !r.hasCategory {
		return model.PickupEvent{}, fmt.Errorf("%w: have date=%t category=%t",
			ErrIncompleteRecord, r.hasDate, r.hasCategory)
	}
	ev := model.PickupEvent{Date: r.date, Category: r.category}
	*r = record{}
	return ev, nil
}

// ExtractEvents scans a calendar document for pickup records, returned
// in document order. Each VEVENT must carry one DTSTART in the feed's
// fixed shape and one SUMMARY from the known vocabulary before its
// END:VEVENT, or the whole document is rejected. A summary outside the
// vocabulary is logged and skipped; the record it belongs to then
// fails at close. An empty document yields no events and no error.
func ExtractEvents(doc string) ([]model.PickupEvent, error) {
	var events []model.PickupEvent
	var rec record

	for _, raw := range strings.Split(doc, "\n") {
		line := strings.TrimRightFunc(raw, unicode.IsSpace)

		switch {
		case strings.HasPrefix(line, startTrigger):
			date, err := parseStartLine(line)
			if err != nil {
				return nil, err
			}
			rec.setDate(date)

		case strings.HasPrefix(line, summaryTag):
			name := strings.TrimSpace(line[len(summaryTag):])
			cat, ok := model.CategoryFromSummary(name)
			if !ok {
				log.Warn("unknown event summary", "line", line)
				continue
			}
			rec.setCategory(cat)

		case line == recordClose:
			ev, err := rec.close()
			if err != nil {
				return nil, err
			}
			events = append(events, ev)
		}
	}

	return events, nil
}

func parseStartLine(line string) (model.Date, error) {
	if !strings.HasPrefix(line, startPrefix) {
		return model.Date{}, fmt.Errorf("%w: unexpected parameters in %q", ErrMalformedStartDate, line)
	}
	if len(line) != startLineLen {
		return model.Date{}, fmt.Errorf("%w: line is %d bytes, want %d", ErrMalformedStartDate, len(line), startLineLen)
	}
	date, err := ParseDate(line[len(startPrefix):])
	if err != nil {
		return model.Date{}, fmt.Errorf("%w: %w", ErrMalformedStartDate, err)
	}
	return date, nil
}
