// Package export re-serializes a decoded schedule as an iCalendar
// subscription feed, so phones and desktop calendars can follow the
// device's view of the pickup plan.
package export

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/losredoe132/muellabfuhr-reminder/internal/model"
)

const (
	productID = "-//muellabfuhr-reminder//DE"
	calName   = "Müllabfuhr"
)

// Calendar builds a PUBLISH-method calendar from the schedule. Event
// UIDs are stable across refreshes (date plus category) so subscribed
// clients update in place instead of duplicating.
func Calendar(sched model.Schedule) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(calName)

	stamp := sched.FetchedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	stamp = stamp.UTC()

	for _, ev := range sched.Events {
		uid := fmt.Sprintf("%s-%s@muellabfuhr-reminder", ev.Date, ev.Category.Key())
		ve := cal.AddEvent(uid)
		ve.SetDtStampTime(stamp)
		ve.SetAllDayStartAt(ev.Date.Time())
		ve.SetAllDayEndAt(ev.Date.Time().AddDate(0, 0, 1))
		ve.SetSummary(ev.Category.Summary())
	}

	return cal
}

// ICS renders the subscription feed in its wire form.
func ICS(sched model.Schedule) string {
	return Calendar(sched).Serialize()
}
