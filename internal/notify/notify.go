// Package notify delivers each freshly decoded schedule to its
// consumers. Sinks are independent; one failing does not stop the
// others.
package notify

import (
	"context"
	"time"

	"github.com/losredoe132/muellabfuhr-reminder/internal/log"
	"github.com/losredoe132/muellabfuhr-reminder/internal/model"
)

// Sink consumes a decoded schedule.
type Sink interface {
	Name() string
	Publish(ctx context.Context, sched model.Schedule) error
}

// LogSink reports each schedule to the log: event count and the next
// upcoming pickup.
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Publish(_ context.Context, sched model.Schedule) error {
	today := model.DateOf(time.Now())
	next, ok := sched.NextAfter(today)
	if !ok {
		log.Info("schedule decoded", "events", len(sched.Events))
		return nil
	}
	log.Info("schedule decoded",
		"events", len(sched.Events),
		"next_pickup", next.Date,
		"next_category", next.Category)
	return nil
}
