// Package app wires the link supervisor, the network wait, the
// fetch/parse pipeline and the schedule consumers into the daemon's
// run modes.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/losredoe132/muellabfuhr-reminder/internal/config"
	"github.com/losredoe132/muellabfuhr-reminder/internal/ics"
	"github.com/losredoe132/muellabfuhr-reminder/internal/indicator"
	"github.com/losredoe132/muellabfuhr-reminder/internal/log"
	"github.com/losredoe132/muellabfuhr-reminder/internal/model"
	"github.com/losredoe132/muellabfuhr-reminder/internal/notify"
	"github.com/losredoe132/muellabfuhr-reminder/internal/wifi"
)

// Stats is the metrics surface the app reports into. The Prometheus
// collector implements it; nil disables reporting.
type Stats interface {
	wifi.Stats
	SetLinkState(state float64)
	FetchSucceeded(d time.Duration)
	FetchFailed()
	ParseFailed()
	ScheduleDecoded(events int)
}

// StatusSurface receives operational state for display to humans; the
// web server implements it.
type StatusSurface interface {
	SetLinkState(state string)
	RecordFailure(err error)
}

// Options carry the collaborators the app runs with.
type Options struct {
	Config    *config.Config
	Station   wifi.Station
	Stack     wifi.Stack
	Fetcher   *ics.Fetcher
	Indicator indicator.Indicator
	Sinks     []notify.Sink
	Stats     Stats
	Status    StatusSurface

	// PollInterval overrides the network wait cadence; zero keeps the
	// default.
	PollInterval time.Duration
}

// App owns one uplink and one refresh pipeline.
type App struct {
	cfg        *config.Config
	stack      wifi.Stack
	fetcher    *ics.Fetcher
	ind        indicator.Indicator
	sinks      []notify.Sink
	stats      Stats
	status     StatusSurface
	signal     *wifi.StateSignal
	supervisor *wifi.Supervisor
	poll       time.Duration

	mu    sync.Mutex
	sched *model.Schedule
}

func New(o Options) *App {
	a := &App{
		cfg:     o.Config,
		stack:   o.Stack,
		fetcher: o.Fetcher,
		ind:     o.Indicator,
		sinks:   o.Sinks,
		stats:   o.Stats,
		status:  o.Status,
		signal:  wifi.NewStateSignal(),
		poll:    o.PollInterval,
	}

	creds := wifi.Credentials{
		SSID:     o.Config.Wifi.SSID,
		Password: o.Config.Wifi.Password,
	}
	var stats wifi.Stats
	if o.Stats != nil {
		stats = o.Stats
	}
	a.supervisor = wifi.NewSupervisor(o.Station, creds, a.signal, stats)

	return a
}

// Run starts the long-lived workers, performs the first refresh cycle
// and then idles or follows the configured cron schedule. It returns
// when ctx is cancelled, or with an error when a once-mode cycle
// fails.
func (a *App) Run(ctx context.Context) error {
	go a.supervisor.Run(ctx)
	go a.stack.Run(ctx)
	go a.watchLink(ctx)

	if err := a.Cycle(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		if a.cfg.RefreshCron == "" {
			return err
		}
		// Periodic mode: the next tick is the retry.
	}

	if a.cfg.RefreshCron != "" {
		return a.runCron(ctx)
	}

	log.Info("refresh complete, idling")
	<-ctx.Done()
	return nil
}

// Cycle performs one refresh: wait for the network, fetch, parse and
// hand the schedule to every sink. Fetch and parse failures abort the
// cycle; there is no in-cycle retry.
func (a *App) Cycle(ctx context.Context) error {
	if a.ind != nil && !a.hasSchedule() {
		a.ind.Set(indicator.StatusWaitingForNetwork)
	}

	netCfg, err := wifi.WaitForNetwork(ctx, a.stack, a.poll)
	if err != nil {
		return err
	}
	log.Info("network ready", "addr", netCfg.Address)

	start := time.Now()
	body, err := a.fetcher.Fetch(ctx, a.cfg.Endpoint)
	if err != nil {
		if a.stats != nil {
			a.stats.FetchFailed()
		}
		a.fail(err)
		return err
	}
	if a.stats != nil {
		a.stats.FetchSucceeded(time.Since(start))
	}

	events, err := ics.ExtractEvents(body)
	if err != nil {
		if a.stats != nil {
			a.stats.ParseFailed()
		}
		a.fail(err)
		return err
	}

	sched := model.Schedule{FetchedAt: time.Now().UTC(), Events: events}
	a.setSchedule(sched)
	if a.stats != nil {
		a.stats.ScheduleDecoded(len(events))
	}

	for _, sink := range a.sinks {
		if err := sink.Publish(ctx, sched); err != nil {
			log.Error("sink publish failed", err, "sink", sink.Name())
		}
	}

	if a.ind != nil {
		a.ind.Set(indicator.StatusReady)
	}
	return nil
}

func (a *App) fail(err error) {
	log.Error("refresh cycle failed", err)
	if a.ind != nil {
		a.ind.Set(indicator.StatusError)
	}
	if a.status != nil {
		a.status.RecordFailure(err)
	}
}

// watchLink forwards supervisor state transitions to the metrics and
// status surfaces.
func (a *App) watchLink(ctx context.Context) {
	for {
		state, ok := a.signal.Wait(ctx)
		if !ok {
			return
		}
		if a.stats != nil {
			a.stats.SetLinkState(float64(state))
		}
		if a.status != nil {
			a.status.SetLinkState(state.String())
		}
	}
}

func (a *App) runCron(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{})))
	_, err := c.AddFunc(a.cfg.RefreshCron, func() {
		// Errors are logged inside the cycle; the next tick retries.
		_ = a.Cycle(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", a.cfg.RefreshCron, err)
	}

	c.Start()
	log.Info("periodic refresh enabled", "schedule", a.cfg.RefreshCron)

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	return nil
}

func (a *App) hasSchedule() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sched != nil
}

func (a *App) setSchedule(s model.Schedule) {
	a.mu.Lock()
	a.sched = &s
	a.mu.Unlock()
}

// Schedule returns the last decoded schedule, if any.
func (a *App) Schedule() (model.Schedule, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sched == nil {
		return model.Schedule{}, false
	}
	return *a.sched, true
}

// cronLogger adapts the scheduler's log output. Skip notices surface
// at debug level so an overlapping cycle is visible but not noisy.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	log.Debug("cron "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	log.Error("cron "+msg, err, kv...)
}
