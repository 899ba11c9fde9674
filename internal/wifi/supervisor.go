package wifi

import (
	"context"
	"time"

	"github.com/losredoe132/muellabfuhr-reminder/internal/log"
)

const (
	// retryBackoff separates association attempts and debounces
	// reconnects after a drop.
	retryBackoff = 5 * time.Second
	// scanLimit caps the diagnostic scan that follows radio start.
	scanLimit = 10
)

// Supervisor keeps a station associated with the configured network
// for the life of the process. Association failures are expected
// weather: they are logged, absorbed and retried on a fixed backoff,
// indefinitely. The supervisor never returns an error; its context
// exists for process teardown and tests only.
type Supervisor struct {
	station Station
	creds   Credentials
	signal  *StateSignal
	stats   Stats

	backoff time.Duration
}

func NewSupervisor(station Station, creds Credentials, signal *StateSignal, stats Stats) *Supervisor {
	return &Supervisor{
		station: station,
		creds:   creds,
		signal:  signal,
		stats:   stats,
		backoff: retryBackoff,
	}
}

// Run drives the supervision loop until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) {
	log.Info("link supervisor started", "ssid", s.creds.SSID)

	for ctx.Err() == nil {
		if s.station.Associated() {
			s.publish(StateConnected)
			if err := s.station.AwaitDisconnect(ctx); err != nil {
				return
			}
			s.publish(StateDisconnected)
			if s.stats != nil {
				s.stats.LinkDrop()
			}
			log.Warn("link lost, cooling down", "wait", s.backoff)
			if !s.sleep(ctx) {
				return
			}
		}

		if !s.ensureStarted(ctx) {
			continue
		}

		s.publish(StateAssociating)
		if s.stats != nil {
			s.stats.AssociationAttempt()
		}
		log.Info("associating", "ssid", s.creds.SSID)

		if err := s.station.Associate(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.publish(StateDisconnected)
			if s.stats != nil {
				s.stats.AssociationFailure()
			}
			log.Error("association failed, retrying", err, "wait", s.backoff)
			if !s.sleep(ctx) {
				return
			}
			continue
		}

		log.Info("link associated", "ssid", s.creds.SSID)
	}
}

// ensureStarted configures and powers the radio if it is not running,
// then runs the diagnostic scan. False sends the loop back to its top
// for another pass after the backoff.
func (s *Supervisor) ensureStarted(ctx context.Context) bool {
	started, err := s.station.Started()
	if err != nil {
		log.Error("radio state unavailable", err, "wait", s.backoff)
		s.sleep(ctx)
		return false
	}
	if started {
		return true
	}

	if err := s.station.Configure(s.creds); err != nil {
		log.Error("radio configuration failed", err, "wait", s.backoff)
		s.sleep(ctx)
		return false
	}
	log.Info("starting radio")
	if err := s.station.Start(ctx); err != nil {
		if ctx.Err() != nil {
			return false
		}
		log.Error("radio start failed", err, "wait", s.backoff)
		s.sleep(ctx)
		return false
	}
	log.Info("radio started")

	s.scan(ctx)
	return true
}

// scan logs up to scanLimit visible networks. The results inform
// nothing beyond the log.
func (s *Supervisor) scan(ctx context.Context) {
	aps, err := s.station.Scan(ctx, scanLimit)
	if err != nil {
		log.Debug("scan unavailable", "reason", err)
		return
	}
	for _, ap := range aps {
		log.Info("visible network", "ssid", ap.SSID, "bssid", ap.BSSID, "signal", ap.Signal)
	}
}

func (s *Supervisor) publish(state LinkState) {
	if s.signal != nil {
		s.signal.Set(state)
	}
}

// sleep waits out the backoff; false means ctx was cancelled.
func (s *Supervisor) sleep(ctx context.Context) bool {
	t := time.NewTimer(s.backoff)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
