package wifi

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeStation struct {
	mu         sync.Mutex
	started    bool
	associated bool
	failLeft   int
	configured bool
	scans      int
	scanMax    int
	scanErr    error

	drop  chan struct{}
	assoc chan struct{}
}

func newFakeStation(failures int) *fakeStation {
	return &fakeStation{
		failLeft: failures,
		drop:     make(chan struct{}, 1),
		assoc:    make(chan struct{}, 8),
	}
}

func (f *fakeStation) Associated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.associated
}

func (f *fakeStation) AwaitDisconnect(ctx context.Context) error {
	select {
	case <-f.drop:
		f.mu.Lock()
		f.associated = false
		f.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeStation) Started() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started, nil
}

func (f *fakeStation) Configure(Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configured = true
	return nil
}

func (f *fakeStation) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return nil
}

func (f *fakeStation) Scan(_ context.Context, max int) ([]AccessPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans++
	f.scanMax = max
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	return []AccessPoint{{SSID: "neighbour", BSSID: "aa:bb:cc:dd:ee:ff", Signal: -70}}, nil
}

func (f *fakeStation) Associate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLeft > 0 {
		f.failLeft--
		return errors.New("no beacon")
	}
	f.associated = true
	select {
	case f.assoc <- struct{}{}:
	default:
	}
	return nil
}

type fakeStats struct {
	attempts int
	failures int
	drops    int
}

func (s *fakeStats) AssociationAttempt() { s.attempts++ }
func (s *fakeStats) AssociationFailure() { s.failures++ }
func (s *fakeStats) LinkDrop()           { s.drops++ }

// runSupervisor starts s.Run and returns a func that cancels it and
// waits for the loop to exit.
func runSupervisor(t *testing.T, s *Supervisor) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("supervisor did not stop after cancel")
		}
	}
}

func awaitAssociation(t *testing.T, st *fakeStation) {
	t.Helper()
	select {
	case <-st.assoc:
	case <-time.After(5 * time.Second):
		t.Fatal("station never associated")
	}
}

func TestSupervisorRetriesUntilAssociated(t *testing.T) {
	st := newFakeStation(3)
	stats := &fakeStats{}
	s := NewSupervisor(st, Credentials{SSID: "home"}, NewStateSignal(), stats)
	s.backoff = time.Millisecond

	stop := runSupervisor(t, s)
	awaitAssociation(t, st)
	stop()

	if stats.attempts != 4 {
		t.Errorf("attempts = %d, want 4 (three failures, one success)", stats.attempts)
	}
	if stats.failures != 3 {
		t.Errorf("failures = %d, want 3", stats.failures)
	}
	if stats.drops != 0 {
		t.Errorf("drops = %d, want 0", stats.drops)
	}
}

func TestSupervisorReconnectsAfterDrop(t *testing.T) {
	st := newFakeStation(0)
	st.started = true
	st.associated = true
	stats := &fakeStats{}
	s := NewSupervisor(st, Credentials{SSID: "home"}, NewStateSignal(), stats)
	s.backoff = time.Millisecond

	stop := runSupervisor(t, s)
	st.drop <- struct{}{}
	awaitAssociation(t, st)
	stop()

	if stats.drops != 1 {
		t.Errorf("drops = %d, want 1", stats.drops)
	}
	if stats.attempts != 1 {
		t.Errorf("attempts = %d, want 1", stats.attempts)
	}
}

func TestSupervisorStartsRadioAndScans(t *testing.T) {
	st := newFakeStation(0)
	s := NewSupervisor(st, Credentials{SSID: "home"}, nil, nil)
	s.backoff = time.Millisecond

	stop := runSupervisor(t, s)
	awaitAssociation(t, st)
	stop()

	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.configured {
		t.Error("station was never configured")
	}
	if !st.started {
		t.Error("radio was never started")
	}
	if st.scans != 1 {
		t.Errorf("scans = %d, want 1", st.scans)
	}
	if st.scanMax != 10 {
		t.Errorf("scan max = %d, want 10", st.scanMax)
	}
}

func TestSupervisorScanFailureIsNotFatal(t *testing.T) {
	st := newFakeStation(0)
	st.scanErr = errors.ErrUnsupported
	s := NewSupervisor(st, Credentials{SSID: "home"}, nil, nil)
	s.backoff = time.Millisecond

	stop := runSupervisor(t, s)
	awaitAssociation(t, st)
	stop()
}

func TestSupervisorStopsDuringBackoff(t *testing.T) {
	st := newFakeStation(1 << 20)
	s := NewSupervisor(st, Credentials{SSID: "home"}, nil, nil)
	s.backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor kept sleeping after cancel")
	}
}
