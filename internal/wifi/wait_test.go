package wifi

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"
)

// fakeStack reports the link up after linkAfter polls and an address
// after cfgAfter further polls.
type fakeStack struct {
	linkAfter int
	cfgAfter  int
	cfg       IPv4Config
}

func (f *fakeStack) Run(ctx context.Context) { <-ctx.Done() }

func (f *fakeStack) LinkUp() bool {
	if f.linkAfter > 0 {
		f.linkAfter--
		return false
	}
	return true
}

func (f *fakeStack) ConfigV4() (IPv4Config, bool) {
	if f.cfgAfter > 0 {
		f.cfgAfter--
		return IPv4Config{}, false
	}
	return f.cfg, true
}

func TestWaitForNetworkPollsUntilConfigured(t *testing.T) {
	want := IPv4Config{
		Address: netip.MustParsePrefix("192.168.178.40/24"),
		Gateway: netip.MustParseAddr("192.168.178.1"),
	}
	stack := &fakeStack{linkAfter: 3, cfgAfter: 2, cfg: want}

	got, err := WaitForNetwork(context.Background(), stack, time.Millisecond)
	if err != nil {
		t.Fatalf("WaitForNetwork returned error: %v", err)
	}
	if got != want {
		t.Errorf("config = %+v, want %+v", got, want)
	}
}

func TestWaitForNetworkImmediateConfig(t *testing.T) {
	want := IPv4Config{Address: netip.MustParsePrefix("10.0.0.2/8")}
	stack := &fakeStack{cfg: want}

	got, err := WaitForNetwork(context.Background(), stack, time.Millisecond)
	if err != nil {
		t.Fatalf("WaitForNetwork returned error: %v", err)
	}
	if got != want {
		t.Errorf("config = %+v, want %+v", got, want)
	}
}

func TestWaitForNetworkHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The link never comes up; only the context ends the wait.
	_, err := WaitForNetwork(ctx, &fakeStack{linkAfter: 1 << 30}, time.Millisecond)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
