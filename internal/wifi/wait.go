package wifi

import (
	"context"
	"time"

	"github.com/losredoe132/muellabfuhr-reminder/internal/log"
)

// DefaultPollInterval is the probe cadence while waiting for the link
// and for an address.
const DefaultPollInterval = 500 * time.Millisecond

// WaitForNetwork blocks until stack reports a usable link and then an
// IPv4 configuration, polling on interval. There is deliberately no
// timeout: the supervisor retries association forever, so given power
// and coverage this returns eventually, and a dead wait is exactly as
// useful as a dead process. Only ctx cancellation ends it early.
func WaitForNetwork(ctx context.Context, stack Stack, interval time.Duration) (IPv4Config, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("waiting for link")
	for !stack.LinkUp() {
		select {
		case <-ctx.Done():
			return IPv4Config{}, ctx.Err()
		case <-ticker.C:
		}
	}

	log.Info("waiting for address")
	for {
		if cfg, ok := stack.ConfigV4(); ok {
			log.Info("address acquired", "addr", cfg.Address)
			return cfg, nil
		}
		select {
		case <-ctx.Done():
			return IPv4Config{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
