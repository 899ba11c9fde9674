// Package wifi supervises the device's wireless uplink: a perpetual
// association loop over a Station, and the wait for the network stack
// to become usable. The radio and the IP stack themselves are
// collaborators behind interfaces; real hosts observe the kernel's
// interface state, tests plug in fakes.
package wifi

import (
	"context"
	"net/netip"
)

// LinkState is the supervisor's public view of the uplink.
type LinkState uint8

const (
	StateDisconnected LinkState = iota
	StateAssociating
	StateConnected
)

func (s LinkState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateAssociating:
		return "associating"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Credentials identify the network the station should join.
type Credentials struct {
	SSID     string
	Password string
}

// AccessPoint is one scan result. Scans are diagnostic only; nothing
// selects an AP from them.
type AccessPoint struct {
	SSID   string
	BSSID  string
	Signal int
}

// Station is the radio control surface the supervisor drives.
type Station interface {
	// Associated reports whether the station currently holds an
	// association.
	Associated() bool
	// AwaitDisconnect blocks until the current association drops, or
	// returns ctx.Err() on cancellation.
	AwaitDisconnect(ctx context.Context) error
	// Started reports whether the radio is running.
	Started() (bool, error)
	// Configure applies client credentials. Must happen before Start.
	Configure(creds Credentials) error
	// Start powers the radio.
	Start(ctx context.Context) error
	// Scan lists at most max visible access points.
	Scan(ctx context.Context, max int) ([]AccessPoint, error)
	// Associate attempts to join the configured network, blocking
	// until the attempt settles.
	Associate(ctx context.Context) error
}

// IPv4Config is the address configuration a stack has acquired.
type IPv4Config struct {
	Address netip.Prefix
	Gateway netip.Addr
}

// Stack is the network layer above the station.
type Stack interface {
	// Run drives the stack's event pump until ctx is done. Stacks
	// whose data path lives elsewhere (the kernel's, for one) simply
	// block.
	Run(ctx context.Context)
	// LinkUp reports whether the link layer is usable.
	LinkUp() bool
	// ConfigV4 returns the acquired IPv4 configuration, if any.
	ConfigV4() (IPv4Config, bool)
}

// Stats counts supervisor activity. Implementations must be safe for
// concurrent use; a nil Stats is a no-op.
type Stats interface {
	AssociationAttempt()
	AssociationFailure()
	LinkDrop()
}
