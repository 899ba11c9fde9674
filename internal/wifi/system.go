package wifi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"
)

// SystemStation observes a kernel-managed wireless interface. The OS
// supplicant owns the actual association; this station maps its
// lifecycle onto the interface's admin and carrier flags so the
// supervisor sees real transitions without radio privileges.
type SystemStation struct {
	iface string
	poll  time.Duration
	// assocWindow bounds a single Associate attempt. The supervisor
	// retries forever, so a short window delays the link, never
	// fails it.
	assocWindow time.Duration
}

func NewSystemStation(iface string) *SystemStation {
	return &SystemStation{
		iface:       iface,
		poll:        DefaultPollInterval,
		assocWindow: 10 * time.Second,
	}
}

func (s *SystemStation) flags() (net.Flags, error) {
	ifc, err := net.InterfaceByName(s.iface)
	if err != nil {
		return 0, err
	}
	return ifc.Flags, nil
}

func (s *SystemStation) Associated() bool {
	f, err := s.flags()
	return err == nil && f&net.FlagRunning != 0
}

func (s *SystemStation) AwaitDisconnect(ctx context.Context) error {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for s.Associated() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (s *SystemStation) Started() (bool, error) {
	f, err := s.flags()
	if err != nil {
		return false, err
	}
	return f&net.FlagUp != 0, nil
}

// Configure is a no-op: the kernel's supplicant already holds the
// credentials for its networks.
func (s *SystemStation) Configure(creds Credentials) error {
	return nil
}

// Start cannot bring an admin-down interface up without privileges;
// it reports the condition and leaves the retry to the supervisor.
func (s *SystemStation) Start(ctx context.Context) error {
	started, err := s.Started()
	if err != nil {
		return err
	}
	if !started {
		return fmt.Errorf("interface %s is down", s.iface)
	}
	return nil
}

// Scan needs radio privileges this process does not hold.
func (s *SystemStation) Scan(ctx context.Context, max int) ([]AccessPoint, error) {
	return nil, errors.ErrUnsupported
}

// Associate waits up to assocWindow for the kernel to report a
// carrier on the interface.
func (s *SystemStation) Associate(ctx context.Context) error {
	deadline := time.Now().Add(s.assocWindow)
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		if s.Associated() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("no carrier on %s", s.iface)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SystemStack reads link and address state for one interface. The
// kernel owns the data path, so Run only parks until shutdown.
type SystemStack struct {
	iface string
}

func NewSystemStack(iface string) *SystemStack {
	return &SystemStack{iface: iface}
}

func (s *SystemStack) Run(ctx context.Context) {
	<-ctx.Done()
}

func (s *SystemStack) LinkUp() bool {
	ifc, err := net.InterfaceByName(s.iface)
	return err == nil && ifc.Flags&net.FlagUp != 0 && ifc.Flags&net.FlagRunning != 0
}

// ConfigV4 returns the interface's first IPv4 address. The gateway is
// left unset; nothing downstream routes by it.
func (s *SystemStack) ConfigV4() (IPv4Config, bool) {
	ifc, err := net.InterfaceByName(s.iface)
	if err != nil {
		return IPv4Config{}, false
	}
	addrs, err := ifc.Addrs()
	if err != nil {
		return IPv4Config{}, false
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip4 := ipnet.IP.To4()
		if ip4 == nil {
			continue
		}
		addr, ok := netip.AddrFromSlice(ip4)
		if !ok {
			continue
		}
		ones, _ := ipnet.Mask.Size()
		return IPv4Config{Address: netip.PrefixFrom(addr, ones)}, true
	}
	return IPv4Config{}, false
}
