package indicator

import (
	"fmt"
	"runtime"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/losredoe132/muellabfuhr-reminder/internal/log"
)

// Status is what the device's status output can express about the
// service.
type Status uint8

const (
	StatusStarting Status = iota
	StatusWaitingForNetwork
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusStarting:
		return "starting"
	case StatusWaitingForNetwork:
		return "waiting-for-network"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Indicator abstracts the device's status output. This allows a
// log-backed implementation for development and a GPIO LED pair on
// the actual device.
type Indicator interface {
	Set(status Status)
	Close() error
}

// logIndicator writes status transitions to the log. Used off-device
// and as fallback when the GPIO pins are unavailable.
type logIndicator struct {
	last Status
	seen bool
}

func NewLog() Indicator {
	return &logIndicator{}
}

func (l *logIndicator) Set(status Status) {
	if l.seen && status == l.last {
		return
	}
	l.last = status
	l.seen = true
	log.Info("status changed", "status", status)
}

func (l *logIndicator) Close() error { return nil }

// gpioIndicator drives two LEDs:
//
//	ready error
//	  off   off   starting
//	  on    on    waiting for network
//	  on    off   ready, schedule current
//	  off   on    error, schedule stale
type gpioIndicator struct {
	ready gpio.PinOut
	err   gpio.PinOut
}

// NewGPIO opens the two named pins (periph.io names, e.g. "GPIO23").
func NewGPIO(readyPin, errorPin string) (Indicator, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	ready := gpioreg.ByName(readyPin)
	if ready == nil {
		return nil, fmt.Errorf("no such pin: %s", readyPin)
	}
	errLED := gpioreg.ByName(errorPin)
	if errLED == nil {
		return nil, fmt.Errorf("no such pin: %s", errorPin)
	}
	ind := &gpioIndicator{ready: ready, err: errLED}
	ind.Set(StatusStarting)
	return ind, nil
}

func (g *gpioIndicator) Set(status Status) {
	var ready, errLED gpio.Level
	switch status {
	case StatusWaitingForNetwork:
		ready, errLED = gpio.High, gpio.High
	case StatusReady:
		ready, errLED = gpio.High, gpio.Low
	case StatusError:
		ready, errLED = gpio.Low, gpio.High
	default:
		ready, errLED = gpio.Low, gpio.Low
	}
	if err := g.ready.Out(ready); err != nil {
		log.Error("ready LED write failed", err)
	}
	if err := g.err.Out(errLED); err != nil {
		log.Error("error LED write failed", err)
	}
}

func (g *gpioIndicator) Close() error {
	g.Set(StatusStarting)
	return nil
}

// Default returns the Indicator the main program should use: the GPIO
// pair when pins are configured and reachable, the log otherwise.
func Default(readyPin, errorPin string) Indicator {
	if readyPin == "" || errorPin == "" {
		return NewLog()
	}
	if runtime.GOOS != "linux" {
		return NewLog()
	}
	ind, err := NewGPIO(readyPin, errorPin)
	if err != nil {
		log.Error("gpio indicator unavailable, using log", err, "ready_pin", readyPin, "error_pin", errorPin)
		return NewLog()
	}
	return ind
}
