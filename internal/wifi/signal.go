package wifi

import "context"

// StateSignal hands link state transitions from the supervisor to one
// consumer. It holds a single slot: publishing replaces an unread
// value, so a slow consumer observes the newest state and misses
// intermediate flaps instead of queueing them.
type StateSignal struct {
	ch chan LinkState
}

func NewStateSignal() *StateSignal {
	return &StateSignal{ch: make(chan LinkState, 1)}
}

// Set publishes a state, replacing any unread previous one. It never
// blocks.
func (s *StateSignal) Set(state LinkState) {
	for {
		select {
		case s.ch <- state:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// Wait blocks until a state has been published or ctx is done. The
// boolean is false on cancellation.
func (s *StateSignal) Wait(ctx context.Context) (LinkState, bool) {
	select {
	case state := <-s.ch:
		return state, true
	case <-ctx.Done():
		return StateDisconnected, false
	}
}
