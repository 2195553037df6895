package datachannel

import (
	"sync"

	"github.com/pion/logging"
)

// State is the lifecycle state of a DataChannel.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
	StateFailedToOpen
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateFailedToOpen:
		return "failed-to-open"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can leave s.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateFailedToOpen
}

// stateMachine tracks connecting → open → closed and the two one-shot
// lifecycle futures. Hooks run outside the lock, after the futures settle.
type stateMachine struct {
	log logging.LeveledLogger

	mu    sync.Mutex
	state State

	opened *Future
	closed *Future

	onOpen  func() // activates the outbound queue
	onClose func() // stops the outbound queue for good
}

func newStateMachine(log logging.LeveledLogger, onOpen, onClose func()) *stateMachine {
	return &stateMachine{
		log:     log,
		state:   StateConnecting,
		opened:  newFuture(),
		closed:  newFuture(),
		onOpen:  onOpen,
		onClose: onClose,
	}
}

// current returns the state under the lock.
func (m *stateMachine) current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// transition moves to next if the edge is allowed. The caller holds mu.
func (m *stateMachine) transition(next State) bool {
	prev := m.state
	switch {
	case prev == StateConnecting && next == StateOpen,
		prev == StateConnecting && next == StateFailedToOpen,
		prev == StateOpen && next == StateClosed:
		m.state = next
		m.log.Debugf("state %s -> %s", prev, next)
		return true
	}

	if prev.Terminal() {
		m.log.Warnf("ignoring transition %s -> %s: state is terminal", prev, next)
	} else {
		m.log.Debugf("ignoring transition %s -> %s", prev, next)
	}
	return false
}

// markOpen handles the transport's "became ready" event. Repeated calls are
// ignored, which makes it safe to call both from the readiness check at
// construction time and from the OnOpen callback.
func (m *stateMachine) markOpen() {
	m.mu.Lock()
	ok := m.transition(StateOpen)
	m.mu.Unlock()

	if !ok {
		return
	}

	m.opened.resolve()
	if m.onOpen != nil {
		m.onOpen()
	}
}

// markClosed handles the transport's "closed" event.
func (m *stateMachine) markClosed() {
	m.mu.Lock()
	next := StateClosed
	if m.state == StateConnecting {
		next = StateFailedToOpen
	}
	ok := m.transition(next)
	m.mu.Unlock()

	if !ok {
		return
	}

	if next == StateFailedToOpen {
		m.opened.reject(ErrOpenFailed)
	}
	m.closed.resolve()
	if m.onClose != nil {
		m.onClose()
	}
}
