// Package session keeps the robot connected to its controller: connection
// state machine, heartbeats, reconnect backoff and routing of inbound
// payloads to the command dispatcher.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cjeanneret/WalkerGo/internal/debug"
	"github.com/cjeanneret/WalkerGo/internal/protocol"
)

// State is the connection state of the session.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Transport is a duplex message connection to one fixed endpoint.
type Transport interface {
	// Connect dials the endpoint, replacing any previous connection.
	Connect(ctx context.Context) error
	// Available reports whether the connection is still usable.
	Available() bool
	// Receive returns the next queued inbound payload without blocking.
	Receive() ([]byte, bool)
	Send(payload []byte) error
	Close() error
}

// Dispatcher handles one inbound payload and returns the status to report,
// or "" for none. Once Halted reports true (a restart was requested) no
// further payload is handed to it.
type Dispatcher interface {
	Dispatch(payload []byte) string
	Halted() bool
}

// Observer is notified of connection changes and of every status produced.
// Calls happen on the control loop; implementations must not block.
type Observer interface {
	ConnectionChanged(connected bool, connID string)
	StatusReported(status string, delivered bool)
}

// Config holds session policy.
type Config struct {
	DeviceID          string
	Endpoint          string // for logs only; the transport owns the address
	HeartbeatInterval time.Duration
	ReconnectBackoff  time.Duration
	InjectQueue       int
}

// DefaultConfig returns the stock session policy.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 30 * time.Second,
		ReconnectBackoff:  5 * time.Second,
		InjectQueue:       16,
	}
}

// ConnectedStatus is reported right after every successful connect.
const ConnectedStatus = "connected"

// Manager owns the single logical connection to the controller.
// All methods except Inject must be called from the control loop.
type Manager struct {
	transport  Transport
	dispatcher Dispatcher
	clock      Clock
	cfg        Config
	observer   Observer

	state           State
	connID          string
	started         time.Time
	lastHeartbeatAt time.Time

	injected chan []byte
}

// NewManager creates a manager in the Disconnected state. A nil clock uses
// the system clock.
func NewManager(t Transport, d Dispatcher, clock Clock, cfg Config) *Manager {
	if clock == nil {
		clock = SystemClock()
	}
	def := DefaultConfig()
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = def.HeartbeatInterval
	}
	if cfg.ReconnectBackoff <= 0 {
		cfg.ReconnectBackoff = def.ReconnectBackoff
	}
	if cfg.InjectQueue <= 0 {
		cfg.InjectQueue = def.InjectQueue
	}
	return &Manager{
		transport:  t,
		dispatcher: d,
		clock:      clock,
		cfg:        cfg,
		observer:   nopObserver{},
		state:      Disconnected,
		started:    clock.Now(),
		injected:   make(chan []byte, cfg.InjectQueue),
	}
}

// SetObserver registers o; nil removes the current observer.
func (m *Manager) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	m.observer = o
}

// State returns the current connection state.
func (m *Manager) State() State { return m.state }

// ConnID returns the id of the current connection, "" when disconnected.
func (m *Manager) ConnID() string { return m.connID }

// DeviceID returns the configured device id.
func (m *Manager) DeviceID() string { return m.cfg.DeviceID }

// Endpoint returns the configured endpoint.
func (m *Manager) Endpoint() string { return m.cfg.Endpoint }

// Tick advances the session by one step. It only blocks for the reconnect
// backoff after a failed connect, and for the commands it dispatches.
// After a restart request it does nothing: payloads still queued are left
// undispatched.
func (m *Manager) Tick(ctx context.Context) {
	if m.dispatcher.Halted() {
		return
	}
	switch m.state {
	case Disconnected:
		m.connect(ctx)
	case Connected:
		if !m.transport.Available() {
			m.disconnect("transport unavailable")
			m.connect(ctx)
			break
		}
		if m.clock.Now().Sub(m.lastHeartbeatAt) > m.cfg.HeartbeatInterval {
			m.heartbeat()
		}
		m.drainTransport(ctx)
	}
	m.drainInjected(ctx)
}

// Send reports a status to the controller. When not connected the status is
// only logged.
func (m *Manager) Send(status string) {
	debug.Status(status)
	delivered := m.send(protocol.NewStatusMessage(m.cfg.DeviceID, status, m.timestamp()))
	m.observer.StatusReported(status, delivered)
}

// Inject queues a payload from a local source (the web console) as if it had
// arrived on the transport. It is safe for concurrent use and never blocks;
// it returns false when the queue is full.
func (m *Manager) Inject(payload []byte) bool {
	p := make([]byte, len(payload))
	copy(p, payload)
	select {
	case m.injected <- p:
		return true
	default:
		debug.Live("Inject queue full, payload dropped")
		return false
	}
}

func (m *Manager) connect(ctx context.Context) {
	m.state = Connecting
	debug.Connection(m.state.String(), m.cfg.Endpoint)
	if err := m.transport.Connect(ctx); err != nil {
		debug.Error(fmt.Errorf("connect %s: %w", m.cfg.Endpoint, err))
		debug.Live("Retrying in %v", m.cfg.ReconnectBackoff)
		m.clock.Sleep(m.cfg.ReconnectBackoff)
		m.state = Disconnected
		return
	}

	m.state = Connected
	m.connID = uuid.NewString()
	m.lastHeartbeatAt = m.clock.Now()
	debug.Connection(m.state.String(), fmt.Sprintf("%s (conn %s)", m.cfg.Endpoint, m.connID))
	m.observer.ConnectionChanged(true, m.connID)
	m.Send(ConnectedStatus)
}

func (m *Manager) disconnect(reason string) {
	debug.Connection("lost", fmt.Sprintf("%s (conn %s): %s", m.cfg.Endpoint, m.connID, reason))
	if err := m.transport.Close(); err != nil {
		debug.Verbose("Closing transport: %v", err)
	}
	id := m.connID
	m.state = Disconnected
	m.connID = ""
	m.observer.ConnectionChanged(false, id)
}

func (m *Manager) heartbeat() {
	m.lastHeartbeatAt = m.clock.Now()
	if m.send(protocol.NewHeartbeatMessage(m.cfg.DeviceID, m.timestamp())) {
		debug.Trace("Heartbeat sent")
	}
}

func (m *Manager) drainTransport(ctx context.Context) {
	for m.draining(ctx) {
		payload, ok := m.transport.Receive()
		if !ok {
			return
		}
		m.handle(payload)
	}
}

func (m *Manager) drainInjected(ctx context.Context) {
	for m.draining(ctx) {
		select {
		case payload := <-m.injected:
			m.handle(payload)
		default:
			return
		}
	}
}

// draining reports whether another queued payload may be dispatched.
func (m *Manager) draining(ctx context.Context) bool {
	return ctx.Err() == nil && !m.dispatcher.Halted()
}

func (m *Manager) handle(payload []byte) {
	debug.Trace("Inbound: %s", payload)
	if status := m.dispatcher.Dispatch(payload); status != "" {
		m.Send(status)
	}
}

func (m *Manager) send(msg protocol.Outbound) bool {
	if m.state != Connected || !m.transport.Available() {
		debug.Live("Not connected, %s not sent", msg.Type)
		return false
	}
	data, err := msg.Bytes()
	if err != nil {
		debug.Error(fmt.Errorf("encode %s: %w", msg.Type, err))
		return false
	}
	if err := m.transport.Send(data); err != nil {
		debug.Error(fmt.Errorf("send %s: %w", msg.Type, err))
		return false
	}
	return true
}

// timestamp is the device-local clock: milliseconds since start.
func (m *Manager) timestamp() int64 {
	return m.clock.Now().Sub(m.started).Milliseconds()
}

type nopObserver struct{}

func (nopObserver) ConnectionChanged(bool, string) {}
func (nopObserver) StatusReported(string, bool)    {}
