package web

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// Event kinds on the status stream.
const (
	KindLog        = "log"
	KindStatus     = "status"
	KindConnection = "connection"
)

// StatusEvent represents a single message on the SSE stream.
type StatusEvent struct {
	Time      string `json:"t"`
	Kind      string `json:"k"`
	Level     string `json:"l,omitempty"`
	Msg       string `json:"msg"`
	Delivered *bool  `json:"delivered,omitempty"` // status events only
	ConnID    string `json:"conn_id,omitempty"`   // connection events only
}

// LinkState is the last connection change seen by the broadcaster.
type LinkState struct {
	Connected bool   `json:"connected"`
	ConnID    string `json:"conn_id,omitempty"`
	Since     string `json:"since,omitempty"`
}

// StatusBroadcaster distributes events to multiple SSE clients. It also
// observes the session, so it can be handed to session.Manager.SetObserver.
type StatusBroadcaster struct {
	mu      sync.RWMutex
	clients map[chan string]struct{}
	link    LinkState
	last    string
}

// NewStatusBroadcaster creates a new broadcaster.
func NewStatusBroadcaster() *StatusBroadcaster {
	return &StatusBroadcaster{
		clients: make(map[chan string]struct{}),
	}
}

// Subscribe returns a channel that receives broadcast messages and a cleanup function.
// The caller must call the returned cleanup when done (e.g. on client disconnect).
func (b *StatusBroadcaster) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 64)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		delete(b.clients, ch)
		b.mu.Unlock()
		close(ch)
	}
	return ch, unsub
}

// Broadcast sends a log line to all subscribed clients.
func (b *StatusBroadcaster) Broadcast(level, msg string) {
	b.publish(StatusEvent{Kind: KindLog, Level: level, Msg: msg})
}

// BroadcastMsg is a convenience for level "info".
func (b *StatusBroadcaster) BroadcastMsg(msg string) {
	b.Broadcast("info", msg)
}

// ConnectionChanged records and broadcasts a session connection change.
func (b *StatusBroadcaster) ConnectionChanged(connected bool, connID string) {
	now := time.Now().Format(time.RFC3339)
	b.mu.Lock()
	b.link = LinkState{Connected: connected, ConnID: connID, Since: now}
	b.mu.Unlock()

	msg := "disconnected"
	if connected {
		msg = "connected"
	}
	b.publish(StatusEvent{Kind: KindConnection, Msg: msg, ConnID: connID})
}

// StatusReported broadcasts a status produced by the robot.
func (b *StatusBroadcaster) StatusReported(status string, delivered bool) {
	b.mu.Lock()
	b.last = status
	b.mu.Unlock()
	b.publish(StatusEvent{Kind: KindStatus, Msg: status, Delivered: &delivered})
}

// Link returns the last recorded connection state.
func (b *StatusBroadcaster) Link() LinkState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.link
}

// LastStatus returns the last status reported, "" if none.
func (b *StatusBroadcaster) LastStatus() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last
}

// publish stamps evt and fans it out. Slow clients may miss messages
// (non-blocking, buffered).
func (b *StatusBroadcaster) publish(evt StatusEvent) {
	evt.Time = time.Now().Format(time.RFC3339)
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	payload := string(data)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- payload:
		default:
			// channel full, skip
		}
	}
}

// BroadcastWriter implements io.Writer; each Write broadcasts the content to SSE clients.
func BroadcastWriter(b *StatusBroadcaster) *broadcastWriter {
	return &broadcastWriter{b: b}
}

// broadcastWriter wraps StatusBroadcaster as io.Writer for use with debug.SetOutput.
type broadcastWriter struct {
	b *StatusBroadcaster
}

func (w *broadcastWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		w.b.Broadcast(levelOf(msg), msg)
	}
	return len(p), nil
}

// levelOf extracts the level from a debug line such as "[Walker] [LIVE] ...".
func levelOf(line string) string {
	for _, tag := range []struct{ mark, level string }{
		{"[ERROR]", "error"},
		{"[INFO]", "info"},
		{"[LIVE]", "live"},
		{"[VERBOSE]", "verbose"},
		{"[TRACE]", "trace"},
		{"[GPIO]", "trace"},
		{"[PWM]", "trace"},
	} {
		if strings.Contains(line, tag.mark) {
			return tag.level
		}
	}
	return "info"
}
