package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type fakeTransport struct {
	connectErrs []error // consumed one per Connect; nil entries succeed
	connects    int
	closes      int
	available   bool
	inbox       [][]byte
	sent        [][]byte
}

func (t *fakeTransport) Connect(ctx context.Context) error {
	t.connects++
	if len(t.connectErrs) > 0 {
		err := t.connectErrs[0]
		t.connectErrs = t.connectErrs[1:]
		if err != nil {
			return err
		}
	}
	t.available = true
	return nil
}

func (t *fakeTransport) Available() bool { return t.available }

func (t *fakeTransport) Receive() ([]byte, bool) {
	if len(t.inbox) == 0 {
		return nil, false
	}
	p := t.inbox[0]
	t.inbox = t.inbox[1:]
	return p, true
}

func (t *fakeTransport) Send(payload []byte) error {
	t.sent = append(t.sent, payload)
	return nil
}

func (t *fakeTransport) Close() error {
	t.closes++
	t.available = false
	return nil
}

// messages decodes everything sent so far.
func (t *fakeTransport) messages(tb testing.TB) []map[string]interface{} {
	tb.Helper()
	out := make([]map[string]interface{}, 0, len(t.sent))
	for _, raw := range t.sent {
		var m map[string]interface{}
		if err := json.Unmarshal(raw, &m); err != nil {
			tb.Fatalf("sent invalid JSON %s: %v", raw, err)
		}
		out = append(out, m)
	}
	return out
}

func (t *fakeTransport) count(tb testing.TB, typ string) int {
	n := 0
	for _, m := range t.messages(tb) {
		if m["type"] == typ {
			n++
		}
	}
	return n
}

// fakeClock advances only when told to, or when slept on.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

// echoDispatcher records payloads and answers with a fixed status map.
// Dispatching haltOn halts it, like a restart command.
type echoDispatcher struct {
	got     []string
	replies map[string]string
	haltOn  string
	halted  bool
}

func (d *echoDispatcher) Dispatch(payload []byte) string {
	d.got = append(d.got, string(payload))
	if d.haltOn != "" && string(payload) == d.haltOn {
		d.halted = true
	}
	return d.replies[string(payload)]
}

func (d *echoDispatcher) Halted() bool { return d.halted }

type recordingObserver struct {
	connections []bool
	connIDs     []string
	statuses    []string
	delivered   []bool
}

func (o *recordingObserver) ConnectionChanged(connected bool, connID string) {
	o.connections = append(o.connections, connected)
	o.connIDs = append(o.connIDs, connID)
}

func (o *recordingObserver) StatusReported(status string, delivered bool) {
	o.statuses = append(o.statuses, status)
	o.delivered = append(o.delivered, delivered)
}

func testConfig() Config {
	return Config{
		DeviceID:          "walker_test",
		Endpoint:          "ws://127.0.0.1:8765/",
		HeartbeatInterval: 30 * time.Second,
		ReconnectBackoff:  5 * time.Second,
	}
}

func newTestManager() (*Manager, *fakeTransport, *fakeClock, *echoDispatcher) {
	tr := &fakeTransport{}
	clock := newFakeClock()
	d := &echoDispatcher{replies: map[string]string{}}
	return NewManager(tr, d, clock, testConfig()), tr, clock, d
}

func TestManager_ConnectSendsConnectedStatus(t *testing.T) {
	m, tr, clock, _ := newTestManager()
	clock.advance(1500 * time.Millisecond)

	m.Tick(context.Background())

	if m.State() != Connected {
		t.Fatalf("State() = %v, want connected", m.State())
	}
	if m.ConnID() == "" {
		t.Error("ConnID() should be set once connected")
	}
	if m.DeviceID() != "walker_test" || m.Endpoint() != "ws://127.0.0.1:8765/" {
		t.Errorf("identity = %q / %q", m.DeviceID(), m.Endpoint())
	}
	msgs := tr.messages(t)
	if len(msgs) != 1 {
		t.Fatalf("sent %d messages, want 1", len(msgs))
	}
	got := msgs[0]
	if got["type"] != "status" || got["status"] != ConnectedStatus || got["device_id"] != "walker_test" {
		t.Errorf("unexpected connect message: %v", got)
	}
	if got["timestamp"] != float64(1500) {
		t.Errorf("timestamp = %v, want 1500", got["timestamp"])
	}
}

func TestManager_ConnectFailureBacksOff(t *testing.T) {
	m, tr, clock, _ := newTestManager()
	tr.connectErrs = []error{errors.New("refused"), errors.New("refused"), nil}

	m.Tick(context.Background())
	if m.State() != Disconnected {
		t.Fatalf("State() = %v after failure, want disconnected", m.State())
	}
	if len(clock.sleeps) != 1 || clock.sleeps[0] != 5*time.Second {
		t.Errorf("sleeps = %v, want one 5s backoff", clock.sleeps)
	}

	m.Tick(context.Background())
	m.Tick(context.Background())
	if m.State() != Connected {
		t.Fatalf("State() = %v, want connected on third attempt", m.State())
	}
	if tr.connects != 3 {
		t.Errorf("connects = %d, want 3", tr.connects)
	}
	for _, d := range clock.sleeps {
		if d != 5*time.Second {
			t.Errorf("backoff grew to %v", d)
		}
	}
	if len(tr.sent) != 1 {
		t.Errorf("sent %d messages, want only the connected status", len(tr.sent))
	}
}

func TestManager_HeartbeatWhenOverdue(t *testing.T) {
	m, tr, clock, _ := newTestManager()
	m.Tick(context.Background())

	clock.advance(30 * time.Second)
	m.Tick(context.Background())
	if n := tr.count(t, "heartbeat"); n != 0 {
		t.Fatalf("heartbeats at exactly the interval = %d, want 0", n)
	}

	clock.advance(time.Millisecond)
	m.Tick(context.Background())
	if n := tr.count(t, "heartbeat"); n != 1 {
		t.Fatalf("heartbeats once overdue = %d, want 1", n)
	}

	m.Tick(context.Background())
	if n := tr.count(t, "heartbeat"); n != 1 {
		t.Errorf("timer not reset: heartbeats = %d, want 1", n)
	}

	msgs := tr.messages(t)
	hb := msgs[len(msgs)-1]
	if _, ok := hb["status"]; ok {
		t.Errorf("heartbeat carries a status: %v", hb)
	}
	if hb["device_id"] != "walker_test" || hb["timestamp"] != float64(30001) {
		t.Errorf("unexpected heartbeat: %v", hb)
	}
}

func TestManager_DropReconnectsInSameTick(t *testing.T) {
	m, tr, _, _ := newTestManager()
	obs := &recordingObserver{}
	m.SetObserver(obs)
	m.Tick(context.Background())
	firstID := m.ConnID()

	tr.available = false
	m.Tick(context.Background())

	if tr.closes != 1 {
		t.Errorf("closes = %d, want 1", tr.closes)
	}
	if tr.connects != 2 {
		t.Errorf("connects = %d, want reconnect in the same tick", tr.connects)
	}
	if m.State() != Connected {
		t.Errorf("State() = %v, want connected", m.State())
	}
	if m.ConnID() == firstID {
		t.Error("new connection should get a new id")
	}
	want := []bool{true, false, true}
	if len(obs.connections) != len(want) {
		t.Fatalf("connection events = %v, want %v", obs.connections, want)
	}
	for i := range want {
		if obs.connections[i] != want[i] {
			t.Errorf("connection events = %v, want %v", obs.connections, want)
			break
		}
	}
	if obs.connIDs[1] != firstID {
		t.Errorf("disconnect event id = %q, want %q", obs.connIDs[1], firstID)
	}
}

func TestManager_DropWithFailedReconnect(t *testing.T) {
	m, tr, clock, _ := newTestManager()
	m.Tick(context.Background())

	tr.available = false
	tr.connectErrs = []error{errors.New("down")}
	m.Tick(context.Background())

	if m.State() != Disconnected {
		t.Errorf("State() = %v, want disconnected", m.State())
	}
	if tr.connects != 2 {
		t.Errorf("connects = %d, want 2", tr.connects)
	}
	if len(clock.sleeps) != 1 {
		t.Errorf("sleeps = %v, want one backoff", clock.sleeps)
	}
}

func TestManager_DispatchesInboundInOrder(t *testing.T) {
	m, tr, _, d := newTestManager()
	m.Tick(context.Background())

	d.replies["a"] = "did a"
	d.replies["c"] = "did c"
	tr.inbox = [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	m.Tick(context.Background())

	if len(d.got) != 3 || d.got[0] != "a" || d.got[1] != "b" || d.got[2] != "c" {
		t.Fatalf("dispatched %v, want [a b c]", d.got)
	}
	msgs := tr.messages(t)
	var statuses []interface{}
	for _, msg := range msgs[1:] {
		statuses = append(statuses, msg["status"])
	}
	if len(statuses) != 2 || statuses[0] != "did a" || statuses[1] != "did c" {
		t.Errorf("statuses = %v, want [did a did c]", statuses)
	}
}

func TestManager_SendWhenDisconnectedIsNoop(t *testing.T) {
	m, tr, _, _ := newTestManager()
	obs := &recordingObserver{}
	m.SetObserver(obs)

	m.Send("hello")

	if len(tr.sent) != 0 {
		t.Errorf("sent %d messages while disconnected", len(tr.sent))
	}
	if len(obs.statuses) != 1 || obs.statuses[0] != "hello" || obs.delivered[0] {
		t.Errorf("observer = %v / %v, want one undelivered status", obs.statuses, obs.delivered)
	}
}

func TestManager_InjectConsumedOnTick(t *testing.T) {
	m, tr, _, d := newTestManager()
	d.replies["local"] = "done"

	if !m.Inject([]byte("local")) {
		t.Fatal("Inject() = false")
	}
	if len(d.got) != 0 {
		t.Fatal("injected payload dispatched before Tick")
	}

	m.Tick(context.Background())

	if len(d.got) != 1 || d.got[0] != "local" {
		t.Fatalf("dispatched %v, want [local]", d.got)
	}
	msgs := tr.messages(t)
	if len(msgs) != 2 || msgs[1]["status"] != "done" {
		t.Errorf("messages = %v", msgs)
	}
}

func TestManager_InjectQueueFull(t *testing.T) {
	tr := &fakeTransport{}
	cfg := testConfig()
	cfg.InjectQueue = 1
	m := NewManager(tr, &echoDispatcher{}, newFakeClock(), cfg)

	if !m.Inject([]byte("one")) {
		t.Fatal("first Inject() = false")
	}
	if m.Inject([]byte("two")) {
		t.Error("second Inject() = true, want false on a full queue")
	}
}

func TestManager_CancelledContextStopsDraining(t *testing.T) {
	m, tr, _, d := newTestManager()
	m.Tick(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr.inbox = [][]byte{[]byte("x")}
	m.Tick(ctx)

	if len(d.got) != 0 {
		t.Errorf("dispatched %v after cancel", d.got)
	}
}

func TestState_String(t *testing.T) {
	if Disconnected.String() != "disconnected" || Connecting.String() != "connecting" || Connected.String() != "connected" {
		t.Error("unexpected state names")
	}
}

func TestManager_RestartStopsDraining(t *testing.T) {
	m, tr, clock, d := newTestManager()
	m.Tick(context.Background())

	d.haltOn = "restart"
	d.replies["restart"] = "restarting"
	d.replies["move_legs"] = "legs moved"
	tr.inbox = [][]byte{[]byte("restart"), []byte("move_legs")}
	if !m.Inject([]byte("local")) {
		t.Fatal("Inject() = false")
	}
	m.Tick(context.Background())

	if len(d.got) != 1 || d.got[0] != "restart" {
		t.Fatalf("dispatched %v, want only [restart]", d.got)
	}
	msgs := tr.messages(t)
	if len(msgs) != 2 || msgs[1]["status"] != "restarting" {
		t.Errorf("messages = %v, want connected then restarting", msgs)
	}

	// Later ticks neither dispatch nor heartbeat.
	clock.advance(time.Minute)
	m.Tick(context.Background())
	if len(d.got) != 1 {
		t.Errorf("dispatched %v after restart", d.got)
	}
	if len(tr.sent) != 2 {
		t.Errorf("sent %d messages after restart, want 2", len(tr.sent))
	}
}
