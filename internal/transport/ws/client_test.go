package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{}

// controllerServer accepts one connection at a time, sends hello, and
// forwards everything it reads to got. Closing kill drops the connection.
func controllerServer(t *testing.T, got chan<- string, kill <-chan struct{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"welcome","message":"hello"}`)); err != nil {
			return
		}
		go func() {
			<-kill
			conn.Close()
		}()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			got <- string(data)
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestClient_ConnectReceiveSend(t *testing.T) {
	got := make(chan string, 4)
	kill := make(chan struct{})
	defer close(kill)
	srv := controllerServer(t, got, kill)
	defer srv.Close()

	c := New(DefaultConfig(wsURL(srv)))
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()

	if !c.Available() {
		t.Fatal("Available() = false after connect")
	}

	var payload []byte
	waitFor(t, "welcome", func() bool {
		p, ok := c.Receive()
		payload = p
		return ok
	})
	if !strings.Contains(string(payload), "welcome") {
		t.Errorf("received %s", payload)
	}
	if c.Received() != 1 {
		t.Errorf("Received() = %d, want 1", c.Received())
	}

	if err := c.Send([]byte(`{"type":"status","status":"connected"}`)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	select {
	case msg := <-got:
		if !strings.Contains(msg, `"connected"`) {
			t.Errorf("server got %s", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never got the message")
	}
}

func TestClient_ServerDropMarksUnavailable(t *testing.T) {
	got := make(chan string, 4)
	kill := make(chan struct{})
	srv := controllerServer(t, got, kill)
	defer srv.Close()

	c := New(DefaultConfig(wsURL(srv)))
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()

	close(kill)
	waitFor(t, "unavailable", func() bool { return !c.Available() })
}

func TestClient_ReconnectReplacesConnection(t *testing.T) {
	got := make(chan string, 4)
	kill := make(chan struct{})
	defer close(kill)
	srv := controllerServer(t, got, kill)
	defer srv.Close()

	c := New(DefaultConfig(wsURL(srv)))
	for i := 0; i < 2; i++ {
		if err := c.Connect(context.Background()); err != nil {
			t.Fatalf("Connect() #%d error = %v", i+1, err)
		}
	}
	defer c.Close()

	if !c.Available() {
		t.Error("Available() = false after reconnect")
	}
	if err := c.Send([]byte("ping")); err != nil {
		t.Errorf("Send() after reconnect error = %v", err)
	}
}

func TestClient_DialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(srv)
	srv.Close()

	c := New(DefaultConfig(url))
	if err := c.Connect(context.Background()); err == nil {
		t.Fatal("Connect() to a closed server should fail")
	}
	if c.Available() {
		t.Error("Available() = true after failed dial")
	}
}

func TestClient_SendWithoutConnection(t *testing.T) {
	c := New(DefaultConfig("ws://127.0.0.1:1/"))
	if c.URL() != "ws://127.0.0.1:1/" {
		t.Errorf("URL() = %q", c.URL())
	}
	if err := c.Send([]byte("x")); err != ErrNotConnected {
		t.Errorf("Send() error = %v, want ErrNotConnected", err)
	}
	if _, ok := c.Receive(); ok {
		t.Error("Receive() should be empty without a connection")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on idle client error = %v", err)
	}
}
