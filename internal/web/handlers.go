package web

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/cjeanneret/WalkerGo/internal/protocol"
)

// MaxCommandBytes bounds the body of POST /command.
const MaxCommandBytes = 4 << 10

// Injector queues an inbound payload for the control loop.
type Injector interface {
	Inject(payload []byte) bool
}

// DeviceInfo is the static part of GET /device.
type DeviceInfo struct {
	DeviceID string `json:"device_id"`
	Endpoint string `json:"endpoint"`
}

// deviceResponse is the body of GET /device.
type deviceResponse struct {
	DeviceInfo
	Link       LinkState `json:"link"`
	LastStatus string    `json:"last_status,omitempty"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Injector    Injector
	Device      DeviceInfo
	staticFS    fs.FS
}

// NewHandlers creates handlers with the given dependencies.
// If injector is nil, POST /command will return 503 Service Unavailable.
func NewHandlers(broadcaster *StatusBroadcaster, injector Injector, device DeviceInfo, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster: broadcaster,
		Injector:    injector,
		Device:      device,
		staticFS:    staticFS,
	}
}

// HandleDevice returns the device identity and its last known link state.
func (h *Handlers) HandleDevice(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(deviceResponse{
		DeviceInfo: h.Device,
		Link:       h.Broadcaster.Link(),
		LastStatus: h.Broadcaster.LastStatus(),
	})
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleCommand handles POST /command: the body is an inbound message, in
// the same format the controller sends, queued for the control loop. The
// resulting status shows up on the status stream.
func (h *Handlers) HandleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxCommandBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, "command too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "read body failed", http.StatusBadRequest)
		return
	}

	cmd := protocol.Decode(body)
	if u, ok := cmd.(protocol.Unknown); ok {
		http.Error(w, "unroutable command: "+u.Reason, http.StatusBadRequest)
		return
	}

	if h.Injector == nil {
		http.Error(w, "command injection not configured", http.StatusServiceUnavailable)
		return
	}
	if !h.Injector.Inject(body) {
		http.Error(w, "command queue full", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "queued",
		"type":   string(cmd.Type()),
	})
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
