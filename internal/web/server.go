package web

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/cjeanneret/WalkerGo/internal/debug"
)

// shutdownGrace bounds how long open status streams may delay shutdown.
const shutdownGrace = 5 * time.Second

// Server is the robot's local diagnostics console. It never touches the
// actuators itself: commands go through the Injector to the control loop.
type Server struct {
	addr     string
	handlers *Handlers
}

// NewServer builds the console on addr. device is what GET /device reports;
// injector receives POST /command bodies.
func NewServer(addr string, broadcaster *StatusBroadcaster, injector Injector, device DeviceInfo) *Server {
	page, err := fs.Sub(staticFiles, "static")
	if err != nil {
		// static/ is embedded at build time.
		panic(fmt.Sprintf("web: console assets: %v", err))
	}
	return &Server{
		addr:     addr,
		handlers: NewHandlers(broadcaster, injector, device, page),
	}
}

// Mux routes the console endpoints.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /command", s.handlers.HandleCommand)
	mux.HandleFunc("GET /device", s.handlers.HandleDevice)
	mux.HandleFunc("GET /status/stream", s.handlers.HandleStatusStream)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(s.handlers.staticFS))))
	mux.HandleFunc("GET /{$}", s.handlers.ServeIndex)
	return mux
}

// Run serves the console until ctx is cancelled (the robot shuts down or
// restarts), then closes open status streams within shutdownGrace.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Mux()}
	served := make(chan error, 1)
	go func() {
		debug.Info("Web console on %s", s.addr)
		served <- srv.ListenAndServe()
	}()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", s.addr, err)
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(stopCtx)
	}
}
