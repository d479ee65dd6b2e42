package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
	"unicode"

	"github.com/cjeanneret/WalkerGo/internal/config"
	"github.com/cjeanneret/WalkerGo/internal/debug"
	"github.com/cjeanneret/WalkerGo/internal/dispatch"
	"github.com/cjeanneret/WalkerGo/internal/hw/display"
	"github.com/cjeanneret/WalkerGo/internal/hw/gpio"
	"github.com/cjeanneret/WalkerGo/internal/hw/pwmled"
	"github.com/cjeanneret/WalkerGo/internal/hw/servo"
	"github.com/cjeanneret/WalkerGo/internal/logic/actuator"
	"github.com/cjeanneret/WalkerGo/internal/logic/face"
	"github.com/cjeanneret/WalkerGo/internal/logic/gait"
	"github.com/cjeanneret/WalkerGo/internal/logic/led"
	"github.com/cjeanneret/WalkerGo/internal/session"
	"github.com/cjeanneret/WalkerGo/internal/transport/ws"
	"github.com/cjeanneret/WalkerGo/internal/web"
)

// maxDeviceIDLen bounds -device_id; the controller shows it in its UI.
const maxDeviceIDLen = 64

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web console on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	server := flag.String("server", "", "override controller address as host:port")
	deviceID := flag.String("device_id", "", "override device identifier")
	flag.Parse()

	if err := validateCLIOverrides(*server, *deviceID); err != nil {
		log.Fatalf("invalid CLI override: %v", err)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	applyOverrides(cfg, overrides{Server: *server, DeviceID: *deviceID})

	restart, err := run(cfg, *cfgPath, webPort.port())
	if err != nil {
		log.Fatalf("walker: %v", err)
	}
	if restart {
		// Hardware and the link are released by run before the image is replaced.
		if err := restartProcess(); err != nil {
			log.Fatalf("restart failed: %v", err)
		}
	}
}

// run brings up the robot and drives the control loop until a signal or a
// restart request. It reports whether a restart was requested.
func run(cfg *config.Config, cfgPath string, webPort int) (bool, error) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.Value("Device ID", cfg.Defaults.DeviceID)

	var broadcaster *web.StatusBroadcaster
	if webPort > 0 {
		broadcaster = web.NewStatusBroadcaster()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))
	}

	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)
	debug.Step(1, "Initializing GPIO driver")
	gpioDriver, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		return false, fmt.Errorf("init GPIO: %w", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			log.Printf("closing GPIO driver failed: %v", err)
		}
	}()

	debug.Step(2, "Initializing leg servos")
	leftServo, err := newServo(gpioDriver, cfg, cfg.Servo.LeftPin)
	if err != nil {
		return false, err
	}
	rightServo, err := newServo(gpioDriver, cfg, cfg.Servo.RightPin)
	if err != nil {
		return false, err
	}
	defer func() {
		for _, s := range []*servo.Servo{leftServo, rightServo} {
			if err := s.Release(); err != nil {
				log.Printf("releasing servo failed: %v", err)
			}
		}
	}()
	debug.PrintStruct("Servo config", cfg.Servo)

	debug.Step(3, "Initializing LED")
	ledOut, err := pwmled.New(gpioDriver, pwmled.Config{Pin: cfg.Led.Pin, FreqHz: cfg.Led.FreqHz})
	if err != nil {
		return false, fmt.Errorf("init LED: %w", err)
	}
	debug.Value("LED pin", cfg.Led.Pin)
	debug.Value("LED dimmable", ledOut.Dimmable())

	debug.Step(4, "Initializing display")
	faceCtrl := face.NewController(display.NewTraceSurface(cfg.Display.Width, cfg.Display.Height))
	if err := faceCtrl.Init(); err != nil {
		// The robot still walks without a face.
		debug.Error(err)
	}

	state := actuator.New()
	ledCtrl := led.NewController(ledOut, state)
	legs := gait.NewController(leftServo, rightServo, state, gaitTiming(cfg), nil)

	debug.Step(5, "Standing up")
	legs.StandUp()

	debug.Step(6, "Connecting to controller")
	restarter := &processRestarter{}
	disp := dispatch.New(ledCtrl, legs, faceCtrl, restarter)

	client := ws.New(ws.Config{
		URL:              cfg.ServerURL(),
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReadTimeout:      cfg.ReadTimeout(),
		InboxSize:        64,
	})
	defer func() {
		if err := client.Close(); err != nil {
			log.Printf("closing websocket failed: %v", err)
		}
	}()

	sessCfg := session.DefaultConfig()
	sessCfg.DeviceID = cfg.Defaults.DeviceID
	sessCfg.Endpoint = client.URL()
	sessCfg.HeartbeatInterval = cfg.HeartbeatInterval()
	sessCfg.ReconnectBackoff = cfg.ReconnectBackoff()
	mgr := session.NewManager(client, disp, nil, sessCfg)

	if broadcaster != nil {
		mgr.SetObserver(broadcaster)
		srv := web.NewServer(fmt.Sprintf(":%d", webPort), broadcaster, mgr, web.DeviceInfo{
			DeviceID: mgr.DeviceID(),
			Endpoint: mgr.Endpoint(),
		})
		go func() {
			if err := srv.Run(ctx); err != nil {
				debug.Error(fmt.Errorf("web console: %w", err))
			}
		}()
	}

	debug.Summary("WalkerGo " + mgr.DeviceID() + " -> " + mgr.Endpoint())
	restart := runLoop(ctx, mgr.Tick, cfg.LoopInterval(), restarter)
	if restart {
		debug.Info("Restarting: %s", restarter.reason)
	} else {
		debug.Info("Shutting down")
	}
	debug.Info("Dropped payloads: %d, received frames: %d", disp.Dropped(), client.Received())
	return restart, nil
}

// runLoop calls tick every interval until ctx is done or a restart is
// pending. The pending check follows the tick so the status acknowledging
// the restart has already been sent.
func runLoop(ctx context.Context, tick func(context.Context), interval time.Duration, r *processRestarter) bool {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		tick(ctx)
		if r.Pending() {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

func newServo(g gpio.Driver, cfg *config.Config, pin int) (*servo.Servo, error) {
	s, err := servo.NewServo(g, servo.Config{
		Pin:      pin,
		MinPulse: cfg.MinPulse(),
		MaxPulse: cfg.MaxPulse(),
		FrameHz:  cfg.Servo.FrameHz,
	})
	if err != nil {
		return nil, fmt.Errorf("init servo: %w", err)
	}
	return s, nil
}

func gaitTiming(cfg *config.Config) gait.Timing {
	return gait.Timing{
		StandDelay: time.Duration(cfg.Gait.StandDelayMs) * time.Millisecond,
		StepDelay:  time.Duration(cfg.Gait.StepDelayMs) * time.Millisecond,
		StopDelay:  time.Duration(cfg.Gait.StopDelayMs) * time.Millisecond,
		SweepDelay: time.Duration(cfg.Gait.SweepDelayMs) * time.Millisecond,
		SweepStep:  cfg.Gait.SweepStepDeg,
	}
}

// processRestarter records a restart request; the control loop acts on it.
type processRestarter struct {
	pending bool
	reason  string
}

func (r *processRestarter) RequestRestart(reason string) {
	r.pending = true
	r.reason = reason
}

func (r *processRestarter) Pending() bool { return r.pending }

// restartProcess replaces the running image with a fresh copy of itself.
func restartProcess() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	return syscall.Exec(exe, os.Args, os.Environ())
}

// overrides holds CLI values that replace configuration. Empty means "use config".
type overrides struct {
	Server   string
	DeviceID string
}

// validateCLIOverrides checks non-empty CLI overrides.
func validateCLIOverrides(server, deviceID string) error {
	if server != "" {
		host, port, err := net.SplitHostPort(server)
		if err != nil {
			return fmt.Errorf("server must be host:port, got %q: %w", server, err)
		}
		if host == "" {
			return fmt.Errorf("server host is empty in %q", server)
		}
		p, err := strconv.Atoi(port)
		if err != nil || p < 1 || p > 65535 {
			return fmt.Errorf("server port must be between 1 and 65535, got %q", port)
		}
	}
	if deviceID != "" {
		if len(deviceID) > maxDeviceIDLen {
			return fmt.Errorf("device_id must be at most %d bytes, got %d", maxDeviceIDLen, len(deviceID))
		}
		if strings.IndexFunc(deviceID, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
			return fmt.Errorf("device_id must not contain spaces or control characters, got %q", deviceID)
		}
	}
	return nil
}

// applyOverrides mutates cfg with validated overrides. Empty values are skipped.
func applyOverrides(cfg *config.Config, o overrides) {
	if o.Server != "" {
		if host, port, err := net.SplitHostPort(o.Server); err == nil {
			if p, err := strconv.Atoi(port); err == nil {
				cfg.Server.Host = host
				cfg.Server.Port = p
			}
		}
	}
	if o.DeviceID != "" {
		cfg.Defaults.DeviceID = o.DeviceID
	}
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
