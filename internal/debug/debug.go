package debug

import (
	"io"
	"log"
	"os"
)

// Debug levels
const (
	LevelOff     = 0 // No output
	LevelInfo    = 1 // Important info (connection changes, startup)
	LevelLive    = 2 // Live info (commands received, status sent)
	LevelVerbose = 3 // Verbose (gait phases, payload details)
	LevelTrace   = 4 // Trace (GPIO, PWM, very low level)
)

var (
	level  int
	out    io.Writer = os.Stdout
	logger *log.Logger
)

// Init initializes the debug system with a level (0-4).
// 0 = no output
// 1 = important info (connection state, configuration)
// 2 = live info (commands, status messages, heartbeats)
// 3 = verbose (gait phases, decoded payloads)
// 4 = trace (GPIO, PWM duty cycles)
func Init(debugLevel int) {
	level = debugLevel
	if level > LevelOff {
		logger = log.New(out, "[Walker] ", log.LstdFlags|log.Lmicroseconds)
	} else {
		logger = nil
	}
}

// SetOutput redirects debug output (e.g. to stdout and the web console).
func SetOutput(w io.Writer) {
	out = w
	if logger != nil {
		logger.SetOutput(w)
	}
}

// --- Level 1 functions (Info): important info ---

// Info prints a level 1 message (important info).
func Info(format string, args ...interface{}) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[INFO] "+format, args...)
	}
}

// Summary prints an important banner (level 1).
func Summary(title string) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("═══════════════════════════════════════")
		logger.Printf("  %s", title)
		logger.Printf("═══════════════════════════════════════")
	}
}

// Connection prints a session state change (level 1).
func Connection(state string, endpoint string) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[INFO] Session %s (%s)", state, endpoint)
	}
}

// --- Level 2 functions (Live): real-time info ---

// Live prints a level 2 message (live info).
func Live(format string, args ...interface{}) {
	if level >= LevelLive && logger != nil {
		logger.Printf("[LIVE] "+format, args...)
	}
}

// Command prints an inbound command (level 2).
func Command(kind, action, from string) {
	if level >= LevelLive && logger != nil {
		if from == "" {
			logger.Printf("[LIVE] Command %s action=%q", kind, action)
			return
		}
		logger.Printf("[LIVE] Command %s action=%q from=%s", kind, action, from)
	}
}

// Status prints an outbound status message (level 2).
func Status(msg string) {
	if level >= LevelLive && logger != nil {
		logger.Printf("[LIVE] Status -> %q", msg)
	}
}

// --- Level 3 functions (Verbose): everything ---

// Verbose prints a level 3 message (verbose).
func Verbose(format string, args ...interface{}) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("[VERBOSE] "+format, args...)
	}
}

// PrintStruct prints a struct in formatted form (level 3).
func PrintStruct(name string, v interface{}) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("[VERBOSE] %s: %+v", name, v)
	}
}

// Section prints a section separator (level 3).
func Section(name string) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		logger.Printf("  %s", name)
		logger.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	}
}

// Step prints a numbered step (level 3).
func Step(num int, description string) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("[VERBOSE] Step %d: %s", num, description)
	}
}

// Pose prints a leg pose written during a gait (level 3).
func Pose(phase string, left, right int) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("[VERBOSE] %s: left=%d right=%d", phase, left, right)
	}
}

// Value prints a named value in formatted form (level 1).
func Value(name string, value interface{}) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[INFO]   %s = %v", name, value)
	}
}

// --- Level 4 functions (Trace): very low level ---

// Trace prints a level 4 message (trace, GPIO).
func Trace(format string, args ...interface{}) {
	if level >= LevelTrace && logger != nil {
		logger.Printf("[TRACE] "+format, args...)
	}
}

// GPIO prints a GPIO operation (level 4).
func GPIO(operation string, pin int, value interface{}) {
	if level >= LevelTrace && logger != nil {
		logger.Printf("[GPIO] %s pin=%d value=%v", operation, pin, value)
	}
}

// PWM prints a duty cycle update (level 4).
func PWM(pin int, duty, cycle uint32) {
	if level >= LevelTrace && logger != nil {
		logger.Printf("[PWM] pin=%d duty=%d/%d", pin, duty, cycle)
	}
}

// --- General functions ---

// Error prints a debug error (level 1+).
func Error(err error) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[ERROR] %v", err)
	}
}
