package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cjeanneret/WalkerGo/internal/hw/gpio"
)

// MaxConfigFileBytes bounds the size of a configuration file.
const MaxConfigFileBytes = 64 * 1024

// ServerConfig locates the controller.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Path string `yaml:"path"` // default "/"
}

// SessionConfig holds the connection policy.
type SessionConfig struct {
	HeartbeatIntervalMs int `yaml:"heartbeat_interval_ms"` // default 30000
	ReconnectBackoffMs  int `yaml:"reconnect_backoff_ms"`  // fixed wait after a failed connect, default 5000
	ReadTimeoutMs       int `yaml:"read_timeout_ms"`       // silent link timeout, default 3 heartbeats
	LoopIntervalMs      int `yaml:"loop_interval_ms"`      // control loop period, default 100
}

// LedConfig describes the indicator LED.
type LedConfig struct {
	Pin    int `yaml:"pin"`     // BCM pin, default 17; dimmable only on a hardware PWM pin
	FreqHz int `yaml:"freq_hz"` // PWM frequency, default 1000
}

// ServoConfig describes the leg servos. Both servos of a leg share one pin.
type ServoConfig struct {
	LeftPin    int `yaml:"left_pin"`     // BCM pin, hardware PWM, default 12
	RightPin   int `yaml:"right_pin"`    // BCM pin, other PWM channel, default 13
	MinPulseUs int `yaml:"min_pulse_us"` // pulse at 0°, default 500
	MaxPulseUs int `yaml:"max_pulse_us"` // pulse at 180°, default 2500
	FrameHz    int `yaml:"frame_hz"`     // default 50
}

// GaitConfig holds the waits between gait phases.
type GaitConfig struct {
	StandDelayMs int `yaml:"stand_delay_ms"` // default 1000
	StepDelayMs  int `yaml:"step_delay_ms"`  // default 500
	StopDelayMs  int `yaml:"stop_delay_ms"`  // default 1000
	SweepDelayMs int `yaml:"sweep_delay_ms"` // default 50
	SweepStepDeg int `yaml:"sweep_step_deg"` // default 5
}

// DisplayConfig describes the render surface.
type DisplayConfig struct {
	Width  int `yaml:"width"`  // default 128
	Height int `yaml:"height"` // default 64
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DeviceID   string `yaml:"device_id"`   // reported in every outbound message
	DebugLevel int    `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool   `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Session  SessionConfig  `yaml:"session"`
	Led      LedConfig      `yaml:"led"`
	Servo    ServoConfig    `yaml:"servo"`
	Gait     GaitConfig     `yaml:"gait"`
	Display  DisplayConfig  `yaml:"display"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// ValidateConfigPath accepts only .yaml files directly inside a configs/
// directory, without any ".." element.
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("config path %q must not contain ..", path)
		}
	}
	if filepath.Ext(path) != ".yaml" {
		return fmt.Errorf("config path %q must end in .yaml", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if filepath.Base(filepath.Dir(abs)) != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	if err := ValidateConfigPath(path); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file is %d bytes, limit is %d", info.Size(), MaxConfigFileBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Path == "" {
		c.Server.Path = "/"
	}
	if c.Session.HeartbeatIntervalMs <= 0 {
		c.Session.HeartbeatIntervalMs = 30000
	}
	if c.Session.ReconnectBackoffMs <= 0 {
		c.Session.ReconnectBackoffMs = 5000
	}
	if c.Session.ReadTimeoutMs <= 0 {
		c.Session.ReadTimeoutMs = 3 * c.Session.HeartbeatIntervalMs
	}
	if c.Session.LoopIntervalMs <= 0 {
		c.Session.LoopIntervalMs = 100
	}
	// Pin 0 is reserved for the HAT EEPROM, so 0 means "not set".
	if c.Led.Pin == 0 {
		c.Led.Pin = 17
	}
	if c.Servo.LeftPin == 0 {
		c.Servo.LeftPin = 12
	}
	if c.Servo.RightPin == 0 {
		c.Servo.RightPin = 13
	}
	if c.Led.FreqHz <= 0 {
		c.Led.FreqHz = 1000
	}
	if c.Servo.MinPulseUs <= 0 {
		c.Servo.MinPulseUs = 500
	}
	if c.Servo.MaxPulseUs <= 0 {
		c.Servo.MaxPulseUs = 2500
	}
	if c.Servo.FrameHz <= 0 {
		c.Servo.FrameHz = 50
	}
	if c.Gait.StandDelayMs <= 0 {
		c.Gait.StandDelayMs = 1000
	}
	if c.Gait.StepDelayMs <= 0 {
		c.Gait.StepDelayMs = 500
	}
	if c.Gait.StopDelayMs <= 0 {
		c.Gait.StopDelayMs = 1000
	}
	if c.Gait.SweepDelayMs <= 0 {
		c.Gait.SweepDelayMs = 50
	}
	if c.Gait.SweepStepDeg <= 0 {
		c.Gait.SweepStepDeg = 5
	}
	if c.Display.Width <= 0 {
		c.Display.Width = 128
	}
	if c.Display.Height <= 0 {
		c.Display.Height = 64
	}
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	if c.Defaults.DeviceID == "" {
		return fmt.Errorf("defaults.device_id is required")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		return fmt.Errorf("server.path must start with /, got %q", c.Server.Path)
	}
	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}
	if c.Servo.MinPulseUs >= c.Servo.MaxPulseUs {
		return fmt.Errorf("servo.min_pulse_us (%d) must be below servo.max_pulse_us (%d)", c.Servo.MinPulseUs, c.Servo.MaxPulseUs)
	}
	if c.Gait.SweepStepDeg > 180 {
		return fmt.Errorf("gait.sweep_step_deg must be <= 180, got %d", c.Gait.SweepStepDeg)
	}
	if c.Servo.LeftPin == c.Servo.RightPin {
		return fmt.Errorf("servo.left_pin and servo.right_pin must differ, both are %d", c.Servo.LeftPin)
	}
	if c.Led.Pin == c.Servo.LeftPin || c.Led.Pin == c.Servo.RightPin {
		return fmt.Errorf("led.pin %d is already used by a servo", c.Led.Pin)
	}
	if !c.Defaults.MockGPIO {
		return c.validatePWMChannels()
	}
	return nil
}

// validatePWMChannels checks pin assignment against the two hardware PWM
// channels of the Raspberry Pi.
func (c *Config) validatePWMChannels() error {
	left, ok := gpio.PWMChannel(c.Servo.LeftPin)
	if !ok {
		return fmt.Errorf("servo.left_pin %d is not a hardware PWM pin", c.Servo.LeftPin)
	}
	right, ok := gpio.PWMChannel(c.Servo.RightPin)
	if !ok {
		return fmt.Errorf("servo.right_pin %d is not a hardware PWM pin", c.Servo.RightPin)
	}
	if left == right {
		return fmt.Errorf("servo pins %d and %d share PWM channel %d", c.Servo.LeftPin, c.Servo.RightPin, left)
	}
	if _, ok := gpio.PWMChannel(c.Led.Pin); ok {
		return fmt.Errorf("led.pin %d shares a PWM channel with a servo", c.Led.Pin)
	}
	return nil
}

// ServerURL returns the websocket URL of the controller.
func (c *Config) ServerURL() string {
	return "ws://" + net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port)) + c.Server.Path
}

// HeartbeatInterval returns the time between two heartbeats.
func (c *Config) HeartbeatInterval() time.Duration {
	return ms(c.Session.HeartbeatIntervalMs)
}

// ReconnectBackoff returns the wait after a failed connect.
func (c *Config) ReconnectBackoff() time.Duration {
	return ms(c.Session.ReconnectBackoffMs)
}

// ReadTimeout returns how long the link may stay silent.
func (c *Config) ReadTimeout() time.Duration {
	return ms(c.Session.ReadTimeoutMs)
}

// LoopInterval returns the control loop period.
func (c *Config) LoopInterval() time.Duration {
	return ms(c.Session.LoopIntervalMs)
}

// MinPulse returns the servo pulse width at 0°.
func (c *Config) MinPulse() time.Duration {
	return time.Duration(c.Servo.MinPulseUs) * time.Microsecond
}

// MaxPulse returns the servo pulse width at 180°.
func (c *Config) MaxPulse() time.Duration {
	return time.Duration(c.Servo.MaxPulseUs) * time.Microsecond
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
