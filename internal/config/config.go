package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"ember/kernel"
)

// Config holds the board configuration.
type Config struct {
	Kernel KernelConfig `yaml:"kernel"`
	Timer  TimerConfig  `yaml:"timer"`
	Trace  TraceConfig  `yaml:"trace"`
	Client ClientConfig `yaml:"client"`
	Serial SerialConfig `yaml:"serial"`
}

// KernelConfig sizes the scheduler.
type KernelConfig struct {
	MaxTasks       int    `yaml:"max_tasks"`
	MaxServices    int    `yaml:"max_services"`
	MaxPeriodic    int    `yaml:"max_periodic"`
	Tick           string `yaml:"tick"`
	AbortOnOverrun bool   `yaml:"abort_on_overrun"`
	RealTime       bool   `yaml:"real_time"`
}

// TimerConfig configures the auxiliary heartbeat timer.
type TimerConfig struct {
	Heartbeat string `yaml:"heartbeat"` // 0 disables
	Pin       string `yaml:"pin"`
}

// TraceConfig configures the scheduling trace buffer.
type TraceConfig struct {
	Enabled  bool `yaml:"enabled"`
	Capacity int  `yaml:"capacity"`
	Print    bool `yaml:"print"`
}

// ClientConfig configures the pub/sub uplink. An empty broker disables it.
type ClientConfig struct {
	Broker    string `yaml:"broker"`
	ID        string `yaml:"id"`
	KeepAlive string `yaml:"keepalive"`
	Topic     string `yaml:"topic"`
}

// SerialConfig selects the diagnostic serial port. An empty device means
// stdout.
type SerialConfig struct {
	Device string `yaml:"device"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() *Config {
	return &Config{
		Kernel: KernelConfig{
			MaxTasks:    8,
			MaxServices: 8,
			MaxPeriodic: 7,
			Tick:        "5ms",
			RealTime:    true,
		},
		Timer: TimerConfig{
			Heartbeat: "500ms",
			Pin:       "GPIO1",
		},
		Trace: TraceConfig{
			Enabled:  true,
			Capacity: 128,
		},
		Client: ClientConfig{
			KeepAlive: "15s",
			Topic:     "ember/ticks",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("EMBER_BROKER"); v != "" {
		c.Client.Broker = v
	}
	if v := os.Getenv("EMBER_SERIAL"); v != "" {
		c.Serial.Device = v
	}
}

// GetTick returns the kernel tick, falling back to 5ms.
func (c *Config) GetTick() time.Duration {
	return parseDuration(c.Kernel.Tick, 5*time.Millisecond)
}

// GetHeartbeat returns the heartbeat period. Zero disables the heartbeat.
func (c *Config) GetHeartbeat() time.Duration {
	return parseDuration(c.Timer.Heartbeat, 0)
}

// GetKeepAlive returns the uplink keepalive, falling back to 15s.
func (c *Config) GetKeepAlive() time.Duration {
	return parseDuration(c.Client.KeepAlive, 15*time.Second)
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	// Zero sizes select the kernel defaults.
	if c.Kernel.MaxTasks < 0 {
		return fmt.Errorf("config: kernel.max_tasks must not be negative")
	}
	if c.Kernel.MaxServices < 0 {
		return fmt.Errorf("config: kernel.max_services must not be negative")
	}
	tasks := c.Kernel.MaxTasks
	if tasks == 0 {
		tasks = kernel.DefaultConfig().MaxTasks
	}
	if c.Kernel.MaxPeriodic < 0 || c.Kernel.MaxPeriodic > tasks {
		return fmt.Errorf("config: kernel.max_periodic must be within [0, max_tasks]")
	}
	if c.Kernel.Tick != "" {
		if _, err := time.ParseDuration(c.Kernel.Tick); err != nil {
			return fmt.Errorf("config: kernel.tick: %w", err)
		}
	}
	if c.GetTick() < time.Millisecond {
		return fmt.Errorf("config: kernel.tick must be at least 1ms")
	}
	if c.Timer.Heartbeat != "" {
		if _, err := time.ParseDuration(c.Timer.Heartbeat); err != nil {
			return fmt.Errorf("config: timer.heartbeat: %w", err)
		}
	}
	if c.Client.KeepAlive != "" {
		if _, err := time.ParseDuration(c.Client.KeepAlive); err != nil {
			return fmt.Errorf("config: client.keepalive: %w", err)
		}
	}
	if c.Trace.Capacity < 0 {
		return fmt.Errorf("config: trace.capacity must not be negative")
	}
	return nil
}

// ToKernel maps the file settings onto a kernel configuration.
func (c *Config) ToKernel(logger *zap.Logger, tracer kernel.Tracer) kernel.Config {
	return kernel.Config{
		MaxTasks:       c.Kernel.MaxTasks,
		MaxServices:    c.Kernel.MaxServices,
		MaxPeriodic:    c.Kernel.MaxPeriodic,
		Tick:           c.GetTick(),
		AbortOnOverrun: c.Kernel.AbortOnOverrun,
		RealTime:       c.Kernel.RealTime,
		Logger:         logger,
		Tracer:         tracer,
	}
}
