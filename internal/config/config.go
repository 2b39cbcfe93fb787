package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Radio driver names accepted by RadioConfig.Driver.
const (
	DriverBLE    = "ble"
	DriverSerial = "serial"
	DriverSim    = "sim"
)

// Config represents the application configuration
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Radio     RadioConfig     `yaml:"radio"`
	Hardware  HardwareConfig  `yaml:"hardware"`
	Actuation ActuationConfig `yaml:"actuation"`
	Notifier  NotifierConfig  `yaml:"notifier"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Health    HealthConfig    `yaml:"health"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	UseJSON bool   `yaml:"json"`
	Colors  bool   `yaml:"colors"`
}

// GetLevel returns the configured log level with default
func (c *LogConfig) GetLevel() string {
	if c.Level == "" {
		return "info"
	}
	return c.Level
}

// RadioConfig selects and configures the command/status transport.
type RadioConfig struct {
	Driver string `yaml:"driver"` // ble | serial | sim

	// BLE driver settings
	LocalName       string `yaml:"local_name"`
	ServiceUUID     string `yaml:"service_uuid"`
	CommandCharUUID string `yaml:"command_char_uuid"`
	StatusCharUUID  string `yaml:"status_char_uuid"`

	// Serial driver settings (UART BLE bridge module)
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`

	// Inbound flood protection
	QueueSize    int     `yaml:"queue_size"`
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
}

// HardwareConfig captures fixed electrical characteristics of the build.
type HardwareConfig struct {
	// ActiveLow is true for common-anode output stages: every channel
	// value is complemented before it reaches the driver.
	ActiveLow *bool `yaml:"active_low"`

	// AmbientInverted makes brighter surroundings dim the lamp.
	AmbientInverted *bool `yaml:"ambient_inverted"`
}

// IsActiveLow returns the output polarity with default (common-anode).
func (c *HardwareConfig) IsActiveLow() bool {
	if c.ActiveLow == nil {
		return true
	}
	return *c.ActiveLow
}

// IsAmbientInverted returns the ambient mapping direction with default.
func (c *HardwareConfig) IsAmbientInverted() bool {
	if c.AmbientInverted == nil {
		return true
	}
	return *c.AmbientInverted
}

// ActuationConfig contains actuation loop settings
type ActuationConfig struct {
	Period     Duration `yaml:"period"`
	Saturation int      `yaml:"saturation"`
}

// NotifierConfig contains status broadcast settings
type NotifierConfig struct {
	Interval Duration `yaml:"interval"`
}

// LedgerConfig contains diagnostics ledger settings
type LedgerConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Path              string   `yaml:"path"`
	RetentionPeriod   Duration `yaml:"retention_period"`
	RetentionInterval Duration `yaml:"retention_interval"`
}

// HealthConfig contains health check server settings
type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	// Radio defaults
	if cfg.Radio.Driver == "" {
		cfg.Radio.Driver = DriverBLE
	}
	if cfg.Radio.LocalName == "" {
		cfg.Radio.LocalName = "lampd"
	}
	if cfg.Radio.ServiceUUID == "" {
		cfg.Radio.ServiceUUID = "b4a90001-2f1e-4c66-9d5b-a1e3c90d5f01"
	}
	if cfg.Radio.CommandCharUUID == "" {
		cfg.Radio.CommandCharUUID = "b4a90002-2f1e-4c66-9d5b-a1e3c90d5f01"
	}
	if cfg.Radio.StatusCharUUID == "" {
		cfg.Radio.StatusCharUUID = "b4a90003-2f1e-4c66-9d5b-a1e3c90d5f01"
	}
	if cfg.Radio.Baud == 0 {
		cfg.Radio.Baud = 9600
	}
	if cfg.Radio.QueueSize == 0 {
		cfg.Radio.QueueSize = 32
	}
	if cfg.Radio.RateLimitRPS == 0 {
		cfg.Radio.RateLimitRPS = 50.0
	}

	// Actuation defaults
	if cfg.Actuation.Period == 0 {
		cfg.Actuation.Period = Duration(50 * time.Millisecond)
	}
	if cfg.Actuation.Saturation == 0 {
		cfg.Actuation.Saturation = 255
	}

	// Notifier defaults
	if cfg.Notifier.Interval == 0 {
		cfg.Notifier.Interval = Duration(1 * time.Second)
	}

	// Ledger defaults
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = "./lampd.sqlite"
	}
	if cfg.Ledger.RetentionPeriod == 0 {
		cfg.Ledger.RetentionPeriod = Duration(7 * 24 * time.Hour)
	}
	if cfg.Ledger.RetentionInterval == 0 {
		cfg.Ledger.RetentionInterval = Duration(24 * time.Hour)
	}

	// Health defaults
	if cfg.Health.Host == "" {
		cfg.Health.Host = "0.0.0.0"
	}
	if cfg.Health.Port == 0 {
		cfg.Health.Port = 9090
	}
}

func validate(cfg *Config) error {
	switch cfg.Radio.Driver {
	case DriverBLE, DriverSerial, DriverSim:
	default:
		return fmt.Errorf("unknown radio driver %q", cfg.Radio.Driver)
	}

	if cfg.Radio.Driver == DriverSerial && cfg.Radio.Port == "" {
		return fmt.Errorf("radio driver %q requires a port", DriverSerial)
	}

	if cfg.Actuation.Saturation < 0 || cfg.Actuation.Saturation > 255 {
		return fmt.Errorf("actuation saturation %d out of range [0,255]", cfg.Actuation.Saturation)
	}

	return nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
