package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/go-ezo/ezo"
	"github.com/arloliu/go-ezo/logger"
	"github.com/arloliu/go-ezo/simulator"
	"github.com/arloliu/go-ezo/transport/serial"
)

// Transport types.
const (
	TransportSerial = "serial"
	TransportSim    = "sim"
)

// Config is the ezoctl configuration file.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Transport TransportConfig `yaml:"transport"`
	Log       LogConfig       `yaml:"log"`
	Watch     WatchConfig     `yaml:"watch"`
}

// DeviceConfig selects the circuit.
type DeviceConfig struct {
	Kind string `yaml:"kind"`
	// Address is the I2C address of the circuit; 0 selects the default
	// address of Kind.
	Address int `yaml:"address"`
}

// TransportConfig selects how ezoctl reaches the circuit.
type TransportConfig struct {
	Type            string        `yaml:"type"`
	Port            string        `yaml:"port"`
	Baud            int           `yaml:"baud"`
	ResponseTimeout time.Duration `yaml:"response_timeout"`
	ResponseCodes   bool          `yaml:"response_codes"`
	// SimValue is the reading reported by the simulated circuit; 0 keeps the
	// simulator default of the kind.
	SimValue float64 `yaml:"sim_value"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

type WatchConfig struct {
	Interval    time.Duration `yaml:"interval"`
	MetricsAddr string        `yaml:"metrics_addr"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Kind: "ph",
		},
		Transport: TransportConfig{
			Type:            TransportSerial,
			Baud:            serial.DefaultBaudRate,
			ResponseTimeout: serial.DefaultResponseTimeout,
			ResponseCodes:   true,
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
		Watch: WatchConfig{
			Interval: 2 * time.Second,
		},
	}
}

// LoadConfig reads a YAML configuration file. Keys missing from the file keep
// their DefaultConfig values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration before any device is opened.
func (c *Config) Validate() error {
	if _, err := simulator.ParseKind(c.Device.Kind); err != nil {
		return fmt.Errorf("device.kind: %w", err)
	}
	if c.Device.Address != 0 {
		if err := ezo.ValidateAddress(c.Device.Address); err != nil {
			return fmt.Errorf("device.address: %w", err)
		}
	}

	switch c.Transport.Type {
	case TransportSerial:
		if c.Transport.Port == "" {
			return errors.New("transport.port is required for the serial transport")
		}
		if c.Transport.Baud <= 0 {
			return fmt.Errorf("transport.baud: invalid rate %d", c.Transport.Baud)
		}
		if c.Transport.ResponseTimeout <= 0 {
			return fmt.Errorf("transport.response_timeout: must be positive, got %s", c.Transport.ResponseTimeout)
		}
	case TransportSim:
	default:
		return fmt.Errorf("transport.type: unknown transport %q", c.Transport.Type)
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval: must be positive, got %s", c.Watch.Interval)
	}

	return nil
}
