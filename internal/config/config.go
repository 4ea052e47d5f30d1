// Package config loads and validates the fleet configuration file, the
// lookup table of router model facts, and the timeout/retry tuning the
// transports consume.
package config

import (
	"fmt"
	"time"

	"github.com/avlabs/labelsync/internal/model"
	"github.com/avlabs/labelsync/internal/transport"
)

// DefaultFileName is looked up in the working directory when no --config
// flag is given.
const DefaultFileName = "labelsync.yaml"

// Config is the root of labelsync.yaml.
type Config struct {
	Fleet    []DeviceConfig         `yaml:"fleet" mapstructure:"fleet"`
	Timeouts TimeoutConfig          `yaml:"timeouts" mapstructure:"timeouts"`
	Retry    RetryConfig            `yaml:"retry" mapstructure:"retry"`
	Models   map[string]ModelConfig `yaml:"models" mapstructure:"models"`
}

// DeviceConfig declares one router in the fleet.
type DeviceConfig struct {
	Name     string `yaml:"name" mapstructure:"name"`
	Host     string `yaml:"host" mapstructure:"host"`
	Model    string `yaml:"model" mapstructure:"model"`
	LinePort int    `yaml:"line_port" mapstructure:"line_port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// TimeoutConfig bounds network operations. Values are durations ("5s").
type TimeoutConfig struct {
	Connect time.Duration `yaml:"connect" mapstructure:"connect"`
	Request time.Duration `yaml:"request" mapstructure:"request"`
	Bulk    time.Duration `yaml:"bulk" mapstructure:"bulk"`
}

// RetryConfig tunes the backoff retry around transient transport failures.
type RetryConfig struct {
	Attempts     int           `yaml:"attempts" mapstructure:"attempts"`
	InitialDelay time.Duration `yaml:"initial_delay" mapstructure:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" mapstructure:"multiplier"`
}

// ModelConfig overrides builtin model facts. Per-model label limits and bulk
// support are firmware facts, so they live in configuration rather than in
// engine branches.
type ModelConfig struct {
	MaxLabelLen int   `yaml:"max_label_len" mapstructure:"max_label_len"`
	Bulk        *bool `yaml:"bulk" mapstructure:"bulk"`
	LinePort    int   `yaml:"line_port" mapstructure:"line_port"`
}

// TransportTimeouts converts the config into the transports' timeout set.
func (c *Config) TransportTimeouts() transport.Timeouts {
	return transport.Timeouts{
		Connect: c.Timeouts.Connect,
		Request: c.Timeouts.Request,
		Bulk:    c.Timeouts.Bulk,
	}
}

// ResolveModel returns the model definition for name with any configured
// overrides applied.
func (c *Config) ResolveModel(name string) (model.RouterModel, error) {
	m, err := model.LookupModel(name)
	if err != nil {
		return model.RouterModel{}, err
	}
	if override, ok := c.Models[name]; ok {
		if override.MaxLabelLen > 0 {
			m.MaxLabelLen = override.MaxLabelLen
		}
		if override.Bulk != nil {
			m.BulkCapable = *override.Bulk
		}
		if override.LinePort > 0 {
			m.DefaultLinePort = override.LinePort
		}
	}
	return m, nil
}

// Devices resolves the fleet declarations into runnable Device values, in
// declaration order.
func (c *Config) Devices() ([]model.Device, error) {
	devices := make([]model.Device, 0, len(c.Fleet))
	for _, dc := range c.Fleet {
		m, err := c.ResolveModel(dc.Model)
		if err != nil {
			return nil, fmt.Errorf("device %q: %w", dc.Name, err)
		}
		name := dc.Name
		if name == "" {
			name = dc.Host
		}
		devices = append(devices, model.Device{
			Name:     name,
			Host:     dc.Host,
			Model:    m,
			LinePort: dc.LinePort,
			Username: dc.Username,
			Password: dc.Password,
		})
	}
	return devices, nil
}

// Device finds one fleet device by name or host.
func (c *Config) Device(nameOrHost string) (model.Device, error) {
	devices, err := c.Devices()
	if err != nil {
		return model.Device{}, err
	}
	for _, d := range devices {
		if d.Name == nameOrHost || d.Host == nameOrHost {
			return d, nil
		}
	}
	return model.Device{}, fmt.Errorf("no device %q in fleet", nameOrHost)
}

// Validate checks the configuration for contradictions before any device is
// touched. A malformed configuration is fatal to the run, unlike any
// device-local failure.
func (c *Config) Validate() error {
	if len(c.Fleet) == 0 {
		return fmt.Errorf("fleet is empty: declare at least one device")
	}
	seen := map[string]bool{}
	for i, dc := range c.Fleet {
		if dc.Host == "" {
			return fmt.Errorf("fleet[%d]: host is required", i)
		}
		if dc.Model == "" {
			return fmt.Errorf("fleet[%d] (%s): model is required", i, dc.Host)
		}
		if _, err := c.ResolveModel(dc.Model); err != nil {
			return fmt.Errorf("fleet[%d] (%s): %w", i, dc.Host, err)
		}
		key := dc.Name
		if key == "" {
			key = dc.Host
		}
		if seen[key] {
			return fmt.Errorf("fleet[%d]: duplicate device %q", i, key)
		}
		seen[key] = true
	}
	for name, mc := range c.Models {
		if _, err := model.LookupModel(name); err != nil {
			return fmt.Errorf("models.%s: %w", name, err)
		}
		if mc.MaxLabelLen < 0 {
			return fmt.Errorf("models.%s: max_label_len must not be negative", name)
		}
	}
	if c.Retry.Attempts < 0 {
		return fmt.Errorf("retry.attempts must not be negative")
	}
	return nil
}
