// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Head unit configuration: YAML schema, defaults and validation.

package control

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete head unit configuration.
type Config struct {
	Listen     ListenConfig     `yaml:"listen"`
	USB        USBConfig        `yaml:"usb"`
	Autostart  AutostartConfig  `yaml:"autostart"`
	ControlAPI ControlAPIConfig `yaml:"control_api"`
}

// ListenConfig describes the wireless projection listener. Port 0 binds
// an ephemeral port.
type ListenConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	BindTimeout time.Duration `yaml:"bind_timeout"`
}

// Addr returns host:port for net.Listen.
func (l ListenConfig) Addr() string {
	return net.JoinHostPort(l.Host, strconv.Itoa(l.Port))
}

type USBConfig struct {
	SysfsRoot       string        `yaml:"sysfs_root"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	RearmOnHubError bool          `yaml:"rearm_on_hub_error"`
}

type AutostartConfig struct {
	Disabled bool `yaml:"disabled"`
}

type ControlAPIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen: ListenConfig{
			Port:        5000,
			BindTimeout: 30 * time.Second,
		},
		USB: USBConfig{
			SysfsRoot:    "/sys/bus/usb/devices",
			PollInterval: 500 * time.Millisecond,
		},
		ControlAPI: ControlAPIConfig{
			Enabled: true,
			Addr:    "127.0.0.1:5050",
		},
	}
}

// ParseConfig decodes data over the defaults and validates the result.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads and parses the file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Listen.Port < 0 || c.Listen.Port > 65535:
		return fmt.Errorf("listen.port %d out of range", c.Listen.Port)
	case c.Listen.BindTimeout < 0:
		return fmt.Errorf("listen.bind_timeout must not be negative")
	case c.USB.SysfsRoot == "":
		return fmt.Errorf("usb.sysfs_root is required")
	case c.USB.PollInterval <= 0:
		return fmt.Errorf("usb.poll_interval must be positive")
	case c.ControlAPI.Enabled && c.ControlAPI.Addr == "":
		return fmt.Errorf("control_api.addr is required when the control API is enabled")
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}
