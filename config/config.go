// Package config is the device configuration shipped with the robot
// image. One yaml file read once at startup; components receive the
// parts they need by value and never look configuration up at runtime.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPath     = "/etc/farmd/config.yaml"
	DefaultDataRoot = "/var/lib/farmd"

	defaultProbeHost      = "fleet.farm.example"
	defaultNTPPool        = "pool.ntp.org"
	defaultUpdateInterval = Duration(time.Hour)
)

// Duration is a time.Duration that unmarshals from yaml strings like
// "30m" or "1h".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Interface configures one network interface the device watches.
type Interface struct {
	Name    string `yaml:"name"`
	Mode    string `yaml:"mode"`              // "dhcp" or "static"
	Address string `yaml:"address,omitempty"` // CIDR, static mode only
}

// Prefix parses the static address. Only valid after Validate.
func (i Interface) Prefix() netip.Prefix {
	prefix, _ := netip.ParsePrefix(i.Address)
	return prefix
}

// LEDs maps indicator roles to GPIO line numbers. -1 disables a role.
type LEDs struct {
	Power   int `yaml:"power"`
	Network int `yaml:"network"`
	Fault   int `yaml:"fault"`
}

// Camera configures the external capture pipeline.
type Camera struct {
	Command []string `yaml:"command,omitempty"`
}

// Seeds are factory credentials applied on first boot.
type Seeds struct {
	Email    string `yaml:"email,omitempty"`
	Password string `yaml:"password,omitempty"`
	Server   string `yaml:"server,omitempty"`
}

// Device is the full device configuration.
type Device struct {
	DataRoot  string `yaml:"data_root,omitempty"`
	LogLevel  string `yaml:"log_level,omitempty"`
	ProbeHost string `yaml:"probe_host,omitempty"`
	NTPPool   string `yaml:"ntp_pool,omitempty"`

	Interfaces []Interface `yaml:"interfaces"`

	UpdateURL      string   `yaml:"update_url,omitempty"`
	UpdateInterval Duration `yaml:"update_interval,omitempty"`

	// Init lists identities of first-boot strategies to run during the
	// init phase, in order.
	Init []string `yaml:"init,omitempty"`

	LEDs      LEDs           `yaml:"leds,omitempty"`
	GPIOPins  map[string]int `yaml:"gpio_pins,omitempty"`
	Camera    Camera         `yaml:"camera,omitempty"`
	FirstBoot Seeds          `yaml:"first_boot,omitempty"`
}

// Load reads and validates the device configuration. A missing file
// yields the defaults: a robot must come up even with a damaged
// config partition.
func Load(path string) (Device, error) {
	cfg := Device{LEDs: LEDs{Power: -1, Network: -1, Fault: -1}}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.applyDefaults()
			return cfg, nil
		}
		return Device{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Device{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Device{}, err
	}
	return cfg, nil
}

func (d *Device) applyDefaults() {
	if d.DataRoot == "" {
		d.DataRoot = DefaultDataRoot
	}
	if d.LogLevel == "" {
		d.LogLevel = "info"
	}
	if d.ProbeHost == "" {
		d.ProbeHost = defaultProbeHost
	}
	if d.NTPPool == "" {
		d.NTPPool = defaultNTPPool
	}
	if d.UpdateInterval <= 0 {
		d.UpdateInterval = defaultUpdateInterval
	}
}

// Validate rejects configurations the daemon cannot act on.
func (d Device) Validate() error {
	for _, iface := range d.Interfaces {
		if iface.Name == "" {
			return errors.New("interface with empty name")
		}
		switch iface.Mode {
		case "dhcp":
			if iface.Address != "" {
				return fmt.Errorf("interface %s: address set in dhcp mode", iface.Name)
			}
		case "static":
			if _, err := netip.ParsePrefix(iface.Address); err != nil {
				return fmt.Errorf("interface %s: invalid static address %q: %w", iface.Name, iface.Address, err)
			}
		default:
			return fmt.Errorf("interface %s: unknown mode %q", iface.Name, iface.Mode)
		}
	}
	return nil
}
