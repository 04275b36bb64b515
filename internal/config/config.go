package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level structure of a staging plan file.
type Config struct {
	Targets []TargetConfig `yaml:"targets"`
}

// TargetConfig describes one remote host and the staging work to perform
// on it.
type TargetConfig struct {
	Alias   string            `yaml:"alias"`    // SSH alias or hostname
	BaseDir string            `yaml:"base_dir"` // local dir for relative puts / default gets
	Pattern string            `yaml:"pattern"`  // optional mktemp template
	Put     []string          `yaml:"put"`      // local files/dirs to stage
	Run     string            `yaml:"run"`      // payload command line ("local/bin --args")
	Env     map[string]string `yaml:"env"`      // exported for the payload
	Get     []string          `yaml:"get"`      // files to fetch afterwards
	Dest    string            `yaml:"dest"`     // where Get downloads to (default base_dir)
	Keep    bool              `yaml:"keep"`     // skip cleanup, leave the dir for inspection
	Wake    *WakeConfig       `yaml:"wake"`     // optional wake-on-LAN before connecting
}

// WakeConfig defines how to wake a powered-down target.
type WakeConfig struct {
	MAC       string `yaml:"mac"`
	IP        string `yaml:"ip"`
	Port      int    `yaml:"port"`      // port to wait for, default 22
	Broadcast string `yaml:"broadcast"` // default 255.255.255.255
	Timeout   string `yaml:"timeout"`   // e.g. "120s"
}

// ParseConfig parses YAML content into a Config struct.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate ensures the configuration is valid.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return fmt.Errorf("no targets defined in config")
	}

	for i, target := range c.Targets {
		if target.Alias == "" {
			return fmt.Errorf("target #%d missing alias", i)
		}
		if len(target.Put) == 0 && target.Run == "" {
			return fmt.Errorf("target %s has nothing to do: needs put or run", target.Alias)
		}
		if len(target.Env) > 0 && target.Run == "" {
			return fmt.Errorf("target %s sets env without a run command", target.Alias)
		}
		if w := target.Wake; w != nil {
			if w.MAC == "" {
				return fmt.Errorf("target %s wake block missing mac", target.Alias)
			}
			if w.IP == "" {
				return fmt.Errorf("target %s wake block missing ip", target.Alias)
			}
			if w.Timeout != "" {
				if _, err := time.ParseDuration(w.Timeout); err != nil {
					return fmt.Errorf("target %s invalid wake timeout: %v", target.Alias, err)
				}
			}
		}
	}
	return nil
}

// WakeTimeout returns the parsed timeout, defaulting to two minutes.
func (w *WakeConfig) WakeTimeout() time.Duration {
	if w.Timeout == "" {
		return 2 * time.Minute
	}
	d, err := time.ParseDuration(w.Timeout)
	if err != nil {
		return 2 * time.Minute
	}
	return d
}

// WakePort returns the port to wait on after waking, defaulting to ssh.
func (w *WakeConfig) WakePort() int {
	if w.Port == 0 {
		return 22
	}
	return w.Port
}

// BroadcastAddr returns the broadcast address for the magic packet.
func (w *WakeConfig) BroadcastAddr() string {
	if w.Broadcast == "" {
		return "255.255.255.255"
	}
	return w.Broadcast
}
