// Package config loads the harness configuration from YAML with sane
// demo defaults: a two-slot pool, the goroutine backend, and the
// staggered workload at one-second units.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/edirooss/taskslot/pkg/hostutil"
	"gopkg.in/yaml.v3"
)

// Duration decodes "250ms"-style YAML scalars.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full harness configuration.
type Config struct {
	Capacity int      `yaml:"capacity"` // slot-set size
	Pool     string   `yaml:"pool"`     // cond | chan | redis
	Backend  string   `yaml:"backend"`  // group | pond
	Workers  int      `yaml:"workers"`  // region worker cap, 0 = unbounded
	Workload string   `yaml:"workload"` // scenario for single-run mode
	Unit     Duration `yaml:"unit"`     // base leaf sleep
	Pace     float64  `yaml:"pace"`     // burst submissions per second, 0 = unpaced

	RedisAddr string `yaml:"redis_address"` // pool: redis
	RedisDB   int    `yaml:"redis_db"`

	Soak SoakConfig `yaml:"soak"`
}

// SoakConfig drives the long-running mode and its status server.
type SoakConfig struct {
	ListenAddr  string        `yaml:"listen_address"`
	Port        string        `yaml:"port"`
	MaxInFlight int           `yaml:"max_inflight"` // status API admission cap
	StatusTTL   Duration      `yaml:"status_ttl"`   // snapshot cache TTL
	Cadences    []CadenceSpec `yaml:"cadences"`
}

// CadenceSpec is one scheduled workload in soak mode.
type CadenceSpec struct {
	Workload string   `yaml:"workload"`
	Every    Duration `yaml:"every"`
}

// Default returns the configuration the harness runs with when no file
// is given.
func Default() *Config {
	return &Config{
		Capacity:  2,
		Pool:      "cond",
		Backend:   "group",
		Workload:  "staggered-tasks",
		Unit:      Duration(time.Second),
		RedisAddr: "localhost:6379",
		Soak: SoakConfig{
			ListenAddr:  "127.0.0.1",
			Port:        "8080",
			MaxInFlight: 64,
			StatusTTL:   Duration(250 * time.Millisecond),
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults untouched.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive, got %d", c.Capacity)
	}
	switch c.Pool {
	case "cond", "chan", "redis":
	default:
		return fmt.Errorf("unknown pool %q (want \"cond\", \"chan\" or \"redis\")", c.Pool)
	}
	switch c.Backend {
	case "group", "pond":
	default:
		return fmt.Errorf("unknown backend %q (want \"group\" or \"pond\")", c.Backend)
	}
	if c.Pool == "redis" {
		if c.RedisAddr == "" {
			return fmt.Errorf("pool %q needs redis_address", c.Pool)
		}
		if err := hostutil.ValidateHostPort(c.RedisAddr); err != nil {
			return fmt.Errorf("redis_address: %w", err)
		}
	}
	if c.Pace < 0 {
		return fmt.Errorf("pace must not be negative, got %v", c.Pace)
	}
	if err := hostutil.ValidateHost(c.Soak.ListenAddr); err != nil {
		return fmt.Errorf("soak listen_address: %w", err)
	}
	if err := hostutil.ValidatePort(c.Soak.Port); err != nil {
		return fmt.Errorf("soak port: %w", err)
	}
	for _, cad := range c.Soak.Cadences {
		if cad.Every.Std() <= 0 {
			return fmt.Errorf("cadence for %q: every must be positive", cad.Workload)
		}
	}
	return nil
}
