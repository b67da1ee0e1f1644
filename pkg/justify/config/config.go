package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/justify/pkg/justify/internalerr"
	"github.com/cognicore/justify/pkg/justify/logging"
)

// Journal drivers
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverNone   = "none"
)

// Config is the top-level configuration file
type Config struct {
	Log     logging.Config `yaml:"log"`
	Journal Journal        `yaml:"journal"`
	Sources []string       `yaml:"sources"`
	Watch   Watch          `yaml:"watch"`
}

// Journal selects where the audit trail is written
type Journal struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// Watch tunes source reloading
type Watch struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log:     logging.Config{Level: "info"},
		Journal: Journal{Driver: DriverMemory, Path: "justify.db"},
		Watch:   Watch{Debounce: 200 * time.Millisecond},
	}
}

// Load reads a YAML config file on top of Default and validates it.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %v", internalerr.ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks driver names, paths and durations.
func (c Config) Validate() error {
	switch c.Journal.Driver {
	case DriverMemory, DriverNone:
	case DriverSQLite:
		if c.Journal.Path == "" {
			return fmt.Errorf("%w: sqlite journal needs a path", internalerr.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown journal driver %q", internalerr.ErrInvalidConfig, c.Journal.Driver)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("%w: negative watch debounce", internalerr.ErrInvalidConfig)
	}
	for i, src := range c.Sources {
		if src == "" {
			return fmt.Errorf("%w: source %d is empty", internalerr.ErrInvalidConfig, i+1)
		}
	}
	return nil
}
