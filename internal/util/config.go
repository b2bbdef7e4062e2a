package util

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

type Configuration struct {
	Version   string `toml:"-"`
	BuildDate string `toml:"-"`
	Commit    string `toml:"-"`

	RootPath string `toml:"root_path"`
	LyngHome string `toml:"lyng_home"`

	// Inline caches at call sites. Disabling them never changes results.
	PICEnabled         bool `toml:"pic_enabled"`
	PICInitialCapacity int  `toml:"pic_initial_capacity"`
	PICMaxCapacity     int  `toml:"pic_max_capacity"`

	// Recycling of non-capturing call frames.
	ScopePoolEnabled bool `toml:"scope_pool_enabled"`
	ScopePoolSize    int  `toml:"scope_pool_size"`

	// AllowedModules restricts imports to the listed module names (and their
	// sub-modules); empty allows everything.
	AllowedModules []string `toml:"allowed_modules"`
	// DeniedSymbols lists `module.symbol` pairs that may not be imported.
	DeniedSymbols []string `toml:"denied_symbols"`

	MaxCallDepth int    `toml:"max_call_depth"`
	LogLevel     string `toml:"log_level"`
}

func DefaultConfiguration() Configuration {
	return Configuration{
		RootPath:           ".",
		LyngHome:           os.Getenv("LYNG_HOME"),
		PICEnabled:         true,
		PICInitialCapacity: 2,
		PICMaxCapacity:     4,
		ScopePoolEnabled:   false,
		ScopePoolSize:      256,
		MaxCallDepth:       4096,
		LogLevel:           "info",
	}
}

// LoadConfiguration reads a TOML file on top of the defaults.
func LoadConfiguration(path string) (Configuration, error) {
	cfg := DefaultConfiguration()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to load configuration %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("unknown configuration keys in %s: %v", path, undecoded)
	}
	return cfg, cfg.Validate()
}

func (c Configuration) Validate() error {
	if c.PICInitialCapacity < 1 {
		return fmt.Errorf("pic_initial_capacity must be at least 1, got %d", c.PICInitialCapacity)
	}
	if c.PICMaxCapacity < c.PICInitialCapacity {
		return fmt.Errorf("pic_max_capacity (%d) is below pic_initial_capacity (%d)",
			c.PICMaxCapacity, c.PICInitialCapacity)
	}
	if c.MaxCallDepth < 1 {
		return fmt.Errorf("max_call_depth must be positive, got %d", c.MaxCallDepth)
	}
	return nil
}
