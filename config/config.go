// Package config holds the engine's tunable knobs, loaded from a YAML file
// the way the teacher's fs/config package loads rclone.conf.
package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// SizeClass cutoffs in bytes, resolving the "tiny/small/.../gigantic"
// keyword Open Question (spec §9) to concrete powers-of-two IEC values.
const (
	SizeTiny     = 10 * 1024               // 10 KiB
	SizeSmall    = 1 * 1024 * 1024         // 1 MiB
	SizeMedium   = 100 * 1024 * 1024       // 100 MiB
	SizeLarge    = 1 * 1024 * 1024 * 1024  // 1 GiB
	SizeHuge     = 10 * 1024 * 1024 * 1024 // 10 GiB
	// above SizeHuge is "gigantic"/"giant"
)

// DefaultCancelCheckInterval is the number of iterations between sparse
// cancellation checks (spec §4.B): a small power of two.
const DefaultCancelCheckInterval = 1024

// Config is the engine's runtime configuration.
type Config struct {
	// CancelCheckInterval is how often long operations sample the
	// cancellation token (in loop iterations).
	CancelCheckInterval int `yaml:"cancel_check_interval"`
	// IgnoreDirs lists absolute path prefixes the Walker never descends
	// into.
	IgnoreDirs []string `yaml:"ignore_dirs"`
	// PersistPath is where SearchCache.Save/Load read and write the
	// persistence blob by default.
	PersistPath string `yaml:"persist_path"`
	// TagStorePath is the bbolt file backing the on-demand tag cache.
	TagStorePath string `yaml:"tag_store_path"`
	// CompressPersistence toggles zstd compression of the persistence
	// blob (spec §6.2: "may be compressed end-to-end").
	CompressPersistence bool `yaml:"compress_persistence"`
	// CaseSensitive is the default for searches that don't specify
	// options explicitly.
	CaseSensitive bool `yaml:"case_sensitive"`
	// MaxResults is the default result clamp when a search doesn't
	// specify one (0 means unlimited).
	MaxResults uint32 `yaml:"max_results"`
}

// Default returns a Config with the engine's documented defaults.
func Default() Config {
	return Config{
		CancelCheckInterval: DefaultCancelCheckInterval,
		PersistPath:         "fastfind.idx",
		TagStorePath:        "fastfind.tags.db",
		CompressPersistence: true,
		CaseSensitive:       false,
		MaxResults:          10000,
	}
}

// Load reads a YAML config file over Default(): keys absent from the file
// keep their default values, and a CancelCheckInterval <= 0 falls back to
// DefaultCancelCheckInterval. If the file can't be read, Default() is
// returned together with the error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.CancelCheckInterval <= 0 {
		cfg.CancelCheckInterval = DefaultCancelCheckInterval
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
