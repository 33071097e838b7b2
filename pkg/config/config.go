// Package config loads the optional user configuration file.
//
// The file lives at $XDG_CONFIG_HOME/repowizard/config.toml (fallback
// ~/.config/repowizard/config.toml) and provides defaults for the setup
// commands. Flags always override config values; config values override
// built-in defaults. A missing file is not an error.
//
// Example:
//
//	target_dir = "~/repo_setups"
//	auto_install = true
//	nested_manifests = false
//	clone_timeout = "5m"
//	install_timeout = "10m"
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	wizerr "github.com/repowizard/repowizard/pkg/errors"
)

// Duration wraps time.Duration so timeouts can be written as "5m" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Config holds user-level defaults. Pointer fields distinguish "unset"
// from an explicit false.
type Config struct {
	TargetDir       string   `toml:"target_dir"`
	AutoInstall     *bool    `toml:"auto_install"`
	NestedManifests *bool    `toml:"nested_manifests"`
	CloneTimeout    Duration `toml:"clone_timeout"`
	InstallTimeout  Duration `toml:"install_timeout"`
}

// Path returns the config file path using XDG conventions.
func Path() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "repowizard", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "repowizard", "config.toml"), nil
}

// Load reads the config file at the default path. A missing file yields a
// zero Config and no error; a malformed file yields INVALID_INPUT.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Config{}, nil
	}
	return LoadFile(path)
}

// LoadFile reads the config file at path.
func LoadFile(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, wizerr.Wrap(wizerr.ErrCodeInvalidInput, err, "read config %s", path)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, wizerr.Wrap(wizerr.ErrCodeInvalidInput, err, "parse config %s", path)
	}
	cfg.TargetDir = expandHome(cfg.TargetDir)
	return cfg, nil
}

// expandHome resolves a leading ~/ against the user's home directory.
func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(p, "~"), "/"))
		}
	}
	return p
}
