// Package config loads tool settings from defaults, TOML files, the
// environment and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/idilsaglam/todoflow/internal/store"
	"github.com/idilsaglam/todoflow/internal/store/jsonstore"
	"github.com/idilsaglam/todoflow/internal/store/memstore"
	"github.com/idilsaglam/todoflow/internal/store/sqlstore"
)

// Backend names accepted in `backend`.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
	BackendMemory = "memory"
)

const (
	DefaultBackend    = BackendSQLite
	DefaultSQLitePath = "todos.db"
	DefaultTheme      = "classic"
	DefaultLogLevel   = "warn"
)

// ErrUnknownBackend is returned for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown backend")

// Config is the resolved configuration.
type Config struct {
	Backend  string `toml:"backend"`
	Path     string `toml:"path"`
	Theme    string `toml:"theme"`
	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`
	Group    bool   `toml:"group"`
	Watch    bool   `toml:"watch"`
}

func setDefaults(cfg *Config) {
	cfg.Backend = DefaultBackend
	cfg.Theme = DefaultTheme
	cfg.LogLevel = DefaultLogLevel
}

// finalizeConfig validates the backend and fills in its default path.
func finalizeConfig(cfg *Config) error {
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	switch cfg.Backend {
	case BackendSQLite:
		if cfg.Path == "" {
			cfg.Path = DefaultSQLitePath
		}
	case BackendJSON:
		if cfg.Path == "" {
			cfg.Path = jsonstore.DefaultFileName
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w %q (want sqlite, json or memory)", ErrUnknownBackend, cfg.Backend)
	}
	cfg.Path = expandPath(cfg.Path)
	cfg.LogFile = expandPath(cfg.LogFile)
	return nil
}

// OpenStore opens the configured backend.
func OpenStore(cfg *Config) (store.Store, error) {
	switch cfg.Backend {
	case BackendSQLite:
		return sqlstore.Open(cfg.Path, sqlstore.DefaultOptions())
	case BackendJSON:
		var opts []jsonstore.Option
		if cfg.Watch {
			opts = append(opts, jsonstore.WithWatch())
		}
		return jsonstore.Open(cfg.Path, opts...)
	case BackendMemory:
		return memstore.New(nil), nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownBackend, cfg.Backend)
}
