package store

import (
	"fmt"
	"strings"
)

// Backends accepted by Config.Backend.
const (
	BackendNone   = "none"
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
)

// Config selects where run history is kept.
type Config struct {
	Backend  string   `json:"backend"`
	Path     string   `json:"path"`
	Rotation Rotation `json:"rotation"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = BackendNone
	}
	if c.Path == "" {
		switch c.Backend {
		case BackendJSONL:
			c.Path = "runs.jsonl"
		case BackendSQLite:
			c.Path = "runs.db"
		}
	}
}

// Validate checks the backend name.
func (c Config) Validate() error {
	switch strings.ToLower(c.Backend) {
	case "", BackendNone, BackendJSONL, BackendSQLite:
		return nil
	}
	return fmt.Errorf("store: unknown backend %q", c.Backend)
}

// New opens the configured store.
func New(c Config) (Store, error) {
	c.SetDefaults()
	switch strings.ToLower(c.Backend) {
	case BackendNone:
		return NopStore{}, nil
	case BackendJSONL:
		return NewJSONLStore(c.Path, c.Rotation)
	case BackendSQLite:
		return NewSQLiteStore(c.Path)
	}
	return nil, fmt.Errorf("store: unknown backend %q", c.Backend)
}
