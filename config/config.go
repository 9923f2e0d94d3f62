package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/caveplan/core/metrics"
	"github.com/kilianp07/caveplan/core/schedule"
	"github.com/kilianp07/caveplan/core/store"
	"github.com/kilianp07/caveplan/infra/monitoring"
)

// EnvPrefix marks environment overrides, e.g. CAVEPLAN_ENGINE__STRICT_RAMP.
const EnvPrefix = "CAVEPLAN_"

type Config struct {
	Inputs  InputsConfig    `json:"inputs"`
	Engine  schedule.Config `json:"engine"`
	Metrics metrics.Config  `json:"metrics"`
	Store   store.Config    `json:"store"`
	Logging LoggingConfig   `json:"logging"`
	Output  OutputConfig    `json:"output"`
	// Monitoring reports failed runs to Sentry.
	Monitoring monitoring.SentryConfig `json:"monitoring"`
}

// OutputConfig lists the export destinations of the extraction records.
// Empty paths are skipped.
type OutputConfig struct {
	CSV     string `json:"csv"`
	JSON    string `json:"json"`
	Summary string `json:"summary"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Inputs.SetDefaults()
	if c.Engine.Apportioner.Type == "" {
		c.Engine.Apportioner.Type = schedule.DefaultApportioner
	}
	c.Store.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Inputs.Validate(); err != nil {
		return fmt.Errorf("inputs: %w", err)
	}
	for i, s := range c.Metrics.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics: sink %d has no type", i)
		}
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Monitoring.Validate(); err != nil {
		return fmt.Errorf("monitoring: %w", err)
	}
	return nil
}
