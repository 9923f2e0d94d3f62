package schedule

import "github.com/kilianp07/caveplan/core/factory"

// Config defines engine settings.
type Config struct {
	Apportioner factory.ModuleConfig `json:"apportioner"`
	// StrictRamp rejects plans whose speed brackets do not cover [0, 100)
	// before any period is processed.
	StrictRamp bool `json:"strict_ramp"`
}
