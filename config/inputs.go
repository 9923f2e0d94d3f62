package config

import (
	"errors"
	"fmt"

	"github.com/kilianp07/caveplan/infra/importer"
)

// BlockModelConfig locates the block model CSV and its coordinate columns.
type BlockModelConfig struct {
	Path                       string `json:"path"`
	importer.BlockModelOptions `json:",squash"`
	// Level drops the blocks below this vertical index before scheduling.
	Level int `json:"level"`
}

// InputsConfig lists the files a run reads.
type InputsConfig struct {
	BlockModel BlockModelConfig `json:"block_model"`
	// Dataset overrides the density dataset named by the plan.
	Dataset   string               `json:"dataset"`
	Footprint importer.GridOptions `json:"footprint"`
	Sequence  importer.GridOptions `json:"sequence"`
	Plan      importer.PlanOptions `json:"plan"`
}

func (c *InputsConfig) SetDefaults() {
	c.BlockModel.SetDefaults()
	if c.Plan.Format == importer.FormatCSV {
		c.Plan.Schema.SetDefaults()
	}
}

func (c InputsConfig) Validate() error {
	var errs []error
	if c.BlockModel.Path == "" {
		errs = append(errs, errors.New("block_model.path is required"))
	}
	if c.BlockModel.Level < 0 {
		errs = append(errs, fmt.Errorf("block_model.level must not be negative, got %d", c.BlockModel.Level))
	}
	if c.Footprint.Path == "" {
		errs = append(errs, errors.New("footprint.path is required"))
	}
	if c.Sequence.Path == "" {
		errs = append(errs, errors.New("sequence.path is required"))
	}
	if c.Plan.Path == "" {
		errs = append(errs, errors.New("plan.path is required"))
	}
	if c.Plan.Format == importer.FormatCSV {
		if err := c.Plan.Schema.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
