package app

import (
	"fmt"

	"github.com/kilianp07/caveplan/config"
	"github.com/kilianp07/caveplan/core/blockmodel"
	"github.com/kilianp07/caveplan/core/layout"
	"github.com/kilianp07/caveplan/core/model"
	"github.com/kilianp07/caveplan/infra/importer"
)

// Inputs holds everything a schedule run reads.
type Inputs struct {
	Model     *blockmodel.BlockModel
	Dataset   *blockmodel.Dataset
	Footprint layout.Footprint
	Sequence  layout.Sequence
	Plan      *model.PlanTarget
}

// LoadPlan reads and validates the configured plan.
func LoadPlan(cfg config.InputsConfig) (*model.PlanTarget, error) {
	plan, err := importer.LoadPlan(cfg.Plan)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	if cfg.Dataset != "" {
		plan.DensityDataset = cfg.Dataset
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

// LoadInputs reads the block model, the grids and the plan, and checks that
// they describe the same panel.
func LoadInputs(cfg config.InputsConfig) (*Inputs, error) {
	plan, err := LoadPlan(cfg)
	if err != nil {
		return nil, err
	}
	bm, err := importer.LoadBlockModelCSV(cfg.BlockModel.Path, cfg.BlockModel.BlockModelOptions)
	if err != nil {
		return nil, fmt.Errorf("block model: %w", err)
	}
	if cfg.BlockModel.Level > 0 {
		if bm, err = bm.FromLevel(cfg.BlockModel.Level); err != nil {
			return nil, fmt.Errorf("block model: %w", err)
		}
	}
	ds, err := bm.Dataset(plan.DensityDataset)
	if err != nil {
		return nil, err
	}

	fp, err := importer.LoadGridCSV(cfg.Footprint)
	if err != nil {
		return nil, fmt.Errorf("footprint: %w", err)
	}
	if err := importer.CheckGridShape("footprint", fp, bm.Structure()); err != nil {
		return nil, err
	}
	seq, err := importer.LoadGridCSV(cfg.Sequence)
	if err != nil {
		return nil, fmt.Errorf("sequence: %w", err)
	}
	if err := importer.CheckGridShape("sequence", seq, bm.Structure()); err != nil {
		return nil, err
	}

	return &Inputs{
		Model:     bm,
		Dataset:   ds,
		Footprint: layout.NewFootprint(fp),
		Sequence:  layout.NewSequence(seq),
		Plan:      plan,
	}, nil
}
