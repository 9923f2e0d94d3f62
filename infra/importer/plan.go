package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/caveplan/core/model"
)

// Plan file formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// PlanOptions locates a production plan.
type PlanOptions struct {
	Path string `json:"path"`
	// Format is yaml, json or csv. Empty infers it from the path: a
	// directory is read as csv sheets, other files by extension.
	Format string     `json:"format"`
	Schema PlanSchema `json:"schema"`
}

// LoadPlan reads the plan described by opts. The plan is normalized but not
// validated.
func LoadPlan(opts PlanOptions) (*model.PlanTarget, error) {
	format, err := planFormat(opts.Path, opts.Format)
	if err != nil {
		return nil, err
	}
	if format == FormatCSV {
		schema := opts.Schema
		schema.SetDefaults()
		return LoadPlanCSV(opts.Path, schema)
	}
	f, err := os.Open(opts.Path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	var p *model.PlanTarget
	if format == FormatJSON {
		p, err = DecodePlanJSON(f)
	} else {
		p, err = DecodePlanYAML(f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opts.Path, err)
	}
	return p, nil
}

func planFormat(path, format string) (string, error) {
	switch strings.ToLower(format) {
	case FormatYAML, "yml":
		return FormatYAML, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case "":
	default:
		return "", fmt.Errorf("unknown plan format %q", format)
	}
	if st, err := os.Stat(path); err == nil && st.IsDir() {
		return FormatCSV, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("cannot infer plan format of %s", path)
}

// DecodePlanYAML decodes a plan document.
func DecodePlanYAML(r io.Reader) (*model.PlanTarget, error) {
	var p model.PlanTarget
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	p.Normalize()
	return &p, nil
}

// DecodePlanJSON decodes a plan document.
func DecodePlanJSON(r io.Reader) (*model.PlanTarget, error) {
	var p model.PlanTarget
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	p.Normalize()
	return &p, nil
}

// WritePlanYAML encodes p as YAML.
func WritePlanYAML(w io.Writer, p *model.PlanTarget) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return err
	}
	return enc.Close()
}

// SavePlan writes p to path in the format inferred from its extension, or as
// csv sheets when path is an existing directory.
func SavePlan(path string, p *model.PlanTarget, schema PlanSchema) error {
	format, err := planFormat(path, "")
	if err != nil {
		return err
	}
	if format == FormatCSV {
		schema.SetDefaults()
		return WritePlanCSV(path, p, schema)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if format == FormatJSON {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		err = enc.Encode(p)
	} else {
		err = WritePlanYAML(f, p)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
