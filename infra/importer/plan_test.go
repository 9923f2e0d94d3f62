package importer

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/caveplan/core/model"
)

func samplePlan() *model.PlanTarget {
	p := model.NewPlanTarget("north", "density",
		[]model.TargetItem{
			{Period: 2, TargetTonnage: 2000, IncorporationBlocks: 1, DurationDays: 31},
			{Period: 1, TargetTonnage: 1500.5, IncorporationBlocks: 3, DurationDays: 30},
		},
		[]model.SpeedItem{
			{MinimumPercentage: 30, MaximumPercentage: 100, Speed: 0.3},
			{MinimumPercentage: 0, MaximumPercentage: 30, Speed: 0.15},
		})
	p.StartDate = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return p
}

func TestPlanYAMLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePlanYAML(&buf, samplePlan()))
	assert.Contains(t, buf.String(), "density_dataset: density")

	got, err := DecodePlanYAML(&buf)
	require.NoError(t, err)
	assert.Equal(t, samplePlan(), got)
	assert.Equal(t, 1, got.Targets[0].Period)
}

func TestDecodePlanYAML_UnknownField(t *testing.T) {
	_, err := DecodePlanYAML(strings.NewReader("name: x\nbogus: 1\n"))
	assert.Error(t, err)
}

func TestDecodePlanJSON(t *testing.T) {
	doc := `{"name":"n","density_dataset":"d",
		"targets":[{"period":2,"target_tonnage":5,"incorporation_blocks":0,"duration_days":1},
		           {"period":1,"target_tonnage":4,"incorporation_blocks":2,"duration_days":1}],
		"speeds":[{"minimum_percentage":0,"maximum_percentage":100,"speed":1}]}`
	p, err := DecodePlanJSON(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "d", p.DensityDataset)
	assert.Equal(t, []int{1, 2}, []int{p.Targets[0].Period, p.Targets[1].Period})
	assert.True(t, p.StartDate.IsZero())
}

func TestPlanCSVRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plan")
	schema := DefaultPlanSchema()
	schema.StartDateCell = CellRef{Row: 3, Col: 2}
	require.NoError(t, WritePlanCSV(dir, samplePlan(), schema))

	meta, err := os.ReadFile(filepath.Join(dir, "metadata.csv"))
	require.NoError(t, err)
	assert.Equal(t, "name,north\ndensity_dataset,density\nstart_date,2026-01-01T00:00:00Z\n", string(meta))
	targets, err := os.ReadFile(filepath.Join(dir, "targets.csv"))
	require.NoError(t, err)
	assert.Equal(t,
		"period,duration_days,target_tonnage,incorporation_blocks\n1,30,1500.5,3\n2,31,2000,1\n",
		string(targets))

	got, err := LoadPlan(PlanOptions{Path: dir, Schema: schema})
	require.NoError(t, err)
	assert.Equal(t, samplePlan(), got)
}

func TestLoadPlanCSV_CustomSchema(t *testing.T) {
	dir := t.TempDir()
	write := func(name, data string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o600))
	}
	write("Metadata.csv", "Plan;;\n;Name;south\n;Dataset;rho\n;Start;2026-03-01\n")
	write("Target.csv", "Targets\nDuration;Target;Incorporation;Period\n30;100;2;1\n\n30;200;0;2.0\n")
	write("Speed.csv", "Min;Max;Speed\n0;100;0.5\n")

	schema := PlanSchema{
		MetadataSheet: "Metadata.csv",
		NameCell:      CellRef{Row: 2, Col: 3},
		DatasetCell:   CellRef{Row: 3, Col: 3},
		StartDateCell: CellRef{Row: 4, Col: 3},

		TargetSheet:         "Target.csv",
		TargetHeaderRows:    2,
		DurationColumn:      1,
		TargetColumn:        2,
		IncorporationColumn: 3,
		PeriodColumn:        4,

		SpeedSheet:      "Speed.csv",
		SpeedHeaderRows: 1,
		Separator:       ";",
	}
	schema.SetDefaults()
	p, err := LoadPlan(PlanOptions{Path: dir, Format: "csv", Schema: schema})
	require.NoError(t, err)

	assert.Equal(t, "south", p.Name)
	assert.Equal(t, "rho", p.DensityDataset)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), p.StartDate)
	require.Len(t, p.Targets, 2)
	assert.Equal(t, model.TargetItem{Period: 2, TargetTonnage: 200, DurationDays: 30}, p.Targets[1])
	assert.Equal(t, []model.SpeedItem{{MinimumPercentage: 0, MaximumPercentage: 100, Speed: 0.5}}, p.Speeds)
}

func TestLoadPlanCSV_Errors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.csv"), []byte("name,x\n"), 0o600))
	_, err := LoadPlanCSV(dir, DefaultPlanSchema())
	assert.ErrorContains(t, err, "density dataset")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.csv"), []byte("name,x\ndensity_dataset,d\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "targets.csv"), []byte("h\n1.5,30,1,0\n"), 0o600))
	_, err = LoadPlanCSV(dir, DefaultPlanSchema())
	assert.ErrorContains(t, err, "targets.csv row 2")
}

func TestSavePlan_Formats(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"plan.yaml", "plan.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, SavePlan(path, samplePlan(), PlanSchema{}))
		got, err := LoadPlan(PlanOptions{Path: path})
		require.NoError(t, err, name)
		assert.Equal(t, samplePlan().Targets, got.Targets, name)
		assert.True(t, samplePlan().StartDate.Equal(got.StartDate), name)
	}

	_, err := LoadPlan(PlanOptions{Path: filepath.Join(dir, "plan.txt")})
	assert.ErrorContains(t, err, "cannot infer")
	_, err = LoadPlan(PlanOptions{Path: "x", Format: "xlsx"})
	assert.ErrorContains(t, err, "unknown plan format")
}
