package importer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blockCSV = `x;y;z;density;grade
5;5;5;2.5;1
15;5;5;2.6;2
5;15;5;2.7;3
15;15;5;2.8;4
5;5;15;2.9;5
15;5;15;3.0;6
5;15;15;3.1;
`

func TestReadBlockModelCSV(t *testing.T) {
	m, err := ReadBlockModelCSV(strings.NewReader(blockCSV), BlockModelOptions{Separator: ";"})
	require.NoError(t, err)

	s := m.Structure()
	assert.Equal(t, [3]int{2, 2, 2}, s.Shape)
	assert.Equal(t, [3]float64{10, 10, 10}, s.BlockSize)
	assert.Equal(t, []string{"density", "grade"}, m.DatasetNames())

	d, err := m.Dataset("density")
	require.NoError(t, err)
	assert.Equal(t, 2.5, d.Density(0, 0, 0))
	assert.Equal(t, 2.8, d.Density(1, 1, 0))
	assert.Equal(t, 3.1, d.Density(0, 1, 1))
	assert.Equal(t, 0.0, d.Density(1, 1, 1), "missing block")

	g, err := m.Dataset("grade")
	require.NoError(t, err)
	assert.Equal(t, 0.0, g.Density(0, 1, 1), "empty cell")
}

func TestReadBlockModelCSV_SelectedDatasets(t *testing.T) {
	m, err := ReadBlockModelCSV(strings.NewReader(blockCSV), BlockModelOptions{
		Separator: ";",
		Datasets:  []string{"grade"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"grade"}, m.DatasetNames())
}

func TestReadBlockModelCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		opts BlockModelOptions
	}{
		{"missing coordinate", "x,y,d\n1,1,1\n", BlockModelOptions{}},
		{"missing dataset", "x,y,z\n1,1,1\n2,2,2\n", BlockModelOptions{Datasets: []string{"density"}}},
		{"bad number", "x,y,z,d\n1,1,1,1\nfoo,2,2,1\n", BlockModelOptions{}},
		{"single block", "x,y,z,d\n1,1,1,1\n", BlockModelOptions{}},
		{"bad separator", "x,y,z\n", BlockModelOptions{Separator: "::"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadBlockModelCSV(strings.NewReader(tt.data), tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestLoadBlockModelCSV_CustomColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bm.csv")
	data := "east,north,elev,rho\n0,0,0,1\n1,0,0,1\n0,1,0,1\n1,1,0,1\n0,0,2,2\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	m, err := LoadBlockModelCSV(path, BlockModelOptions{X: "east", Y: "north", Z: "elev"})
	require.NoError(t, err)
	assert.Equal(t, [3]int{2, 2, 2}, m.Structure().Shape)
	assert.Equal(t, [3]float64{1, 1, 2}, m.Structure().BlockSize)

	_, err = LoadBlockModelCSV(filepath.Join(t.TempDir(), "missing.csv"), BlockModelOptions{})
	assert.Error(t, err)
}
