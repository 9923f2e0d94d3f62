package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"bm.csv":        "x,y,z,density\n0,0,0,1\n0,0,10,1\n0,10,0,1\n0,10,10,1\n10,0,0,1\n10,0,10,1\n10,10,0,1\n10,10,10,1\n",
		"footprint.csv": "0,0\n0,0\n",
		"sequence.csv":  "1,2\n3,4\n",
		"plan.yaml": `name: cli
density_dataset: density
targets:
  - {period: 1, target_tonnage: 1000, incorporation_blocks: 4, duration_days: 10}
speeds:
  - {minimum_percentage: 0, maximum_percentage: 100, speed: 50}
`,
	}
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o600))
	}
	cfg := strings.NewReplacer("DIR", dir).Replace(`inputs:
  block_model: {path: DIR/bm.csv}
  footprint: {path: DIR/footprint.csv}
  sequence: {path: DIR/sequence.csv}
  plan: {path: DIR/plan.yaml}
store:
  backend: jsonl
  path: DIR/runs.jsonl
output:
  csv: DIR/out.csv
`)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func TestPlanCommands(t *testing.T) {
	path := writeProject(t)

	out, _, err := execute(t, "plan", "validate", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, out, "plan cli is valid: 1 periods, 1 speed brackets")

	out, _, err = execute(t, "plan", "show", "-c", path, "-f", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"density_dataset": "density"`)

	exported := filepath.Join(filepath.Dir(path), "copy.yaml")
	_, _, err = execute(t, "plan", "show", "-c", path, "-o", exported)
	require.NoError(t, err)
	_, err = os.Stat(exported)
	assert.NoError(t, err)

	_, _, err = execute(t, "plan", "show", "-c", path, "-o", "", "-f", "toml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestRunAndList(t *testing.T) {
	path := writeProject(t)

	out, errOut, err := execute(t, "run", "-c", path, "--progress", "--summary")
	require.NoError(t, err)
	assert.Contains(t, errOut, "period 1: 1000.000 / 1000.000 t, 4 active")
	assert.Contains(t, out, `"extracted_tonnage": 1000`)

	out, _, err = execute(t, "runs", "ls", "-c", path, "--plan", "cli")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "cli")
	assert.Contains(t, lines[1], "ok")

	_, _, err = execute(t, "runs", "ls", "-c", path, "--since", "yesterday")
	assert.ErrorContains(t, err, "--since")
}

func TestMissingConfig(t *testing.T) {
	_, _, err := execute(t, "plan", "validate", "-c", filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorContains(t, err, "load config")
}
