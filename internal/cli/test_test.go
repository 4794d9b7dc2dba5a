package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	shippedScenarios = filepath.Join("..", "..", "testdata", "scenarios")
	shippedGolden    = filepath.Join("..", "harness", "testdata", "golden")
)

const passingScenario = `
name: quick_sinter
description: "ignite then sinter one batch"
setup:
  - action: ignite
    caller: alice
    args: { initial_temp: 3000 }
flow:
  - invoke: sinter
    caller: alice
    args: { data_hash: "0000000000000000000000000000000000000000000000000000000000000000", pressure: 120 }
    expect:
      case: Success
assertions:
  - type: trace_count
    action: sinter
    count: 1
`

const failingScenario = `
name: wrong_expectation
description: "expects a sinter below the floor to succeed"
setup:
  - action: ignite
    caller: alice
    args: { initial_temp: 3000 }
flow:
  - invoke: sinter
    caller: alice
    args: { data_hash: "0000000000000000000000000000000000000000000000000000000000000000", pressure: 10 }
    expect:
      case: Success
assertions:
  - type: trace_count
    action: sinter
    count: 1
`

func TestTestCommandShippedScenarios(t *testing.T) {
	w := newWorkspace(t)

	resp, err := w.runJSON(t, "test", shippedScenarios, "--golden", shippedGolden)
	require.NoError(t, err)

	var result struct {
		Scenarios []ScenarioResult `json:"scenarios"`
		Passed    int              `json:"passed"`
		Failed    int              `json:"failed"`
		Total     int              `json:"total"`
	}
	remarshal(t, resp.Data, &result)
	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 5, result.Passed)
	for _, s := range result.Scenarios {
		assert.Equal(t, "match", s.Golden, s.Name)
	}
}

func TestTestCommandFilter(t *testing.T) {
	w := newWorkspace(t)

	out, err := w.run(t, "test", shippedScenarios, "--golden", shippedGolden, "--filter", "thermal_*")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ thermal_limits")
	assert.Contains(t, out, "✓ thermal_enforcement")
	assert.NotContains(t, out, "authority")
	assert.Contains(t, out, "2 passed, 0 failed, 2 total")
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandNonExistentPath(t *testing.T) {
	w := newWorkspace(t)
	_, err := w.run(t, "test", filepath.Join(w.dir, "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenario path not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	w := newWorkspace(t)
	dir := filepath.Join(w.dir, "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	out, err := w.run(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandFailingScenario(t *testing.T) {
	w := newWorkspace(t)
	file := filepath.Join(w.dir, "wrong.yaml")
	writeFile(t, file, failingScenario)

	out, err := w.run(t, "test", file)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))
	assert.Contains(t, out, "✗ wrong_expectation")
	assert.Contains(t, out, "InsufficientPressure")
	assert.Contains(t, out, "0 passed, 1 failed, 1 total")
}

func TestTestCommandFailingScenarioJSON(t *testing.T) {
	w := newWorkspace(t)
	file := filepath.Join(w.dir, "wrong.yaml")
	writeFile(t, file, failingScenario)

	resp, err := w.runJSON(t, "test", file)
	require.Error(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ScenarioFailed", resp.Error.Code)
}

func TestTestCommandUpdateThenCompare(t *testing.T) {
	w := newWorkspace(t)
	dir := filepath.Join(w.dir, "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	writeFile(t, filepath.Join(dir, "quick.yaml"), passingScenario)

	out, err := w.run(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ quick_sinter (golden updated)")

	golden := filepath.Join(dir, "golden", "quick_sinter.golden")
	require.FileExists(t, golden)

	resp, err := w.runJSON(t, "test", dir)
	require.NoError(t, err)
	var result TestResult
	remarshal(t, resp.Data, &result)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "match", result.Scenarios[0].Golden)

	writeFile(t, golden, `{"scenario_name":"quick_sinter","trace":[]}`)
	out, err = w.run(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "does not match golden file")
}
