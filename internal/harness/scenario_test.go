package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario(t *testing.T) {
	scenario, err := LoadScenario(scenarioPath("furnace_lifecycle"))
	require.NoError(t, err)

	assert.Equal(t, "furnace_lifecycle", scenario.Name)
	require.Len(t, scenario.Setup, 1)
	assert.Equal(t, ActionIgnite, scenario.Setup[0].Action)
	require.Len(t, scenario.Flow, 3)
	assert.Equal(t, "InsufficientPressure", scenario.Flow[1].Expect.Case)
	assert.Equal(t, 120, scenario.Flow[0].Args["pressure"])
	assert.False(t, scenario.ThermalEnforcement)
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseScenarioRejects(t *testing.T) {
	const flow = `
flow:
  - invoke: cooldown
    caller: alice
`
	const assertions = `
assertions:
  - type: trace_count
    action: cooldown
    count: 1
`
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"missing name", "description: d\n" + flow + assertions, "name is required"},
		{"missing description", "name: n\n" + flow + assertions, "description is required"},
		{"empty flow", "name: n\ndescription: d\n" + assertions, "flow list is required"},
		{"empty assertions", "name: n\ndescription: d\n" + flow, "assertions list is required"},
		{"unknown field", "name: n\ndescription: d\nassertion: []\n" + flow + assertions, "field assertion not found"},
		{
			"unknown action",
			"name: n\ndescription: d\nflow:\n  - invoke: melt\n    caller: alice\n    args: {}\n" + assertions,
			`unknown action "melt"`,
		},
		{
			"missing caller",
			"name: n\ndescription: d\nflow:\n  - invoke: cooldown\n" + assertions,
			"caller is required",
		},
		{
			"missing args",
			"name: n\ndescription: d\nflow:\n  - invoke: ignite\n    caller: alice\n" + assertions,
			"args is required",
		},
		{
			"expect without case",
			"name: n\ndescription: d\nflow:\n  - invoke: cooldown\n    caller: alice\n    expect: { result: { is_active: false } }\n" + assertions,
			"case is required",
		},
		{
			"unknown assertion",
			"name: n\ndescription: d\n" + flow + "assertions:\n  - type: trace_magic\n",
			`unknown assertion type "trace_magic"`,
		},
		{
			"bad table",
			"name: n\ndescription: d\n" + flow + "assertions:\n  - type: final_state\n    table: users\n    expect: { a: 1 }\n",
			"table must be",
		},
		{
			"block without index",
			"name: n\ndescription: d\n" + flow + "assertions:\n  - type: final_state\n    table: sintered_blocks\n    where: { authority: alice }\n    expect: { a: 1 }\n",
			"where.block_index is required",
		},
		{
			"journal without furnace",
			"name: n\ndescription: d\n" + flow + "assertions:\n  - type: journal\n    kinds: []\n",
			"furnace is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
