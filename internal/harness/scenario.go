package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Actions a scenario can invoke.
const (
	ActionIgnite   = "ignite"
	ActionSinter   = "sinter"
	ActionCooldown = "cooldown"
)

// CaseSuccess is the output case of an accepted operation. Rejections use
// their error code as output case.
const CaseSuccess = "Success"

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// ThermalEnforcement enables required-heat checks on sinter.
	ThermalEnforcement bool `yaml:"thermal_enforcement,omitempty"`

	// Setup contains steps run before the flow. Every setup step must succeed.
	Setup []ActionStep `yaml:"setup,omitempty"`

	// Flow contains the steps under test.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and ledger state.
	Assertions []Assertion `yaml:"assertions"`
}

// ActionStep is a setup invocation.
type ActionStep struct {
	Action string         `yaml:"action"`
	Caller string         `yaml:"caller"`
	Target string         `yaml:"target,omitempty"`
	Args   map[string]any `yaml:"args"`
}

// FlowStep is an invocation with an optional expected outcome.
type FlowStep struct {
	Invoke string         `yaml:"invoke"`
	Caller string         `yaml:"caller"`
	Target string         `yaml:"target,omitempty"`
	Args   map[string]any `yaml:"args"`

	// Expect is validated against the completion. Nil means Success.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected completion.
type ExpectClause struct {
	// Case is "Success" or a rejection code such as "InsufficientPressure".
	Case string `yaml:"case"`

	// Result is a subset match over the completion result.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	Type string `yaml:"type"`

	// Action is used by trace_contains and trace_count.
	Action string `yaml:"action,omitempty"`

	// Args is a subset match used by trace_contains.
	Args map[string]any `yaml:"args,omitempty"`

	// Count is used by trace_count.
	Count int `yaml:"count,omitempty"`

	// Actions is used by trace_order.
	Actions []string `yaml:"actions,omitempty"`

	// Table is "furnaces" or "sintered_blocks", used by final_state.
	Table string `yaml:"table,omitempty"`

	// Where selects the row: authority, plus block_index for blocks.
	Where map[string]any `yaml:"where,omitempty"`

	// Expect is a subset match used by final_state.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Furnace names the authority whose journal is checked by journal.
	Furnace string `yaml:"furnace,omitempty"`

	// Kinds is the exact journal kind sequence expected by journal.
	Kinds []string `yaml:"kinds,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertJournal       = "journal"
)

// State tables addressable by final_state.
const (
	TableFurnaces       = "furnaces"
	TableSinteredBlocks = "sintered_blocks"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(step.Action, step.Caller, step.Args); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(step.Invoke, step.Caller, step.Args); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
		if step.Expect != nil && step.Expect.Case == "" {
			return fmt.Errorf("flow[%d].expect: case is required", i)
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(action, caller string, args map[string]any) error {
	switch action {
	case ActionIgnite, ActionSinter, ActionCooldown:
	case "":
		return fmt.Errorf("action is required")
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	if caller == "" {
		return fmt.Errorf("caller is required")
	}
	if args == nil && action != ActionCooldown {
		return fmt.Errorf("args is required (use empty map if no args)")
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table != TableFurnaces && a.Table != TableSinteredBlocks {
			return fmt.Errorf("assertions[%d]: table must be %q or %q", index, TableFurnaces, TableSinteredBlocks)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
		if _, ok := a.Where["authority"].(string); !ok {
			return fmt.Errorf("assertions[%d]: where.authority is required for final_state", index)
		}
		if a.Table == TableSinteredBlocks {
			if _, ok := a.Where["block_index"].(int); !ok {
				return fmt.Errorf("assertions[%d]: where.block_index is required for sintered_blocks", index)
			}
		}
	case AssertJournal:
		if a.Furnace == "" {
			return fmt.Errorf("assertions[%d]: furnace is required for journal", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
