package harness

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/kiln/internal/furnace"
	"github.com/roach88/kiln/internal/ident"
)

// Ledger is the read surface final_state and journal assertions query.
type Ledger interface {
	Furnace(ctx context.Context, addr ident.Address) (furnace.Furnace, error)
	BlockAt(ctx context.Context, target ident.Address, index uint64) (furnace.SinteredBlock, error)
	Events(ctx context.Context, target ident.Address) ([]furnace.Event, error)
}

// AssertionContext provides ledger access for state assertions.
type AssertionContext struct {
	Ledger Ledger
	Ctx    context.Context
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			if event.Type == EventInvocation {
				fmt.Fprintf(&buf, "  [%d] %s by %s %v\n", i+1, event.Action, event.Caller, event.Args)
			}
		}
	}
	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the result and
// returns a message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState, AssertJournal:
			if actx == nil || actx.Ledger == nil {
				err = fmt.Errorf("assertion[%d]: %s requires ledger context", i, assertion.Type)
			} else if assertion.Type == AssertFinalState {
				err = assertFinalState(actx.Ctx, actx.Ledger, assertion)
			} else {
				err = assertJournal(actx.Ctx, actx.Ledger, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// assertTraceContains checks for an invocation of the action whose args
// include the expected args.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Type == EventInvocation && event.Action == assertion.Action && matchArgs(event.Args, assertion.Args) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with args %v", assertion.Action, assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the first occurrences of the actions appear
// in order. Intervening actions are allowed.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if event.Type != EventInvocation {
			continue
		}
		if _, seen := positions[event.Action]; !seen {
			positions[event.Action] = i + 1
		}
	}

	for _, action := range assertion.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", assertion.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Actions); i++ {
		prev, curr := assertion.Actions[i-1], assertion.Actions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that the action was invoked exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == EventInvocation && event.Action == assertion.Action {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState loads the selected furnace or block and checks the
// expected fields with subset semantics.
func assertFinalState(ctx context.Context, ledger Ledger, assertion Assertion) error {
	authority, _ := assertion.Where["authority"].(string)
	owner, err := ident.ParseIdentity(authority)
	if err != nil {
		return fmt.Errorf("final_state: where.authority: %w", err)
	}
	addr := ident.FurnaceAddress(owner)

	var row map[string]any
	switch assertion.Table {
	case TableFurnaces:
		f, err := ledger.Furnace(ctx, addr)
		if err != nil {
			return stateLookupError(assertion, err)
		}
		row = furnaceRow(f)
	case TableSinteredBlocks:
		index, err := uintArg(assertion.Where, "block_index")
		if err != nil {
			return fmt.Errorf("final_state: where: %w", err)
		}
		b, err := ledger.BlockAt(ctx, addr, index)
		if err != nil {
			return stateLookupError(assertion, err)
		}
		row = blockRow(b)
	default:
		return fmt.Errorf("final_state: unknown table %q", assertion.Table)
	}

	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		want := assertion.Expect[key]
		actual, exists := row[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in %s", key, assertion.Table),
			}
		}
		if !valuesEqual(actual, want) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s.%s = %v", assertion.Table, key, want),
				Actual:   fmt.Sprintf("%s.%s = %v", assertion.Table, key, actual),
			}
		}
	}
	return nil
}

func stateLookupError(assertion Assertion, err error) error {
	if furnace.IsNotFound(err) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, formatWhere(assertion.Where)),
			Actual:   "row not found",
		}
	}
	return fmt.Errorf("final_state: %w", err)
}

// assertJournal checks the exact event kind sequence of a furnace journal.
func assertJournal(ctx context.Context, ledger Ledger, assertion Assertion) error {
	owner, err := ident.ParseIdentity(assertion.Furnace)
	if err != nil {
		return fmt.Errorf("journal: furnace: %w", err)
	}

	var kinds []string
	events, err := ledger.Events(ctx, ident.FurnaceAddress(owner))
	switch {
	case furnace.IsNotFound(err):
	case err != nil:
		return fmt.Errorf("journal: %w", err)
	default:
		for _, ev := range events {
			kinds = append(kinds, ev.Kind)
		}
	}

	if !slices.Equal(kinds, assertion.Kinds) {
		return &AssertionError{
			Type:     AssertJournal,
			Expected: fmt.Sprintf("journal of %s: %v", assertion.Furnace, assertion.Kinds),
			Actual:   fmt.Sprintf("%v", kinds),
		}
	}
	return nil
}

func furnaceRow(f furnace.Furnace) map[string]any {
	row := furnaceResult(f)
	row["address"] = f.Address.String()
	row["authority"] = f.Authority.String()
	return row
}

func blockRow(b furnace.SinteredBlock) map[string]any {
	return map[string]any{
		"block":             b.Address.String(),
		"block_index":       b.BlockIndex,
		"furnace":           b.Furnace.String(),
		"data_hash":         b.DataHash.String(),
		"pressure_applied":  b.PressureApplied,
		"final_temperature": b.FinalTemperature,
	}
}

func formatWhere(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}
	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// matchArgs reports whether actual contains every expected key with an
// equal value. Extra keys in actual are ignored.
func matchArgs(actual, expected map[string]any) bool {
	for key, want := range expected {
		got, exists := actual[key]
		if !exists || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// valuesEqual compares values by their canonical JSON encoding, so integers
// decoded from YAML match the unsigned values the ledger returns.
func valuesEqual(actual, expected any) bool {
	a, errA := ident.MarshalCanonical(actual)
	b, errB := ident.MarshalCanonical(expected)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(actual, expected)
	}
	return bytes.Equal(a, b)
}
