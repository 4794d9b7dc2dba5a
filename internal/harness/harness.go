package harness

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/kiln/internal/feedstock"
	"github.com/roach88/kiln/internal/furnace"
	"github.com/roach88/kiln/internal/ident"
	"github.com/roach88/kiln/internal/store"
	"github.com/roach88/kiln/internal/testutil"
)

// Harness executes one scenario against a fresh ledger.
type Harness struct {
	ctrl   *furnace.Controller
	seq    int64
	logger *zap.Logger
}

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	logger *zap.Logger
}

// WithLogger routes harness and controller logs to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *runConfig) { c.logger = logger }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with a deterministic clock
// and sequential request IDs. The returned error reports infrastructure
// failures and failed setup; unmet expectations are recorded in the Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	return RunContext(context.Background(), scenario, opts...)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ids := testutil.NewSequentialIDs("req")
	h := &Harness{
		ctrl: furnace.NewController(st,
			furnace.WithClock(testutil.NewDeterministicClock()),
			furnace.WithRequestIDs(ids.Next),
			furnace.WithLogger(cfg.logger),
			furnace.WithThermalEnforcement(scenario.ThermalEnforcement),
		),
		logger: cfg.logger,
	}

	result := NewResult()
	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{Ledger: h.ctrl, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) nextSeq() int64 {
	h.seq++
	return h.seq
}

// executeSetup runs the setup steps. A rejected setup step is an error.
func (h *Harness) executeSetup(ctx context.Context, setup []ActionStep, result *Result) error {
	for i, step := range setup {
		outputCase, _, err := h.step(ctx, step.Action, step.Caller, step.Target, step.Args, result)
		if err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		if outputCase != CaseSuccess {
			return fmt.Errorf("setup step %d: %s rejected with %s", i, step.Action, outputCase)
		}
	}
	return nil
}

// executeFlow runs the flow steps and validates their expect clauses.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		outputCase, got, err := h.step(ctx, step.Invoke, step.Caller, step.Target, step.Args, result)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}

		expect := ExpectClause{Case: CaseSuccess}
		if step.Expect != nil {
			expect = *step.Expect
		}
		if outputCase != expect.Case {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected case %s, got %s", i, step.Invoke, expect.Case, outputCase))
			continue
		}
		for key, want := range expect.Result {
			actual, ok := got[key]
			if !ok {
				result.AddError(fmt.Sprintf("flow[%d] %s: result field %q missing", i, step.Invoke, key))
				continue
			}
			if !valuesEqual(actual, want) {
				result.AddError(fmt.Sprintf("flow[%d] %s: result field %q = %v, want %v", i, step.Invoke, key, actual, want))
			}
		}

		h.logger.Debug("flow step completed",
			zap.Int("step", i),
			zap.String("action", step.Invoke),
			zap.String("output_case", outputCase),
		)
	}
	return nil
}

// step invokes one action and records both ends in the trace.
func (h *Harness) step(ctx context.Context, action, callerName, targetName string, args map[string]any, result *Result) (string, map[string]any, error) {
	caller, err := ident.ParseIdentity(callerName)
	if err != nil {
		return "", nil, fmt.Errorf("caller: %w", err)
	}
	owner := caller
	if targetName != "" {
		if owner, err = ident.ParseIdentity(targetName); err != nil {
			return "", nil, fmt.Errorf("target: %w", err)
		}
	}
	target := ident.FurnaceAddress(owner)

	result.AddInvocationTrace(action, caller.String(), target.String(), args, h.nextSeq())

	outputCase, out, err := h.invoke(ctx, action, caller, target, args)
	if err != nil {
		return "", nil, err
	}

	result.AddCompletionTrace(outputCase, out, h.nextSeq())
	return outputCase, out, nil
}

func (h *Harness) invoke(ctx context.Context, action string, caller ident.Identity, target ident.Address, args map[string]any) (string, map[string]any, error) {
	switch action {
	case ActionIgnite:
		temp, err := uintArg(args, "initial_temp")
		if err != nil {
			return "", nil, err
		}
		f, err := h.ctrl.Ignite(ctx, caller, target, temp)
		return outcome(furnaceResult(f), err)

	case ActionSinter:
		hash, err := hashArg(args)
		if err != nil {
			return "", nil, err
		}
		pressure, err := uintArg(args, "pressure")
		if err != nil {
			return "", nil, err
		}
		res, err := h.ctrl.SinterBatch(ctx, caller, target, hash, pressure)
		return outcome(sinterResult(res), err)

	case ActionCooldown:
		f, err := h.ctrl.EmergencyCooldown(ctx, caller, target)
		return outcome(furnaceResult(f), err)

	default:
		return "", nil, fmt.Errorf("unknown action %q", action)
	}
}

// outcome maps a controller return to an output case. Rejections become
// their code; anything else is an infrastructure failure.
func outcome(result map[string]any, err error) (string, map[string]any, error) {
	switch {
	case err == nil:
		return CaseSuccess, result, nil
	case furnace.IsRejection(err):
		return string(furnace.CodeOf(err)), nil, nil
	default:
		return "", nil, err
	}
}

func furnaceResult(f furnace.Furnace) map[string]any {
	return map[string]any{
		"current_temp":          f.CurrentTemp,
		"is_active":             f.IsActive,
		"total_sintered_blocks": f.TotalSinteredBlocks,
	}
}

func sinterResult(r furnace.SinterResult) map[string]any {
	return map[string]any{
		"block":                 r.Block.Address.String(),
		"block_index":           r.Block.BlockIndex,
		"final_temperature":     r.Block.FinalTemperature,
		"pressure_applied":      r.Block.PressureApplied,
		"total_sintered_blocks": r.Furnace.TotalSinteredBlocks,
	}
}

func uintArg(args map[string]any, key string) (uint64, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("argument %q is required", key)
	}
	switch n := v.(type) {
	case int:
		if n < 0 {
			return 0, fmt.Errorf("argument %q must be non-negative, got %d", key, n)
		}
		return uint64(n), nil
	case int64:
		if n < 0 {
			return 0, fmt.Errorf("argument %q must be non-negative, got %d", key, n)
		}
		return uint64(n), nil
	case uint64:
		return n, nil
	default:
		return 0, fmt.Errorf("argument %q must be an integer, got %T", key, v)
	}
}

func hashArg(args map[string]any) (ident.Digest, error) {
	if raw, ok := args["data_hash"]; ok {
		s, ok := raw.(string)
		if !ok {
			return ident.Digest{}, fmt.Errorf("argument \"data_hash\" must be a string, got %T", raw)
		}
		return ident.ParseDigest(s)
	}
	if raw, ok := args["data"]; ok {
		s, ok := raw.(string)
		if !ok {
			return ident.Digest{}, fmt.Errorf("argument \"data\" must be a string, got %T", raw)
		}
		return feedstock.Prepare([]byte(s)).Hash, nil
	}
	return ident.Digest{}, fmt.Errorf("argument \"data\" or \"data_hash\" is required")
}
