package furnace

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roach88/kiln/internal/ident"
	"github.com/roach88/kiln/internal/thermal"
)

// Operation names reported to Metrics.
const (
	OpIgnite   = "ignite"
	OpSinter   = "sinter"
	OpCooldown = "cooldown"
)

// Controller owns furnace state transitions.
//
// Operations on the same furnace are serialized by a per-address mutex;
// operations on different furnaces run in parallel. A mutex lives only while
// some operation holds or waits on it.
//
// Callers are expected to come from ident.ParseIdentity. Identities that are
// empty or not in normal form are rejected with InvalidRequest.
type Controller struct {
	repo      Repository
	metrics   Metrics
	clock     Clock
	logger    *zap.Logger
	requestID func() string

	thermalEnforcement bool

	mu    sync.Mutex
	locks map[ident.Address]*addrLock
}

type addrLock struct {
	sync.Mutex
	refs int
}

// Option configures a Controller.
type Option func(*Controller)

// WithMetrics sets the metrics observer.
func WithMetrics(m Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithClock sets the commit clock.
func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithRequestIDs sets the generator for journal request IDs.
func WithRequestIDs(gen func() string) Option {
	return func(c *Controller) { c.requestID = gen }
}

// WithThermalEnforcement rejects sinters when the furnace is colder than
// thermal.RequiredHeat for the batch.
func WithThermalEnforcement(enabled bool) Option {
	return func(c *Controller) { c.thermalEnforcement = enabled }
}

// NewController creates a Controller backed by repo.
func NewController(repo Repository, opts ...Option) *Controller {
	c := &Controller{
		repo:      repo,
		metrics:   nopMetrics{},
		clock:     systemClock{},
		logger:    zap.NewNop(),
		requestID: uuid.NewString,
		locks:     make(map[ident.Address]*addrLock),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// lock acquires the mutex of addr and returns its release. The entry is
// dropped from the map when the last holder releases it.
func (c *Controller) lock(addr ident.Address) func() {
	c.mu.Lock()
	l, ok := c.locks[addr]
	if !ok {
		l = &addrLock{}
		c.locks[addr] = l
	}
	l.refs++
	c.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()

		c.mu.Lock()
		defer c.mu.Unlock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, addr)
		}
	}
}

// checkCaller rejects identities that did not pass through
// ident.ParseIdentity.
func checkCaller(target ident.Address, caller ident.Identity) error {
	parsed, err := ident.ParseIdentity(caller.String())
	if err != nil {
		e := NewInvalidRequestError("caller: %v", err)
		e.Furnace = target
		return e
	}
	if parsed != caller {
		e := NewInvalidRequestError("caller %q is not NFC-normalised", caller.String())
		e.Furnace = target
		return e
	}
	return nil
}

// Ignite activates the furnace at target with initialTemp.
//
// A furnace that does not exist yet is created when target is the caller's
// own derived address; the caller becomes its authority. Igniting an active
// furnace overwrites its temperature. The block counter is preserved.
func (c *Controller) Ignite(ctx context.Context, caller ident.Identity, target ident.Address, initialTemp uint64) (f Furnace, err error) {
	started := time.Now()
	defer func() { c.observe(OpIgnite, target, err, started) }()

	if err := checkCaller(target, caller); err != nil {
		return Furnace{}, err
	}

	unlock := c.lock(target)
	defer unlock()

	now := c.clock.Now().UTC()
	created := false

	f, err = c.repo.Furnace(ctx, target)
	switch {
	case err == nil:
		if f.Authority != caller {
			return Furnace{}, NewUnauthorizedError(target, caller)
		}
	case IsNotFound(err):
		if ident.FurnaceAddress(caller) != target {
			return Furnace{}, NewUnauthorizedError(target, caller)
		}
		f = Furnace{Address: target, Authority: caller}
		created = true
	default:
		return Furnace{}, err
	}

	if initialTemp > MaxTemp {
		return Furnace{}, NewExceedsMaxTemperatureError(target, initialTemp)
	}

	f.CurrentTemp = initialTemp
	f.IsActive = true
	f.IgnitedAt = now
	f.UpdatedAt = now

	ev := Event{
		Kind:      EventFurnaceIgnited,
		Furnace:   target,
		RequestID: c.requestID(),
		Payload: map[string]any{
			"authority":    f.Authority.String(),
			"initial_temp": initialTemp,
			"created":      created,
		},
		RecordedAt: now,
	}
	if err := c.repo.SaveFurnaceState(ctx, f, ev); err != nil {
		return Furnace{}, err
	}

	c.logger.Info("furnace ignited",
		zap.Stringer("furnace", target),
		zap.Uint64("temp", initialTemp),
		zap.Bool("created", created),
	)
	return f, nil
}

// SinterBatch fuses dataHash into the next ledger record of the furnace.
//
// The block is written at ident.BlockAddress(target, counter) and the
// counter advances by one in the same commit.
func (c *Controller) SinterBatch(ctx context.Context, caller ident.Identity, target ident.Address, dataHash ident.Digest, pressure uint64) (res SinterResult, err error) {
	started := time.Now()
	defer func() { c.observe(OpSinter, target, err, started) }()

	if err := checkCaller(target, caller); err != nil {
		return SinterResult{}, err
	}

	unlock := c.lock(target)
	defer unlock()

	f, err := c.repo.Furnace(ctx, target)
	if err != nil {
		return SinterResult{}, err
	}
	if f.Authority != caller {
		return SinterResult{}, NewUnauthorizedError(target, caller)
	}
	if !f.IsActive {
		return SinterResult{}, NewFurnaceInactiveError(target)
	}
	if pressure < MinPressure {
		return SinterResult{}, NewInsufficientPressureError(target, pressure)
	}
	if f.TotalSinteredBlocks == math.MaxUint64 {
		return SinterResult{}, NewCapacityExceededError(target)
	}
	if c.thermalEnforcement {
		if required := thermal.RequiredHeat(dataHash, pressure); f.CurrentTemp < required {
			return SinterResult{}, NewThermalDeficiencyError(target, f.CurrentTemp, required)
		}
	}

	now := c.clock.Now().UTC()
	index := f.TotalSinteredBlocks
	block := SinteredBlock{
		Address:          ident.BlockAddress(target, index),
		Furnace:          target,
		BlockIndex:       index,
		DataHash:         dataHash,
		PressureApplied:  pressure,
		FinalTemperature: f.CurrentTemp,
		SinteredAt:       now,
	}

	f.TotalSinteredBlocks = index + 1
	f.UpdatedAt = now

	ev := Event{
		Kind:      EventBlockSintered,
		Furnace:   target,
		RequestID: c.requestID(),
		Payload: map[string]any{
			"block":       block.Address.String(),
			"block_index": index,
			"data_hash":   dataHash.String(),
			"pressure":    pressure,
			"temperature": f.CurrentTemp,
		},
		RecordedAt: now,
	}
	if err := c.repo.CommitSinter(ctx, f, block, ev); err != nil {
		return SinterResult{}, err
	}

	c.metrics.ObserveSintered(pressure)
	c.logger.Info("block sintered",
		zap.Stringer("furnace", target),
		zap.Stringer("block", block.Address),
		zap.Uint64("index", index),
		zap.Uint64("pressure", pressure),
	)
	return SinterResult{Block: block, Furnace: f}, nil
}

// EmergencyCooldown deactivates the furnace and drops its temperature to 0.
// Once authority is verified it always succeeds, including on a furnace that
// is already cold. The block counter and ledger are untouched.
func (c *Controller) EmergencyCooldown(ctx context.Context, caller ident.Identity, target ident.Address) (f Furnace, err error) {
	started := time.Now()
	defer func() { c.observe(OpCooldown, target, err, started) }()

	if err := checkCaller(target, caller); err != nil {
		return Furnace{}, err
	}

	unlock := c.lock(target)
	defer unlock()

	f, err = c.repo.Furnace(ctx, target)
	if err != nil {
		return Furnace{}, err
	}
	if f.Authority != caller {
		return Furnace{}, NewUnauthorizedError(target, caller)
	}

	now := c.clock.Now().UTC()
	previous := f.CurrentTemp
	wasActive := f.IsActive

	f.IsActive = false
	f.CurrentTemp = 0
	f.UpdatedAt = now

	ev := Event{
		Kind:      EventFurnaceCooled,
		Furnace:   target,
		RequestID: c.requestID(),
		Payload: map[string]any{
			"previous_temp": previous,
			"was_active":    wasActive,
		},
		RecordedAt: now,
	}
	if err := c.repo.SaveFurnaceState(ctx, f, ev); err != nil {
		return Furnace{}, err
	}

	c.logger.Warn("emergency cooldown engaged",
		zap.Stringer("furnace", target),
		zap.Uint64("previous_temp", previous),
		zap.Bool("was_active", wasActive),
	)
	return f, nil
}

// Furnace returns the stored snapshot at addr.
func (c *Controller) Furnace(ctx context.Context, addr ident.Address) (Furnace, error) {
	return c.repo.Furnace(ctx, addr)
}

// Block returns the ledger record at addr.
func (c *Controller) Block(ctx context.Context, addr ident.Address) (SinteredBlock, error) {
	return c.repo.Block(ctx, addr)
}

// BlockAt returns the index-th record of the furnace at target.
func (c *Controller) BlockAt(ctx context.Context, target ident.Address, index uint64) (SinteredBlock, error) {
	return c.repo.Block(ctx, ident.BlockAddress(target, index))
}

// Blocks returns all records of the furnace at target ordered by index.
func (c *Controller) Blocks(ctx context.Context, target ident.Address) ([]SinteredBlock, error) {
	if _, err := c.repo.Furnace(ctx, target); err != nil {
		return nil, err
	}
	return c.repo.Blocks(ctx, target)
}

// Events returns the journal of the furnace at target ordered by seq.
func (c *Controller) Events(ctx context.Context, target ident.Address) ([]Event, error) {
	if _, err := c.repo.Furnace(ctx, target); err != nil {
		return nil, err
	}
	return c.repo.Events(ctx, target)
}

func (c *Controller) observe(op string, target ident.Address, err error, started time.Time) {
	c.metrics.ObserveOperation(op, err, started)
	if err == nil {
		return
	}
	if IsRejection(err) {
		c.logger.Debug("operation rejected",
			zap.String("op", op),
			zap.Stringer("furnace", target),
			zap.String("code", string(CodeOf(err))),
		)
		return
	}
	c.logger.Error("operation failed",
		zap.String("op", op),
		zap.Stringer("furnace", target),
		zap.Error(err),
	)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type nopMetrics struct{}

func (nopMetrics) ObserveOperation(string, error, time.Time) {}
func (nopMetrics) ObserveSintered(uint64)                    {}
