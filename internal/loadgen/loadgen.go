// Package loadgen drives rapid sequential sintering against a furnace
// controller to exercise the ledger under maximum load.
package loadgen

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/roach88/kiln/internal/feedstock"
	"github.com/roach88/kiln/internal/furnace"
	"github.com/roach88/kiln/internal/ident"
	"github.com/roach88/kiln/internal/metrics"
)

// Target is the controller surface the load generator drives.
type Target interface {
	Ignite(ctx context.Context, caller ident.Identity, target ident.Address, initialTemp uint64) (furnace.Furnace, error)
	SinterBatch(ctx context.Context, caller ident.Identity, target ident.Address, dataHash ident.Digest, pressure uint64) (furnace.SinterResult, error)
	Blocks(ctx context.Context, target ident.Address) ([]furnace.SinteredBlock, error)
}

// Options configures a stress run.
type Options struct {
	// Batches is the number of sinters per furnace.
	Batches int
	// Furnaces is the number of furnaces driven in parallel.
	Furnaces int
	// Workers is the number of concurrent submitters.
	Workers int
	// Rate caps total sinters per second. Zero means unlimited.
	Rate int
	// Pressure applied to every batch. Zero means feedstock.MaxPressure.
	Pressure uint64
	// Temperature each furnace is ignited at. Zero means furnace.MaxTemp.
	Temperature uint64
	// Prefix names the furnace authorities, "<prefix>-001" and so on.
	Prefix string
}

// DefaultOptions mirror a single-furnace max-load run of 100 batches.
func DefaultOptions() Options {
	return Options{
		Batches:  100,
		Furnaces: 1,
		Workers:  4,
		Rate:     200,
		Prefix:   "stress",
	}
}

func (o Options) validate() error {
	switch {
	case o.Batches <= 0:
		return fmt.Errorf("batches must be positive, got %d", o.Batches)
	case o.Furnaces <= 0:
		return fmt.Errorf("furnaces must be positive, got %d", o.Furnaces)
	case o.Workers <= 0:
		return fmt.Errorf("workers must be positive, got %d", o.Workers)
	case o.Rate < 0:
		return fmt.Errorf("rate must not be negative, got %d", o.Rate)
	}
	return nil
}

// Report summarizes a stress run.
type Report struct {
	Furnaces   int                       `json:"furnaces"`
	Submitted  int                       `json:"submitted"`
	Accepted   int                       `json:"accepted"`
	Rejected   map[furnace.ErrorCode]int `json:"rejected"`
	Duration   time.Duration             `json:"duration_ns"`
	Throughput float64                   `json:"throughput_per_sec"`
	// Contiguous is true when every furnace ledger holds indexes 0..n-1
	// without gaps or duplicates after the run.
	Contiguous bool `json:"contiguous"`
}

type job struct {
	caller ident.Identity
	addr   ident.Address
	seq    int
}

// Run ignites opts.Furnaces furnaces and submits opts.Batches sinters to each.
// Rejections are counted in the report. An infrastructure failure aborts the
// run and is returned.
func Run(ctx context.Context, target Target, opts Options, logger *zap.Logger) (Report, error) {
	if err := opts.validate(); err != nil {
		return Report{}, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Pressure == 0 {
		opts.Pressure = feedstock.MaxPressure
	}
	if opts.Temperature == 0 {
		opts.Temperature = furnace.MaxTemp
	}
	if opts.Prefix == "" {
		opts.Prefix = "stress"
	}

	callers := make([]ident.Identity, opts.Furnaces)
	for i := range callers {
		caller, err := ident.ParseIdentity(fmt.Sprintf("%s-%03d", opts.Prefix, i+1))
		if err != nil {
			return Report{}, err
		}
		callers[i] = caller
		if _, err := target.Ignite(ctx, caller, ident.FurnaceAddress(caller), opts.Temperature); err != nil {
			return Report{}, fmt.Errorf("ignite %s: %w", caller, err)
		}
	}

	jobs := make([]job, 0, opts.Batches*opts.Furnaces)
	for seq := 0; seq < opts.Batches; seq++ {
		for _, caller := range callers {
			jobs = append(jobs, job{caller: caller, addr: ident.FurnaceAddress(caller), seq: seq})
		}
	}

	var rl ratelimit.Limiter
	if opts.Rate > 0 {
		rl = ratelimit.New(opts.Rate)
	} else {
		rl = ratelimit.NewUnlimited()
	}

	m := metrics.NewStress()
	report := Report{
		Furnaces: opts.Furnaces,
		Rejected: make(map[furnace.ErrorCode]int),
	}

	logger.Info("stress run starting",
		zap.Int("furnaces", opts.Furnaces),
		zap.Int("batches", opts.Batches),
		zap.Int("workers", opts.Workers),
		zap.Int("rate", opts.Rate),
	)

	started := time.Now()
	counts, err := drain(ctx, opts.Workers, jobs, func(ctx context.Context, j job) error {
		rl.Take()

		payload := []byte(fmt.Sprintf("%s/%s/%d", opts.Prefix, j.caller, j.seq))
		done := m.Begin()
		_, err := target.SinterBatch(ctx, j.caller, j.addr, feedstock.Prepare(payload).Hash, opts.Pressure)
		done(err)
		return err
	})
	report.Submitted = counts.submitted
	report.Accepted = counts.accepted
	for code, n := range counts.rejected {
		report.Rejected[code] = n
	}
	report.Duration = time.Since(started)
	if report.Duration > 0 {
		report.Throughput = float64(report.Accepted) / report.Duration.Seconds()
	}
	if err != nil {
		return report, err
	}

	report.Contiguous = true
	for _, caller := range callers {
		ok, err := contiguous(ctx, target, ident.FurnaceAddress(caller))
		if err != nil {
			return report, err
		}
		report.Contiguous = report.Contiguous && ok
	}

	logger.Info("stress run finished",
		zap.Int("accepted", report.Accepted),
		zap.Int("submitted", report.Submitted),
		zap.Duration("duration", report.Duration),
		zap.Bool("contiguous", report.Contiguous),
	)
	return report, nil
}

func contiguous(ctx context.Context, target Target, addr ident.Address) (bool, error) {
	blocks, err := target.Blocks(ctx, addr)
	if err != nil {
		return false, fmt.Errorf("list blocks: %w", err)
	}
	indexes := make([]uint64, len(blocks))
	for i, b := range blocks {
		indexes[i] = b.BlockIndex
		if b.Address != ident.BlockAddress(addr, b.BlockIndex) {
			return false, nil
		}
	}
	sort.Slice(indexes, func(i, j int) bool { return indexes[i] < indexes[j] })
	for i, idx := range indexes {
		if idx != uint64(i) {
			return false, nil
		}
	}
	return true, nil
}
