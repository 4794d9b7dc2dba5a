package loadgen

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kiln/internal/furnace"
	"github.com/roach88/kiln/internal/ident"
	"github.com/roach88/kiln/internal/store"
)

func newController(t *testing.T, opts ...furnace.Option) *furnace.Controller {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "stress.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return furnace.NewController(s, opts...)
}

func TestRunRapidSequentialSintering(t *testing.T) {
	ctrl := newController(t)

	opts := DefaultOptions()
	opts.Rate = 0
	report, err := Run(context.Background(), ctrl, opts, nil)
	require.NoError(t, err)

	assert.Equal(t, 100, report.Submitted)
	assert.Equal(t, 100, report.Accepted)
	assert.Empty(t, report.Rejected)
	assert.True(t, report.Contiguous)

	caller := ident.MustParseIdentity("stress-001")
	f, err := ctrl.Furnace(context.Background(), ident.FurnaceAddress(caller))
	require.NoError(t, err)
	assert.Equal(t, uint64(100), f.TotalSinteredBlocks)
	assert.Equal(t, furnace.MaxTemp, f.CurrentTemp)
}

func TestRunAcrossFurnaces(t *testing.T) {
	ctrl := newController(t, furnace.WithThermalEnforcement(true))

	report, err := Run(context.Background(), ctrl, Options{
		Batches:  10,
		Furnaces: 3,
		Workers:  6,
		Prefix:   "kiln",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 30, report.Accepted)
	assert.True(t, report.Contiguous)
	for _, name := range []string{"kiln-001", "kiln-002", "kiln-003"} {
		blocks, err := ctrl.Blocks(context.Background(), ident.FurnaceAddress(ident.MustParseIdentity(name)))
		require.NoError(t, err)
		assert.Len(t, blocks, 10)
	}
}

func TestRunCountsRejections(t *testing.T) {
	ctrl := newController(t)

	report, err := Run(context.Background(), ctrl, Options{
		Batches:  5,
		Furnaces: 1,
		Workers:  2,
		Pressure: 50,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Submitted)
	assert.Equal(t, 0, report.Accepted)
	assert.Equal(t, 5, report.Rejected[furnace.CodeInsufficientPressure])
	assert.True(t, report.Contiguous, "an empty ledger is contiguous")
}

func TestRunRejectsBadOptions(t *testing.T) {
	ctrl := newController(t)
	for _, opts := range []Options{
		{Batches: 0, Furnaces: 1, Workers: 1},
		{Batches: 1, Furnaces: 0, Workers: 1},
		{Batches: 1, Furnaces: 1, Workers: 0},
		{Batches: 1, Furnaces: 1, Workers: 1, Rate: -1},
	} {
		_, err := Run(context.Background(), ctrl, opts, nil)
		assert.Error(t, err)
	}
}

type flakyTarget struct {
	*furnace.Controller
	calls atomic.Int32
}

func (f *flakyTarget) SinterBatch(ctx context.Context, caller ident.Identity, target ident.Address, hash ident.Digest, pressure uint64) (furnace.SinterResult, error) {
	if f.calls.Add(1) == 3 {
		return furnace.SinterResult{}, errors.New("disk I/O error")
	}
	return f.Controller.SinterBatch(ctx, caller, target, hash, pressure)
}

func TestRunAbortsOnInfrastructureFailure(t *testing.T) {
	target := &flakyTarget{Controller: newController(t)}

	_, err := Run(context.Background(), target, Options{Batches: 20, Furnaces: 1, Workers: 1}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.Less(t, target.calls.Load(), int32(20))
}

func TestDrain(t *testing.T) {
	jobs := make([]job, 6)
	for i := range jobs {
		jobs[i] = job{caller: ident.MustParseIdentity("alice"), seq: i}
	}
	cold := furnace.NewFurnaceInactiveError(ident.Address{})

	tests := []struct {
		name         string
		ctx          func() context.Context
		outcome      func(seq int) error
		wantErr      string
		wantAccepted int
		wantRejected map[furnace.ErrorCode]int
	}{
		{
			name:         "all accepted",
			ctx:          context.Background,
			outcome:      func(int) error { return nil },
			wantAccepted: 6,
		},
		{
			name: "rejections tallied by code",
			ctx:  context.Background,
			outcome: func(seq int) error {
				if seq%2 == 1 {
					return cold
				}
				return nil
			},
			wantAccepted: 3,
			wantRejected: map[furnace.ErrorCode]int{furnace.CodeFurnaceInactive: 3},
		},
		{
			name: "infrastructure error stops the run",
			ctx:  context.Background,
			outcome: func(seq int) error {
				if seq == 2 {
					return errors.New("disk I/O error")
				}
				return nil
			},
			wantErr: "sinter alice #2: disk I/O error",
		},
		{
			name: "cancelled context",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			outcome: func(int) error { return nil },
			wantErr: context.Canceled.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counts, err := drain(tt.ctx(), 3, jobs, func(_ context.Context, j job) error {
				return tt.outcome(j.seq)
			})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
				assert.Less(t, counts.submitted, len(jobs)+1)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(jobs), counts.submitted)
			assert.Equal(t, tt.wantAccepted, counts.accepted)
			if tt.wantRejected == nil {
				assert.Empty(t, counts.rejected)
			} else {
				assert.Equal(t, tt.wantRejected, counts.rejected)
			}
		})
	}
}

func TestDrainSingleWorkerStopsAtFailure(t *testing.T) {
	jobs := make([]job, 10)
	for i := range jobs {
		jobs[i] = job{caller: ident.MustParseIdentity("alice"), seq: i}
	}

	counts, err := drain(context.Background(), 1, jobs, func(_ context.Context, j job) error {
		if j.seq == 4 {
			return errors.New("disk I/O error")
		}
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 5, counts.submitted)
	assert.Equal(t, 4, counts.accepted)
}
