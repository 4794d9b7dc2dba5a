package loadgen

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/kiln/internal/furnace"
)

// tally counts sinter outcomes.
type tally struct {
	submitted int
	accepted  int
	rejected  map[furnace.ErrorCode]int
}

// record classifies the outcome of one submission. Errors that are not
// furnace rejections are returned.
func (t *tally) record(err error) error {
	t.submitted++
	switch {
	case err == nil:
		t.accepted++
	case furnace.IsRejection(err):
		if t.rejected == nil {
			t.rejected = make(map[furnace.ErrorCode]int)
		}
		t.rejected[furnace.CodeOf(err)]++
	default:
		return err
	}
	return nil
}

func (t *tally) merge(o tally) {
	t.submitted += o.submitted
	t.accepted += o.accepted
	for code, n := range o.rejected {
		if t.rejected == nil {
			t.rejected = make(map[furnace.ErrorCode]int)
		}
		t.rejected[code] += n
	}
}

// submitFunc sinters one job.
type submitFunc func(context.Context, job) error

// drain hands jobs to workers submitters. Every worker keeps its own tally
// and the tallies are merged once all workers have stopped. The first
// infrastructure error cancels the remaining jobs and is returned with the
// tally of what was submitted before it.
func drain(ctx context.Context, workers int, jobs []job, submit submitFunc) (tally, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	queue := make(chan job)
	go func() {
		defer close(queue)
		for _, j := range jobs {
			select {
			case <-ctx.Done():
				return
			case queue <- j:
			}
		}
	}()

	tallies := make([]tally, workers)
	var wg sync.WaitGroup
	for w := range tallies {
		wg.Add(1)
		go func(t *tally) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case j, ok := <-queue:
					if !ok {
						return
					}
					if err := t.record(submit(ctx, j)); err != nil {
						cancel(fmt.Errorf("sinter %s #%d: %w", j.caller, j.seq, err))
						return
					}
				}
			}
		}(&tallies[w])
	}
	wg.Wait()

	var total tally
	for _, t := range tallies {
		total.merge(t)
	}
	return total, context.Cause(ctx)
}
