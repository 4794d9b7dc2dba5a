package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/roach88/kiln/internal/furnace"
	"github.com/roach88/kiln/internal/ident"
)

func delta(t *testing.T, collector prometheus.Collector, observe func()) float64 {
	t.Helper()

	before := testutil.ToFloat64(collector)
	observe()
	after := testutil.ToFloat64(collector)
	return after - before
}

func TestControllerRecords(t *testing.T) {
	m := NewController()
	start := time.Now().Add(-time.Millisecond)

	if inc := delta(t, controllerOperationsTotal.WithLabelValues(furnace.OpIgnite, "success", "none"), func() {
		m.ObserveOperation(furnace.OpIgnite, nil, start)
	}); inc != 1 {
		t.Fatalf("expected ignite success increment, got %v", inc)
	}

	rejection := furnace.NewInsufficientPressureError(ident.Address{}, 50)
	if inc := delta(t, controllerOperationsTotal.WithLabelValues(furnace.OpSinter, "rejected", "InsufficientPressure"), func() {
		m.ObserveOperation(furnace.OpSinter, rejection, start)
	}); inc != 1 {
		t.Fatalf("expected sinter rejection increment, got %v", inc)
	}

	if inc := delta(t, controllerOperationsTotal.WithLabelValues(furnace.OpCooldown, "error", "none"), func() {
		m.ObserveOperation(furnace.OpCooldown, errors.New("disk full"), start)
	}); inc != 1 {
		t.Fatalf("expected cooldown error increment, got %v", inc)
	}
}

func TestControllerSintered(t *testing.T) {
	m := NewController()

	if inc := delta(t, controllerBlocksSinteredTotal, func() {
		m.ObserveSintered(120)
	}); inc != 1 {
		t.Fatalf("expected sintered increment, got %v", inc)
	}
}

func TestHTTPRecords(t *testing.T) {
	m := NewHTTP()
	start := time.Now()

	if inc := delta(t, httpRequestsTotal.WithLabelValues("unknown", "404"), func() {
		m.Observe("", 404, start)
	}); inc != 1 {
		t.Fatalf("expected unknown route increment, got %v", inc)
	}
}

func TestStressRecords(t *testing.T) {
	m := NewStress()

	done := m.Begin()
	if got := testutil.ToFloat64(stressInFlight); got < 1 {
		t.Fatalf("expected batch in flight, got %v", got)
	}

	if inc := delta(t, stressBatchesTotal.WithLabelValues("rejected"), func() {
		done(furnace.NewFurnaceInactiveError(ident.Address{}))
	}); inc != 1 {
		t.Fatalf("expected rejected batch increment, got %v", inc)
	}
}
