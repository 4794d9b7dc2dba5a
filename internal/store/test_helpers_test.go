package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/kiln/internal/furnace"
	"github.com/roach88/kiln/internal/ident"
)

var testTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestFurnace builds an active furnace snapshot for authority.
func createTestFurnace(authority string, temp, total uint64) furnace.Furnace {
	id := ident.MustParseIdentity(authority)
	return furnace.Furnace{
		Address:             ident.FurnaceAddress(id),
		Authority:           id,
		CurrentTemp:         temp,
		IsActive:            temp > 0,
		TotalSinteredBlocks: total,
		IgnitedAt:           testTime,
		UpdatedAt:           testTime,
	}
}

func createTestEvent(kind string, addr ident.Address) furnace.Event {
	return furnace.Event{
		Kind:       kind,
		Furnace:    addr,
		RequestID:  "req-test",
		Payload:    map[string]any{"kind": kind},
		RecordedAt: testTime,
	}
}

// createTestBlock builds the block a sinter at f's counter would write.
func createTestBlock(f furnace.Furnace, fill byte, pressure uint64) furnace.SinteredBlock {
	var hash ident.Digest
	for i := range hash {
		hash[i] = fill
	}
	return furnace.SinteredBlock{
		Address:          f.NextBlockAddress(),
		Furnace:          f.Address,
		BlockIndex:       f.TotalSinteredBlocks,
		DataHash:         hash,
		PressureApplied:  pressure,
		FinalTemperature: f.CurrentTemp,
		SinteredAt:       testTime,
	}
}

// seedFurnace stores f and returns it.
func seedFurnace(t *testing.T, s *Store, f furnace.Furnace) furnace.Furnace {
	t.Helper()
	require.NoError(t, s.SaveFurnaceState(context.Background(), f, createTestEvent(furnace.EventFurnaceIgnited, f.Address)))
	return f
}

// sinter commits the next block of f and returns the advanced snapshot.
func sinter(t *testing.T, s *Store, f furnace.Furnace, fill byte) (furnace.Furnace, furnace.SinteredBlock) {
	t.Helper()
	b := createTestBlock(f, fill, 120)
	f.TotalSinteredBlocks++
	require.NoError(t, s.CommitSinter(context.Background(), f, b, createTestEvent(furnace.EventBlockSintered, f.Address)))
	return f, b
}
