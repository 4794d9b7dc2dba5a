package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kiln/internal/furnace"
	"github.com/roach88/kiln/internal/ident"
)

func TestReadUnknownAddresses(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	addr := ident.FurnaceAddress(ident.MustParseIdentity("nobody"))

	_, err := s.Furnace(ctx, addr)
	assert.ErrorIs(t, err, furnace.ErrNotFound)

	_, err = s.Block(ctx, ident.BlockAddress(addr, 0))
	assert.ErrorIs(t, err, furnace.ErrNotFound)
}

func TestReadEmptyListsAreNotNil(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	addr := ident.FurnaceAddress(ident.MustParseIdentity("nobody"))

	blocks, err := s.Blocks(ctx, addr)
	require.NoError(t, err)
	assert.NotNil(t, blocks)
	assert.Empty(t, blocks)

	events, err := s.Events(ctx, addr)
	require.NoError(t, err)
	assert.NotNil(t, events)

	furnaces, err := s.Furnaces(ctx)
	require.NoError(t, err)
	assert.NotNil(t, furnaces)
}

func TestBlocksOrderedByIndex(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	f := seedFurnace(t, s, createTestFurnace("alice", 3000, 0))

	var want []furnace.SinteredBlock
	for i := 0; i < 5; i++ {
		var b furnace.SinteredBlock
		f, b = sinter(t, s, f, byte(i))
		want = append(want, b)
	}

	got, err := s.Blocks(ctx, f.Address)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, b := range got {
		assert.Equal(t, uint64(i), b.BlockIndex)
		assert.Equal(t, want[i].Address, b.Address)
		assert.Equal(t, ident.BlockAddress(f.Address, uint64(i)), b.Address)
	}
}

func TestBlocksScopedToFurnace(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	alice := seedFurnace(t, s, createTestFurnace("alice", 3000, 0))
	bob := seedFurnace(t, s, createTestFurnace("bob", 3000, 0))
	_, _ = sinter(t, s, alice, 0x01)
	_, _ = sinter(t, s, bob, 0x02)

	blocks, err := s.Blocks(ctx, alice.Address)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, alice.Address, blocks[0].Furnace)
}

func TestEventPayloadKeepsLargeNumbers(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	f := createTestFurnace("alice", 3000, 0)
	ev := createTestEvent(furnace.EventFurnaceIgnited, f.Address)
	ev.Payload = map[string]any{"initial_temp": uint64(3000), "big": ^uint64(0), "created": true}
	require.NoError(t, s.SaveFurnaceState(ctx, f, ev))

	events, err := s.Events(ctx, f.Address)
	require.NoError(t, err)
	require.Len(t, events, 1)

	got := events[0]
	assert.Equal(t, json.Number("3000"), got.Payload["initial_temp"])
	assert.Equal(t, json.Number("18446744073709551615"), got.Payload["big"])
	assert.Equal(t, true, got.Payload["created"])
	assert.Equal(t, "req-test", got.RequestID)
	assert.Equal(t, testTime, got.RecordedAt)
	assert.Equal(t, ident.MustEventID(furnace.EventFurnaceIgnited, f.Address, 1, ev.Payload), got.ID)
}

func TestFurnacesOrderedByAddress(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	for _, name := range []string{"carol", "alice", "bob"} {
		seedFurnace(t, s, createTestFurnace(name, 1000, 0))
	}

	furnaces, err := s.Furnaces(ctx)
	require.NoError(t, err)
	require.Len(t, furnaces, 3)
	for i := 1; i < len(furnaces); i++ {
		assert.Less(t, furnaces[i-1].Address.String(), furnaces[i].Address.String())
	}
}
