package furnace

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/kiln/internal/ident"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

// Protocol parameters. These are fixed and never configurable per call.
const (
	// MaxTemp is the thermal-runaway ceiling for ignition.
	MaxTemp uint64 = 5000

	// MinPressure is the pressure floor (PSI) for an accepted sinter.
	MinPressure uint64 = 90
)

// Event kinds written to the journal.
const (
	EventFurnaceIgnited = "furnace.ignited"
	EventBlockSintered  = "block.sintered"
	EventFurnaceCooled  = "furnace.cooled"
)

// Furnace is the stored snapshot of one furnace.
type Furnace struct {
	Address             ident.Address  `json:"address"`
	Authority           ident.Identity `json:"authority"`
	CurrentTemp         uint64         `json:"current_temp"`
	IsActive            bool           `json:"is_active"`
	TotalSinteredBlocks uint64         `json:"total_sintered_blocks"`
	IgnitedAt           time.Time      `json:"ignited_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// CheckInvariants verifies the temperature/activity invariants of f.
func (f Furnace) CheckInvariants() error {
	if !f.IsActive && f.CurrentTemp != 0 {
		return fmt.Errorf("furnace %s: inactive with temperature %d", f.Address, f.CurrentTemp)
	}
	if f.CurrentTemp > MaxTemp {
		return fmt.Errorf("furnace %s: temperature %d above ceiling %d", f.Address, f.CurrentTemp, MaxTemp)
	}
	if f.Address != ident.FurnaceAddress(f.Authority) {
		return fmt.Errorf("furnace %s: address does not derive from authority %q", f.Address, f.Authority)
	}
	return nil
}

// NextBlockAddress returns the address the next accepted sinter will occupy.
func (f Furnace) NextBlockAddress() ident.Address {
	return ident.BlockAddress(f.Address, f.TotalSinteredBlocks)
}

// SinteredBlock is an immutable ledger record.
type SinteredBlock struct {
	Address          ident.Address `json:"address"`
	Furnace          ident.Address `json:"furnace"`
	BlockIndex       uint64        `json:"block_index"`
	DataHash         ident.Digest  `json:"data_hash"`
	PressureApplied  uint64        `json:"pressure_applied"`
	FinalTemperature uint64        `json:"final_temperature"`
	SinteredAt       time.Time     `json:"sintered_at"`
}

// Event is a journal entry recorded in the same commit as a transition.
// ID and Seq are assigned by the Repository.
type Event struct {
	ID         string         `json:"id"`
	Seq        int64          `json:"seq"`
	Kind       string         `json:"kind"`
	Furnace    ident.Address  `json:"furnace"`
	RequestID  string         `json:"request_id"`
	Payload    map[string]any `json:"payload"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// SinterResult is returned by an accepted sinter.
type SinterResult struct {
	Block   SinteredBlock `json:"block"`
	Furnace Furnace       `json:"furnace"`
}

type (
	// Repository persists furnaces, blocks and journal events.
	//
	// Lookups of unknown addresses must return an *Error with CodeNotFound.
	Repository interface {
		Furnace(ctx context.Context, addr ident.Address) (Furnace, error)

		// SaveFurnaceState inserts f or updates its temperature and activity.
		// The authority and block counter of an existing row are never changed.
		SaveFurnaceState(ctx context.Context, f Furnace, ev Event) error

		// CommitSinter advances the counter from b.BlockIndex to
		// f.TotalSinteredBlocks and writes b at b.Address, atomically.
		// A counter that moved returns CodeStaleCounter; an occupied
		// address returns CodeAddressInUse.
		CommitSinter(ctx context.Context, f Furnace, b SinteredBlock, ev Event) error

		Block(ctx context.Context, addr ident.Address) (SinteredBlock, error)
		Blocks(ctx context.Context, furnace ident.Address) ([]SinteredBlock, error)
		Events(ctx context.Context, furnace ident.Address) ([]Event, error)
	}

	// Metrics observes controller outcomes.
	Metrics interface {
		ObserveOperation(op string, err error, started time.Time)
		ObserveSintered(pressure uint64)
	}

	// Clock supplies commit timestamps.
	Clock interface {
		Now() time.Time
	}
)
