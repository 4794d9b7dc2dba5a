package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/kiln/internal/furnace"
	"github.com/roach88/kiln/internal/ident"
)

// SaveFurnaceState inserts f, or updates the temperature, activity and
// timestamps of the existing row, and appends ev to the journal.
// The authority and block counter of an existing row are never changed.
//
// An existing row owned by a different authority is left untouched and
// furnace.CodeUnauthorized is returned.
func (s *Store) SaveFurnaceState(ctx context.Context, f furnace.Furnace, ev furnace.Event) error {
	if err := f.CheckInvariants(); err != nil {
		return fmt.Errorf("save furnace state: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save furnace state: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO furnaces
		(address, authority, current_temp, is_active, total_sintered_blocks, ignited_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			current_temp = excluded.current_temp,
			is_active = excluded.is_active,
			ignited_at = excluded.ignited_at,
			updated_at = excluded.updated_at
		WHERE furnaces.authority = excluded.authority
	`,
		f.Address.String(),
		f.Authority.String(),
		u2i(f.CurrentTemp),
		boolToInt(f.IsActive),
		u2i(f.TotalSinteredBlocks),
		formatTime(f.IgnitedAt),
		formatTime(f.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save furnace state: upsert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save furnace state: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return furnace.NewUnauthorizedError(f.Address, f.Authority)
	}

	if err := appendEvent(ctx, tx, ev); err != nil {
		return fmt.Errorf("save furnace state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save furnace state: commit: %w", err)
	}
	return nil
}

var _ furnace.Repository = (*Store)(nil)

// CommitSinter advances the furnace counter from b.BlockIndex to
// b.BlockIndex+1, writes b at its derived address and appends ev, in one
// transaction.
func (s *Store) CommitSinter(ctx context.Context, f furnace.Furnace, b furnace.SinteredBlock, ev furnace.Event) error {
	if f.TotalSinteredBlocks != b.BlockIndex+1 {
		return fmt.Errorf("commit sinter: counter %d does not follow block index %d", f.TotalSinteredBlocks, b.BlockIndex)
	}
	if b.Furnace != f.Address {
		return fmt.Errorf("commit sinter: block furnace %s does not match %s", b.Furnace, f.Address)
	}
	if want := ident.BlockAddress(f.Address, b.BlockIndex); b.Address != want {
		return fmt.Errorf("commit sinter: block address %s is not the derived %s", b.Address, want)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit sinter: begin tx: %w", err)
	}
	defer tx.Rollback()

	// Step 1: Claim the counter. Zero rows means another writer moved it or
	// the furnace went cold since it was read.
	result, err := tx.ExecContext(ctx, `
		UPDATE furnaces
		SET total_sintered_blocks = ?, updated_at = ?
		WHERE address = ? AND total_sintered_blocks = ? AND is_active = 1
	`,
		u2i(f.TotalSinteredBlocks),
		formatTime(f.UpdatedAt),
		f.Address.String(),
		u2i(b.BlockIndex),
	)
	if err != nil {
		return fmt.Errorf("commit sinter: update counter: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("commit sinter: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return furnace.NewStaleCounterError(f.Address, b.BlockIndex)
	}

	// Step 2: Write the block once.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sintered_blocks
		(address, furnace_address, block_index, data_hash, pressure_applied, final_temperature, sintered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		b.Address.String(),
		b.Furnace.String(),
		u2i(b.BlockIndex),
		b.DataHash[:],
		u2i(b.PressureApplied),
		u2i(b.FinalTemperature),
		formatTime(b.SinteredAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return furnace.NewAddressInUseError(b.Address)
		}
		return fmt.Errorf("commit sinter: insert block: %w", err)
	}

	// Step 3: Journal.
	if err := appendEvent(ctx, tx, ev); err != nil {
		return fmt.Errorf("commit sinter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sinter: commit: %w", err)
	}
	return nil
}

// appendEvent assigns the next per-furnace seq, computes the content-addressed
// ID and inserts ev inside tx.
func appendEvent(ctx context.Context, tx *sql.Tx, ev furnace.Event) error {
	var seq int64
	err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) + 1 FROM events WHERE furnace_address = ?
	`, ev.Furnace.String()).Scan(&seq)
	if err != nil {
		return fmt.Errorf("append event: next seq: %w", err)
	}

	id, err := ident.EventID(ev.Kind, ev.Furnace, seq, ev.Payload)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	payload, err := marshalPayload(ev.Payload)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events
		(id, seq, kind, furnace_address, request_id, payload, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		seq,
		ev.Kind,
		ev.Furnace.String(),
		ev.RequestID,
		payload,
		formatTime(ev.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("append event: insert: %w", err)
	}
	return nil
}
