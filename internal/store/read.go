package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/kiln/internal/furnace"
	"github.com/roach88/kiln/internal/ident"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Furnace returns the furnace stored at addr.
// Returns furnace.CodeNotFound if no furnace was ever created there.
func (s *Store) Furnace(ctx context.Context, addr ident.Address) (furnace.Furnace, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT address, authority, current_temp, is_active, total_sintered_blocks, ignited_at, updated_at
		FROM furnaces
		WHERE address = ?
	`, addr.String())

	f, err := scanFurnace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return furnace.Furnace{}, furnace.NewNotFoundError("furnace", addr)
	}
	if err != nil {
		return furnace.Furnace{}, fmt.Errorf("read furnace: %w", err)
	}
	return f, nil
}

// Furnaces returns every furnace ordered by address.
// Returns an empty slice (not nil) if there are none.
func (s *Store) Furnaces(ctx context.Context) ([]furnace.Furnace, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT address, authority, current_temp, is_active, total_sintered_blocks, ignited_at, updated_at
		FROM furnaces
		ORDER BY address COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query furnaces: %w", err)
	}
	defer rows.Close()

	furnaces := []furnace.Furnace{}
	for rows.Next() {
		f, err := scanFurnace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan furnace: %w", err)
		}
		furnaces = append(furnaces, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate furnaces: %w", err)
	}
	return furnaces, nil
}

// Block returns the sintered block stored at addr.
// Returns furnace.CodeNotFound if the address was never written.
func (s *Store) Block(ctx context.Context, addr ident.Address) (furnace.SinteredBlock, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT address, furnace_address, block_index, data_hash, pressure_applied, final_temperature, sintered_at
		FROM sintered_blocks
		WHERE address = ?
	`, addr.String())

	b, err := scanBlock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return furnace.SinteredBlock{}, furnace.NewNotFoundError("block", addr)
	}
	if err != nil {
		return furnace.SinteredBlock{}, fmt.Errorf("read block: %w", err)
	}
	return b, nil
}

// Blocks returns every block of the furnace ordered by block index.
// Returns an empty slice (not nil) if the furnace has none.
func (s *Store) Blocks(ctx context.Context, furnaceAddr ident.Address) ([]furnace.SinteredBlock, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT address, furnace_address, block_index, data_hash, pressure_applied, final_temperature, sintered_at
		FROM sintered_blocks
		WHERE furnace_address = ?
		ORDER BY block_index ASC
	`, furnaceAddr.String())
	if err != nil {
		return nil, fmt.Errorf("query blocks: %w", err)
	}
	defer rows.Close()

	blocks := []furnace.SinteredBlock{}
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocks: %w", err)
	}
	return blocks, nil
}

// Events returns the journal of the furnace.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
func (s *Store) Events(ctx context.Context, furnaceAddr ident.Address) ([]furnace.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, kind, furnace_address, request_id, payload, recorded_at
		FROM events
		WHERE furnace_address = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, furnaceAddr.String())
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []furnace.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func scanFurnace(row rowScanner) (furnace.Furnace, error) {
	var (
		address, authority   string
		temp, total          int64
		active               int
		ignitedAt, updatedAt string
	)
	if err := row.Scan(&address, &authority, &temp, &active, &total, &ignitedAt, &updatedAt); err != nil {
		return furnace.Furnace{}, err
	}

	addr, err := parseAddress("address", address)
	if err != nil {
		return furnace.Furnace{}, err
	}
	ignited, err := parseTime(ignitedAt)
	if err != nil {
		return furnace.Furnace{}, err
	}
	updated, err := parseTime(updatedAt)
	if err != nil {
		return furnace.Furnace{}, err
	}

	return furnace.Furnace{
		Address:             addr,
		Authority:           ident.Identity(authority),
		CurrentTemp:         i2u(temp),
		IsActive:            active == 1,
		TotalSinteredBlocks: i2u(total),
		IgnitedAt:           ignited,
		UpdatedAt:           updated,
	}, nil
}

func scanBlock(row rowScanner) (furnace.SinteredBlock, error) {
	var (
		address, furnaceAddress string
		index, pressure, temp   int64
		dataHash                []byte
		sinteredAt              string
	)
	if err := row.Scan(&address, &furnaceAddress, &index, &dataHash, &pressure, &temp, &sinteredAt); err != nil {
		return furnace.SinteredBlock{}, err
	}

	addr, err := parseAddress("address", address)
	if err != nil {
		return furnace.SinteredBlock{}, err
	}
	owner, err := parseAddress("furnace_address", furnaceAddress)
	if err != nil {
		return furnace.SinteredBlock{}, err
	}
	digest, err := parseDigest(dataHash)
	if err != nil {
		return furnace.SinteredBlock{}, err
	}
	sintered, err := parseTime(sinteredAt)
	if err != nil {
		return furnace.SinteredBlock{}, err
	}

	return furnace.SinteredBlock{
		Address:          addr,
		Furnace:          owner,
		BlockIndex:       i2u(index),
		DataHash:         digest,
		PressureApplied:  i2u(pressure),
		FinalTemperature: i2u(temp),
		SinteredAt:       sintered,
	}, nil
}

func scanEvent(row rowScanner) (furnace.Event, error) {
	var (
		id, kind, furnaceAddress, requestID, payload, recordedAt string
		seq                                                      int64
	)
	if err := row.Scan(&id, &seq, &kind, &furnaceAddress, &requestID, &payload, &recordedAt); err != nil {
		return furnace.Event{}, err
	}

	owner, err := parseAddress("furnace_address", furnaceAddress)
	if err != nil {
		return furnace.Event{}, err
	}
	decoded, err := unmarshalPayload(payload)
	if err != nil {
		return furnace.Event{}, err
	}
	recorded, err := parseTime(recordedAt)
	if err != nil {
		return furnace.Event{}, err
	}

	return furnace.Event{
		ID:         id,
		Seq:        seq,
		Kind:       kind,
		Furnace:    owner,
		RequestID:  requestID,
		Payload:    decoded,
		RecordedAt: recorded,
	}, nil
}
