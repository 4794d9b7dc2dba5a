// Package store provides SQLite-backed durable storage for kiln.
//
// Three tables are kept:
//   - furnaces: one row per authority, keyed by the derived furnace address
//   - sintered_blocks: write-once ledger, keyed by the derived block address
//   - events: append-only journal, one row per committed transition
//
// # Write-Once Ledger
//
// sintered_blocks has a PRIMARY KEY on address and UNIQUE(furnace_address,
// block_index). Triggers abort any UPDATE or DELETE. A second write at an
// address fails with furnace.CodeAddressInUse; it is never silently ignored.
//
// # Atomic Sinter
//
// CommitSinter runs in one transaction: a conditional counter bump
// (WHERE total_sintered_blocks = expected), the block insert, and the journal
// append. A writer holding a stale counter gets furnace.CodeStaleCounter and
// writes nothing.
//
// # Unsigned Columns
//
// SQLite integers are signed. Counters, temperatures and pressures are stored
// as the int64 with the same bit pattern and converted back on read.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
