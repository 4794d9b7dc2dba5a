// Package furnace implements the kiln furnace controller.
//
// A furnace is a per-authority state machine:
//
//	Inactive --Ignite--> Active --EmergencyCooldown--> Inactive
//	Active --SinterBatch--> Active
//
// Every mutating call names a caller and a target furnace address. The
// controller takes the furnace's lock, reads the stored snapshot, validates
// authority and physical limits, and hands the next snapshot to the
// Repository in a single commit. The first violated precondition returns a
// typed *Error and nothing is written.
//
// # Invariants
//
//   - !IsActive implies CurrentTemp == 0
//   - CurrentTemp <= MaxTemp
//   - TotalSinteredBlocks never decreases and grows by exactly one per
//     accepted sinter
//   - Block N of a furnace lives at ident.BlockAddress(furnace, N) and is
//     written once
//
// Cooldown does not reset the block counter, and a re-ignited furnace keeps
// appending after its last block.
package furnace
