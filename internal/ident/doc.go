// Package ident provides identities, derived addresses and content-addressed
// hashing for kiln.
//
// # Derived Addresses
//
// Every persisted record is keyed by an address computed from its owner:
//
//	FurnaceAddress(authority)      = SHA256("kiln/furnace/v1"  || 0x00 || NFC(authority))
//	BlockAddress(furnace, index)   = SHA256("kiln/sintered/v1" || 0x00 || furnace || LE64(index))
//
// Both functions are pure. The same (furnace, index) pair always yields the
// same address, so a replayed request at an unchanged counter collides with
// the record it already wrote instead of creating a second one.
//
// # Event Identity
//
// Journal events are identified by SHA-256 over RFC 8785 canonical JSON with
// the "kiln/event/v1" domain prefix. MarshalCanonical is the only encoding
// that may be used for identity computation.
package ident
