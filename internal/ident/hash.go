package ident

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for derived addresses and content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainFurnace  = "kiln/furnace/v1"
	DomainSintered = "kiln/sintered/v1"
	DomainEvent    = "kiln/event/v1"
)

// sumWithDomain computes SHA256(domain + 0x00 + parts...).
// The null separator prevents domain/data boundary ambiguity.
func sumWithDomain(domain string, parts ...[]byte) [sha256.Size]byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	for _, p := range parts {
		h.Write(p)
	}
	var out [sha256.Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// FurnaceAddress derives the address of the furnace owned by authority.
func FurnaceAddress(authority Identity) Address {
	return Address(sumWithDomain(DomainFurnace, []byte(authority)))
}

// BlockAddress derives the address of the index-th sintered block of furnace.
// The index is encoded little-endian in eight bytes.
func BlockAddress(furnace Address, index uint64) Address {
	var seq [8]byte
	binary.LittleEndian.PutUint64(seq[:], index)
	return Address(sumWithDomain(DomainSintered, furnace[:], seq[:]))
}

// EventID computes the content-addressed ID of a journal event.
// The ID covers kind, furnace, seq and payload; the request ID is excluded so
// identical transitions replayed under a different request keep their identity.
func EventID(kind string, furnace Address, seq int64, payload map[string]any) (string, error) {
	obj := map[string]any{
		"kind":    kind,
		"furnace": furnace.String(),
		"seq":     seq,
		"payload": payload,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EventID: failed to marshal: %w", err)
	}

	sum := sumWithDomain(DomainEvent, canonical)
	return hex.EncodeToString(sum[:]), nil
}

// MustEventID is like EventID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustEventID(kind string, furnace Address, seq int64, payload map[string]any) string {
	id, err := EventID(kind, furnace, seq, payload)
	if err != nil {
		panic(err)
	}
	return id
}
