// Package feedstock prepares raw data for sintering: it digests the payload,
// checks it is fit to process and suggests a pressure.
//
// The furnace never sees raw data. Only the 32-byte digest returned by
// Prepare crosses into the controller.
package feedstock

import (
	"errors"
	"fmt"
	"math"

	"lukechampine.com/blake3"

	"github.com/roach88/kiln/internal/ident"
)

// MaxSize is the largest payload accepted for sintering (10 MiB).
const MaxSize = 10 * 1024 * 1024

// MaxPressure caps OptimalPressure.
const MaxPressure uint64 = 255

var (
	ErrEmpty    = errors.New("feedstock: payload is empty")
	ErrOversize = errors.New("feedstock: payload exceeds maximum size")
)

// Feedstock describes a prepared payload.
type Feedstock struct {
	// Hash is the BLAKE3-256 digest of the payload.
	Hash ident.Digest `json:"hash"`
	// OriginalSize is the payload length in bytes.
	OriginalSize uint64 `json:"original_size"`
	// CompressionRatio is compressed/original size. Payloads are not
	// compressed yet, so it is always 1.
	CompressionRatio float64 `json:"compression_ratio"`
	// Checksum is the wrapping byte sum of the payload.
	Checksum uint32 `json:"checksum"`
}

// Prepare digests raw and computes integrity metrics.
func Prepare(raw []byte) Feedstock {
	return Feedstock{
		Hash:             ident.Digest(blake3.Sum256(raw)),
		OriginalSize:     uint64(len(raw)),
		CompressionRatio: 1.0,
		Checksum:         Checksum(raw),
	}
}

// PrepareChecked validates raw with ValidatePurity before preparing it.
func PrepareChecked(raw []byte) (Feedstock, error) {
	if err := ValidatePurity(raw); err != nil {
		return Feedstock{}, err
	}
	return Prepare(raw), nil
}

// Checksum returns the byte sum of data modulo 2^32.
func Checksum(data []byte) uint32 {
	var sum uint32
	for _, b := range data {
		sum += uint32(b)
	}
	return sum
}

// ValidatePurity returns nil when data is non-empty and at most MaxSize.
func ValidatePurity(data []byte) error {
	if len(data) == 0 {
		return ErrEmpty
	}
	if len(data) > MaxSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrOversize, len(data), MaxSize)
	}
	return nil
}

// OptimalPressure suggests a sintering pressure: the furnace floor plus a
// size component (5 per doubling, at most 100) plus twice the urgency,
// capped at MaxPressure.
func OptimalPressure(size uint64, urgency uint8) uint64 {
	var sizeFactor uint64
	if size > 0 {
		sizeFactor = uint64(math.Min(math.Log2(float64(size))*5.0, 100.0))
	}

	urgencyFactor := uint64(urgency) * 2
	if urgencyFactor > 255 {
		urgencyFactor = 255
	}

	p := 90 + sizeFactor + urgencyFactor
	if p > MaxPressure {
		return MaxPressure
	}
	return p
}
