package ident

import (
	"encoding/hex"
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// AddressSize is the byte length of a derived address.
const AddressSize = 32

// DigestSize is the byte length of a caller-supplied data digest.
const DigestSize = 32

// MaxIdentityLength bounds the byte length of an identity after normalisation.
const MaxIdentityLength = 256

var (
	ErrEmptyIdentity   = errors.New("ident: identity is empty")
	ErrInvalidIdentity = errors.New("ident: identity contains control characters")
	ErrIdentityTooLong = errors.New("ident: identity too long")
)

// Identity names a caller. Identities are compared by value after NFC
// normalisation, so visually identical strings always match.
type Identity string

// ParseIdentity validates and normalises s.
func ParseIdentity(s string) (Identity, error) {
	if s == "" {
		return "", ErrEmptyIdentity
	}
	normalized := norm.NFC.String(s)
	if len(normalized) > MaxIdentityLength {
		return "", fmt.Errorf("%w: %d bytes (max %d)", ErrIdentityTooLong, len(normalized), MaxIdentityLength)
	}
	for _, r := range normalized {
		if unicode.IsControl(r) {
			return "", ErrInvalidIdentity
		}
	}
	return Identity(normalized), nil
}

// MustParseIdentity is like ParseIdentity but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParseIdentity(s string) Identity {
	id, err := ParseIdentity(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the identity as a plain string.
func (i Identity) String() string {
	return string(i)
}

// Address is a derived, collision-free record location.
type Address [AddressSize]byte

// ParseAddress decodes a 64 character hex string.
func ParseAddress(s string) (Address, error) {
	var a Address
	if err := decodeFixedHex(s, a[:]); err != nil {
		return Address{}, fmt.Errorf("parse address: %w", err)
	}
	return a, nil
}

// MustParseAddress is like ParseAddress but panics on error.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the lowercase hex encoding.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// IsZero reports whether a is the all-zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Digest is an opaque 32-byte integrity digest supplied by a caller.
type Digest [DigestSize]byte

// ParseDigest decodes a 64 character hex string.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	if err := decodeFixedHex(s, d[:]); err != nil {
		return Digest{}, fmt.Errorf("parse digest: %w", err)
	}
	return d, nil
}

// String returns the lowercase hex encoding.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// MarshalText implements encoding.TextMarshaler.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func decodeFixedHex(s string, dst []byte) error {
	if len(s) != hex.EncodedLen(len(dst)) {
		return fmt.Errorf("want %d hex characters, got %d", hex.EncodedLen(len(dst)), len(s))
	}
	if _, err := hex.Decode(dst, []byte(s)); err != nil {
		return err
	}
	return nil
}
