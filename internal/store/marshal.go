package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/kiln/internal/ident"
)

const timeLayout = time.RFC3339Nano

// u2i maps an unsigned value onto the int64 with the same bits.
func u2i(v uint64) int64 {
	return int64(v)
}

// i2u reverses u2i.
func i2u(v int64) uint64 {
	return uint64(v)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}

func parseAddress(column, s string) (ident.Address, error) {
	addr, err := ident.ParseAddress(s)
	if err != nil {
		return ident.Address{}, fmt.Errorf("column %s: %w", column, err)
	}
	return addr, nil
}

func parseDigest(b []byte) (ident.Digest, error) {
	var d ident.Digest
	if len(b) != len(d) {
		return d, fmt.Errorf("column data_hash: want %d bytes, got %d", len(d), len(b))
	}
	copy(d[:], b)
	return d, nil
}

// marshalPayload serializes a journal payload to canonical JSON.
func marshalPayload(payload map[string]any) (string, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := ident.MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload decodes a stored payload. Numbers decode as json.Number
// so uint64 values survive intact.
func unmarshalPayload(s string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}

// isConstraintViolation reports whether err is a SQLite constraint failure.
func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
