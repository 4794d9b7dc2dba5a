package furnace

import (
	"errors"
	"fmt"

	"github.com/roach88/kiln/internal/ident"
)

// ErrorCode categorizes a rejection.
type ErrorCode string

const (
	// CodeUnauthorized indicates the caller is not the furnace authority.
	CodeUnauthorized ErrorCode = "Unauthorized"

	// CodeExceedsMaxTemperature indicates an ignition above MaxTemp.
	CodeExceedsMaxTemperature ErrorCode = "ExceedsMaxTemperature"

	// CodeFurnaceInactive indicates a sinter on a furnace that is not ignited.
	CodeFurnaceInactive ErrorCode = "FurnaceInactive"

	// CodeInsufficientPressure indicates a sinter below MinPressure.
	CodeInsufficientPressure ErrorCode = "InsufficientPressure"

	// CodeNotFound indicates a furnace or block that was never created.
	CodeNotFound ErrorCode = "NotFound"

	// CodeCapacityExceeded indicates the block counter cannot advance.
	CodeCapacityExceeded ErrorCode = "CapacityExceeded"

	// CodeThermalDeficiency indicates the furnace is colder than the batch
	// requires. Only returned when thermal enforcement is enabled.
	CodeThermalDeficiency ErrorCode = "ThermalDeficiency"

	// CodeStaleCounter indicates the counter moved between read and commit.
	CodeStaleCounter ErrorCode = "StaleCounter"

	// CodeAddressInUse indicates a write-once address already holds a record.
	CodeAddressInUse ErrorCode = "AddressInUse"

	// CodeInvalidRequest indicates malformed request arguments.
	CodeInvalidRequest ErrorCode = "InvalidRequest"
)

// Error is a typed rejection. Nothing is written when an Error is returned.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Furnace identifies the affected furnace, zero when not applicable.
	Furnace ident.Address

	// Details contains additional context.
	Details map[string]string
}

// Sentinels for errors.Is. Matching compares codes only.
var (
	ErrUnauthorized          = &Error{Code: CodeUnauthorized}
	ErrExceedsMaxTemperature = &Error{Code: CodeExceedsMaxTemperature}
	ErrFurnaceInactive       = &Error{Code: CodeFurnaceInactive}
	ErrInsufficientPressure  = &Error{Code: CodeInsufficientPressure}
	ErrNotFound              = &Error{Code: CodeNotFound}
	ErrCapacityExceeded      = &Error{Code: CodeCapacityExceeded}
	ErrThermalDeficiency     = &Error{Code: CodeThermalDeficiency}
	ErrStaleCounter          = &Error{Code: CodeStaleCounter}
	ErrAddressInUse          = &Error{Code: CodeAddressInUse}
	ErrInvalidRequest        = &Error{Code: CodeInvalidRequest}
)

// Error implements the error interface.
func (e *Error) Error() string {
	if !e.Furnace.IsZero() {
		return fmt.Sprintf("%s: %s (furnace=%s)", e.Code, e.Message, e.Furnace)
	}
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFound returns true if err is a NotFound rejection.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsRejection returns true if err is any typed rejection rather than an
// infrastructure failure.
func IsRejection(err error) bool {
	return CodeOf(err) != ""
}

// NewUnauthorizedError creates an Error for an authority mismatch.
func NewUnauthorizedError(furnace ident.Address, caller ident.Identity) *Error {
	return &Error{
		Code:    CodeUnauthorized,
		Message: "caller is not the furnace authority",
		Furnace: furnace,
		Details: map[string]string{"caller": caller.String()},
	}
}

// NewExceedsMaxTemperatureError creates an Error for an ignition above the ceiling.
func NewExceedsMaxTemperatureError(furnace ident.Address, requested uint64) *Error {
	return &Error{
		Code:    CodeExceedsMaxTemperature,
		Message: fmt.Sprintf("thermal runaway risk: %d exceeds ceiling %d", requested, MaxTemp),
		Furnace: furnace,
		Details: map[string]string{
			"requested": fmt.Sprintf("%d", requested),
			"max_temp":  fmt.Sprintf("%d", MaxTemp),
		},
	}
}

// NewFurnaceInactiveError creates an Error for a sinter on a cold furnace.
func NewFurnaceInactiveError(furnace ident.Address) *Error {
	return &Error{
		Code:    CodeFurnaceInactive,
		Message: "furnace is not active, ignition required",
		Furnace: furnace,
	}
}

// NewInsufficientPressureError creates an Error for a sinter below the floor.
func NewInsufficientPressureError(furnace ident.Address, pressure uint64) *Error {
	return &Error{
		Code:    CodeInsufficientPressure,
		Message: fmt.Sprintf("pressure %d below minimum %d PSI", pressure, MinPressure),
		Furnace: furnace,
		Details: map[string]string{
			"pressure":     fmt.Sprintf("%d", pressure),
			"min_pressure": fmt.Sprintf("%d", MinPressure),
		},
	}
}

// NewNotFoundError creates an Error for an unknown furnace or block address.
func NewNotFoundError(kind string, addr ident.Address) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %s not found", kind, addr),
		Details: map[string]string{"kind": kind, "address": addr.String()},
	}
}

// NewCapacityExceededError creates an Error for a counter that cannot advance.
func NewCapacityExceededError(furnace ident.Address) *Error {
	return &Error{
		Code:    CodeCapacityExceeded,
		Message: "block counter exhausted",
		Furnace: furnace,
	}
}

// NewThermalDeficiencyError creates an Error for a furnace too cold for a batch.
func NewThermalDeficiencyError(furnace ident.Address, current, required uint64) *Error {
	return &Error{
		Code:    CodeThermalDeficiency,
		Message: fmt.Sprintf("temperature %d below required %d", current, required),
		Furnace: furnace,
		Details: map[string]string{
			"current_temp":  fmt.Sprintf("%d", current),
			"required_heat": fmt.Sprintf("%d", required),
		},
	}
}

// NewStaleCounterError creates an Error for a commit against a moved counter.
func NewStaleCounterError(furnace ident.Address, expected uint64) *Error {
	return &Error{
		Code:    CodeStaleCounter,
		Message: fmt.Sprintf("block counter no longer %d, re-read and retry", expected),
		Furnace: furnace,
		Details: map[string]string{"expected": fmt.Sprintf("%d", expected)},
	}
}

// NewAddressInUseError creates an Error for a second write at a write-once address.
func NewAddressInUseError(addr ident.Address) *Error {
	return &Error{
		Code:    CodeAddressInUse,
		Message: fmt.Sprintf("address %s already written", addr),
		Details: map[string]string{"address": addr.String()},
	}
}

// NewInvalidRequestError creates an Error for malformed arguments.
func NewInvalidRequestError(format string, args ...any) *Error {
	return &Error{
		Code:    CodeInvalidRequest,
		Message: fmt.Sprintf(format, args...),
	}
}
