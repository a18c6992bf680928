/*
errors.go - Centralized error types for the wage engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Shift-level problems never abort a computation: they are wrapped in a
  ShiftError and surfaced as warnings next to the breakdown.

ERROR CATEGORIES:
  1. Shift errors - a single record cannot be priced (excluded, warned)
  2. Request errors - the caller asked for something malformed
  3. Store errors - lookups that found nothing

USAGE:
  for _, w := range breakdown.Warnings {
      if errors.Is(w, generic.ErrMissingRate) {
          // prompt the user to set a wage for the workplace
      }
  }

SEE ALSO:
  - payroll/aggregator.go: Produces ShiftError warnings
  - api/handlers.go: Maps errors to HTTP status codes
*/
package generic

import (
	"encoding/json"
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInterval is returned for a shift whose timestamps are missing,
	// unparseable, or still non-positive after midnight normalization.
	ErrInvalidInterval = errors.New("invalid shift interval")

	// ErrMissingRate is returned when neither the shift nor its subject
	// provides an hourly wage.
	ErrMissingRate = errors.New("no hourly wage for shift")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidConfig is returned when an employment config fails validation.
	ErrInvalidConfig = errors.New("invalid employment config")

	// ErrSubjectNotFound is returned when a referenced subject doesn't exist.
	ErrSubjectNotFound = errors.New("subject not found")

	// ErrShiftNotFound is returned when a referenced shift doesn't exist.
	ErrShiftNotFound = errors.New("shift not found")

	// ErrPeriodClosed is returned when shifts of an already closed payroll
	// period are edited.
	ErrPeriodClosed = errors.New("payroll period is closed")

	// ErrCacheMiss is returned by caches when no entry matches the key and
	// fingerprint.
	ErrCacheMiss = errors.New("cache miss")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ShiftError explains why one shift was left out of a breakdown.
type ShiftError struct {
	ShiftID ShiftID
	Reason  error // ErrInvalidInterval or ErrMissingRate
	Detail  string
}

func (e ShiftError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("shift %s: %v", e.ShiftID, e.Reason)
	}
	return fmt.Sprintf("shift %s: %v: %s", e.ShiftID, e.Reason, e.Detail)
}

func (e ShiftError) Unwrap() error {
	return e.Reason
}

// Code is a stable machine-readable identifier for the reason.
func (e ShiftError) Code() string {
	switch {
	case errors.Is(e.Reason, ErrInvalidInterval):
		return "invalid_interval"
	case errors.Is(e.Reason, ErrMissingRate):
		return "missing_rate"
	default:
		return "unknown"
	}
}

type shiftErrorJSON struct {
	ShiftID ShiftID `json:"shift_id"`
	Code    string  `json:"code"`
	Detail  string  `json:"detail,omitempty"`
}

func (e ShiftError) MarshalJSON() ([]byte, error) {
	return json.Marshal(shiftErrorJSON{ShiftID: e.ShiftID, Code: e.Code(), Detail: e.Detail})
}

func (e *ShiftError) UnmarshalJSON(data []byte) error {
	var raw shiftErrorJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.ShiftID = raw.ShiftID
	e.Detail = raw.Detail
	switch raw.Code {
	case "invalid_interval":
		e.Reason = ErrInvalidInterval
	case "missing_rate":
		e.Reason = ErrMissingRate
	default:
		e.Reason = fmt.Errorf("unknown shift error %q", raw.Code)
	}
	return nil
}

// ConfigError names the offending field of an employment config.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s %s", ErrInvalidConfig, e.Field, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrInvalidInterval)
}

// IsConflict returns true if the request collides with existing state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrPeriodClosed)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSubjectNotFound) ||
		errors.Is(err, ErrShiftNotFound)
}
