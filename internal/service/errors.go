package service

import (
	"errors"
	"fmt"

	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/model"
)

// ErrNoCurrentUser is returned when the current-user accessor cannot
// resolve an owner for the operation.
var ErrNoCurrentUser = errors.New("no current user")

// ValidationError rejects bad input before any store round-trip.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CapacityExceededError reports a full section bucket. It carries the
// limiting count so the caller can surface it; the operation is never
// retried automatically.
type CapacityExceededError struct {
	Section   model.Section
	Timeframe model.Timeframe
	Limit     int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("section %q is full at %s granularity (limit %d)", e.Section, e.Timeframe, e.Limit)
}

// BreakdownNotAllowedError reports a breakdown into a timeframe that is
// not a valid sub-period of the source, or into an already-used slot.
// Normal UI flow only offers valid targets, so seeing this is a
// logic-bug signal.
type BreakdownNotAllowedError struct {
	From   model.Timeframe
	To     model.Timeframe
	Reason string
}

func (e *BreakdownNotAllowedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot break down %s into %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("cannot break down %s into %s", e.From, e.To)
}

// IsCapacityExceeded reports whether err is a capacity failure.
func IsCapacityExceeded(err error) bool {
	var ce *CapacityExceededError
	return errors.As(err, &ce)
}

// IsValidation reports whether err is an input validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
