package core

import (
	"errors"
	"fmt"
)

// Entity types used in invariant violations, obligations and notifications.
const (
	EntityPayment     = "payment"
	EntityLine        = "line"
	EntityGroup       = "group"
	EntitySale        = "sale"
	EntityRental      = "rental"
	EntityAppointment = "appointment"
	EntityDiagnostic  = "diagnostic"
)

// ErrInvariantViolation matches every *InvariantViolation through errors.Is.
var ErrInvariantViolation = errors.New("invariant violation")

// InvariantViolation reports input that breaks a model invariant. It points at an
// upstream data-entry problem, so callers surface it as a data-quality warning.
type InvariantViolation struct {
	EntityID   string
	EntityType string
	Reason     string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation on %s %q: %s", e.EntityType, e.EntityID, e.Reason)
}

func (e *InvariantViolation) Is(target error) bool {
	return target == ErrInvariantViolation
}

// AsInvariantViolation unwraps err into an *InvariantViolation when it holds one.
func AsInvariantViolation(err error) (*InvariantViolation, bool) {
	var iv *InvariantViolation
	if errors.As(err, &iv) {
		return iv, true
	}
	return nil, false
}
