package wizard

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound    = errors.New("wizard session not found")
	ErrEmptySelection     = errors.New("no services selected")
	ErrMissingContact     = errors.New("customer name, email and phone are required")
	ErrMissingSchedule    = errors.New("booking date and time are required")
	ErrInvalidLocation    = errors.New("unknown service location")
	ErrInvalidDate        = errors.New("invalid booking date")
	ErrPastDate           = errors.New("booking date is in the past")
	ErrClosedDay          = errors.New("salon is closed on the selected day")
	ErrDateTooFar         = errors.New("booking date is too far ahead")
	ErrInvalidTimeSlot    = errors.New("time is not an available slot")
	ErrWrongStep          = errors.New("operation not allowed at the current step")
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
)

// PartialSubmissionError reports that the primary record was persisted but
// the secondary batch failed. No compensating delete is performed; the order
// number is carried so staff can reconcile the orphaned primary row.
type PartialSubmissionError struct {
	OrderNumber string
	Err         error
}

func (e *PartialSubmissionError) Error() string {
	return fmt.Sprintf("secondary bookings failed for order %s: %v", e.OrderNumber, e.Err)
}

func (e *PartialSubmissionError) Unwrap() error {
	return e.Err
}
