package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrMalformedBarcode = errors.New("malformed barcode: expected 27 positional characters or at least order and process separated by '-'")
	ErrUnknownContext   = errors.New("cannot classify scan: no receipt at this station and no history for the order elsewhere")
	ErrQuantityMismatch = errors.New("quantity mismatch")
	ErrNoQuantity       = errors.New("quantity required: at least one of good or bad must be positive")
	ErrInvalidQuantity  = errors.New("invalid quantity: must not be negative")
	ErrInvalidCapacity  = errors.New("invalid container capacity: must not be negative")
	ErrTooManyBoxes     = errors.New("invalid split: box sequence exceeds two digits")
	ErrBoxOverflow      = errors.New("invalid split: box quantity exceeds four digits")
	ErrUnknownSeries    = errors.New("invalid series code")
	ErrUnknownModel     = errors.New("invalid model code")
	ErrFlowViolation    = errors.New("station flow violation")
	ErrFieldTooWide     = errors.New("barcode field too wide")
	ErrUnknownStation   = errors.New("invalid station code")
	ErrEmptyBatch       = errors.New("at least one barcode is required")
)

// MismatchError reports a reconciliation failure: good + bad did not match the inbound total.
type MismatchError struct {
	Expected int
	Actual   int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("quantity mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Is lets errors.Is match any MismatchError against ErrQuantityMismatch.
func (e *MismatchError) Is(target error) bool {
	return target == ErrQuantityMismatch
}

// FlowError reports a station transition that the series route does not allow.
type FlowError struct {
	Series   string
	From     string
	To       string
	Expected string
	Reason   string
}

func (e *FlowError) Error() string {
	if e.Expected != "" {
		return fmt.Sprintf("station flow violation for series %s: after %s the next station is %s, not %s", e.Series, e.From, e.Expected, e.To)
	}
	return fmt.Sprintf("station flow violation for series %s: %s", e.Series, e.Reason)
}

func (e *FlowError) Is(target error) bool {
	return target == ErrFlowViolation
}
