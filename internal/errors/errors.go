package errors

import (
	"errors"
	"fmt"
	"time"
)

type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return e.Field + ": " + e.Message
}

// NewValidation builds a field-scoped validation error.
func NewValidation(field, message string) *ErrValidation {
	return &ErrValidation{Field: field, Message: message}
}

// IsValidation reports whether err wraps an ErrValidation.
func IsValidation(err error) bool {
	var ve *ErrValidation
	return errors.As(err, &ve)
}

// ErrInsufficientHistory is returned when a historical exchange rate is
// requested for a date before the earliest known rate of the pair.
// Callers must not substitute a live or default rate for it.
type ErrInsufficientHistory struct {
	Pair      string
	Requested time.Time
	Earliest  time.Time
}

func (e *ErrInsufficientHistory) Error() string {
	return fmt.Sprintf("insufficient rate history for %s: requested %s, earliest known %s",
		e.Pair, e.Requested.Format("2006-01-02"), e.Earliest.Format("2006-01-02"))
}

func IsInsufficientHistory(err error) bool {
	var he *ErrInsufficientHistory
	return errors.As(err, &he)
}

// ErrNoRate is returned when no exchange rate exists for a currency pair
// in either the configured source or the default table.
type ErrNoRate struct {
	From string
	To   string
}

func (e *ErrNoRate) Error() string {
	return fmt.Sprintf("no exchange rate available for %s/%s", e.From, e.To)
}

func IsNoRate(err error) bool {
	var re *ErrNoRate
	return errors.As(err, &re)
}
