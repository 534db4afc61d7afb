package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrNoSeatsLocked   = errors.New("no locked seats to book")
)

type BookingNotFoundError struct {
	Reference string
}

func (e *BookingNotFoundError) Error() string {
	return fmt.Sprintf("booking not found: %s", e.Reference)
}

func (e *BookingNotFoundError) Unwrap() error { return ErrBookingNotFound }
