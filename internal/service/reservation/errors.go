package reservation

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNoSeatsSelected  = errors.New("no seats selected")
	ErrDuplicateSeats   = errors.New("duplicate seat ids")
	ErrSeatsUnavailable = errors.New("some seats are unavailable")
	ErrSeatsNotFound    = errors.New("some seats do not exist")
	ErrCrossEvent       = errors.New("seats belong to different events")
)

// ConflictError carries which seats the caller asked for and which of them
// were still eligible when the transition ran. No seat changed state.
type ConflictError struct {
	Attempted []uuid.UUID
	Eligible  []uuid.UUID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("seats unavailable: attempted %v, eligible %v", e.Attempted, e.Eligible)
}

func (e *ConflictError) Unwrap() error { return ErrSeatsUnavailable }

type SeatsNotFoundError struct {
	SeatIDs []uuid.UUID
}

func (e *SeatsNotFoundError) Error() string {
	return fmt.Sprintf("seats not found: %v", e.SeatIDs)
}

func (e *SeatsNotFoundError) Unwrap() error { return ErrSeatsNotFound }
