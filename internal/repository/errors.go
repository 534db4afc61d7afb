package repository

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrSeatsUnavailable = errors.New("some seats unavailable")
	ErrSeatsNotFound    = errors.New("some seats do not exist")
	ErrCrossEvent       = errors.New("seats belong to more than one event")
	ErrAlreadyFinalized = errors.New("booking already finalized")
)

// SeatConflictError reports a batch transition that matched only a strict
// subset of the requested seats. The transaction it ran in was rolled back,
// so no seat changed state.
type SeatConflictError struct {
	Attempted []uuid.UUID
	Eligible  []uuid.UUID
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seat conflict: attempted %v, eligible %v", e.Attempted, e.Eligible)
}

func (e *SeatConflictError) Unwrap() error { return ErrSeatsUnavailable }

type SeatsNotFoundError struct {
	SeatIDs []uuid.UUID
}

func (e *SeatsNotFoundError) Error() string {
	return fmt.Sprintf("seats not found: %v", e.SeatIDs)
}

func (e *SeatsNotFoundError) Unwrap() error { return ErrSeatsNotFound }

type CrossEventError struct {
	EventIDs []uuid.UUID
}

func (e *CrossEventError) Error() string {
	return fmt.Sprintf("seats resolve to multiple events: %v", e.EventIDs)
}

func (e *CrossEventError) Unwrap() error { return ErrCrossEvent }
