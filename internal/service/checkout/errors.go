package checkout

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrIdentityRequired          = errors.New("resolvable user identity required")
	ErrNoSeatsSelected           = errors.New("no seats selected")
	ErrSeatsUnavailable          = errors.New("seats unavailable")
	ErrPayerContactRequired      = errors.New("payer email required")
	ErrPaymentInitiationFailed   = errors.New("payment initiation failed")
	ErrBookingPersistenceFailed  = errors.New("booking persistence failed")
	ErrRateLimited               = errors.New("rate limited")
	ErrVerificationReferenceGone = errors.New("no booking for verified reference")
)

// SeatsUnavailableError lists the contested seats so the UI can re-offer the
// seat map. No seat changed state.
type SeatsUnavailableError struct {
	Attempted []uuid.UUID
	Eligible  []uuid.UUID
}

func (e *SeatsUnavailableError) Error() string {
	return fmt.Sprintf("seats unavailable: attempted %v, eligible %v", e.Attempted, e.Eligible)
}

func (e *SeatsUnavailableError) Unwrap() error { return ErrSeatsUnavailable }
