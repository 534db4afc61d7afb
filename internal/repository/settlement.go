package repository

import (
	"github.com/google/uuid"

	"stagepass/internal/domain"
)

// Settlement is the full write set of a booking finalization: the terminal
// booking state plus the seat transition that settles its tickets. A store
// applies it in one transaction or not at all.
type Settlement struct {
	BookingID uuid.UUID
	EventID   uuid.UUID

	Status  domain.BookingStatus
	Payment domain.PaymentStatus

	// CancelTickets marks the booking's active tickets cancelled; set on the
	// failed-payment path.
	CancelTickets bool

	SeatIDs  []uuid.UUID
	SeatFrom []domain.SeatStatus
	SeatTo   domain.SeatStatus
}
