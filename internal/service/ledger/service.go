package ledger

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"stagepass/internal/domain"
	"stagepass/internal/repository"
)

// Outcome is the terminal result of a payment attempt.
type Outcome string

const (
	OutcomePaid   Outcome = "paid"
	OutcomeFailed Outcome = "failed"
)

// Store is the booking persistence the ledger writes through. The postgres
// booking repo implements it.
type Store interface {
	CreateWithTickets(ctx context.Context, b *domain.Booking, tickets []domain.Ticket) error
	ByReference(ctx context.Context, reference string) (*domain.Booking, error)
	SeatIDsByBooking(ctx context.Context, bookingID uuid.UUID) ([]uuid.UUID, error)
}

// Settler applies the whole finalize write set in one storage transaction.
// The postgres store implements it over RunTx with tx-bound repos.
type Settler interface {
	SettlePending(ctx context.Context, stl repository.Settlement) error
}

// Engine is the slice of the reservation engine finalization drives: the
// cache and seats-changed fanout once a settle transaction commits.
type Engine interface {
	SeatsSettled(ctx context.Context, eventID uuid.UUID)
}

// Service is the booking ledger: it creates the pending Booking/Ticket pair
// atomically and finalizes it exactly once per outcome, no matter how many
// times the gateway delivers the result.
type Service struct {
	store   Store
	settler Settler
	engine  Engine
	logger  *slog.Logger
}

func New(store Store, settler Settler, engine Engine, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:   store,
		settler: settler,
		engine:  engine,
		logger:  logger,
	}
}

// CreatePending persists a pending booking plus one active ticket per locked
// seat in a single transaction.
//
// Parameters:
//   - bookingRef: the unique booking reference, also used as the gateway
//     idempotency reference (see NewBookingReference).
//   - gatewayRef: the charge reference the gateway returned at initiation.
//
// Returns:
//   - *domain.Booking: the persisted booking with generated identifiers.
func (s *Service) CreatePending(
	ctx context.Context,
	userID string,
	eventID uuid.UUID,
	locked []domain.SeatLock,
	paymentMethod string,
	bookingRef, gatewayRef string,
) (*domain.Booking, error) {
	const op = "service.ledger.CreatePending"

	if len(locked) == 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrNoSeatsLocked)
	}

	var total int64
	for _, l := range locked {
		total += l.PriceKobo
	}

	b := &domain.Booking{
		ID:               uuid.New(),
		UserID:           userID,
		EventID:          eventID,
		Status:           domain.BookingPending,
		PaymentStatus:    domain.PaymentPending,
		TotalKobo:        total,
		PaymentMethod:    paymentMethod,
		PaymentReference: gatewayRef,
		Reference:        bookingRef,
	}

	tickets := make([]domain.Ticket, 0, len(locked))
	for _, l := range locked {
		number := NewTicketNumber()
		tickets = append(tickets, domain.Ticket{
			ID:        uuid.New(),
			BookingID: b.ID,
			SeatID:    l.ID,
			PriceKobo: l.PriceKobo,
			Status:    domain.TicketActive,
			Number:    number,
			QRPayload: qrPayload(number),
		})
	}

	if err := s.store.CreateWithTickets(ctx, b, tickets); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return b, nil
}

// Finalize settles a pending booking. Safe to call any number of times for
// the same reference and outcome: the first call wins, the rest are no-ops.
//
// Returns:
//   - error: *ledger.BookingNotFoundError if the reference is unknown.
func (s *Service) Finalize(ctx context.Context, reference string, outcome Outcome) error {
	const op = "service.ledger.Finalize"

	b, err := s.store.ByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, &BookingNotFoundError{Reference: reference})
		}

		return fmt.Errorf("%s:%w", op, err)
	}

	if b.Status != domain.BookingPending {
		// Already settled; duplicate gateway delivery.
		s.logger.Info("booking already finalized",
			"reference", reference,
			"status", b.Status,
			"payment_status", b.PaymentStatus,
		)
		return nil
	}

	seatIDs, err := s.store.SeatIDsByBooking(ctx, b.ID)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	stl := repository.Settlement{
		BookingID: b.ID,
		EventID:   b.EventID,
		Status:    domain.BookingConfirmed,
		Payment:   domain.PaymentPaid,
		SeatIDs:   seatIDs,
		SeatFrom:  []domain.SeatStatus{domain.SeatReserved, domain.SeatBooked},
		SeatTo:    domain.SeatBooked,
	}
	if outcome == OutcomeFailed {
		stl.Status, stl.Payment = domain.BookingCancelled, domain.PaymentFailed
		stl.CancelTickets = true
		stl.SeatTo = domain.SeatAvailable
	}

	if err := s.settler.SettlePending(ctx, stl); err != nil {
		if errors.Is(err, repository.ErrAlreadyFinalized) {
			// A concurrent finalize won the conditional update; its
			// transaction owns the seat transition too.
			return nil
		}

		return fmt.Errorf("%s:%w", op, err)
	}

	s.engine.SeatsSettled(ctx, b.EventID)

	return nil
}

// NewBookingReference generates a reference like BK-1717430400123-9XK2QF.
// The millisecond timestamp plus random suffix makes collisions negligible;
// the unique index on bookings.reference backstops the remainder.
func NewBookingReference() string {
	return fmt.Sprintf("BK-%d-%s", time.Now().UnixMilli(), randomToken(6))
}

// NewTicketNumber generates a number like TKT-1717430400123-A8B2C3D4.
func NewTicketNumber() string {
	return fmt.Sprintf("TKT-%d-%s", time.Now().UnixMilli(), randomToken(8))
}

func qrPayload(ticketNumber string) string {
	return "https://api.qrserver.com/v1/create-qr-code/?size=150x150&data=" + ticketNumber
}

const tokenAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

func randomToken(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)

	var sb strings.Builder
	for _, c := range b {
		sb.WriteByte(tokenAlphabet[int(c)%len(tokenAlphabet)])
	}

	return sb.String()
}
