package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stagepass/internal/domain"
	"stagepass/internal/repository"
	redisrepo "stagepass/internal/repository/redis"
	redisx "stagepass/internal/redis"
)

// SeatStore is the conditional-transition primitive the engine drives. The
// postgres seat repo implements it; tests substitute an in-memory fake.
type SeatStore interface {
	Transition(
		ctx context.Context,
		eventID uuid.UUID,
		seatIDs []uuid.UUID,
		from []domain.SeatStatus,
		to domain.SeatStatus,
	) ([]domain.SeatLock, error)
	ReleaseStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type Config struct {
	HoldTTL time.Duration
}

// Service is the reservation engine: all seat-status mutation in the system
// funnels through its conditional bulk transitions. It never writes a seat
// unconditionally.
type Service struct {
	seats  SeatStore
	cache  *redisrepo.Cache
	pubsub *redisx.SeatsPubSub
	cfg    Config
}

func New(seats SeatStore, cache *redisrepo.Cache, pubsub *redisx.SeatsPubSub, cfg Config) *Service {
	if cfg.HoldTTL <= 0 {
		cfg.HoldTTL = 15 * time.Minute
	}

	return &Service{
		seats:  seats,
		cache:  cache,
		pubsub: pubsub,
		cfg:    cfg,
	}
}

// Transition moves the whole batch of seats from one of the from statuses to
// to, or moves nothing.
//
// Parameters:
//   - ctx: request-scoped context.
//   - eventID: event every seat must belong to.
//   - seatIDs: seats to transition, non-empty.
//
// Returns:
//   - []domain.SeatLock: the transitioned seats with prices.
//   - error: *reservation.ConflictError if any seat was not in an eligible
//     status; *reservation.SeatsNotFoundError, reservation.ErrCrossEvent.
func (s *Service) Transition(
	ctx context.Context,
	eventID uuid.UUID,
	seatIDs []uuid.UUID,
	from []domain.SeatStatus,
	to domain.SeatStatus,
) ([]domain.SeatLock, error) {
	const op = "service.reservation.Transition"

	if eventID == uuid.Nil {
		return nil, fmt.Errorf("%s: event id required", op)
	}
	if len(seatIDs) == 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrNoSeatsSelected)
	}
	seen := make(map[uuid.UUID]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		if id == uuid.Nil {
			return nil, fmt.Errorf("%s:%w", op, &SeatsNotFoundError{SeatIDs: []uuid.UUID{id}})
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%s:%w", op, ErrDuplicateSeats)
		}
		seen[id] = struct{}{}
	}

	locks, err := s.seats.Transition(ctx, eventID, seatIDs, from, to)
	if err != nil {
		var conflict *repository.SeatConflictError
		if errors.As(err, &conflict) {
			return nil, fmt.Errorf("%s:%w", op, &ConflictError{
				Attempted: conflict.Attempted,
				Eligible:  conflict.Eligible,
			})
		}

		var missing *repository.SeatsNotFoundError
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("%s:%w", op, &SeatsNotFoundError{SeatIDs: missing.SeatIDs})
		}

		if errors.Is(err, repository.ErrCrossEvent) {
			return nil, fmt.Errorf("%s:%w", op, ErrCrossEvent)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.afterTransition(ctx, eventID)

	return locks, nil
}

// Reserve holds available seats for a seat-picking session.
func (s *Service) Reserve(ctx context.Context, eventID uuid.UUID, seatIDs []uuid.UUID) ([]domain.SeatLock, error) {
	return s.Transition(ctx, eventID, seatIDs,
		[]domain.SeatStatus{domain.SeatAvailable}, domain.SeatReserved)
}

// Release returns reserved seats to the pool.
func (s *Service) Release(ctx context.Context, eventID uuid.UUID, seatIDs []uuid.UUID) ([]domain.SeatLock, error) {
	return s.Transition(ctx, eventID, seatIDs,
		[]domain.SeatStatus{domain.SeatReserved}, domain.SeatAvailable)
}

// Book claims seats for checkout. Seats already booked are not eligible, which
// is the anti-overselling guarantee: of two concurrent Book calls over
// overlapping seats, at most one sees its full batch eligible.
func (s *Service) Book(ctx context.Context, eventID uuid.UUID, seatIDs []uuid.UUID) ([]domain.SeatLock, error) {
	return s.Transition(ctx, eventID, seatIDs,
		[]domain.SeatStatus{domain.SeatAvailable, domain.SeatReserved}, domain.SeatBooked)
}

// Unbook is the compensation path: failed payment or aborted checkout returns
// the seats to the pool.
func (s *Service) Unbook(ctx context.Context, eventID uuid.UUID, seatIDs []uuid.UUID) ([]domain.SeatLock, error) {
	return s.Transition(ctx, eventID, seatIDs,
		[]domain.SeatStatus{domain.SeatReserved, domain.SeatBooked}, domain.SeatAvailable)
}

// ReleaseStale frees seats left reserved past the hold TTL by abandoned
// seat-picking sessions. Seats referenced by a pending booking are left for
// the payment confirmation paths to settle.
func (s *Service) ReleaseStale(ctx context.Context) (int64, error) {
	const op = "service.reservation.ReleaseStale"

	released, err := s.seats.ReleaseStale(ctx, time.Now().Add(-s.cfg.HoldTTL))
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return released, nil
}

// SeatsSettled fans out the cache invalidation and seats-changed publish for
// a seat transition that committed inside the ledger's settle transaction.
func (s *Service) SeatsSettled(ctx context.Context, eventID uuid.UUID) {
	s.afterTransition(ctx, eventID)
}

func (s *Service) afterTransition(ctx context.Context, eventID uuid.UUID) {
	if s.cache != nil {
		_ = s.cache.InvalidateEvent(ctx, eventID)
	}
	if s.pubsub != nil {
		_ = s.pubsub.PublishSeatsChanged(ctx, eventID)
	}
}
