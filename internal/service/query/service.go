package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stagepass/internal/domain"
	"stagepass/internal/repository"
	postgresrepo "stagepass/internal/repository/postgres"
	redisrepo "stagepass/internal/repository/redis"
	redisx "stagepass/internal/redis"
)

type Config struct {
	EventSummaryTTL  time.Duration
	AvailabilityTTL  time.Duration
	SeatMapTTL       time.Duration
	DefaultSeatsPage int
	MaxSeatsPage     int
}

type Service struct {
	store *postgresrepo.Store
	cache *redisrepo.Cache
	cfg   Config
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.EventSummaryTTL <= 0 {
		cfg.EventSummaryTTL = 60 * time.Second
	}

	if cfg.AvailabilityTTL <= 0 {
		cfg.AvailabilityTTL = 15 * time.Second
	}

	if cfg.SeatMapTTL <= 0 {
		cfg.SeatMapTTL = 15 * time.Second
	}

	if cfg.DefaultSeatsPage <= 0 {
		cfg.DefaultSeatsPage = 100
	}

	if cfg.MaxSeatsPage <= 0 {
		cfg.MaxSeatsPage = 500
	}

	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
	}
}

// GetEvent retrieves an event through the cache.
//
// Returns:
//   - error: query.ErrEventNotFound if the event is not found.
func (s *Service) GetEvent(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	const op = "service.query.GetEvent"

	key := redisx.KeyEventSummary(id)

	event, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		key,
		s.cfg.EventSummaryTTL,
		func(ctx context.Context) (domain.Event, error) {
			e, err := s.store.Query().GetEvent(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.Event{}, ErrEventNotFound
				}

				return domain.Event{}, err
			}

			return *e, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &event, nil
}

func (s *Service) ListEvents(ctx context.Context) ([]domain.Event, error) {
	const op = "service.query.ListEvents"

	events, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisx.KeyEventList(),
		s.cfg.EventSummaryTTL,
		func(ctx context.Context) ([]domain.Event, error) {
			return s.store.Query().ListEvents(ctx)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return events, nil
}

// Availability returns per-status seat counts for an event.
//
// Returns:
//   - error: query.ErrEventNotFound if the event is not found.
func (s *Service) Availability(ctx context.Context, eventID uuid.UUID) (*domain.EventCounts, error) {
	const op = "service.query.Availability"

	key := redisx.KeyEventAvailability(eventID)

	counts, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		key,
		s.cfg.AvailabilityTTL,
		func(ctx context.Context) (domain.EventCounts, error) {
			c, err := s.store.Query().CountsByStatus(ctx, eventID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.EventCounts{}, ErrEventNotFound
				}

				return domain.EventCounts{}, err
			}

			return *c, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &counts, nil
}

// ListEventSeats lists an event's seats, optionally only the available ones.
// The unfiltered first page is the seat-map render and is served through the
// cache.
func (s *Service) ListEventSeats(
	ctx context.Context,
	eventID uuid.UUID,
	onlyAvailable bool,
	limit, offset int,
) ([]domain.Seat, error) {
	const op = "service.query.ListEventSeats"

	if limit <= 0 {
		limit = s.cfg.DefaultSeatsPage
	}

	if limit > s.cfg.MaxSeatsPage {
		limit = s.cfg.MaxSeatsPage
	}

	load := func(ctx context.Context) ([]domain.Seat, error) {
		seats, err := s.store.Query().ListEventSeats(ctx, eventID, onlyAvailable, limit, offset)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrEventNotFound
			}

			return nil, err
		}

		return seats, nil
	}

	if onlyAvailable || offset != 0 || limit != s.cfg.DefaultSeatsPage {
		seats, err := load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return seats, nil
	}

	seats, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeyEventSeatMap(eventID), s.cfg.SeatMapTTL, load)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return seats, nil
}

// GetBookingWithTickets retrieves a booking with its tickets.
//
// Returns:
//   - error: query.ErrBookingNotFound if the booking is not found.
func (s *Service) GetBookingWithTickets(ctx context.Context, bookingID uuid.UUID) (*domain.BookingWithTickets, error) {
	const op = "service.query.GetBookingWithTickets"

	b, err := s.store.Query().GetBookingWithTickets(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrBookingNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}
