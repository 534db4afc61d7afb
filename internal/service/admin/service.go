package admin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"stagepass/internal/domain"
	postgresrepo "stagepass/internal/repository/postgres"
	redisrepo "stagepass/internal/repository/redis"
	redisx "stagepass/internal/redis"
)

// DefaultSectionPlans is the standard three-tier house layout used when an
// event is seeded without an explicit plan. Prices are in kobo.
var DefaultSectionPlans = []domain.SectionPlan{
	{Name: "VIP", Category: "vip", Rows: 5, SeatsPerRow: 20, PriceKobo: 2_500_000},
	{Name: "Standard", Category: "standard", Rows: 10, SeatsPerRow: 30, PriceKobo: 1_500_000},
	{Name: "Balcony", Category: "balcony", Rows: 8, SeatsPerRow: 25, PriceKobo: 800_000},
}

type Service struct {
	store  *postgresrepo.Store
	cache  *redisrepo.Cache
	pubsub *redisx.SeatsPubSub
	logger *slog.Logger
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, pubsub *redisx.SeatsPubSub, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:  store,
		cache:  cache,
		pubsub: pubsub,
		logger: logger,
	}
}

// CreateEvent creates an event. Seats are generated separately.
func (s *Service) CreateEvent(ctx context.Context, title, venue string, startsAt time.Time) (uuid.UUID, error) {
	const op = "service.admin.CreateEvent"

	title = strings.TrimSpace(title)
	venue = strings.TrimSpace(venue)
	if title == "" || venue == "" || startsAt.IsZero() {
		return uuid.Nil, ErrInvalidEvent
	}

	id, err := s.store.Admin().CreateEvent(ctx, title, venue, startsAt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.cache != nil {
		if err := s.cache.Del(ctx, redisx.KeyEventList()); err != nil {
			s.logger.Warn("event list cache invalidation failed", "error", err)
		}
	}

	s.logger.Info("event created", "event_id", id, "title", title)

	return id, nil
}

// GenerateSeats rebuilds an event's seat inventory from the section plans.
// A nil or empty plan falls back to DefaultSectionPlans.
func (s *Service) GenerateSeats(ctx context.Context, eventID uuid.UUID, plans []domain.SectionPlan) (int, error) {
	const op = "service.admin.GenerateSeats"

	if eventID == uuid.Nil {
		return 0, ErrInvalidEvent
	}

	if len(plans) == 0 {
		plans = DefaultSectionPlans
	}

	for _, p := range plans {
		if p.Rows <= 0 || p.SeatsPerRow <= 0 || p.PriceKobo < 0 || strings.TrimSpace(p.Name) == "" {
			return 0, ErrEmptyPlan
		}
	}

	var created int
	err := s.store.RunTx(ctx, nil, func(ctx context.Context, tx postgresrepo.DB) error {
		var err error
		created, err = s.store.Admin().With(tx).GenerateSeats(ctx, eventID, plans)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.afterSeatChange(ctx, eventID)
	s.logger.Info("seats generated", "event_id", eventID, "count", created)

	return created, nil
}

// ResetSeats forces every seat of an event back to available. It is a repair
// tool and does not touch bookings or tickets.
func (s *Service) ResetSeats(ctx context.Context, eventID uuid.UUID) (int64, error) {
	const op = "service.admin.ResetSeats"

	if eventID == uuid.Nil {
		return 0, ErrInvalidEvent
	}

	n, err := s.store.Admin().ResetSeats(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.afterSeatChange(ctx, eventID)
	s.logger.Info("seats reset", "event_id", eventID, "count", n)

	return n, nil
}

func (s *Service) Stats(ctx context.Context) (*domain.EventStats, error) {
	const op = "service.admin.Stats"

	stats, err := s.store.Admin().Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return stats, nil
}

func (s *Service) afterSeatChange(ctx context.Context, eventID uuid.UUID) {
	if s.cache != nil {
		if err := s.cache.InvalidateEvent(ctx, eventID); err != nil {
			s.logger.Warn("event cache invalidation failed", "event_id", eventID, "error", err)
		}
	}

	if s.pubsub != nil {
		if err := s.pubsub.PublishSeatsChanged(ctx, eventID); err != nil {
			s.logger.Warn("seat change publish failed", "event_id", eventID, "error", err)
		}
	}
}
