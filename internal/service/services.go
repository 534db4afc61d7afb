package service

import (
	"log/slog"

	"stagepass/internal/external"
	redisx "stagepass/internal/redis"
	postgres "stagepass/internal/repository/postgres"
	redis "stagepass/internal/repository/redis"
	"stagepass/internal/service/admin"
	"stagepass/internal/service/checkout"
	"stagepass/internal/service/ledger"
	"stagepass/internal/service/query"
	"stagepass/internal/service/reservation"
)

type Services struct {
	Reservation *reservation.Service
	Ledger      *ledger.Service
	Checkout    *checkout.Service
	Query       *query.Service
	Admin       *admin.Service
}

type Config struct {
	Reservation reservation.Config
	Query       query.Config
	Checkout    checkout.Config
}

func NewServices(
	store *postgres.Store,
	cache *redis.Cache,
	pubsub *redisx.SeatsPubSub,
	limiter *redis.SlidingWindowLimiter,
	gateway *external.PaystackClient,
	logger *slog.Logger,
	cfg Config,
) *Services {
	res := reservation.New(store.Seats(), cache, pubsub, cfg.Reservation)
	ldg := ledger.New(store.Bookings(), store, res, logger)

	return &Services{
		Reservation: res,
		Ledger:      ldg,
		Checkout:    checkout.New(res, ldg, gateway, store.Users(), limiter, logger, cfg.Checkout),
		Query:       query.New(store, cache, cfg.Query),
		Admin:       admin.New(store, cache, pubsub, logger),
	}
}
