package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"stagepass/internal/domain"
	"stagepass/internal/external"
	redisrepo "stagepass/internal/repository/redis"
	"stagepass/internal/service/ledger"
	"stagepass/internal/service/reservation"
)

// Engine is the slice of the reservation engine the orchestrator drives.
type Engine interface {
	Book(ctx context.Context, eventID uuid.UUID, seatIDs []uuid.UUID) ([]domain.SeatLock, error)
	Unbook(ctx context.Context, eventID uuid.UUID, seatIDs []uuid.UUID) ([]domain.SeatLock, error)
}

// Ledger persists and finalizes bookings.
type Ledger interface {
	CreatePending(
		ctx context.Context,
		userID string,
		eventID uuid.UUID,
		locked []domain.SeatLock,
		paymentMethod string,
		bookingRef, gatewayRef string,
	) (*domain.Booking, error)
	Finalize(ctx context.Context, reference string, outcome ledger.Outcome) error
}

// Gateway is the payment provider boundary.
type Gateway interface {
	Initialize(ctx context.Context, req external.InitializeRequest) (*external.InitializeResult, error)
	Verify(ctx context.Context, reference string) (*external.VerifyResult, error)
}

// UserDirectory mirrors session identities into the local user table and
// resolves the payer contact when the session carried none.
type UserDirectory interface {
	Ensure(ctx context.Context, userID, email string) error
	EmailByID(ctx context.Context, userID string) (string, error)
}

type Config struct {
	CallbackURL string
}

// Service runs the end-to-end checkout: lock seats, initiate the charge,
// persist the pending booking, and later converge webhook and redirect
// verification onto the same idempotent finalize.
type Service struct {
	engine  Engine
	ledger  Ledger
	gateway Gateway
	users   UserDirectory
	limiter *redisrepo.SlidingWindowLimiter
	logger  *slog.Logger
	cfg     Config
}

func New(
	engine Engine,
	ldg Ledger,
	gateway Gateway,
	users UserDirectory,
	limiter *redisrepo.SlidingWindowLimiter,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		engine:  engine,
		ledger:  ldg,
		gateway: gateway,
		users:   users,
		limiter: limiter,
		logger:  logger,
		cfg:     cfg,
	}
}

type CheckoutInput struct {
	UserID        string
	Email         string // from the session; looked up when empty
	EventID       uuid.UUID
	SeatIDs       []uuid.UUID
	PaymentMethod string
	RateKey       string
}

type CheckoutResult struct {
	BookingID        uuid.UUID
	Reference        string
	PaymentReference string
	TotalKobo        int64
	SeatCount        int
	AuthorizationURL string
}

// Checkout books the seats and opens a pending booking awaiting payment
// confirmation.
//
// Returns:
//   - error: *checkout.SeatsUnavailableError (no side effects),
//     checkout.ErrPayerContactRequired / checkout.ErrPaymentInitiationFailed
//     (seats released before returning), checkout.ErrBookingPersistenceFailed
//     (seats intentionally left booked; operator reconciliation required).
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	const op = "service.checkout.Checkout"

	if in.UserID == "" {
		return nil, fmt.Errorf("%s:%w", op, ErrIdentityRequired)
	}
	if in.EventID == uuid.Nil {
		return nil, fmt.Errorf("%s: event id required", op)
	}
	if len(in.SeatIDs) == 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrNoSeatsSelected)
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = "card"
	}

	if s.limiter != nil && in.RateKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, in.RateKey)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s:%w: retry in %s", op, ErrRateLimited, retry)
		}
	}

	locked, err := s.engine.Book(ctx, in.EventID, in.SeatIDs)
	if err != nil {
		var conflict *reservation.ConflictError
		if errors.As(err, &conflict) {
			return nil, fmt.Errorf("%s:%w", op, &SeatsUnavailableError{
				Attempted: conflict.Attempted,
				Eligible:  conflict.Eligible,
			})
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.logger.Info("checkout seats locked",
		"user_id", in.UserID,
		"event_id", in.EventID,
		"seats", len(locked),
	)

	email := in.Email
	if email == "" && s.users != nil {
		// A lookup failure counts as an unresolvable contact.
		if got, lookupErr := s.users.EmailByID(ctx, in.UserID); lookupErr == nil {
			email = got
		}
	}
	if email == "" {
		s.compensate(ctx, in.EventID, in.SeatIDs, "payer contact unresolvable")
		return nil, fmt.Errorf("%s:%w", op, ErrPayerContactRequired)
	}

	// The booking row references the mirrored user, so a first-time payer
	// must exist locally before any money moves.
	if s.users != nil {
		if err := s.users.Ensure(ctx, in.UserID, email); err != nil {
			s.compensate(ctx, in.EventID, in.SeatIDs, "payer record unavailable")
			return nil, fmt.Errorf("%s:%w", op, err)
		}
	}

	var total int64
	for _, l := range locked {
		total += l.PriceKobo
	}

	bookingRef := ledger.NewBookingReference()

	init, err := s.gateway.Initialize(ctx, external.InitializeRequest{
		Email:       email,
		AmountKobo:  total,
		Reference:   bookingRef,
		CallbackURL: s.cfg.CallbackURL,
	})
	if err != nil {
		s.compensate(ctx, in.EventID, in.SeatIDs, "payment initiation failed")
		return nil, fmt.Errorf("%s:%w: %w", op, ErrPaymentInitiationFailed, err)
	}

	s.logger.Info("checkout payment initiated",
		"user_id", in.UserID,
		"reference", bookingRef,
		"gateway_reference", init.Reference,
		"total_kobo", total,
	)

	b, err := s.ledger.CreatePending(ctx, in.UserID, in.EventID, locked, in.PaymentMethod, bookingRef, init.Reference)
	if err != nil {
		// The charge may already be live on the gateway side. Releasing the
		// seats here could double-sell a seat the payer goes on to pay for,
		// so they stay booked until an operator reconciles.
		s.logger.Error("booking persistence failed after payment initiation",
			"user_id", in.UserID,
			"event_id", in.EventID,
			"reference", bookingRef,
			"gateway_reference", init.Reference,
			"total_kobo", total,
			"error", err,
		)
		return nil, fmt.Errorf("%s:%w: %w", op, ErrBookingPersistenceFailed, err)
	}

	s.logger.Info("checkout booking pending",
		"booking_id", b.ID,
		"reference", b.Reference,
		"seats", len(locked),
	)

	return &CheckoutResult{
		BookingID:        b.ID,
		Reference:        b.Reference,
		PaymentReference: b.PaymentReference,
		TotalKobo:        b.TotalKobo,
		SeatCount:        len(locked),
		AuthorizationURL: init.AuthorizationURL,
	}, nil
}

// HandleGatewayEvent applies a webhook notification. Events other than the
// charge outcomes are acknowledged without effect.
func (s *Service) HandleGatewayEvent(ctx context.Context, eventType, reference string) error {
	const op = "service.checkout.HandleGatewayEvent"

	var outcome ledger.Outcome
	switch eventType {
	case "charge.success":
		outcome = ledger.OutcomePaid
	case "charge.failed":
		outcome = ledger.OutcomeFailed
	default:
		return nil
	}

	if reference == "" {
		return fmt.Errorf("%s: missing reference", op)
	}

	if err := s.ledger.Finalize(ctx, reference, outcome); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	s.logger.Info("gateway event applied",
		"event_type", eventType,
		"reference", reference,
	)

	return nil
}

// VerifyRedirect is the pull-based confirmation path: the payer returns from
// the gateway and we verify the charge ourselves. Converges with the webhook
// on the same idempotent finalize.
//
// Returns:
//   - bool: whether the charge succeeded.
func (s *Service) VerifyRedirect(ctx context.Context, reference string) (bool, error) {
	const op = "service.checkout.VerifyRedirect"

	if reference == "" {
		return false, fmt.Errorf("%s: missing reference", op)
	}

	v, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, err)
	}

	outcome := ledger.OutcomeFailed
	if v.Succeeded {
		outcome = ledger.OutcomePaid
	}

	if err := s.ledger.Finalize(ctx, reference, outcome); err != nil {
		if errors.Is(err, ledger.ErrBookingNotFound) {
			s.logger.Warn("verified reference has no booking",
				"reference", reference,
				"gateway_status", v.GatewayStatus,
			)
			return v.Succeeded, fmt.Errorf("%s:%w", op, ErrVerificationReferenceGone)
		}

		return v.Succeeded, fmt.Errorf("%s:%w", op, err)
	}

	return v.Succeeded, nil
}

func (s *Service) compensate(ctx context.Context, eventID uuid.UUID, seatIDs []uuid.UUID, reason string) {
	if _, err := s.engine.Unbook(ctx, eventID, seatIDs); err != nil {
		s.logger.Error("seat release compensation failed",
			"event_id", eventID,
			"reason", reason,
			"error", err,
		)
		return
	}

	s.logger.Info("checkout compensated", "event_id", eventID, "reason", reason)
}
