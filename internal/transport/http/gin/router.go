package httpgin

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"stagepass/internal/external"
	redisx "stagepass/internal/redis"
	redisrepo "stagepass/internal/repository/redis"
	"stagepass/internal/service"
	"stagepass/internal/service/admin"
	"stagepass/internal/service/checkout"
	"stagepass/internal/service/ledger"
	"stagepass/internal/service/query"
	"stagepass/internal/service/reservation"
)

// SignatureValidator checks a webhook payload against the gateway signature
// header. The paystack client implements it.
type SignatureValidator interface {
	ValidateSignature(body []byte, signature string) bool
}

type RouterConfig struct {
	FrontendURL string
}

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	sig SignatureValidator,
	cfg RouterConfig,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS(), IdentityMiddleware())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public API
	r.GET("/events", handleListEvents(svcs))
	r.GET("/events/:id", handleGetEvent(svcs))
	r.GET("/events/:id/availability", handleGetAvailability(svcs))
	r.GET("/events/:id/seats", handleListEventSeats(svcs))

	r.POST("/seats/reserve", RequireIdentity(), handleSeatAction(svcs))

	r.POST("/bookings", RequireIdentity(), handleCreateBooking(svcs, idem))
	r.GET("/bookings/:id", RequireIdentity(), handleGetBooking(svcs))

	r.POST("/payments/webhook", handleWebhook(svcs, sig, logger))
	r.GET("/payments/verify", handleVerifyRedirect(svcs, cfg.FrontendURL, logger))

	// Admin-API
	// TODO: add admin middleware
	adm := r.Group("/admin")
	{
		adm.POST("/events", handleCreateEvent(svcs))
		adm.POST("/events/:id/seats", handleGenerateSeats(svcs))
		adm.POST("/events/:id/seats/reset", handleResetSeats(svcs))
		adm.GET("/stats", handleStats(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  List events
// @Success  200  {array}  domain.Event
// @Router   /events [get]
func handleListEvents(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		events, err := svcs.Query.ListEvents(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, events, "public, max-age=60", true)
	}
}

// @Summary  Get event
// @Param    id  path  string  true  "Event ID (uuid)"
// @Success  200  {object}  domain.Event
// @Failure  404  {object}  ErrorResponse
// @Router   /events/{id} [get]
func handleGetEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		e, err := svcs.Query.GetEvent(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 60s
		writeJSONWithCache(c, http.StatusOK, e, "public, max-age=60", true)
	}
}

// @Summary  Get availability counters
// @Param    id  path  string  true  "Event ID (uuid)"
// @Success  200  {object}  domain.EventCounts
// @Router   /events/{id}/availability [get]
func handleGetAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		cnt, err := svcs.Query.Availability(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 15s
		writeJSONWithCache(c, http.StatusOK, cnt, "public, max-age=15", true)
	}
}

// @Summary  List event seats
// @Param    id     path   string  true  "Event ID (uuid)"
// @Param    only   query  string  false "available"
// @Param    limit  query  int     false "page size"
// @Param    offset query  int     false "offset"
// @Success  200  {array}   domain.Seat
// @Router   /events/{id}/seats [get]
func handleListEventSeats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		onlyAvailable := false
		if c.Query("only") == "available" ||
			c.Query("only_available") == "true" ||
			c.Query("onlyAvailable") == "true" {
			onlyAvailable = true
		}
		limit := parseIntDefault(c.Query("limit"), 0)
		offset := parseIntDefault(c.Query("offset"), 0)

		seats, err := svcs.Query.ListEventSeats(
			c.Request.Context(),
			eventID,
			onlyAvailable,
			limit,
			offset,
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 15s
		writeJSONWithCache(c, http.StatusOK, seats, "public, max-age=15", true)
	}
}

// @Summary  Reserve or release seats
// @Param    req body  SeatActionRequest true "payload"
// @Success  200 {object} SeatActionResponse
// @Failure  409 {object} ConflictResponse "seats unavailable"
// @Router   /seats/reserve [post]
func handleSeatAction(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SeatActionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		eventID, err := uuid.Parse(req.EventID)
		if err != nil {
			badRequest(c, "invalid event_id")
			return
		}
		seatIDs, err := parseUUIDs(req.SeatIDs)
		if err != nil {
			badRequest(c, "invalid seat_ids")
			return
		}

		var status string
		switch req.Action {
		case "reserve":
			_, err = svcs.Reservation.Reserve(c.Request.Context(), eventID, seatIDs)
			status = "reserved"
		case "release":
			_, err = svcs.Reservation.Release(c.Request.Context(), eventID, seatIDs)
			status = "available"
		default:
			badRequest(c, "invalid action")
			return
		}
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, SeatActionResponse{
			EventID: req.EventID,
			SeatIDs: req.SeatIDs,
			Status:  status,
		})
	}
}

// @Summary  Create booking (idempotent checkout)
// @Param    req body  CreateBookingRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} CreateBookingResponse
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ConflictResponse "seats unavailable / idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Failure  502 {object} ErrorResponse "payment initiation failed"
// @Router   /bookings [post]
func handleCreateBooking(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		eventID, err := uuid.Parse(req.EventID)
		if err != nil {
			badRequest(c, "invalid event_id")
			return
		}
		seatIDs, err := parseUUIDs(req.SeatIDs)
		if err != nil {
			badRequest(c, "invalid seat_ids")
			return
		}

		userID := c.GetString(ctxUserID)

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisx.KeyIdemCheckout(userID, idemKey)

			if payload, ok, _ := idem.GetResult(
				c.Request.Context(),
				idemStorageKey,
			); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(
					http.StatusCreated,
					"application/json; charset=utf-8",
					[]byte(payload),
				)
				return
			}

			locked, err := idem.AcquireLock(
				c.Request.Context(),
				idemStorageKey,
				60*time.Second,
			)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(
					c.Request.Context(),
					idemStorageKey,
				); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(
						http.StatusCreated,
						"application/json; charset=utf-8",
						[]byte(payload),
					)
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(
					http.StatusConflict,
					ErrorResponse{Error: "idempotency key in progress"},
				)
				return
			}
		}

		res, err := svcs.Checkout.Checkout(c.Request.Context(), checkout.CheckoutInput{
			UserID:        userID,
			Email:         c.GetString(ctxUserEmail),
			EventID:       eventID,
			SeatIDs:       seatIDs,
			PaymentMethod: req.PaymentMethod,
			RateKey:       "user:" + userID,
		})
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			if errors.Is(err, checkout.ErrRateLimited) {
				c.Header("Retry-After", "60")
				c.JSON(
					http.StatusTooManyRequests,
					ErrorResponse{Error: "rate limited"},
				)
				return
			}
			respondErr(c, err)
			return
		}

		resp := CreateBookingResponse{
			BookingID:        res.BookingID.String(),
			Reference:        res.Reference,
			PaymentReference: res.PaymentReference,
			TotalKobo:        res.TotalKobo,
			SeatCount:        res.SeatCount,
			AuthorizationURL: res.AuthorizationURL,
		}

		if idemStorageKey != "" && idem != nil {
			b, _ := json.Marshal(resp)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  Get booking with tickets
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200 {object} domain.BookingWithTickets
// @Failure  404 {object} ErrorResponse
// @Router   /bookings/{id} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		b, err := svcs.Query.GetBookingWithTickets(c.Request.Context(), bookingID)
		if err != nil {
			respondErr(c, err)
			return
		}
		// A foreign booking reads the same as a missing one.
		if b.Booking.UserID != c.GetString(ctxUserID) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Payment gateway webhook
// @Success  200 {object} map[string]string
// @Failure  401 {object} ErrorResponse "invalid signature"
// @Failure  404 {object} ErrorResponse "unknown reference"
// @Router   /payments/webhook [post]
func handleWebhook(svcs *service.Services, sig SignatureValidator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			badRequest(c, "unreadable body")
			return
		}

		if sig == nil || !sig.ValidateSignature(body, c.GetHeader("x-paystack-signature")) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid signature"})
			return
		}

		var evt external.WebhookEvent
		if err := json.Unmarshal(body, &evt); err != nil {
			badRequest(c, "invalid payload")
			return
		}

		if err := svcs.Checkout.HandleGatewayEvent(
			c.Request.Context(),
			evt.Event,
			evt.Data.Reference,
		); err != nil {
			var nf *ledger.BookingNotFoundError
			if errors.As(err, &nf) {
				c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
				return
			}
			logger.Error("webhook processing failed", "event", evt.Event, "error", err)
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// @Summary  Verify payment redirect
// @Param    reference  query  string  true  "Gateway reference"
// @Success  302
// @Router   /payments/verify [get]
func handleVerifyRedirect(svcs *service.Services, frontendURL string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reference := strings.TrimSpace(c.Query("reference"))
		if reference == "" {
			c.Redirect(http.StatusFound, frontendURL+"/payments/error")
			return
		}

		paid, err := svcs.Checkout.VerifyRedirect(c.Request.Context(), reference)
		if err != nil {
			logger.Warn("payment verification failed", "reference", reference, "error", err)
			c.Redirect(http.StatusFound, frontendURL+"/payments/error")
			return
		}

		if paid {
			c.Redirect(http.StatusFound, frontendURL+"/payments/success?reference="+reference)
			return
		}
		c.Redirect(http.StatusFound, frontendURL+"/payments/failed?reference="+reference)
	}
}

// @Summary  Create event
// @Param    req body  CreateEventRequest true "payload"
// @Success  201 {object} CreateEventResponse
// @Router   /admin/events [post]
func handleCreateEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		starts, err := parseRFC3339(req.StartsAt)
		if err != nil {
			badRequest(c, "invalid starts_at (RFC3339)")
			return
		}
		id, err := svcs.Admin.CreateEvent(
			c.Request.Context(),
			req.Title,
			req.Venue,
			starts,
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, CreateEventResponse{EventID: id.String()})
	}
}

// @Summary  Generate event seats from section plans
// @Param    id  path  string  true  "Event ID (uuid)"
// @Param    req body  GenerateSeatsRequest true "payload (empty sections = default layout)"
// @Success  201 {object} map[string]int
// @Router   /admin/events/{id}/seats [post]
func handleGenerateSeats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req GenerateSeatsRequest
		if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
			badRequest(c, err.Error())
			return
		}
		created, err := svcs.Admin.GenerateSeats(c.Request.Context(), eventID, req.plans())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"created": created})
	}
}

// @Summary  Reset event seats to available
// @Param    id  path  string  true  "Event ID (uuid)"
// @Success  200 {object} map[string]int64
// @Router   /admin/events/{id}/seats/reset [post]
func handleResetSeats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		n, err := svcs.Admin.ResetSeats(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reset": n})
	}
}

// @Summary  Platform stats
// @Success  200 {object} domain.EventStats
// @Router   /admin/stats [get]
func handleStats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := svcs.Admin.Stats(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// --- Helpers ---

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	v, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return v, true
}

func parseUUIDs(ss []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(ss))
	for _, s := range ss {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	// conflict carries the eligible subset so the client can retry a
	// smaller batch
	var resConflict *reservation.ConflictError
	if errors.As(err, &resConflict) {
		c.JSON(http.StatusConflict, ConflictResponse{
			Error:     "seats unavailable",
			Attempted: uuidStrings(resConflict.Attempted),
			Eligible:  uuidStrings(resConflict.Eligible),
		})
		return
	}
	var coConflict *checkout.SeatsUnavailableError
	if errors.As(err, &coConflict) {
		c.JSON(http.StatusConflict, ConflictResponse{
			Error:     "seats unavailable",
			Attempted: uuidStrings(coConflict.Attempted),
			Eligible:  uuidStrings(coConflict.Eligible),
		})
		return
	}
	var missing *reservation.SeatsNotFoundError
	if errors.As(err, &missing) {
		c.JSON(http.StatusNotFound, ConflictResponse{
			Error:     "seats not found",
			Attempted: uuidStrings(missing.SeatIDs),
		})
		return
	}

	switch {
	// reservation engine
	case errors.Is(err, reservation.ErrNoSeatsSelected):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no seats selected"})
	case errors.Is(err, reservation.ErrDuplicateSeats):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "duplicate seat ids"})
	case errors.Is(err, reservation.ErrCrossEvent):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "seats belong to different events"})
	case errors.Is(err, reservation.ErrSeatsUnavailable):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "seats unavailable"})
	// checkout orchestrator
	case errors.Is(err, checkout.ErrIdentityRequired):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
	case errors.Is(err, checkout.ErrNoSeatsSelected):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no seats selected"})
	case errors.Is(err, checkout.ErrPayerContactRequired):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "payer email required"})
	case errors.Is(err, checkout.ErrPaymentInitiationFailed):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "payment initiation failed"})
	case errors.Is(err, checkout.ErrBookingPersistenceFailed):
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "booking persistence failed"})
	// query service
	case errors.Is(err, query.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
	case errors.Is(err, query.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
	// admin service
	case errors.Is(err, admin.ErrInvalidEvent):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid event"})
	case errors.Is(err, admin.ErrEmptyPlan):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid section plan"})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
