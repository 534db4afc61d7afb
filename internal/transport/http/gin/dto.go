package httpgin

import (
	"time"

	"stagepass/internal/domain"
)

type SeatActionRequest struct {
	EventID string   `json:"event_id" binding:"required,uuid"`
	SeatIDs []string `json:"seat_ids" binding:"required,min=1,dive,uuid"`
	Action  string   `json:"action" binding:"required,oneof=reserve release"`
}

type SeatActionResponse struct {
	EventID string   `json:"event_id"`
	SeatIDs []string `json:"seat_ids"`
	Status  string   `json:"status"`
}

type CreateBookingRequest struct {
	EventID       string   `json:"event_id" binding:"required,uuid"`
	SeatIDs       []string `json:"seat_ids" binding:"required,min=1,dive,uuid"`
	PaymentMethod string   `json:"payment_method"`
}

type CreateBookingResponse struct {
	BookingID        string `json:"booking_id"`
	Reference        string `json:"reference"`
	PaymentReference string `json:"payment_reference"`
	TotalKobo        int64  `json:"total_kobo"`
	SeatCount        int    `json:"seat_count"`
	AuthorizationURL string `json:"authorization_url"`
}

type CreateEventRequest struct {
	Title    string `json:"title" binding:"required"`
	Venue    string `json:"venue" binding:"required"`
	StartsAt string `json:"starts_at" binding:"required"`
}

type CreateEventResponse struct {
	EventID string `json:"event_id"`
}

type GenerateSeatsRequest struct {
	Sections []SectionPlanInput `json:"sections"`
}

type SectionPlanInput struct {
	Name        string `json:"name" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Rows        int    `json:"rows" binding:"required,gt=0"`
	SeatsPerRow int    `json:"seats_per_row" binding:"required,gt=0"`
	PriceKobo   int64  `json:"price_kobo" binding:"gte=0"`
}

type ConflictResponse struct {
	Error     string   `json:"error"`
	Attempted []string `json:"attempted,omitempty"`
	Eligible  []string `json:"eligible,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (r GenerateSeatsRequest) plans() []domain.SectionPlan {
	plans := make([]domain.SectionPlan, 0, len(r.Sections))
	for _, s := range r.Sections {
		plans = append(plans, domain.SectionPlan{
			Name:        s.Name,
			Category:    s.Category,
			Rows:        s.Rows,
			SeatsPerRow: s.SeatsPerRow,
			PriceKobo:   s.PriceKobo,
		})
	}
	return plans
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
