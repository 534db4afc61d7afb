package domain

import (
	"time"

	"github.com/google/uuid"
)

type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatReserved  SeatStatus = "reserved"
	SeatBooked    SeatStatus = "booked"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type TicketStatus string

const (
	TicketActive    TicketStatus = "active"
	TicketCancelled TicketStatus = "cancelled"
	TicketUsed      TicketStatus = "used"
)

type Event struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Venue     string    `json:"venue"`
	StartsAt  time.Time `json:"starts_at"`
	CreatedAt time.Time `json:"created_at"`
}

type Seat struct {
	ID         uuid.UUID  `json:"id"`
	EventID    uuid.UUID  `json:"event_id"`
	Section    string     `json:"section"`
	Row        string     `json:"row"`
	Number     int        `json:"number"`
	Category   string     `json:"category"`
	PriceKobo  int64      `json:"price_kobo"`
	Status     SeatStatus `json:"status"`
	ReservedAt *time.Time `json:"reserved_at,omitempty"`
}

// SeatLock is what a conditional transition returns for each seat it claimed:
// just enough to price a booking.
type SeatLock struct {
	ID        uuid.UUID `json:"id"`
	PriceKobo int64     `json:"price_kobo"`
}

type Booking struct {
	ID               uuid.UUID     `json:"id"`
	UserID           string        `json:"user_id"`
	EventID          uuid.UUID     `json:"event_id"`
	Status           BookingStatus `json:"status"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	TotalKobo        int64         `json:"total_kobo"`
	PaymentMethod    string        `json:"payment_method"`
	PaymentReference string        `json:"payment_reference"`
	Reference        string        `json:"reference"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

type Ticket struct {
	ID          uuid.UUID    `json:"id"`
	BookingID   uuid.UUID    `json:"booking_id"`
	SeatID      uuid.UUID    `json:"seat_id"`
	PriceKobo   int64        `json:"price_kobo"`
	Status      TicketStatus `json:"status"`
	Number      string       `json:"number"`
	QRPayload   string       `json:"qr_payload"`
	CheckedIn   bool         `json:"checked_in"`
	CheckedInAt *time.Time   `json:"checked_in_at,omitempty"`
}

type BookingWithTickets struct {
	Booking Booking  `json:"booking"`
	Tickets []Ticket `json:"tickets"`
}

type EventCounts struct {
	Available int64 `json:"available"`
	Reserved  int64 `json:"reserved"`
	Booked    int64 `json:"booked"`
	Total     int64 `json:"total"`
}

// SectionPlan describes one block of seats to provision for an event.
type SectionPlan struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Rows        int    `json:"rows"`
	SeatsPerRow int    `json:"seats_per_row"`
	PriceKobo   int64  `json:"price_kobo"`
}

type EventStats struct {
	Events            int64 `json:"events"`
	ConfirmedBookings int64 `json:"confirmed_bookings"`
	SeatsBooked       int64 `json:"seats_booked"`
	RevenueKobo       int64 `json:"revenue_kobo"`
}
