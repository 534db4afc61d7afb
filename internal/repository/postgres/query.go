package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"stagepass/internal/domain"
	"stagepass/internal/repository"
)

type QueryRepo struct {
	pool *pgxpool.Pool
}

func (r *QueryRepo) GetEvent(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	const op = "postgres.QueryRepo.GetEvent"

	var e domain.Event
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, venue, starts_at, created_at
       	 FROM events
      	 WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Title, &e.Venue, &e.StartsAt, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &e, nil
}

func (r *QueryRepo) ListEvents(ctx context.Context) ([]domain.Event, error) {
	const op = "postgres.QueryRepo.ListEvents"

	rows, err := r.pool.Query(ctx,
		`SELECT id, title, venue, starts_at, created_at
       	 FROM events
      	 ORDER BY starts_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Venue, &e.StartsAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return events, nil
}

func (r *QueryRepo) ListEventSeats(
	ctx context.Context,
	eventID uuid.UUID,
	onlyAvailable bool,
	limit, offset int,
) ([]domain.Seat, error) {
	const op = "postgres.QueryRepo.ListEventSeats"

	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`,
		eventID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}
	if !exists {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	q := `SELECT id, event_id, section, row_label, number, category, price_kobo, status, reserved_at
       	 FROM seats
      	 WHERE event_id = $1`
	if onlyAvailable {
		q += ` AND status = 'available'`
	}
	q += ` ORDER BY section, row_label, number
      	 LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, q, eventID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var seats []domain.Seat
	for rows.Next() {
		var s domain.Seat
		if err := rows.Scan(
			&s.ID, &s.EventID, &s.Section, &s.Row, &s.Number,
			&s.Category, &s.PriceKobo, &s.Status, &s.ReservedAt,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return seats, nil
}

func (r *QueryRepo) CountsByStatus(ctx context.Context, eventID uuid.UUID) (*domain.EventCounts, error) {
	const op = "postgres.QueryRepo.CountsByStatus"

	var c domain.EventCounts
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FILTER (WHERE status = 'available'),
            	count(*) FILTER (WHERE status = 'reserved'),
            	count(*) FILTER (WHERE status = 'booked'),
            	count(*)
       	 FROM seats
      	 WHERE event_id = $1`,
		eventID,
	).Scan(&c.Available, &c.Reserved, &c.Booked, &c.Total)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if c.Total == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`,
			eventID,
		).Scan(&exists); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		if !exists {
			return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
		}
	}

	return &c, nil
}

func (r *QueryRepo) GetBookingWithTickets(
	ctx context.Context,
	bookingID uuid.UUID,
) (*domain.BookingWithTickets, error) {
	const op = "postgres.QueryRepo.GetBookingWithTickets"

	var b domain.Booking
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, event_id, status, payment_status, total_kobo,
            	payment_method, payment_reference, reference, created_at, updated_at
       	 FROM bookings
      	 WHERE id = $1`,
		bookingID,
	).Scan(
		&b.ID, &b.UserID, &b.EventID, &b.Status, &b.PaymentStatus, &b.TotalKobo,
		&b.PaymentMethod, &b.PaymentReference, &b.Reference, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, booking_id, seat_id, price_kobo, status, number, qr_payload,
            	checked_in, checked_in_at
       	 FROM tickets
      	 WHERE booking_id = $1
      	 ORDER BY number`,
		bookingID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(
			&t.ID, &t.BookingID, &t.SeatID, &t.PriceKobo, &t.Status,
			&t.Number, &t.QRPayload, &t.CheckedIn, &t.CheckedInAt,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &domain.BookingWithTickets{Booking: b, Tickets: tickets}, nil
}
