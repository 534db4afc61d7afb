package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stagepass/internal/domain"
	"stagepass/internal/repository"
)

type BookingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// CreateWithTickets inserts the booking row and one ticket row per seat in a
// single transaction. Either every row exists afterwards or none does.
//
// Returns:
//   - error: repository.ErrConflict on a booking-reference or ticket-number
//     collision.
func (r *BookingRepo) CreateWithTickets(
	ctx context.Context,
	b *domain.Booking,
	tickets []domain.Ticket,
) error {
	const op = "postgres.BookingRepo.CreateWithTickets"

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer tx.Rollback(ctx)

	if err := r.createCore(ctx, tx, b, tickets); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *BookingRepo) createCore(
	ctx context.Context,
	db DB,
	b *domain.Booking,
	tickets []domain.Ticket,
) error {
	if err := db.QueryRow(ctx,
		`INSERT INTO bookings(
            id, user_id, event_id, status, payment_status,
            total_kobo, payment_method, payment_reference, reference
         )
       	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
      	 RETURNING created_at, updated_at`,
		b.ID, b.UserID, b.EventID, b.Status, b.PaymentStatus,
		b.TotalKobo, b.PaymentMethod, b.PaymentReference, b.Reference,
	).Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, t := range tickets {
		batch.Queue(
			`INSERT INTO tickets(id, booking_id, seat_id, price_kobo, status, number, qr_payload)
         	 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			t.ID, t.BookingID, t.SeatID, t.PriceKobo, t.Status, t.Number, t.QRPayload,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	return nil
}

// ByReference looks up a booking by its human-readable reference.
func (r *BookingRepo) ByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.ByReference"

	db := r.handle()

	var b domain.Booking
	err := db.QueryRow(ctx,
		`SELECT id, user_id, event_id, status, payment_status, total_kobo,
            	payment_method, payment_reference, reference, created_at, updated_at
       	 FROM bookings
      	 WHERE reference = $1`,
		reference,
	).Scan(
		&b.ID, &b.UserID, &b.EventID, &b.Status, &b.PaymentStatus, &b.TotalKobo,
		&b.PaymentMethod, &b.PaymentReference, &b.Reference, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &b, nil
}

// FinalizePending flips a still-pending booking to its terminal state. The
// update is conditioned on status = 'pending', so of any number of concurrent
// finalize calls exactly one observes applied = true; the rest see
// repository.ErrAlreadyFinalized and must not touch seats.
func (r *BookingRepo) FinalizePending(
	ctx context.Context,
	id uuid.UUID,
	status domain.BookingStatus,
	payment domain.PaymentStatus,
) error {
	const op = "postgres.BookingRepo.FinalizePending"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE bookings
        	SET status = $2, payment_status = $3, updated_at = now()
      	 WHERE id = $1 AND status = 'pending'`,
		id, status, payment,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrAlreadyFinalized)
	}

	return nil
}

// CancelTickets marks every active ticket of a booking cancelled.
func (r *BookingRepo) CancelTickets(ctx context.Context, bookingID uuid.UUID) error {
	const op = "postgres.BookingRepo.CancelTickets"

	db := r.handle()

	_, err := db.Exec(ctx,
		`UPDATE tickets
        	SET status = 'cancelled'
      	 WHERE booking_id = $1 AND status = 'active'`,
		bookingID,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// SeatIDsByBooking returns the seats referenced by a booking's tickets.
func (r *BookingRepo) SeatIDsByBooking(ctx context.Context, bookingID uuid.UUID) ([]uuid.UUID, error) {
	const op = "postgres.BookingRepo.SeatIDsByBooking"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT seat_id FROM tickets WHERE booking_id = $1`,
		bookingID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return ids, nil
}
