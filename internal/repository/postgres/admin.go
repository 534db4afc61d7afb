package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stagepass/internal/domain"
)

type AdminRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *AdminRepo) With(db DB) *AdminRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *AdminRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *AdminRepo) CreateEvent(
	ctx context.Context,
	title, venue string,
	startsAt time.Time,
) (uuid.UUID, error) {
	const op = "postgres.AdminRepo.CreateEvent"

	db := r.handle()

	id := uuid.New()
	if _, err := db.Exec(ctx,
		`INSERT INTO events(id, title, venue, starts_at)
       	 VALUES ($1, $2, $3, $4)`,
		id, title, venue, startsAt,
	); err != nil {
		return uuid.Nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return id, nil
}

// GenerateSeats replaces an event's seat inventory with rows built from the
// section plans. Existing seats for the event are dropped first, so this must
// only run before sales open, and the caller is expected to bind a
// transaction via With so the drop and the inserts land together.
func (r *AdminRepo) GenerateSeats(
	ctx context.Context,
	eventID uuid.UUID,
	plans []domain.SectionPlan,
) (int, error) {
	const op = "postgres.AdminRepo.GenerateSeats"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`DELETE FROM seats WHERE event_id = $1`,
		eventID,
	); err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	batch := &pgx.Batch{}
	created := 0
	for _, p := range plans {
		for row := 0; row < p.Rows; row++ {
			rowLabel := string(rune('A' + row))
			for num := 1; num <= p.SeatsPerRow; num++ {
				batch.Queue(
					`INSERT INTO seats(id, event_id, section, row_label, number, category, price_kobo, status)
                 	 VALUES ($1, $2, $3, $4, $5, $6, $7, 'available')`,
					uuid.New(), eventID, p.Name, rowLabel, num, p.Category, p.PriceKobo,
				)
				created++
			}
		}
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return created, nil
}

// ResetSeats is a repair tool: it forces every seat of an event back to
// available regardless of current status.
func (r *AdminRepo) ResetSeats(ctx context.Context, eventID uuid.UUID) (int64, error) {
	const op = "postgres.AdminRepo.ResetSeats"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE seats
        	SET status = 'available', reserved_at = NULL, updated_at = now()
      	 WHERE event_id = $1`,
		eventID,
	)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return tag.RowsAffected(), nil
}

func (r *AdminRepo) Stats(ctx context.Context) (*domain.EventStats, error) {
	const op = "postgres.AdminRepo.Stats"

	db := r.handle()

	var s domain.EventStats
	err := db.QueryRow(ctx,
		`SELECT
            (SELECT count(*) FROM events),
            (SELECT count(*) FROM bookings WHERE status = 'confirmed'),
            (SELECT count(*) FROM seats WHERE status = 'booked'),
            (SELECT COALESCE(sum(total_kobo), 0) FROM bookings WHERE payment_status = 'paid')`,
	).Scan(&s.Events, &s.ConfirmedBookings, &s.SeatsBooked, &s.RevenueKobo)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &s, nil
}
