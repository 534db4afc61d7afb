package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stagepass/internal/domain"
	"stagepass/internal/repository"
)

type SeatRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *SeatRepo) With(db DB) *SeatRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *SeatRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Transition atomically moves every seat in seatIDs whose current status is a
// member of from to the status to. The whole batch is one transaction: if any
// seat is missing, belongs to another event, or is not in an eligible status,
// the transaction rolls back and nothing changes.
//
// eventID may be uuid.Nil, in which case it is derived from the seats
// themselves; either way the batch must resolve to exactly one event.
//
// Returns:
//   - []domain.SeatLock: id and price of every seat transitioned.
//   - error: *repository.SeatsNotFoundError, *repository.CrossEventError,
//     *repository.SeatConflictError with the eligible subset.
func (r *SeatRepo) Transition(
	ctx context.Context,
	eventID uuid.UUID,
	seatIDs []uuid.UUID,
	from []domain.SeatStatus,
	to domain.SeatStatus,
) ([]domain.SeatLock, error) {
	const op = "postgres.SeatRepo.Transition"

	if r.db != nil {
		locks, err := r.transitionCore(ctx, r.db, eventID, seatIDs, from, to)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		return locks, nil
	}

	var locks []domain.SeatLock

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer tx.Rollback(ctx)

	locks, err = r.transitionCore(ctx, tx, eventID, seatIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return locks, nil
}

func (r *SeatRepo) transitionCore(
	ctx context.Context,
	db DB,
	eventID uuid.UUID,
	seatIDs []uuid.UUID,
	from []domain.SeatStatus,
	to domain.SeatStatus,
) ([]domain.SeatLock, error) {
	ids := uuidStrings(seatIDs)

	rows, err := db.Query(ctx,
		`SELECT id, event_id
      	 FROM seats
      	 WHERE id = ANY($1::uuid[])`,
		ids,
	)
	if err != nil {
		return nil, err
	}

	found := make(map[uuid.UUID]struct{}, len(seatIDs))
	events := make(map[uuid.UUID]struct{}, 1)
	for rows.Next() {
		var sid, eid uuid.UUID
		if err := rows.Scan(&sid, &eid); err != nil {
			rows.Close()
			return nil, err
		}
		found[sid] = struct{}{}
		events[eid] = struct{}{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(found) != len(seatIDs) {
		var missing []uuid.UUID
		for _, id := range seatIDs {
			if _, ok := found[id]; !ok {
				missing = append(missing, id)
			}
		}
		return nil, &repository.SeatsNotFoundError{SeatIDs: missing}
	}

	if eventID != uuid.Nil {
		events[eventID] = struct{}{}
	}
	if len(events) != 1 {
		eids := make([]uuid.UUID, 0, len(events))
		for eid := range events {
			eids = append(eids, eid)
		}
		return nil, &repository.CrossEventError{EventIDs: eids}
	}
	for eid := range events {
		eventID = eid
	}

	updated, err := db.Query(ctx,
		`UPDATE seats
        	SET status = $4,
            	reserved_at = CASE WHEN $4 = 'reserved' THEN now() ELSE NULL END,
            	updated_at = now()
      	 WHERE id = ANY($1::uuid[])
        	AND event_id = $2
        	AND status = ANY($3::text[])
      	 RETURNING id, price_kobo`,
		ids, eventID, statusStrings(from), string(to),
	)
	if err != nil {
		return nil, err
	}

	defer updated.Close()

	var locks []domain.SeatLock
	for updated.Next() {
		var l domain.SeatLock
		if err := updated.Scan(&l.ID, &l.PriceKobo); err != nil {
			return nil, err
		}
		locks = append(locks, l)
	}
	if err := updated.Err(); err != nil {
		return nil, err
	}

	if len(locks) != len(seatIDs) {
		eligible := make([]uuid.UUID, 0, len(locks))
		for _, l := range locks {
			eligible = append(eligible, l.ID)
		}
		// Returning the error aborts the surrounding transaction, so the
		// partial update above never becomes visible.
		return nil, &repository.SeatConflictError{Attempted: seatIDs, Eligible: eligible}
	}

	return locks, nil
}

// ReleaseStale returns to available every seat that has sat reserved since
// before cutoff and is not referenced by any pending booking's tickets.
func (r *SeatRepo) ReleaseStale(ctx context.Context, cutoff time.Time) (int64, error) {
	const op = "postgres.SeatRepo.ReleaseStale"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE seats s
        	SET status = 'available', reserved_at = NULL, updated_at = now()
      	 WHERE s.status = 'reserved'
        	AND s.reserved_at IS NOT NULL
        	AND s.reserved_at <= $1
        	AND NOT EXISTS (
            	SELECT 1
              	FROM tickets t
              	JOIN bookings b ON b.id = t.booking_id
             	 WHERE t.seat_id = s.id
               	AND t.status = 'active'
               	AND b.status = 'pending'
        	)`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return tag.RowsAffected(), nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func statusStrings(ss []domain.SeatStatus) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}
