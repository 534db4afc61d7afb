package postgres

import (
	"context"
	"fmt"

	"stagepass/internal/repository"
)

// SettlePending applies a booking settlement in a single serializable
// transaction: the conditional status flip, the ticket cancellation when
// requested, and the seat transition commit or roll back together. A booking
// can therefore never be observed settled while its seats are not.
//
// Returns:
//   - error: repository.ErrAlreadyFinalized when the booking left pending
//     concurrently; *repository.SeatConflictError if any seat was not in an
//     eligible status (nothing is written in either case).
func (s *Store) SettlePending(ctx context.Context, stl repository.Settlement) error {
	const op = "postgres.Store.SettlePending"

	err := s.RunTx(ctx, nil, func(ctx context.Context, tx DB) error {
		bookings := s.Bookings().With(tx)

		if err := bookings.FinalizePending(ctx, stl.BookingID, stl.Status, stl.Payment); err != nil {
			return err
		}

		if stl.CancelTickets {
			if err := bookings.CancelTickets(ctx, stl.BookingID); err != nil {
				return err
			}
		}

		if len(stl.SeatIDs) > 0 {
			if _, err := s.Seats().With(tx).Transition(
				ctx, stl.EventID, stl.SeatIDs, stl.SeatFrom, stl.SeatTo,
			); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}
