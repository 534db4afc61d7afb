package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepo holds the user records mirrored from the identity provider. The
// booking flow needs the row to exist before a booking can reference it, and
// a payer email when the session carried none.
type UserRepo struct {
	pool *pgxpool.Pool
}

// Ensure upserts the mirrored user row from the session identity. An existing
// row keeps its email unless the session supplied a fresh one.
func (r *UserRepo) Ensure(ctx context.Context, userID, email string) error {
	const op = "postgres.UserRepo.Ensure"

	var e *string
	if email != "" {
		e = &email
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email)
       	 VALUES ($1, $2)
      	 ON CONFLICT (id) DO UPDATE
        	SET email = COALESCE(EXCLUDED.email, users.email)`,
		userID, e,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// EmailByID returns the user's email, or "" when the user has none on record.
//
// Returns:
//   - error: repository.ErrNotFound if the user does not exist.
func (r *UserRepo) EmailByID(ctx context.Context, userID string) (string, error) {
	const op = "postgres.UserRepo.EmailByID"

	var email *string
	err := r.pool.QueryRow(ctx,
		`SELECT email FROM users WHERE id = $1`,
		userID,
	).Scan(&email)
	if err != nil {
		return "", fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if email == nil {
		return "", nil
	}

	return *email, nil
}
