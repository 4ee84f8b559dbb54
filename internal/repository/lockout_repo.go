package repository

import (
	"context"
	"time"

	"planfusion/internal/domain"
)

// LockoutRepository persiste contadores de intentos fallidos.
type LockoutRepository interface {
	Get(ctx context.Context, email string) (domain.LockoutRecord, error)
	// RecordFailure incrementa el contador y fija lockUntil al llegar a maxAttempts, en una sola sentencia.
	RecordFailure(ctx context.Context, email string, maxAttempts int, lockUntil time.Time) (domain.LockoutRecord, error)
	Reset(ctx context.Context, email string) error
	// ResetIfExpired limpia el registro solo si el bloqueo ya vencio en now.
	ResetIfExpired(ctx context.Context, email string, now time.Time) (bool, error)
}

type PgLockoutRepository struct {
	db DBTX
}

func NewPgLockoutRepository(db DBTX) *PgLockoutRepository {
	return &PgLockoutRepository{db: db}
}

func (r *PgLockoutRepository) Get(ctx context.Context, email string) (domain.LockoutRecord, error) {
	const query = `
		SELECT email, failed_attempts, lock_until
		FROM login_attempts
		WHERE email = $1
	`
	var rec domain.LockoutRecord
	err := r.db.QueryRow(ctx, query, email).Scan(&rec.Email, &rec.FailedAttempts, &rec.LockUntil)
	if err != nil {
		return domain.LockoutRecord{}, err
	}
	return rec, nil
}

func (r *PgLockoutRepository) RecordFailure(ctx context.Context, email string, maxAttempts int, lockUntil time.Time) (domain.LockoutRecord, error) {
	const query = `
		INSERT INTO login_attempts (email, failed_attempts, lock_until)
		VALUES ($1, 1, CASE WHEN 1 >= $2 THEN $3::timestamptz ELSE NULL END)
		ON CONFLICT (email) DO UPDATE SET
			failed_attempts = login_attempts.failed_attempts + 1,
			lock_until = CASE
				WHEN login_attempts.failed_attempts + 1 >= $2 THEN $3::timestamptz
				ELSE login_attempts.lock_until
			END
		RETURNING email, failed_attempts, lock_until
	`
	var rec domain.LockoutRecord
	err := r.db.QueryRow(ctx, query, email, maxAttempts, lockUntil).Scan(&rec.Email, &rec.FailedAttempts, &rec.LockUntil)
	if err != nil {
		return domain.LockoutRecord{}, err
	}
	return rec, nil
}

func (r *PgLockoutRepository) Reset(ctx context.Context, email string) error {
	const query = `
		UPDATE login_attempts
		SET failed_attempts = 0, lock_until = NULL
		WHERE email = $1
	`
	_, err := r.db.Exec(ctx, query, email)
	return err
}

func (r *PgLockoutRepository) ResetIfExpired(ctx context.Context, email string, now time.Time) (bool, error) {
	const query = `
		UPDATE login_attempts
		SET failed_attempts = 0, lock_until = NULL
		WHERE email = $1 AND lock_until IS NOT NULL AND lock_until <= $2
	`
	tag, err := r.db.Exec(ctx, query, email, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
