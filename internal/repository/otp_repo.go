package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"planfusion/internal/domain"
)

// OTPRepository mantiene a lo sumo un challenge vivo por email.
type OTPRepository interface {
	Upsert(ctx context.Context, challenge domain.OtpChallenge) error
	Get(ctx context.Context, email string) (domain.OtpChallenge, error)
	IncrementAttempts(ctx context.Context, email string) error
	// Consume borra el challenge solo si el hash coincide; pgx.ErrNoRows si otro lo consumio antes.
	Consume(ctx context.Context, email, codeHash string) error
}

type PgOTPRepository struct {
	db DBTX
}

func NewPgOTPRepository(db DBTX) *PgOTPRepository {
	return &PgOTPRepository{db: db}
}

func (r *PgOTPRepository) Upsert(ctx context.Context, challenge domain.OtpChallenge) error {
	const query = `
		INSERT INTO login_otps (email, code_hash, expires_at, attempts, created_at)
		VALUES ($1, $2, $3, 0, $4)
		ON CONFLICT (email)
		DO UPDATE SET
			code_hash = EXCLUDED.code_hash,
			expires_at = EXCLUDED.expires_at,
			attempts = 0,
			created_at = EXCLUDED.created_at
	`
	_, err := r.db.Exec(ctx, query,
		challenge.Email,
		challenge.CodeHash,
		challenge.ExpiresAt,
		challenge.CreatedAt,
	)
	return err
}

func (r *PgOTPRepository) Get(ctx context.Context, email string) (domain.OtpChallenge, error) {
	const query = `
		SELECT email, code_hash, expires_at, attempts, created_at
		FROM login_otps
		WHERE email = $1
	`
	var c domain.OtpChallenge
	err := r.db.QueryRow(ctx, query, email).Scan(
		&c.Email,
		&c.CodeHash,
		&c.ExpiresAt,
		&c.Attempts,
		&c.CreatedAt,
	)
	if err != nil {
		return domain.OtpChallenge{}, err
	}
	return c, nil
}

func (r *PgOTPRepository) IncrementAttempts(ctx context.Context, email string) error {
	const query = `UPDATE login_otps SET attempts = attempts + 1 WHERE email = $1`
	_, err := r.db.Exec(ctx, query, email)
	return err
}

func (r *PgOTPRepository) Consume(ctx context.Context, email, codeHash string) error {
	const query = `
		DELETE FROM login_otps
		WHERE email = $1 AND code_hash = $2
		RETURNING email
	`
	var deleted string
	err := r.db.QueryRow(ctx, query, email, codeHash).Scan(&deleted)
	if err != nil {
		return err
	}
	if deleted == "" {
		return pgx.ErrNoRows
	}
	return nil
}
