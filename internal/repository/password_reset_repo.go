package repository

import (
	"context"

	"planfusion/internal/domain"
)

type PasswordResetRepository interface {
	Create(ctx context.Context, reset domain.PasswordReset) error
	// Consume borra y devuelve el registro; pgx.ErrNoRows si ya fue usado.
	Consume(ctx context.Context, id string) (domain.PasswordReset, error)
}

type PgPasswordResetRepository struct {
	db DBTX
}

func NewPgPasswordResetRepository(db DBTX) *PgPasswordResetRepository {
	return &PgPasswordResetRepository{db: db}
}

func (r *PgPasswordResetRepository) Create(ctx context.Context, reset domain.PasswordReset) error {
	const query = `
		INSERT INTO password_resets (id, email, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, reset.ID, reset.Email, reset.ExpiresAt, reset.CreatedAt)
	return err
}

func (r *PgPasswordResetRepository) Consume(ctx context.Context, id string) (domain.PasswordReset, error) {
	const query = `
		DELETE FROM password_resets
		WHERE id = $1
		RETURNING id, email, expires_at, created_at
	`
	var reset domain.PasswordReset
	err := r.db.QueryRow(ctx, query, id).Scan(&reset.ID, &reset.Email, &reset.ExpiresAt, &reset.CreatedAt)
	if err != nil {
		return domain.PasswordReset{}, err
	}
	return reset, nil
}
