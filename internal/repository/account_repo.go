package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"planfusion/internal/domain"
)

// AccountRepository define el contrato de persistencia para cuentas.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	UpdatePasswordHash(ctx context.Context, email, passwordHash string) error
	UpdatePreferences(ctx context.Context, email string, prefs domain.NotificationPreferences) error
	ListEmails(ctx context.Context) ([]string, error)
}

// PgAccountRepository implementa AccountRepository sobre Postgres.
type PgAccountRepository struct {
	db DBTX
}

func NewPgAccountRepository(db DBTX) *PgAccountRepository {
	return &PgAccountRepository{db: db}
}

func (r *PgAccountRepository) Create(ctx context.Context, account domain.Account) error {
	const query = `
		INSERT INTO users (email, name, password_hash, notification_preferences, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	prefs, err := json.Marshal(account.Preferences)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query,
		account.Email,
		account.Name,
		account.PasswordHash,
		prefs,
		account.CreatedAt,
	)
	return mapWriteError(err)
}

func (r *PgAccountRepository) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	const query = `
		SELECT email, name, password_hash, notification_preferences, created_at
		FROM users
		WHERE email = $1
	`
	var (
		a     domain.Account
		prefs []byte
	)
	err := r.db.QueryRow(ctx, query, email).Scan(
		&a.Email,
		&a.Name,
		&a.PasswordHash,
		&prefs,
		&a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, err
	}
	if err != nil {
		return domain.Account{}, err
	}
	a.Preferences = decodePreferences(prefs)
	return a, nil
}

func (r *PgAccountRepository) UpdatePasswordHash(ctx context.Context, email, passwordHash string) error {
	const query = `UPDATE users SET password_hash = $2 WHERE email = $1`
	tag, err := r.db.Exec(ctx, query, email, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgAccountRepository) UpdatePreferences(ctx context.Context, email string, prefs domain.NotificationPreferences) error {
	const query = `UPDATE users SET notification_preferences = $2 WHERE email = $1`
	raw, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, query, email, raw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgAccountRepository) ListEmails(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT email FROM users ORDER BY email`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// decodePreferences aplica los defaults cuando la columna esta vacia o es invalida.
func decodePreferences(raw []byte) domain.NotificationPreferences {
	prefs := domain.DefaultNotificationPreferences()
	if len(raw) == 0 {
		return prefs
	}
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return domain.DefaultNotificationPreferences()
	}
	return prefs
}
