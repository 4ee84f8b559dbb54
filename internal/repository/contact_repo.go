package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"planfusion/internal/domain"
)

type ContactRepository interface {
	Create(ctx context.Context, contact domain.Contact) error
	ListByUser(ctx context.Context, email string) ([]domain.Contact, error)
	GetByID(ctx context.Context, email, id string) (domain.Contact, error)
	Update(ctx context.Context, contact domain.Contact) error
	Delete(ctx context.Context, email, id string) error
}

type PgContactRepository struct {
	db DBTX
}

func NewPgContactRepository(db DBTX) *PgContactRepository {
	return &PgContactRepository{db: db}
}

const contactColumns = `id, user_email, name, email, phone, category, notes, last_interaction, next_meeting, created_at`

func (r *PgContactRepository) Create(ctx context.Context, contact domain.Contact) error {
	const query = `
		INSERT INTO contacts (` + contactColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		contact.ID,
		contact.UserEmail,
		contact.Name,
		contact.Email,
		contact.Phone,
		contact.Category,
		contact.Notes,
		contact.LastInteraction,
		contact.NextMeeting,
		contact.CreatedAt,
	)
	return mapWriteError(err)
}

func (r *PgContactRepository) ListByUser(ctx context.Context, email string) ([]domain.Contact, error) {
	const query = `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE user_email = $1
		ORDER BY name, id
	`
	rows, err := r.db.Query(ctx, query, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []domain.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *PgContactRepository) GetByID(ctx context.Context, email, id string) (domain.Contact, error) {
	const query = `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE user_email = $1 AND id = $2
	`
	return scanContact(r.db.QueryRow(ctx, query, email, id))
}

func (r *PgContactRepository) Update(ctx context.Context, contact domain.Contact) error {
	const query = `
		UPDATE contacts
		SET name = $3, email = $4, phone = $5, category = $6, notes = $7, last_interaction = $8, next_meeting = $9
		WHERE user_email = $1 AND id = $2
	`
	tag, err := r.db.Exec(ctx, query,
		contact.UserEmail,
		contact.ID,
		contact.Name,
		contact.Email,
		contact.Phone,
		contact.Category,
		contact.Notes,
		contact.LastInteraction,
		contact.NextMeeting,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgContactRepository) Delete(ctx context.Context, email, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM contacts WHERE user_email = $1 AND id = $2`, email, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanContact(row pgx.Row) (domain.Contact, error) {
	var c domain.Contact
	err := row.Scan(
		&c.ID,
		&c.UserEmail,
		&c.Name,
		&c.Email,
		&c.Phone,
		&c.Category,
		&c.Notes,
		&c.LastInteraction,
		&c.NextMeeting,
		&c.CreatedAt,
	)
	if err != nil {
		return domain.Contact{}, err
	}
	return c, nil
}
