package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"planfusion/internal/domain"
)

type GoalRepository interface {
	Create(ctx context.Context, goal domain.Goal) error
	ListByUser(ctx context.Context, email string) ([]domain.Goal, error)
	GetByID(ctx context.Context, email, id string) (domain.Goal, error)
	Update(ctx context.Context, goal domain.Goal) error
	Delete(ctx context.Context, email, id string) error
}

type PgGoalRepository struct {
	db DBTX
}

func NewPgGoalRepository(db DBTX) *PgGoalRepository {
	return &PgGoalRepository{db: db}
}

const goalColumns = `id, user_email, description, type, target, completed, status, deadline, created_at`

func (r *PgGoalRepository) Create(ctx context.Context, goal domain.Goal) error {
	const query = `
		INSERT INTO goals (` + goalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		goal.ID,
		goal.UserEmail,
		goal.Description,
		goal.Type,
		goal.Target,
		goal.Completed,
		goal.Status,
		goal.Deadline,
		goal.CreatedAt,
	)
	return mapWriteError(err)
}

func (r *PgGoalRepository) ListByUser(ctx context.Context, email string) ([]domain.Goal, error) {
	const query = `
		SELECT ` + goalColumns + `
		FROM goals
		WHERE user_email = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.Query(ctx, query, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []domain.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return goals, nil
}

func (r *PgGoalRepository) GetByID(ctx context.Context, email, id string) (domain.Goal, error) {
	const query = `
		SELECT ` + goalColumns + `
		FROM goals
		WHERE user_email = $1 AND id = $2
	`
	return scanGoal(r.db.QueryRow(ctx, query, email, id))
}

func (r *PgGoalRepository) Update(ctx context.Context, goal domain.Goal) error {
	const query = `
		UPDATE goals
		SET description = $3, type = $4, target = $5, completed = $6, status = $7, deadline = $8
		WHERE user_email = $1 AND id = $2
	`
	tag, err := r.db.Exec(ctx, query,
		goal.UserEmail,
		goal.ID,
		goal.Description,
		goal.Type,
		goal.Target,
		goal.Completed,
		goal.Status,
		goal.Deadline,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgGoalRepository) Delete(ctx context.Context, email, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM goals WHERE user_email = $1 AND id = $2`, email, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanGoal(row pgx.Row) (domain.Goal, error) {
	var g domain.Goal
	err := row.Scan(
		&g.ID,
		&g.UserEmail,
		&g.Description,
		&g.Type,
		&g.Target,
		&g.Completed,
		&g.Status,
		&g.Deadline,
		&g.CreatedAt,
	)
	if err != nil {
		return domain.Goal{}, err
	}
	return g, nil
}
