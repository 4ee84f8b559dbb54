package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"planfusion/internal/domain"
)

type TaskRepository interface {
	Create(ctx context.Context, task domain.Task) error
	ListByUser(ctx context.Context, email string) ([]domain.Task, error)
	GetByID(ctx context.Context, email, id string) (domain.Task, error)
	Update(ctx context.Context, task domain.Task) error
	Delete(ctx context.Context, email, id string) error
}

type PgTaskRepository struct {
	db DBTX
}

func NewPgTaskRepository(db DBTX) *PgTaskRepository {
	return &PgTaskRepository{db: db}
}

const taskColumns = `id, user_email, name, status, priority, due_date, reminder, label, created_at`

func (r *PgTaskRepository) Create(ctx context.Context, task domain.Task) error {
	const query = `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		task.ID,
		task.UserEmail,
		task.Name,
		task.Status,
		task.Priority,
		task.DueDate,
		task.Reminder,
		task.Label,
		task.CreatedAt,
	)
	return mapWriteError(err)
}

func (r *PgTaskRepository) ListByUser(ctx context.Context, email string) ([]domain.Task, error) {
	const query = `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_email = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.Query(ctx, query, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *PgTaskRepository) GetByID(ctx context.Context, email, id string) (domain.Task, error) {
	const query = `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_email = $1 AND id = $2
	`
	return scanTask(r.db.QueryRow(ctx, query, email, id))
}

func (r *PgTaskRepository) Update(ctx context.Context, task domain.Task) error {
	const query = `
		UPDATE tasks
		SET name = $3, status = $4, priority = $5, due_date = $6, reminder = $7, label = $8
		WHERE user_email = $1 AND id = $2
	`
	tag, err := r.db.Exec(ctx, query,
		task.UserEmail,
		task.ID,
		task.Name,
		task.Status,
		task.Priority,
		task.DueDate,
		task.Reminder,
		task.Label,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgTaskRepository) Delete(ctx context.Context, email, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE user_email = $1 AND id = $2`, email, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTask(row pgx.Row) (domain.Task, error) {
	var t domain.Task
	err := row.Scan(
		&t.ID,
		&t.UserEmail,
		&t.Name,
		&t.Status,
		&t.Priority,
		&t.DueDate,
		&t.Reminder,
		&t.Label,
		&t.CreatedAt,
	)
	if err != nil {
		return domain.Task{}, err
	}
	return t, nil
}
