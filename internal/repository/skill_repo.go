package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"planfusion/internal/domain"
)

type SkillRepository interface {
	Create(ctx context.Context, skill domain.Skill) error
	ListByUser(ctx context.Context, email string) ([]domain.Skill, error)
	GetByID(ctx context.Context, email, id string) (domain.Skill, error)
	Update(ctx context.Context, skill domain.Skill) error
	Delete(ctx context.Context, email, id string) error
	// UpdateDay bloquea la skill, aplica apply y persiste el dia indicado junto con el progreso.
	UpdateDay(ctx context.Context, email, skillID, date string, apply func(*domain.Skill) error) (domain.Skill, error)
}

type PgSkillRepository struct {
	db DBTX
}

func NewPgSkillRepository(db DBTX) *PgSkillRepository {
	return &PgSkillRepository{db: db}
}

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const skillColumns = `id, user_email, name, learning_from, start_date, expected_end_date, status, completed, priority, level, created_at`

func (r *PgSkillRepository) Create(ctx context.Context, skill domain.Skill) error {
	start, err := time.Parse(domain.DayLayout, skill.StartDate)
	if err != nil {
		return err
	}
	end, err := time.Parse(domain.DayLayout, skill.ExpectedEndDate)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const query = `
		INSERT INTO skills (` + skillColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if _, err := tx.Exec(ctx, query,
		skill.ID,
		skill.UserEmail,
		skill.Name,
		skill.LearningFrom,
		start,
		end,
		skill.Status,
		skill.Completed,
		skill.Priority,
		skill.Level,
		skill.CreatedAt,
	); err != nil {
		return mapWriteError(err)
	}

	rows := make([][]any, 0, len(skill.Days))
	for _, d := range skill.Days {
		day, err := time.Parse(domain.DayLayout, d.Date)
		if err != nil {
			return err
		}
		rows = append(rows, []any{skill.ID, day, d.Note, d.Completed})
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"skill_days"},
		[]string{"skill_id", "day", "note", "completed"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PgSkillRepository) ListByUser(ctx context.Context, email string) ([]domain.Skill, error) {
	const query = `
		SELECT ` + skillColumns + `
		FROM skills
		WHERE user_email = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.Query(ctx, query, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		skills []domain.Skill
		ids    []string
	)
	for rows.Next() {
		s, err := scanSkill(rows)
		if err != nil {
			return nil, err
		}
		skills = append(skills, s)
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(skills) == 0 {
		return skills, nil
	}

	days, err := loadDays(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range skills {
		skills[i].Days = days[skills[i].ID]
	}
	return skills, nil
}

func (r *PgSkillRepository) GetByID(ctx context.Context, email, id string) (domain.Skill, error) {
	return getSkill(ctx, r.db, email, id, false)
}

func (r *PgSkillRepository) Update(ctx context.Context, skill domain.Skill) error {
	const query = `
		UPDATE skills
		SET name = $3, learning_from = $4, status = $5, priority = $6, level = $7
		WHERE user_email = $1 AND id = $2
	`
	tag, err := r.db.Exec(ctx, query,
		skill.UserEmail,
		skill.ID,
		skill.Name,
		skill.LearningFrom,
		skill.Status,
		skill.Priority,
		skill.Level,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgSkillRepository) Delete(ctx context.Context, email, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM skills WHERE user_email = $1 AND id = $2`, email, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgSkillRepository) UpdateDay(ctx context.Context, email, skillID, date string, apply func(*domain.Skill) error) (domain.Skill, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Skill{}, err
	}
	defer tx.Rollback(ctx)

	skill, err := getSkill(ctx, tx, email, skillID, true)
	if err != nil {
		return domain.Skill{}, err
	}
	if err := apply(&skill); err != nil {
		return domain.Skill{}, err
	}

	var updated *domain.SkillDay
	for i := range skill.Days {
		if skill.Days[i].Date == date {
			updated = &skill.Days[i]
			break
		}
	}
	if updated != nil {
		day, err := time.Parse(domain.DayLayout, updated.Date)
		if err != nil {
			return domain.Skill{}, err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE skill_days SET note = $3, completed = $4 WHERE skill_id = $1 AND day = $2`,
			skill.ID, day, updated.Note, updated.Completed,
		); err != nil {
			return domain.Skill{}, err
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE skills SET completed = $2, status = $3 WHERE id = $1`,
		skill.ID, skill.Completed, skill.Status,
	); err != nil {
		return domain.Skill{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Skill{}, err
	}
	return skill, nil
}

func getSkill(ctx context.Context, q rowQuerier, email, id string, forUpdate bool) (domain.Skill, error) {
	query := `
		SELECT ` + skillColumns + `
		FROM skills
		WHERE user_email = $1 AND id = $2
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	skill, err := scanSkill(q.QueryRow(ctx, query, email, id))
	if err != nil {
		return domain.Skill{}, err
	}
	days, err := loadDays(ctx, q, []string{skill.ID})
	if err != nil {
		return domain.Skill{}, err
	}
	skill.Days = days[skill.ID]
	return skill, nil
}

func loadDays(ctx context.Context, q rowQuerier, skillIDs []string) (map[string][]domain.SkillDay, error) {
	const query = `
		SELECT skill_id, day, note, completed
		FROM skill_days
		WHERE skill_id = ANY($1)
		ORDER BY skill_id, day
	`
	rows, err := q.Query(ctx, query, skillIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	days := make(map[string][]domain.SkillDay, len(skillIDs))
	for rows.Next() {
		var (
			skillID string
			day     time.Time
			d       domain.SkillDay
		)
		if err := rows.Scan(&skillID, &day, &d.Note, &d.Completed); err != nil {
			return nil, err
		}
		d.Date = day.Format(domain.DayLayout)
		days[skillID] = append(days[skillID], d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return days, nil
}

func scanSkill(row pgx.Row) (domain.Skill, error) {
	var (
		s          domain.Skill
		start, end time.Time
	)
	err := row.Scan(
		&s.ID,
		&s.UserEmail,
		&s.Name,
		&s.LearningFrom,
		&start,
		&end,
		&s.Status,
		&s.Completed,
		&s.Priority,
		&s.Level,
		&s.CreatedAt,
	)
	if err != nil {
		return domain.Skill{}, err
	}
	s.StartDate = start.Format(domain.DayLayout)
	s.ExpectedEndDate = end.Format(domain.DayLayout)
	return s, nil
}
