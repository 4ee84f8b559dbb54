package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"planfusion/internal/domain"
	"planfusion/internal/repository"
)

const maxSkillDays = 3650

type SkillService struct {
	skills repository.SkillRepository
	now    func() time.Time
}

func NewSkillService(skills repository.SkillRepository) *SkillService {
	return &SkillService{
		skills: skills,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type SkillInput struct {
	Name            string
	LearningFrom    string
	StartDate       string
	ExpectedEndDate string
	Priority        string
	Level           string
}

// SkillUpdate solo modifica los campos no nil.
type SkillUpdate struct {
	Name         *string
	LearningFrom *string
	Priority     *string
	Level        *string
	Status       *string
}

func validSkillStatus(status string) bool {
	switch status {
	case domain.SkillPending, domain.SkillInProgress, domain.SkillCompleted, domain.SkillOnHold:
		return true
	}
	return false
}

// Create genera un dia por fecha entre inicio y fin, ambos incluidos.
func (s *SkillService) Create(ctx context.Context, email string, input SkillInput) (domain.Skill, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return domain.Skill{}, invalidInput("name", "is required")
	}
	start, err := time.Parse(domain.DayLayout, strings.TrimSpace(input.StartDate))
	if err != nil {
		return domain.Skill{}, invalidInput("start_date", "must be YYYY-MM-DD")
	}
	end, err := time.Parse(domain.DayLayout, strings.TrimSpace(input.ExpectedEndDate))
	if err != nil {
		return domain.Skill{}, invalidInput("expected_end_date", "must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return domain.Skill{}, invalidInput("expected_end_date", "must not be before start_date")
	}
	if int(end.Sub(start).Hours()/24)+1 > maxSkillDays {
		return domain.Skill{}, invalidInput("expected_end_date", "range is too long")
	}

	var days []domain.SkillDay
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, domain.SkillDay{Date: d.Format(domain.DayLayout)})
	}

	skill := domain.Skill{
		ID:              uuid.NewString(),
		UserEmail:       normalizeEmail(email),
		Name:            name,
		LearningFrom:    strings.TrimSpace(input.LearningFrom),
		StartDate:       start.Format(domain.DayLayout),
		ExpectedEndDate: end.Format(domain.DayLayout),
		Status:          domain.SkillPending,
		Priority:        defaultString(input.Priority, "medium"),
		Level:           defaultString(input.Level, "beginner"),
		Days:            days,
		CreatedAt:       s.now(),
	}
	if err := s.skills.Create(ctx, skill); err != nil {
		return domain.Skill{}, storageError("create skill", err)
	}
	return skill, nil
}

func (s *SkillService) List(ctx context.Context, email string) ([]domain.Skill, error) {
	skills, err := s.skills.ListByUser(ctx, normalizeEmail(email))
	if err != nil {
		return nil, storageError("list skills", err)
	}
	if skills == nil {
		skills = []domain.Skill{}
	}
	return skills, nil
}

func (s *SkillService) Update(ctx context.Context, email, id string, update SkillUpdate) (domain.Skill, error) {
	email = normalizeEmail(email)
	skill, err := s.skills.GetByID(ctx, email, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Skill{}, ErrSkillNotFound
		}
		return domain.Skill{}, storageError("get skill", err)
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return domain.Skill{}, invalidInput("name", "must not be empty")
		}
		skill.Name = name
	}
	if update.LearningFrom != nil {
		skill.LearningFrom = strings.TrimSpace(*update.LearningFrom)
	}
	if update.Priority != nil {
		skill.Priority = strings.TrimSpace(*update.Priority)
	}
	if update.Level != nil {
		skill.Level = strings.TrimSpace(*update.Level)
	}
	if update.Status != nil {
		if !validSkillStatus(*update.Status) {
			return domain.Skill{}, invalidInput("status", "is not a valid skill status")
		}
		skill.Status = *update.Status
	}
	if err := s.skills.Update(ctx, skill); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Skill{}, ErrSkillNotFound
		}
		return domain.Skill{}, storageError("update skill", err)
	}
	return skill, nil
}

func (s *SkillService) Delete(ctx context.Context, email, id string) error {
	if err := s.skills.Delete(ctx, normalizeEmail(email), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSkillNotFound
		}
		return storageError("delete skill", err)
	}
	return nil
}

// UpdateDay modifica un dia y recalcula el progreso dentro de la misma transaccion.
func (s *SkillService) UpdateDay(ctx context.Context, email, skillID, date, note string, completed bool) (domain.Skill, error) {
	day, err := time.Parse(domain.DayLayout, strings.TrimSpace(date))
	if err != nil {
		return domain.Skill{}, invalidInput("date", "must be YYYY-MM-DD")
	}
	date = day.Format(domain.DayLayout)

	skill, err := s.skills.UpdateDay(ctx, normalizeEmail(email), skillID, date, func(skill *domain.Skill) error {
		found := false
		for i := range skill.Days {
			if skill.Days[i].Date == date {
				skill.Days[i].Note = note
				skill.Days[i].Completed = completed
				found = true
				break
			}
		}
		if !found {
			return ErrDayNotFound
		}
		recomputeSkillProgress(skill)
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return domain.Skill{}, ErrSkillNotFound
		case errors.Is(err, ErrDayNotFound):
			return domain.Skill{}, err
		default:
			return domain.Skill{}, storageError("update skill day", err)
		}
	}
	return skill, nil
}

func recomputeSkillProgress(skill *domain.Skill) {
	done := 0
	for _, d := range skill.Days {
		if d.Completed {
			done++
		}
	}
	skill.Completed = percentage(done, len(skill.Days))
	switch {
	case skill.Completed == 100:
		skill.Status = domain.SkillCompleted
	case skill.Completed > 0:
		skill.Status = domain.SkillInProgress
	default:
		skill.Status = domain.SkillPending
	}
}

func defaultString(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
