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

type GoalService struct {
	goals repository.GoalRepository
	now   func() time.Time
}

func NewGoalService(goals repository.GoalRepository) *GoalService {
	return &GoalService{
		goals: goals,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type GoalInput struct {
	Description string
	Type        string
	Target      int
	Completed   int
	Status      string
	Deadline    string
}

type GoalUpdate struct {
	Description *string
	Type        *string
	Target      *int
	Completed   *int
	Status      *string
	Deadline    *string
}

func parseDeadline(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(domain.DayLayout, value)
	if err != nil {
		return nil, invalidInput("deadline", "must be YYYY-MM-DD")
	}
	return &t, nil
}

func (s *GoalService) Create(ctx context.Context, email string, input GoalInput) (domain.Goal, error) {
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return domain.Goal{}, invalidInput("description", "is required")
	}
	goalType := strings.TrimSpace(input.Type)
	if goalType == "" {
		return domain.Goal{}, invalidInput("type", "is required")
	}
	if input.Target < 0 || input.Completed < 0 {
		return domain.Goal{}, invalidInput("target", "must not be negative")
	}
	deadline, err := parseDeadline(input.Deadline)
	if err != nil {
		return domain.Goal{}, err
	}

	goal := domain.Goal{
		ID:          uuid.NewString(),
		UserEmail:   normalizeEmail(email),
		Description: description,
		Type:        goalType,
		Target:      input.Target,
		Completed:   input.Completed,
		Status:      strings.TrimSpace(input.Status),
		Deadline:    deadline,
		CreatedAt:   s.now(),
	}
	if err := s.goals.Create(ctx, goal); err != nil {
		return domain.Goal{}, storageError("create goal", err)
	}
	return goal, nil
}

func (s *GoalService) List(ctx context.Context, email string) ([]domain.Goal, error) {
	goals, err := s.goals.ListByUser(ctx, normalizeEmail(email))
	if err != nil {
		return nil, storageError("list goals", err)
	}
	if goals == nil {
		goals = []domain.Goal{}
	}
	return goals, nil
}

func (s *GoalService) Update(ctx context.Context, email, id string, update GoalUpdate) (domain.Goal, error) {
	email = normalizeEmail(email)
	goal, err := s.goals.GetByID(ctx, email, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Goal{}, ErrNotFound
		}
		return domain.Goal{}, storageError("get goal", err)
	}
	if update.Description != nil {
		description := strings.TrimSpace(*update.Description)
		if description == "" {
			return domain.Goal{}, invalidInput("description", "must not be empty")
		}
		goal.Description = description
	}
	if update.Type != nil {
		goal.Type = strings.TrimSpace(*update.Type)
	}
	if update.Target != nil {
		if *update.Target < 0 {
			return domain.Goal{}, invalidInput("target", "must not be negative")
		}
		goal.Target = *update.Target
	}
	if update.Completed != nil {
		if *update.Completed < 0 {
			return domain.Goal{}, invalidInput("completed", "must not be negative")
		}
		goal.Completed = *update.Completed
	}
	if update.Status != nil {
		goal.Status = strings.TrimSpace(*update.Status)
	}
	if update.Deadline != nil {
		deadline, err := parseDeadline(*update.Deadline)
		if err != nil {
			return domain.Goal{}, err
		}
		goal.Deadline = deadline
	}
	if err := s.goals.Update(ctx, goal); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Goal{}, ErrNotFound
		}
		return domain.Goal{}, storageError("update goal", err)
	}
	return goal, nil
}

func (s *GoalService) Delete(ctx context.Context, email, id string) error {
	if err := s.goals.Delete(ctx, normalizeEmail(email), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return storageError("delete goal", err)
	}
	return nil
}
