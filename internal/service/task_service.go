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

type TaskService struct {
	tasks repository.TaskRepository
	now   func() time.Time
}

func NewTaskService(tasks repository.TaskRepository) *TaskService {
	return &TaskService{
		tasks: tasks,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type TaskInput struct {
	Name     string
	Priority string
	DueDate  string
	Reminder string
	Label    string
}

type TaskUpdate struct {
	Name     *string
	Status   *string
	Priority *string
	DueDate  *string
	Reminder *string
	Label    *string
}

func (in TaskInput) complete() bool {
	return in.Name != "" && in.Priority != "" && in.DueDate != "" && in.Reminder != ""
}

// Create rechaza duplicados solo cuando nombre, prioridad, fecha y recordatorio coinciden.
func (s *TaskService) Create(ctx context.Context, email string, input TaskInput) (domain.Task, error) {
	email = normalizeEmail(email)
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return domain.Task{}, invalidInput("name", "is required")
	}
	input.Priority = strings.TrimSpace(input.Priority)
	input.DueDate = strings.TrimSpace(input.DueDate)
	input.Reminder = strings.TrimSpace(input.Reminder)

	if input.complete() {
		existing, err := s.tasks.ListByUser(ctx, email)
		if err != nil {
			return domain.Task{}, storageError("list tasks", err)
		}
		for _, t := range existing {
			if t.Name == input.Name && t.Priority == input.Priority && t.DueDate == input.DueDate && t.Reminder == input.Reminder {
				return domain.Task{}, ErrDuplicateTask
			}
		}
	}

	task := domain.Task{
		ID:        uuid.NewString(),
		UserEmail: email,
		Name:      input.Name,
		Status:    domain.TaskPending,
		Priority:  input.Priority,
		DueDate:   input.DueDate,
		Reminder:  input.Reminder,
		Label:     strings.TrimSpace(input.Label),
		CreatedAt: s.now(),
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return domain.Task{}, storageError("create task", err)
	}
	return task, nil
}

func (s *TaskService) List(ctx context.Context, email string) ([]domain.Task, error) {
	tasks, err := s.tasks.ListByUser(ctx, normalizeEmail(email))
	if err != nil {
		return nil, storageError("list tasks", err)
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

func (s *TaskService) Update(ctx context.Context, email, id string, update TaskUpdate) (domain.Task, error) {
	email = normalizeEmail(email)
	task, err := s.tasks.GetByID(ctx, email, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Task{}, ErrNotFound
		}
		return domain.Task{}, storageError("get task", err)
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return domain.Task{}, invalidInput("name", "must not be empty")
		}
		task.Name = name
	}
	if update.Status != nil {
		if !domain.ValidTaskStatus(*update.Status) {
			return domain.Task{}, invalidInput("status", "must be pending, completed or overdue")
		}
		task.Status = *update.Status
	}
	if update.Priority != nil {
		task.Priority = strings.TrimSpace(*update.Priority)
	}
	if update.DueDate != nil {
		task.DueDate = strings.TrimSpace(*update.DueDate)
	}
	if update.Reminder != nil {
		task.Reminder = strings.TrimSpace(*update.Reminder)
	}
	if update.Label != nil {
		task.Label = strings.TrimSpace(*update.Label)
	}
	if err := s.tasks.Update(ctx, task); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Task{}, ErrNotFound
		}
		return domain.Task{}, storageError("update task", err)
	}
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, email, id string) error {
	if err := s.tasks.Delete(ctx, normalizeEmail(email), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return storageError("delete task", err)
	}
	return nil
}
