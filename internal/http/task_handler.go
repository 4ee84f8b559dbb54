package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"planfusion/internal/domain"
	"planfusion/internal/service"
)

type TaskManager interface {
	Create(ctx context.Context, email string, input service.TaskInput) (domain.Task, error)
	List(ctx context.Context, email string) ([]domain.Task, error)
	Update(ctx context.Context, email, id string, update service.TaskUpdate) (domain.Task, error)
	Delete(ctx context.Context, email, id string) error
}

type TaskHandler struct {
	logger *zap.Logger
	tasks  TaskManager
}

func NewTaskHandler(logger *zap.Logger, tasks TaskManager) *TaskHandler {
	return &TaskHandler{logger: logger, tasks: tasks}
}

func (h *TaskHandler) List(c *gin.Context) {
	email, _ := CurrentEmail(c)
	tasks, err := h.tasks.List(c.Request.Context(), email)
	if err != nil {
		respondError(c, h.logger, "list tasks", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (h *TaskHandler) Create(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Priority string `json:"priority"`
		DueDate  string `json:"due_date"`
		Reminder string `json:"reminder"`
		Label    string `json:"label"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "create task", err)
		return
	}
	email, _ := CurrentEmail(c)
	task, err := h.tasks.Create(c.Request.Context(), email, service.TaskInput{
		Name:     req.Name,
		Priority: req.Priority,
		DueDate:  req.DueDate,
		Reminder: req.Reminder,
		Label:    req.Label,
	})
	if err != nil {
		respondError(c, h.logger, "create task", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": task})
}

func (h *TaskHandler) Update(c *gin.Context) {
	var req struct {
		Name     *string `json:"name"`
		Status   *string `json:"status"`
		Priority *string `json:"priority"`
		DueDate  *string `json:"due_date"`
		Reminder *string `json:"reminder"`
		Label    *string `json:"label"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "update task", err)
		return
	}
	email, _ := CurrentEmail(c)
	task, err := h.tasks.Update(c.Request.Context(), email, c.Param("id"), service.TaskUpdate{
		Name:     req.Name,
		Status:   req.Status,
		Priority: req.Priority,
		DueDate:  req.DueDate,
		Reminder: req.Reminder,
		Label:    req.Label,
	})
	if err != nil {
		respondError(c, h.logger, "update task", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

func (h *TaskHandler) Delete(c *gin.Context) {
	email, _ := CurrentEmail(c)
	if err := h.tasks.Delete(c.Request.Context(), email, c.Param("id")); err != nil {
		respondError(c, h.logger, "delete task", err)
		return
	}
	c.Status(http.StatusNoContent)
}
