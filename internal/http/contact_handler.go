package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"planfusion/internal/domain"
	"planfusion/internal/service"
)

type ContactManager interface {
	Create(ctx context.Context, email string, input service.ContactInput) (domain.Contact, error)
	List(ctx context.Context, email string) ([]domain.Contact, error)
	Update(ctx context.Context, email, id string, input service.ContactInput) (domain.Contact, error)
	Delete(ctx context.Context, email, id string) error
}

type ContactHandler struct {
	logger   *zap.Logger
	contacts ContactManager
}

func NewContactHandler(logger *zap.Logger, contacts ContactManager) *ContactHandler {
	return &ContactHandler{logger: logger, contacts: contacts}
}

type contactRequest struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Category        string `json:"category"`
	Notes           string `json:"notes"`
	LastInteraction string `json:"last_interaction"`
	NextMeeting     string `json:"next_meeting"`
}

func (r contactRequest) input() service.ContactInput {
	return service.ContactInput{
		Name:            r.Name,
		Email:           r.Email,
		Phone:           r.Phone,
		Category:        r.Category,
		Notes:           r.Notes,
		LastInteraction: r.LastInteraction,
		NextMeeting:     r.NextMeeting,
	}
}

func (h *ContactHandler) List(c *gin.Context) {
	email, _ := CurrentEmail(c)
	contacts, err := h.contacts.List(c.Request.Context(), email)
	if err != nil {
		respondError(c, h.logger, "list contacts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}

func (h *ContactHandler) Create(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "create contact", err)
		return
	}
	email, _ := CurrentEmail(c)
	contact, err := h.contacts.Create(c.Request.Context(), email, req.input())
	if err != nil {
		respondError(c, h.logger, "create contact", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"contact": contact})
}

func (h *ContactHandler) Update(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "update contact", err)
		return
	}
	email, _ := CurrentEmail(c)
	contact, err := h.contacts.Update(c.Request.Context(), email, c.Param("id"), req.input())
	if err != nil {
		respondError(c, h.logger, "update contact", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contact": contact})
}

func (h *ContactHandler) Delete(c *gin.Context) {
	email, _ := CurrentEmail(c)
	if err := h.contacts.Delete(c.Request.Context(), email, c.Param("id")); err != nil {
		respondError(c, h.logger, "delete contact", err)
		return
	}
	c.Status(http.StatusNoContent)
}
