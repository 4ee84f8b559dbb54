package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"planfusion/internal/service"
)

type DashboardProvider interface {
	Dashboard(ctx context.Context, email string) (service.DashboardStats, error)
	NotificationCount(ctx context.Context, email string) (int, error)
}

type DigestSender interface {
	SendDigest(ctx context.Context, email string) error
}

type DashboardHandler struct {
	logger    *zap.Logger
	dashboard DashboardProvider
	digests   DigestSender
}

func NewDashboardHandler(logger *zap.Logger, dashboard DashboardProvider, digests DigestSender) *DashboardHandler {
	return &DashboardHandler{logger: logger, dashboard: dashboard, digests: digests}
}

// Dashboard maneja GET /api/dashboard.
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	email, _ := CurrentEmail(c)
	stats, err := h.dashboard.Dashboard(c.Request.Context(), email)
	if err != nil {
		respondError(c, h.logger, "dashboard", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// NotificationCount maneja GET /api/notifications/count.
func (h *DashboardHandler) NotificationCount(c *gin.Context) {
	email, _ := CurrentEmail(c)
	count, err := h.dashboard.NotificationCount(c.Request.Context(), email)
	if err != nil {
		respondError(c, h.logger, "notification count", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// TestNotification maneja POST /api/notifications/test.
func (h *DashboardHandler) TestNotification(c *gin.Context) {
	email, _ := CurrentEmail(c)
	if err := h.digests.SendDigest(c.Request.Context(), email); err != nil {
		respondError(c, h.logger, "test notification", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}
