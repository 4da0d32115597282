package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kacamatagratis/kacamatagratis/cmd/api/app/internal/services"
	"github.com/kacamatagratis/kacamatagratis/pkg/automation"
)

type NotificationHandler struct {
	service *services.NotificationService
	engine  *automation.Engine
}

func NewNotificationHandler(db *gorm.DB, engine *automation.Engine) *NotificationHandler {
	return &NotificationHandler{
		service: services.NewNotificationService(db),
		engine:  engine,
	}
}

func (h *NotificationHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	logs, err := h.service.List(c.Query("status"), c.Query("type"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, logs)
}

// Retry re-sends one failed entry on demand from the admin log view.
func (h *NotificationHandler) Retry(c *gin.Context) {
	var body struct {
		NotificationID string `json:"notificationId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := uuid.Parse(body.NotificationID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification ID"})
		return
	}
	if err := h.engine.RetryOne(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *NotificationHandler) AutomationStatus(c *gin.Context) {
	report, err := h.service.Status()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}
