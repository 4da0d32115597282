package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kacamatagratis/kacamatagratis/cmd/api/app/internal/services"
)

type RegisterHandler struct {
	service *services.ParticipantService
}

func NewRegisterHandler(db *gorm.DB) *RegisterHandler {
	return &RegisterHandler{service: services.NewParticipantService(db)}
}

func (h *RegisterHandler) Register(c *gin.Context) {
	var in services.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.service.Register(in)
	if err != nil {
		if errors.Is(err, services.ErrPhoneTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":     true,
		"participant": p,
	})
}
