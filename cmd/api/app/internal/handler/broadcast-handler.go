package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/kacamatagratis/kacamatagratis/pkg/gateway"
	"github.com/kacamatagratis/kacamatagratis/pkg/models"
	"github.com/kacamatagratis/kacamatagratis/pkg/template"
)

// BroadcastHandler sends admin-composed messages. The admin UI loops
// over its recipient list client-side; the limiter paces the resulting
// request burst so the provider does not throttle the account.
type BroadcastHandler struct {
	gw      *gateway.Gateway
	limiter *rate.Limiter
}

func NewBroadcastHandler(gw *gateway.Gateway, messagesPerSecond float64, burst int) *BroadcastHandler {
	if messagesPerSecond <= 0 {
		messagesPerSecond = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &BroadcastHandler{
		gw:      gw,
		limiter: rate.NewLimiter(rate.Limit(messagesPerSecond), burst),
	}
}

func (h *BroadcastHandler) Send(c *gin.Context) {
	var body struct {
		Phone         string `json:"phone" binding:"required"`
		Message       string `json:"message" binding:"required"`
		ParticipantID string `json:"participantId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var participantID *uuid.UUID
	if body.ParticipantID != "" {
		id, err := uuid.Parse(body.ParticipantID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid participant ID"})
			return
		}
		participantID = &id
	}

	if err := h.limiter.Wait(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "broadcast cancelled"})
		return
	}

	res := h.gw.Send(c.Request.Context(), gateway.Request{
		Phone:         body.Phone,
		Text:          body.Message + template.AntiSpamSuffix(),
		Type:          models.TypeBroadcast,
		ParticipantID: participantID,
	})
	if !res.Success {
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": res.Err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "api_key_used": res.APIKeyUsed})
}
