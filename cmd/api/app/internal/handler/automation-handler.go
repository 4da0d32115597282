package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kacamatagratis/kacamatagratis/pkg/automation"
	"github.com/kacamatagratis/kacamatagratis/pkg/utils"
)

// cycleRunner is what the handler needs from the automation runner.
type cycleRunner interface {
	TryRun(ctx context.Context, trigger string) (*automation.Results, bool, error)
}

type AutomationHandler struct {
	runner cycleRunner
}

func NewAutomationHandler(runner cycleRunner) *AutomationHandler {
	return &AutomationHandler{runner: runner}
}

// Cron runs one automation cycle. External schedulers authenticate with
// the X-Cron-Secret header instead of a session cookie; the endpoint is
// idempotent, so overlapping triggers just skip.
func (h *AutomationHandler) Cron(c *gin.Context) {
	secret := utils.GetEnv("CRON_SECRET")
	if secret == "" || c.GetHeader("X-Cron-Secret") != secret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid cron secret"})
		return
	}
	h.runCycle(c, "cron")
}

// Trigger is the session-authenticated manual "run now" button.
func (h *AutomationHandler) Trigger(c *gin.Context) {
	h.runCycle(c, "manual")
}

func (h *AutomationHandler) runCycle(c *gin.Context, trigger string) {
	res, ran, err := h.runner.TryRun(c.Request.Context(), trigger)
	if err != nil {
		if errors.Is(err, automation.ErrAutomationDisabled) {
			c.JSON(http.StatusOK, gin.H{"success": false, "reason": "automation disabled"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	if !ran {
		c.JSON(http.StatusOK, gin.H{"success": false, "reason": "another cycle in progress"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "results": res})
}
