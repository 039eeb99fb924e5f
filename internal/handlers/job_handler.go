package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ledger-service/pkg/common"
)

func (h *Handler) RunExpiry(c *gin.Context) {
	summary, err := h.Scheduler.RunExpiry(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(summary, "Expiry sweep finished"))
}

// RunDailyRewards pays the day given as ?day=YYYY-MM-DD, today (UTC) by default.
func (h *Handler) RunDailyRewards(c *gin.Context) {
	day := time.Now().UTC()
	if raw := c.Query("day"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("day must be YYYY-MM-DD", nil, http.StatusBadRequest))
			return
		}
		day = parsed
	}

	summary, err := h.Scheduler.RunDailyRewards(c.Request.Context(), day)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(summary, "Daily rewards distributed"))
}

func (h *Handler) RunTrialRecovery(c *gin.Context) {
	recovered, err := h.Scheduler.RunTrialRecovery(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{"recovered": recovered}, "Trial recovery finished"))
}
