package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledger-service/pkg/common"
)

func (h *Handler) ListNotifications(c *gin.Context) {
	userId, ok := callerID(c)
	if !ok {
		return
	}
	page, limit := pageParams(c)

	res, err := h.Notifications.List(c.Request.Context(), userId, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	userId, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.Notifications.MarkRead(c.Request.Context(), userId, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(nil, "Notification marked as read"))
}
