package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetTransactions(c *gin.Context) {
	userId, ok := callerID(c)
	if !ok {
		return
	}
	page, limit := pageParams(c)
	subject := strings.ToUpper(c.Query("subject"))

	res, err := h.Wallets.Transactions(c.Request.Context(), userId, subject, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
