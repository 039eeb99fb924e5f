package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledger-service/pkg/common"
)

func (h *Handler) GetWallet(c *gin.Context) {
	userId, ok := callerID(c)
	if !ok {
		return
	}

	overview, cached, err := h.Wallets.Overview(c.Request.Context(), userId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{"wallet": overview, "cached": cached}, "Wallet fetched"))
}
