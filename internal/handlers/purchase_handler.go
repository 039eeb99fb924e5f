package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ledger-service/pkg/common"
)

func (h *Handler) BuyProduct(c *gin.Context) {
	userId, ok := callerID(c)
	if !ok {
		return
	}
	productId, ok := pathID(c, "id")
	if !ok {
		return
	}

	holding, err := h.Purchases.Buy(c.Request.Context(), userId, productId)
	if err != nil {
		respondError(c, err)
		return
	}

	res := common.NewSuccessResponse(holding, "Product purchased")
	res.Status = http.StatusCreated
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) ListHoldings(c *gin.Context) {
	userId, ok := callerID(c)
	if !ok {
		return
	}

	holdings, err := h.Purchases.ListHoldings(c.Request.Context(), userId, strings.ToUpper(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(holdings, "Holdings fetched"))
}
