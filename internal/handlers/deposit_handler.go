package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"ledger-service/pkg/common"
)

const signatureHeader = "X-Sign"

type InitDepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) InitDeposit(c *gin.Context) {
	userId, ok := callerID(c)
	if !ok {
		return
	}

	var req InitDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error(), nil, http.StatusBadRequest))
		return
	}

	deposit, err := h.Deposits.InitDeposit(c.Request.Context(), userId, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	res := common.NewSuccessResponse(gin.H{"reference": deposit.Reference, "deposit": deposit}, "Deposit initiated")
	res.Status = http.StatusCreated
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) ListDeposits(c *gin.Context) {
	userId, ok := callerID(c)
	if !ok {
		return
	}

	deposits, err := h.Deposits.History(c.Request.Context(), userId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(deposits, "Deposits fetched"))
}

// DepositWebhook receives the gateway callback. The signature covers the raw
// body, so it is read before any decoding.
func (h *Handler) DepositWebhook(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("Unreadable body", nil, http.StatusBadRequest))
		return
	}

	if err := h.Deposits.HandleWebhook(c.Request.Context(), raw, c.GetHeader(signatureHeader)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(nil, "Callback accepted"))
}
