package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledger-service/internal/models"
	"ledger-service/internal/services"
	"ledger-service/pkg/common"
)

type SettleWithdrawalRequest struct {
	ExternalId string `json:"external_id"`
	Comment    string `json:"comment"`
}

func (h *Handler) RequestWithdrawal(c *gin.Context) {
	userId, ok := callerID(c)
	if !ok {
		return
	}

	var req services.WithdrawRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error(), nil, http.StatusBadRequest))
		return
	}

	w, err := h.Withdrawals.Request(c.Request.Context(), userId, req)
	if err != nil {
		respondError(c, err)
		return
	}

	res := common.NewSuccessResponse(w, "Withdrawal requested")
	res.Status = http.StatusCreated
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) ListWithdrawals(c *gin.Context) {
	userId, ok := callerID(c)
	if !ok {
		return
	}
	page, limit := pageParams(c)

	res, err := h.Withdrawals.List(c.Request.Context(), userId, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ApproveWithdrawal(c *gin.Context) {
	h.settleWithdrawal(c, true)
}

func (h *Handler) RejectWithdrawal(c *gin.Context) {
	h.settleWithdrawal(c, false)
}

func (h *Handler) settleWithdrawal(c *gin.Context, approve bool) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req SettleWithdrawalRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error(), nil, http.StatusBadRequest))
			return
		}
	}

	ctx := c.Request.Context()
	var (
		w       *models.Withdrawal
		err     error
		message string
	)
	if approve {
		w, err = h.Withdrawals.Approve(ctx, id, req.ExternalId)
		message = "Withdrawal approved"
	} else {
		w, err = h.Withdrawals.Reject(ctx, id, req.Comment)
		message = "Withdrawal rejected"
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(w, message))
}
