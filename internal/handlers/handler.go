package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ledger-service/internal/services"
	"ledger-service/pkg/common"
)

const userHeader = "X-User-Id"

type Handler struct {
	Users         *services.UserService
	Wallets       *services.WalletService
	Purchases     *services.PurchaseService
	Deposits      *services.DepositService
	Withdrawals   *services.WithdrawalService
	Notifications *services.NotificationService
	Levels        *services.LevelService
	Scheduler     *services.Scheduler
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/users", h.Register)

	r.GET("/wallet", h.GetWallet)
	r.GET("/wallet/transactions", h.GetTransactions)

	r.POST("/products/:id/buy", h.BuyProduct)
	r.GET("/holdings", h.ListHoldings)

	r.POST("/deposits", h.InitDeposit)
	r.GET("/deposits", h.ListDeposits)
	r.POST("/deposits/webhook", h.DepositWebhook)

	r.POST("/withdrawals", h.RequestWithdrawal)
	r.GET("/withdrawals", h.ListWithdrawals)
	r.POST("/withdrawals/:id/approve", h.ApproveWithdrawal)
	r.POST("/withdrawals/:id/reject", h.RejectWithdrawal)

	r.GET("/notifications", h.ListNotifications)
	r.POST("/notifications/:id/read", h.MarkNotificationRead)

	r.POST("/levels/evaluate/:userId", h.EvaluateLevel)

	r.POST("/jobs/expiry", h.RunExpiry)
	r.POST("/jobs/daily-rewards", h.RunDailyRewards)
	r.POST("/jobs/trial-recovery", h.RunTrialRecovery)
}

// callerID reads the authenticated user id set by the gateway.
func callerID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.GetHeader(userHeader), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusUnauthorized, common.NewErrorResponse("Missing or invalid "+userHeader, nil, http.StatusUnauthorized))
		return 0, false
	}
	return uint(id), true
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("Invalid "+name, nil, http.StatusBadRequest))
		return 0, false
	}
	return uint(id), true
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, limit
}

func statusFor(err error) int {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, services.ErrInsufficientFunds),
		errors.Is(err, services.ErrInsufficientRank),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrWithdrawalNotPending):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrProductNotFound),
		errors.Is(err, services.ErrWalletMissing),
		errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrJobRunning):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	var data interface{}

	var verr *services.ValidationError
	if errors.As(err, &verr) {
		message = "Validation failed"
		data = verr.Fields
	}
	if status == http.StatusInternalServerError {
		logrus.WithField("path", c.FullPath()).WithError(err).Error("request failed")
		message = "Internal server error"
	}
	c.JSON(status, common.NewErrorResponse(message, data, status))
}
