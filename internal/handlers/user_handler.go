package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledger-service/internal/services"
	"ledger-service/pkg/common"
)

func (h *Handler) Register(c *gin.Context) {
	var req services.RegisterDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error(), nil, http.StatusBadRequest))
		return
	}

	reg, err := h.Users.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	res := common.NewSuccessResponse(reg, "User registered")
	res.Status = http.StatusCreated
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) EvaluateLevel(c *gin.Context) {
	userId, ok := pathID(c, "userId")
	if !ok {
		return
	}

	level, err := h.Levels.EvaluateUserLevel(c.Request.Context(), userId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{"user_id": userId, "level": level}, "Level evaluated"))
}
