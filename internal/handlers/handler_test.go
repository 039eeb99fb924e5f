package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"ledger-service/internal/services"
)

func TestStatusFor(t *testing.T) {
	verr := &services.ValidationError{}
	verr.Add("email", "is required")

	tests := []struct {
		err  error
		want int
	}{
		{verr, http.StatusBadRequest},
		{fmt.Errorf("%w: level 1, product requires 3", services.ErrInsufficientRank), http.StatusBadRequest},
		{services.ErrInsufficientFunds, http.StatusBadRequest},
		{services.ErrWithdrawalNotPending, http.StatusBadRequest},
		{services.ErrProductNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: deposit x", services.ErrNotFound), http.StatusNotFound},
		{services.ErrInvalidSignature, http.StatusUnauthorized},
		{services.ErrJobRunning, http.StatusConflict},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestCallerID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/me", func(c *gin.Context) {
		id, ok := callerID(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(userHeader, "42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":42}`, w.Body.String())

	for _, header := range []string{"", "0", "abc", "-3"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(userHeader, header)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
	}
}

func TestRespondErrorHidesInternals(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/fail", func(c *gin.Context) { respondError(c, errors.New("dial tcp 10.0.0.3:3306: refused")) })
	r.GET("/invalid", func(c *gin.Context) {
		verr := &services.ValidationError{}
		verr.Add("username", "already taken")
		respondError(c, verr)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.3")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/invalid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already taken")
}
