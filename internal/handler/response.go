package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/starfund/mes/internal/ledger"
)

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// LedgerErrorResponse 把台账错误映射为HTTP状态码
func LedgerErrorResponse(c *gin.Context, err error) {
	ErrorResponse(c, statusCodeFor(err), err.Error())
}

func statusCodeFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrProjectNotFound),
		errors.Is(err, ledger.ErrMilestoneNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrAlreadyInitialized):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrNotInitialized):
		return http.StatusServiceUnavailable
	case errors.Is(err, ledger.ErrInvalidMilestoneSchedule),
		errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrProjectNotOpen),
		errors.Is(err, ledger.ErrProjectNotFunded),
		errors.Is(err, ledger.ErrOverfundingRejected),
		errors.Is(err, ledger.ErrMilestoneNotPending),
		errors.Is(err, ledger.ErrMilestoneNotSubmitted),
		errors.Is(err, ledger.ErrMilestoneAlreadyVerified),
		errors.Is(err, ledger.ErrDeadlineExpired),
		errors.Is(err, ledger.ErrDeadlineNotReached):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrAssetTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
