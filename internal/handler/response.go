package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mailfilter/pkg/circuitbreaker"
	"mailfilter/pkg/util"
)

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// upstreamError reports a failed provider call. The client decides what to
// show the user.
func upstreamError(c *gin.Context, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
		status = http.StatusServiceUnavailable
	}
	retryable, errType := util.IsRetryableError(err)
	c.JSON(status, gin.H{
		"error":      err.Error(),
		"error_type": errType,
		"retryable":  retryable,
	})
}
