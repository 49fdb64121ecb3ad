package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mailfilter/internal/mailparse"
	"mailfilter/internal/mock"
)

const (
	defaultMockCount = 20
	maxMockCount     = 500
)

type EmailHandler struct {
	generator *mock.Generator
}

func NewEmailHandler(generator *mock.Generator) *EmailHandler {
	return &EmailHandler{generator: generator}
}

// Mock handles GET /api/emails/mock?count=N.
func (h *EmailHandler) Mock(c *gin.Context) {
	count := defaultMockCount
	if v := c.Query("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > maxMockCount {
			c.JSON(http.StatusBadRequest, gin.H{"error": "count must be between 0 and 500"})
			return
		}
		count = n
	}
	c.JSON(http.StatusOK, gin.H{"emails": h.generator.Emails(count)})
}

// Parse handles POST /api/emails/parse with a raw RFC 5322 message as body.
func (h *EmailHandler) Parse(c *gin.Context) {
	email, err := mailparse.Parse(c.Request.Body)
	if err != nil {
		if errors.Is(err, mailparse.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, email)
}
