package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mailfilter/internal/model"
	"mailfilter/internal/report"
)

type ReportHandler struct{}

func NewReportHandler() *ReportHandler {
	return &ReportHandler{}
}

// Build handles POST /api/reports.
func (h *ReportHandler) Build(c *gin.Context) {
	var req struct {
		Emails []model.Email `json:"emails"`
		Start  string        `json:"start"`
		End    string        `json:"end"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	start, end, err := report.ParseRange(req.Start, req.End)
	if err != nil {
		badRequest(c, err)
		return
	}
	r, err := report.Build(req.Emails, start, end)
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}
