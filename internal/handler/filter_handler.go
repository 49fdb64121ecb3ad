package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"mailfilter/internal/filter"
	"mailfilter/internal/model"
)

type FilterHandler struct {
	engine *filter.Engine
}

func NewFilterHandler(engine *filter.Engine) *FilterHandler {
	return &FilterHandler{engine: engine}
}

type applyFiltersRequest struct {
	Emails []model.Email      `json:"emails"`
	Rules  []model.FilterRule `json:"rules"`
	Query  string             `json:"query"`
}

// Apply handles POST /api/filters/apply. The search query narrows the
// mailbox before the rules run.
func (h *FilterHandler) Apply(c *gin.Context) {
	var req applyFiltersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	for i, r := range req.Rules {
		if err := r.Validate(); err != nil {
			badRequest(c, fmt.Errorf("rule %d: %w", i, err))
			return
		}
	}
	if req.Emails == nil {
		req.Emails = []model.Email{}
	}

	emails := filter.Search(req.Emails, req.Query)
	out := h.engine.Apply(c.Request.Context(), emails, req.Rules)
	c.JSON(http.StatusOK, gin.H{"emails": out})
}

// Validate handles POST /api/rules/validate.
func (h *FilterHandler) Validate(c *gin.Context) {
	var req struct {
		Rule *model.FilterRule `json:"rule"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Rule == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rule is required"})
		return
	}
	if err := req.Rule.Validate(); err != nil {
		badRequest(c, err)
		return
	}
	if req.Rule.ID == "" {
		req.Rule.ID = model.NewRuleID()
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "rule": req.Rule})
}
