package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pixelpanic/pixel-panic-api/services"
)

// DashboardController serves the admin overview
type DashboardController struct {
	dashboard *services.DashboardService
}

// NewDashboardController creates a dashboard controller
func NewDashboardController(dashboard *services.DashboardService) *DashboardController {
	return &DashboardController{dashboard: dashboard}
}

// Stats handles GET /api/admin/dashboard?range=&from=&to=&tzOffset=
func (dc *DashboardController) Stats(c *gin.Context) {
	offset := 0
	if raw := c.Query("tzOffset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondFailure(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", map[string]string{"tzOffset": "Must be a whole number of minutes"})
			return
		}
		offset = n
	}

	stats, err := dc.dashboard.Stats(c.Request.Context(), services.DashboardQuery{
		Range:           c.DefaultQuery("range", services.RangeToday),
		From:            c.Query("from"),
		To:              c.Query("to"),
		TZOffsetMinutes: offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, stats)
}
