package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"peritagem/internal/middleware"
	"peritagem/internal/service"
	"peritagem/pkg/response"
)

type DashboardHandler struct {
	dashboardService service.DashboardService
	auth             *middleware.Auth
}

func NewDashboardHandler(dashboardService service.DashboardService, auth *middleware.Auth) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService, auth: auth}
}

func (h *DashboardHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/dashboard")
	group.Use(h.auth.RequireRole())
	{
		group.GET("", h.GetStats)
		group.GET("/pending", h.GetPendingCounts)
	}
}

// GetStats handles GET /api/dashboard
// @Summary      Dashboard statistics
// @Description  Counters, top clients and monthly evolution for the given year
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Param        year  query     int  false  "Year (default current year)"
// @Success      200   {object}  response.Response{data=model.DashboardStats}
// @Failure      400   {object}  response.Response
// @Router       /api/dashboard [get]
func (h *DashboardHandler) GetStats(c *gin.Context) {
	year := 0
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1 {
			badRequest(c, "Invalid year")
			return
		}
		year = y
	}

	stats, err := h.dashboardService.Stats(c.Request.Context(), year)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

// GetPendingCounts handles GET /api/dashboard/pending
// @Summary      Pending counts per role
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=model.PendingCounts}
// @Router       /api/dashboard/pending [get]
func (h *DashboardHandler) GetPendingCounts(c *gin.Context) {
	counts, err := h.dashboardService.PendingCounts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, counts))
}
