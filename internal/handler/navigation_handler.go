package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"peritagem/internal/middleware"
	"peritagem/internal/model"
	"peritagem/internal/service"
	"peritagem/pkg/response"
)

type NavigationHandler struct {
	navigationService service.NavigationService
	simulationService service.SimulationService
	auth              *middleware.Auth
}

func NewNavigationHandler(navigationService service.NavigationService, simulationService service.SimulationService, auth *middleware.Auth) *NavigationHandler {
	return &NavigationHandler{navigationService: navigationService, simulationService: simulationService, auth: auth}
}

func (h *NavigationHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/navigation", h.auth.RequireRole(), h.GetMenu)

	sim := router.Group("/api/simulation")
	sim.Use(h.auth.RequireRole(model.RoleGestor))
	{
		sim.GET("", h.GetSimulation)
		sim.POST("", h.StartSimulation)
		sim.DELETE("", h.StopSimulation)
	}
}

// GetMenu handles GET /api/navigation
// @Summary      Navigation menu
// @Description  Menu entries visible to the caller's role under the current plan
// @Tags         navigation
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.Navigation}
// @Router       /api/navigation [get]
func (h *NavigationHandler) GetMenu(c *gin.Context) {
	nav, err := h.navigationService.Menu(c.Request.Context(), middleware.ActorFrom(c).Role)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, nav))
}

// GetSimulation handles GET /api/simulation
// @Summary      Simulation status
// @Tags         simulation
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.SimulationStatus}
// @Router       /api/simulation [get]
func (h *NavigationHandler) GetSimulation(c *gin.Context) {
	status, err := h.simulationService.Status(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, status))
}

// StartSimulation handles POST /api/simulation
// @Summary      Start simulation
// @Description  Seeds demo records and turns on offline mode for the next start
// @Tags         simulation
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.StartSimulationRequest  false  "Plan"
// @Success      200      {object}  response.Response{data=service.SimulationResult}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/simulation [post]
func (h *NavigationHandler) StartSimulation(c *gin.Context) {
	var req service.StartSimulationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request payload")
			return
		}
	}

	res, err := h.simulationService.Start(c.Request.Context(), middleware.ActorFrom(c), req.Plan)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// StopSimulation handles DELETE /api/simulation
// @Summary      Stop simulation
// @Tags         simulation
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.SimulationStatus}
// @Router       /api/simulation [delete]
func (h *NavigationHandler) StopSimulation(c *gin.Context) {
	status, err := h.simulationService.Stop(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, status))
}
