package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"peritagem/internal/middleware"
	"peritagem/internal/report"
	"peritagem/internal/service"
	"peritagem/pkg/pagination"
	"peritagem/pkg/response"
)

type PeritagemHandler struct {
	peritagemService service.PeritagemService
	reportService    service.ReportService
	auth             *middleware.Auth
}

func NewPeritagemHandler(peritagemService service.PeritagemService, reportService service.ReportService, auth *middleware.Auth) *PeritagemHandler {
	return &PeritagemHandler{peritagemService: peritagemService, reportService: reportService, auth: auth}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup.
// Stage and field permissions are enforced by the service.
func (h *PeritagemHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/peritagens")
	group.Use(h.auth.RequireRole())
	{
		group.GET("", h.List)
		group.GET("/pending", h.Pending)
		group.POST("", h.Create)
		group.GET("/:id", h.Get)
		group.GET("/:id/timeline", h.Timeline)
		group.GET("/:id/report", h.Report)
		group.PUT("/:id/items", h.UpdateItems)
		group.POST("/:id/transitions", h.Advance)
		group.DELETE("/:id", h.Delete)
	}
}

// List handles GET /api/peritagens
// @Summary      List peritagens
// @Description  Newest first. Repeat status to filter by several stages. Omitting limit returns every row.
// @Tags         peritagens
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     []string  false  "Stage label"  collectionFormat(multi)
// @Param        page    query     int       false  "Page number (default 1)"
// @Param        limit   query     int       false  "Number of items per page"
// @Success      200     {object}  response.Response{data=response.Page{items=[]model.Peritagem}}
// @Failure      400     {object}  response.Response
// @Router       /api/peritagens [get]
func (h *PeritagemHandler) List(c *gin.Context) {
	p := pagination.ParseOptional(c)

	req := service.ListPeritagensRequest{
		Statuses: c.QueryArray("status"),
		Page:     p.Page,
		Limit:    p.Limit,
	}
	rows, total, err := h.peritagemService.List(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paged(http.StatusOK, rows, int64(total), p.Page, p.Limit))
}

// Pending handles GET /api/peritagens/pending
// @Summary      Pending for my role
// @Description  Records sitting in a stage the caller's role is responsible for
// @Tags         peritagens
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.Peritagem}
// @Router       /api/peritagens/pending [get]
func (h *PeritagemHandler) Pending(c *gin.Context) {
	rows, err := h.peritagemService.Pending(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}

// Create handles POST /api/peritagens
// @Summary      Create peritagem
// @Tags         peritagens
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreatePeritagemRequest  true  "Header and items"
// @Success      201      {object}  response.Response{data=model.Peritagem}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/peritagens [post]
func (h *PeritagemHandler) Create(c *gin.Context) {
	var req service.CreatePeritagemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	p, err := h.peritagemService.Create(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, p))
}

// Get handles GET /api/peritagens/:id
// @Summary      Get peritagem
// @Tags         peritagens
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Peritagem ID"
// @Success      200  {object}  response.Response{data=service.PeritagemDetail}
// @Failure      404  {object}  response.Response
// @Router       /api/peritagens/{id} [get]
func (h *PeritagemHandler) Get(c *gin.Context) {
	detail, err := h.peritagemService.Get(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, detail))
}

// Timeline handles GET /api/peritagens/:id/timeline
// @Summary      Stage timeline
// @Tags         peritagens
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Peritagem ID"
// @Success      200  {object}  response.Response{data=service.Timeline}
// @Failure      404  {object}  response.Response
// @Router       /api/peritagens/{id}/timeline [get]
func (h *PeritagemHandler) Timeline(c *gin.Context) {
	tl, err := h.peritagemService.Timeline(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tl))
}

// UpdateItems handles PUT /api/peritagens/:id/items
// @Summary      Edit items
// @Description  Applies header, item, cost and budget changes allowed for the caller's role at the current stage
// @Tags         peritagens
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true  "Peritagem ID"
// @Param        payload  body      service.UpdateItemsRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=model.Peritagem}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/peritagens/{id}/items [put]
func (h *PeritagemHandler) UpdateItems(c *gin.Context) {
	var req service.UpdateItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	p, err := h.peritagemService.UpdateItems(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, p))
}

// Advance handles POST /api/peritagens/:id/transitions
// @Summary      Apply workflow action
// @Tags         peritagens
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Peritagem ID"
// @Param        payload  body      service.TransitionRequest  true  "Action"
// @Success      200      {object}  response.Response{data=model.Peritagem}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/peritagens/{id}/transitions [post]
func (h *PeritagemHandler) Advance(c *gin.Context) {
	var req service.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload")
		return
	}

	p, err := h.peritagemService.Advance(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, p))
}

// Delete handles DELETE /api/peritagens/:id
// @Summary      Delete peritagem
// @Tags         peritagens
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Peritagem ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/peritagens/{id} [delete]
func (h *PeritagemHandler) Delete(c *gin.Context) {
	if err := h.peritagemService.Delete(c.Request.Context(), middleware.ActorFrom(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Peritagem deleted successfully"))
}

// Report handles GET /api/peritagens/:id/report
// @Summary      Download report
// @Description  Spreadsheet report of a finalized peritagem. The variant decides which money columns are shown.
// @Tags         peritagens
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        id       path   string  true   "Peritagem ID"
// @Param        variant  query  string  false  "sem_custo, comprador, orcamentista or cliente"
// @Success      200
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/peritagens/{id}/report [get]
func (h *PeritagemHandler) Report(c *gin.Context) {
	doc, err := h.reportService.Generate(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), c.Query("variant"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(http.StatusOK, report.ContentType, doc.Body)
}
