package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"peritagem/internal/middleware"
	"peritagem/internal/model"
	"peritagem/internal/service"
	"peritagem/pkg/pagination"
	"peritagem/pkg/response"
)

type AuditHandler struct {
	auditService service.AuditService
	auth         *middleware.Auth
}

func NewAuditHandler(auditService service.AuditService, auth *middleware.Auth) *AuditHandler {
	return &AuditHandler{auditService: auditService, auth: auth}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	group.Use(h.auth.RequireRole(model.RoleGestor))
	{
		group.GET("", h.GetAuditLogs)
		group.GET("/:entityId", h.GetHistory)
	}
}

// GetAuditLogs retrieves paginated audit records with the acting profile resolved
// @Summary      Get audit logs
// @Description  Newest first
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.Page{items=[]service.AuditLogResponse}}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paged(http.StatusOK, logs, total, p.Page, p.Limit))
}

// GetHistory lists every audit entry of one entity
// @Summary      Entity history
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        entityId  path      string  true  "Entity ID"
// @Success      200       {object}  response.Response{data=[]service.AuditLogResponse}
// @Router       /api/audit-logs/{entityId} [get]
func (h *AuditHandler) GetHistory(c *gin.Context) {
	logs, err := h.auditService.History(c.Request.Context(), c.Param("entityId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, logs))
}
