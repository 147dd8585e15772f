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

type AuthHandler struct {
	authService   service.AuthService
	auth          *middleware.Auth
	secureCookies bool
}

// NewAuthHandler sets up the routing dependencies for auth and profile endpoints
func NewAuthHandler(authService service.AuthService, auth *middleware.Auth, secureCookies bool) *AuthHandler {
	return &AuthHandler{authService: authService, auth: auth, secureCookies: secureCookies}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Public routes
	router.POST("/auth/register", h.Register)
	router.POST("/auth/login", h.Login)
	router.POST("/auth/logout", h.Logout)

	// Any active profile
	router.GET("/me", h.auth.RequireRole(), h.GetMe)

	profiles := router.Group("/api/profiles")
	profiles.Use(h.auth.RequireRole(model.RoleGestor))
	{
		profiles.GET("", h.ListProfiles)
		profiles.PUT("/:id/approve", h.Approve)
		profiles.PUT("/:id/status", h.UpdateStatus)
		profiles.PUT("/:id/role", h.UpdateRole)
	}
}

// Register handles POST /auth/register
// @Summary      Register profile
// @Description  Creates a profile in Pendente status; a Gestor must approve it before login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterRequest  true  "Registration"
// @Success      201      {object}  response.Response{data=service.ProfileResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	profile, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, profile))
}

// Login handles POST /auth/login to authenticate and return a JWT token
// @Summary      Login
// @Description  Authenticates by email and password. Profiles awaiting approval or inactive get 403.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Login Credentials"
// @Success      200      {object}  response.Response{data=service.LoginResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload")
		return
	}

	res, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	middleware.SetTokenCookies(c, res.Token, h.secureCookies)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Logout handles POST /auth/logout to clear the auth cookie
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	middleware.ClearTokenCookies(c, h.secureCookies)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Logged out"))
}

// GetMe handles GET /me
// @Summary      Current profile
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.ProfileResponse}
// @Failure      401  {object}  response.Response
// @Router       /me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	profile, err := h.authService.Me(c.Request.Context(), actor.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, profile))
}

// ListProfiles handles GET /api/profiles
// @Summary      List profiles
// @Tags         profiles
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.Page{items=[]service.ProfileResponse}}
// @Router       /api/profiles [get]
func (h *AuthHandler) ListProfiles(c *gin.Context) {
	p := pagination.Parse(c)
	profiles, total, err := h.authService.ListProfiles(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paged(http.StatusOK, profiles, total, p.Page, p.Limit))
}

// Approve handles PUT /api/profiles/:id/approve
// @Summary      Approve profile
// @Tags         profiles
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Profile ID"
// @Success      200  {object}  response.Response{data=service.ProfileResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/profiles/{id}/approve [put]
func (h *AuthHandler) Approve(c *gin.Context) {
	profile, err := h.authService.Approve(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, profile))
}

// UpdateStatus handles PUT /api/profiles/:id/status
// @Summary      Change profile status
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                       true  "Profile ID"
// @Param        payload  body      service.UpdateStatusRequest  true  "Status"
// @Success      200      {object}  response.Response{data=service.ProfileResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/profiles/{id}/status [put]
func (h *AuthHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload")
		return
	}
	profile, err := h.authService.SetStatus(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, profile))
}

// UpdateRole handles PUT /api/profiles/:id/role
// @Summary      Change profile role
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Profile ID"
// @Param        payload  body      service.UpdateRoleRequest  true  "Role"
// @Success      200      {object}  response.Response{data=service.ProfileResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/profiles/{id}/role [put]
func (h *AuthHandler) UpdateRole(c *gin.Context) {
	var req service.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload")
		return
	}
	profile, err := h.authService.SetRole(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.Role)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, profile))
}
