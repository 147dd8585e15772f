package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peritagem/internal/middleware"
	"peritagem/internal/model"
	"peritagem/internal/service"
)

func TestRegisterApproveLogin(t *testing.T) {
	f := newAPIFixture(t)
	creds := map[string]any{"email": "Ana@Hidracil.com", "password": "segredo1"}

	w := f.do(t, "", http.MethodPost, "/auth/register", map[string]any{
		"name": "Ana", "email": "ana@hidracil.com", "password": "segredo1", "role": "Perito",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var profile service.ProfileResponse
	decode(t, w, &profile)
	assert.Equal(t, model.ProfilePendente, profile.Status)

	w = f.do(t, "", http.MethodPost, "/auth/login", creds)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, service.ErrAwaitingApproval.Error(), decode(t, w, nil).Error)

	w = f.do(t, model.RolePerito, http.MethodPut, "/api/profiles/"+profile.ID+"/approve", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, model.RoleGestor, http.MethodPut, "/api/profiles/"+profile.ID+"/approve", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, "", http.MethodPost, "/auth/login", creds)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login service.LoginResponse
	decode(t, w, &login)
	assert.NotEmpty(t, login.Token)

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.AccessTokenCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var me service.ProfileResponse
	decode(t, w, &me)
	assert.Equal(t, "ana@hidracil.com", me.Email)
	assert.Equal(t, model.RolePerito, me.Role)
}

func TestRegisterValidation(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, "", http.MethodPost, "/auth/register", map[string]any{
		"name": "Ana", "email": "ana@hidracil.com", "password": "123", "role": "Perito",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, "", http.MethodPost, "/auth/register", map[string]any{
		"name": "Ana", "email": "ana@hidracil.com", "password": "segredo1", "role": "Diretor",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, "", http.MethodPost, "/auth/register", map[string]any{
		"name": "Outro", "email": "Gestor@hidracil.com", "password": "segredo1", "role": "Perito",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, "", http.MethodPost, "/auth/login", map[string]any{"email": "nobody@hidracil.com", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, "", http.MethodPost, "/auth/login", map[string]any{"email": "nobody"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, "", http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.AccessTokenCookie, cookies[0].Name)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestListProfiles(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, model.RoleOrcamentista, http.MethodGet, "/api/profiles", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, model.RoleGestor, http.MethodGet, "/api/profiles?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Items []service.ProfileResponse `json:"items"`
		Total int64                     `json:"total"`
	}
	decode(t, w, &page)
	assert.EqualValues(t, len(model.AllRoles), page.Total)
	assert.Len(t, page.Items, 2)
}

func TestDeactivationTakesEffectImmediately(t *testing.T) {
	f := newAPIFixture(t)

	// warm the profile cache
	w := f.do(t, model.RolePerito, http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, model.RoleGestor, http.MethodPut, "/api/profiles/"+f.ids[model.RolePerito]+"/status", map[string]any{"status": "Inativo"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, model.RolePerito, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, service.ErrInactive.Error(), decode(t, w, nil).Error)
}

func TestRoleChangeUsesStoredRole(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, model.RolePCP, http.MethodGet, "/api/audit-logs", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, model.RoleGestor, http.MethodPut, "/api/profiles/"+f.ids[model.RolePCP]+"/role", map[string]any{"role": "Gestor"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// the PCP token still says PCP; the stored role decides
	w = f.do(t, model.RolePCP, http.MethodGet, "/api/audit-logs", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, model.RoleGestor, http.MethodPut, "/api/profiles/"+f.ids[model.RoleGestor]+"/role", map[string]any{"role": "Perito"})
	assert.Equal(t, http.StatusForbidden, w.Code, "a Gestor cannot demote themselves")

	w = f.do(t, model.RoleGestor, http.MethodPut, "/api/profiles/"+f.ids[model.RolePerito]+"/role", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
