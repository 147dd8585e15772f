package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"peritagem/internal/localstore"
	"peritagem/internal/middleware"
	"peritagem/internal/model"
	"peritagem/internal/repository"
	"peritagem/internal/service"
)

var testSecret = []byte("handler-test-secret")

type apiFixture struct {
	router   *gin.Engine
	db       *gorm.DB
	profiles repository.ProfileRepository
	repo     repository.PeritagemRepository
	settings *localstore.Settings
	tokens   map[model.Role]string
	ids      map[model.Role]string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.Peritagem{}, &model.Profile{}, &model.AuditLog{}))
	require.NoError(t, localstore.Migrate(db))

	f := &apiFixture{
		db:       db,
		profiles: repository.NewProfileRepository(db),
		repo:     repository.NewPeritagemRepository(db),
		settings: localstore.NewSettings(localstore.NewSlots(db)),
		tokens:   map[model.Role]string{},
		ids:      map[model.Role]string{},
	}
	auditRepo := repository.NewAuditRepository(db)
	auth := middleware.NewAuth(testSecret, f.profiles, 16, time.Minute, time.Second, nil)

	auditService := service.NewAuditService(auditRepo, nil)
	authService := service.NewAuthService(f.profiles, auditRepo, repository.NewTransactionManager(db), testSecret, auth.Invalidate, nil)
	dashboardService := service.NewDashboardService(f.repo)
	peritagemService := service.NewPeritagemService(f.repo, auditService, nil, nil)
	reportService := service.NewReportService(f.repo, nil)
	seedService := service.NewSeedService(f.repo, f.profiles, auditService, 1, nil, nil)
	simulationService := service.NewSimulationService(seedService, f.settings, false, nil)

	router := gin.New()
	group := router.Group("")
	NewAuthHandler(authService, auth, false).RegisterRoutes(group)
	NewPeritagemHandler(peritagemService, reportService, auth).RegisterRoutes(group)
	NewDashboardHandler(dashboardService, auth).RegisterRoutes(group)
	NewNavigationHandler(service.NewNavigationService(f.settings), simulationService, auth).RegisterRoutes(group)
	NewAuditHandler(auditService, auth).RegisterRoutes(group)
	f.router = router

	for _, role := range model.AllRoles {
		p := &model.Profile{
			Name:     string(role),
			Email:    strings.ToLower(string(role)) + "@hidracil.com",
			Password: "unused",
			Role:     role,
			Status:   model.ProfileAtivo,
		}
		require.NoError(t, f.profiles.Create(context.Background(), p))
		f.ids[role] = p.ID
		f.tokens[role] = sign(t, p.ID, role)
	}
	return f
}

func sign(t *testing.T, sub string, role model.Role) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": string(role),
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return s
}

func (f *apiFixture) do(t *testing.T, role model.Role, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token, ok := f.tokens[role]; ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func (f *apiFixture) create(t *testing.T) map[string]any {
	t.Helper()
	w := f.do(t, model.RolePerito, http.MethodPost, "/api/peritagens", map[string]any{
		"cliente":     "Vale",
		"equipamento": "Cilindro Hidráulico",
		"items":       []map[string]any{{"component": "Haste", "anomalies": "riscos", "solution": "cromar"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out map[string]any
	decode(t, w, &out)
	return out
}
