package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "peritagem/api/swagger" // swagger docs
	"peritagem/internal/handler"
	"peritagem/internal/middleware"
	"peritagem/internal/repository"
	"peritagem/internal/service"
	"peritagem/internal/websocket"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := setup(ctx)
	if err != nil {
		return err
	}
	defer b.close()
	cfg, log := b.cfg, b.log

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(log.Named("ws"))
	go wsHub.Run(ctx)

	// Set up dependencies (Repository -> Service -> Handler)
	profileRepo := repository.NewProfileRepository(b.db)
	auditRepo := repository.NewAuditRepository(b.db)
	txManager := repository.NewTransactionManager(b.db)

	auth := middleware.NewAuth(cfg.JWTSecret, profileRepo, cfg.ProfileCacheSize, cfg.ProfileCacheTTL, cfg.AuthBootstrapTimeout, log.Named("auth"))

	auditService := service.NewAuditService(auditRepo, log)
	authService := service.NewAuthService(profileRepo, auditRepo, txManager, cfg.JWTSecret, auth.Invalidate, log)
	dashboardService := service.NewDashboardService(b.peritagens)

	notifiers := service.MultiNotifier{service.NewHubNotifier(dashboardService, wsHub, log)}
	if cfg.EmailTriggerEnabled {
		if b.rest != nil {
			notifiers = append(notifiers, service.NewEmailNotifier(b.rest, 10*time.Second, log))
		} else {
			log.Warn("email trigger enabled but no REST backend is configured; emails are not sent")
		}
	}

	peritagemService := service.NewPeritagemService(b.peritagens, auditService, notifiers, log)
	reportService := service.NewReportService(b.peritagens, log)
	navigationService := service.NewNavigationService(b.settings)
	seedService := service.NewSeedService(b.emulated, profileRepo, auditService, cfg.SeedPerStage, nil, log.Named("seed"))
	simulationService := service.NewSimulationService(seedService, b.settings, b.offline, log)

	created, err := authService.BootstrapAdmin(ctx, cfg.BootstrapAdminName, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword)
	if err != nil {
		return err
	}
	if created {
		log.Info("bootstrap Gestor created", zap.String("email", cfg.BootstrapAdminEmail))
	}

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(authService, auth, cfg.Release())
	peritagemHandler := handler.NewPeritagemHandler(peritagemService, reportService, auth)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, auth)
	navigationHandler := handler.NewNavigationHandler(navigationService, simulationService, auth)
	auditHandler := handler.NewAuditHandler(auditService, auth)

	// Set up Gin Router
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log.Named("http")), middleware.Metrics())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "offline_mode": b.offline})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, cfg.JWTSecret)
	})

	// API Routing
	authHandler.RegisterRoutes(router.Group(""))
	peritagemHandler.RegisterRoutes(router.Group(""))
	dashboardHandler.RegisterRoutes(router.Group(""))
	navigationHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
		return err
	}
	log.Info("server stopped")
	return nil
}
