package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"warranty-tracker/internal/api"
	"warranty-tracker/internal/config"
	"warranty-tracker/internal/database"
	"warranty-tracker/internal/logger"
	"warranty-tracker/internal/scheduler"
	"warranty-tracker/internal/services"
)

func main() {
	// Load configuration
	configPath := "config/config.yaml"
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Setup(&cfg.Log, cfg.Server.Mode)
	if cfg.UsesDefaultSecret() {
		log.Warn().Msg("auth.jwt_secret is the shipped default; set JWT_SECRET before exposing this server")
	}

	// Initialize database
	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	log.Info().Str("type", cfg.Database.Type).Msg("database initialized")

	// Initialize services
	authService := services.NewAuthService(db, cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	settingsService := services.NewSettingsService(db)
	catalogService := services.NewCatalogService(db)
	warrantyService := services.NewWarrantyService(db, catalogService, settingsService)
	exportService := services.NewExportService(db, settingsService)
	notifyService := services.NewNotifyService(db, &cfg.Notifications)
	monitorService := services.NewMonitorService(db, settingsService, notifyService)

	// Initialize default admin account
	if cfg.Auth.AdminPassword != "" {
		if err := authService.EnsureAdmin(cfg.Auth.AdminPassword); err != nil {
			log.Error().Err(err).Msg("failed to create admin account")
		}
	}

	// The configured notification channels belong to the admin's account
	if accountID, err := authService.AdminAccountID(); err == nil {
		notifyService.SetOperatorAccount(accountID)
		log.Info().Uint("account_id", accountID).Msg("notification channels assigned to admin account")
	} else {
		log.Warn().Msg("no admin account; configured notification channels stay unused")
	}

	// Initialize scheduler
	if cfg.Monitor.Enabled {
		sched := scheduler.NewScheduler(monitorService, warrantyService)
		if err := sched.Start(cfg.Monitor.CheckInterval); err != nil {
			log.Fatal().Err(err).Msg("failed to start scheduler")
		}
		defer sched.Stop()
	}

	// Setup Gin
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), api.RequestLogger(), api.CORS())

	// Setup API routes
	handler := api.NewHandler(api.Services{
		Auth:     authService,
		Warranty: warrantyService,
		Catalog:  catalogService,
		Settings: settingsService,
		Export:   exportService,
		Monitor:  monitorService,
		Notify:   notifyService,
	})
	api.SetupRoutes(r, handler)

	// Serve frontend
	r.Static("/static", "./web/dist")
	r.GET("/", func(c *gin.Context) {
		c.File("./web/dist/index.html")
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
}
