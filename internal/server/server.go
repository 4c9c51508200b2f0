package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/farellandr/sahmticket/config"
	"github.com/farellandr/sahmticket/internal/clock"
	"github.com/farellandr/sahmticket/internal/fulfillment"
	"github.com/farellandr/sahmticket/internal/handlers"
	"github.com/farellandr/sahmticket/internal/metrics"
	"github.com/farellandr/sahmticket/internal/middleware"
	"github.com/farellandr/sahmticket/internal/models"
	"github.com/farellandr/sahmticket/internal/notify"
	"github.com/farellandr/sahmticket/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

const shutdownTimeout = 10 * time.Second

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := config.NewLogger(cfg)
	slog.SetDefault(logger)

	db, err := config.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	redisClient, err := config.InitRedis(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	if redisClient == nil {
		logger.Warn("REDIS_URL not set, using in-process fulfillment lock")
	}
	verifier, publicKey, err := config.InitPaymentVerifier(cfg)
	if err != nil {
		return err
	}

	catalog := store.New(db, logger)
	clk := clock.NewSystem()
	dispatcher := notify.NewDispatcher(config.InitMailTransport(cfg, logger), logger)
	checkout := fulfillment.NewService(catalog, verifier, dispatcher, config.InitLocker(redisClient), clk, logger, fulfillment.Config{
		Provider:      cfg.PaymentProvider,
		PublicKey:     publicKey,
		PublicBaseURL: cfg.PublicBaseURL,
		MailTimeout:   cfg.Mail.Timeout,
		LockTTL:       cfg.LockTTL,
		Location:      cfg.Location(),
	})

	h := handlers.New(handlers.Deps{
		Catalog:  catalog,
		Accounts: catalog,
		Reports:  catalog,
		Checkout: checkout,
		Notifier: dispatcher,
		Clock:    clk,
		Logger:   logger,
	}, handlers.Config{
		JWTSecret:           cfg.JWTSecret,
		TokenTTL:            cfg.TokenTTL,
		PaystackSecretKey:   cfg.Paystack.SecretKey,
		TicketSigningSecret: cfg.TicketSigningSecret,
		PublicBaseURL:       cfg.PublicBaseURL,
		OTPExpiry:           cfg.OTPExpiry,
		MailTimeout:         cfg.Mail.Timeout,
		Location:            cfg.Location(),
	})

	checks := map[string]HealthCheck{
		"database": func(ctx context.Context) error { return catalog.Ping() },
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	setupRoutes(r, h, cfg.JWTSecret, checks)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsHandler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}
	srv.RegisterOnShutdown(func() {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func setupRoutes(r *gin.Engine, h *handlers.Handler, jwtSecret string, checks map[string]HealthCheck) {
	r.Use(metrics.Middleware())

	r.GET("/health", healthHandler(checks))
	r.GET("/metrics", metrics.Handler())

	otpSendLimiter := middleware.NewRateLimiter(5, 3)
	otpVerifyLimiter := middleware.NewRateLimiter(10, 5)
	newsletterLimiter := middleware.NewRateLimiter(5, 3)
	resendLimiter := middleware.NewRateLimiter(3, 2)
	checkoutLimiter := middleware.NewRateLimiter(30, 10)

	public := r.Group("/v1")
	{
		public.POST("/auth/register", h.Register)
		public.POST("/auth/login", h.Login)
		public.POST("/auth/otp", otpSendLimiter.Limit(), h.SendOTP)
		public.POST("/auth/otp/verify", otpVerifyLimiter.Limit(), h.VerifyOTP)

		public.GET("/categories", h.ListCategories)
		public.POST("/newsletter/subscribe", newsletterLimiter.Limit(), h.Subscribe)

		eventPublic := public.Group("/events")
		{
			eventPublic.GET("", h.ListEvents)
			eventPublic.GET("/discover", h.DiscoverEvents)
			eventPublic.GET("/:slug", h.GetEvent)
		}

		checkout := public.Group("/checkout/:orderId", checkoutLimiter.Limit())
		{
			checkout.POST("", h.StartCheckout)
			checkout.POST("/callback", h.PaymentCallback)
			checkout.POST("/close", h.CloseCheckout)
		}

		ticket := public.Group("/orders/:orderId/ticket")
		{
			ticket.GET("", h.GetTicket)
			ticket.GET("/qr", h.GetTicketQR)
			ticket.GET("/pdf", h.GetTicketPDF)
			ticket.POST("/resend", resendLimiter.Limit(), h.ResendTicket)
		}

		public.POST("/payments/paystack/webhook", h.PaystackWebhook)
	}

	organizer := r.Group("/v1/organizer")
	organizer.Use(middleware.JWTAuthMiddleware(jwtSecret), middleware.RequireRole(models.RoleOrganizer, models.RoleAdmin))
	{
		organizer.GET("/profile", h.GetProfile)
		organizer.GET("/stats", h.OrganizerStats)
		organizer.GET("/attendees", h.ListAttendees)
		organizer.POST("/tickets/verify", h.VerifyTicket)

		events := organizer.Group("/events")
		{
			events.GET("", h.ListOrganizerEvents)
			events.POST("", h.CreateEvent)
			events.PUT("/:id", h.UpdateEvent)
			events.DELETE("/:id", h.DeleteEvent)
			events.POST("/:id/tiers", h.CreateTier)
		}

		organizer.PUT("/tiers/:id", h.UpdateTier)
		organizer.DELETE("/tiers/:id", h.DeleteTier)
	}

	admin := r.Group("/v1/admin")
	admin.Use(middleware.JWTAuthMiddleware(jwtSecret), middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/stats", h.AdminStats)
		admin.GET("/analytics", h.Analytics)

		organizers := admin.Group("/organizers")
		{
			organizers.GET("", h.ListOrganizers)
			organizers.POST("", h.CreateOrganizer)
			organizers.GET("/:id", h.GetOrganizer)
			organizers.PATCH("/:id", h.UpdateOrganizer)
			organizers.DELETE("/:id", h.DeleteOrganizer)
		}

		events := admin.Group("/events")
		{
			events.GET("", h.AdminListEvents)
			events.GET("/:id", h.AdminGetEvent)
			events.PATCH("/:id", h.AdminPatchEvent)
			events.DELETE("/:id", h.AdminDeleteEvent)
		}
	}

	notifications := r.Group("/v1/notifications")
	notifications.Use(middleware.JWTAuthMiddleware(jwtSecret), middleware.RequireRole(models.RoleAdmin))
	{
		notifications.POST("", h.SendNotification)
	}
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = "down"
				continue
			}
			results[name] = "up"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{"status": state, "checks": results})
	}
}
