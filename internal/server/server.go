package server

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/advmx/rally-backend/config"
	"github.com/advmx/rally-backend/internal/handlers"
	"github.com/advmx/rally-backend/internal/middleware"
	"github.com/advmx/rally-backend/internal/notify"
	"github.com/advmx/rally-backend/internal/payments"
	"github.com/advmx/rally-backend/internal/pricing"
	"github.com/advmx/rally-backend/internal/repository"
	"github.com/advmx/rally-backend/internal/stats"
	"github.com/advmx/rally-backend/internal/stripeapi"
)

func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	stripeCfg, err := config.LoadStripeConfig()
	if err != nil {
		return fmt.Errorf("failed to load stripe config: %v", err)
	}

	smtpCfg, err := config.LoadSMTPConfig()
	if err != nil {
		return fmt.Errorf("failed to load smtp config: %v", err)
	}

	pricingCfg, err := config.LoadPricingConfig()
	if err != nil {
		return fmt.Errorf("failed to load pricing config: %v", err)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}

	db, err := config.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	mailer, err := notify.NewSMTPMailer(notify.Config{
		Host:       smtpCfg.Host,
		Port:       smtpCfg.Port,
		Username:   smtpCfg.Username,
		Password:   smtpCfg.Password,
		Sender:     smtpCfg.Sender,
		SenderName: smtpCfg.SenderName,
	})
	if err != nil {
		return fmt.Errorf("failed to build mailer: %v", err)
	}

	registrations := repository.NewRegistrations(db)
	coupons := repository.NewCoupons(db)
	incomes := repository.NewIncomes(db)

	stripeClient := stripeapi.NewClient(stripeCfg.SecretKey)
	checkout := payments.NewCheckoutService(
		registrations,
		coupons,
		incomes,
		stripeClient,
		pricing.Config{
			MinimumAmount: pricingCfg.MinimumAmount,
			FixedFee:      pricingCfg.FixedFee,
			ProcessorRate: pricingCfg.ProcessorRate,
			PlatformRate:  pricingCfg.PlatformRate,
		},
		payments.CheckoutConfig{
			SuccessURL: stripeCfg.SuccessURL,
			CancelURL:  stripeCfg.CancelURL,
		},
		logger,
	)
	reconciler := payments.NewReconciler(registrations, incomes, mailer, logger)

	handler := handlers.New(handlers.Deps{
		DB:            db,
		Registrations: registrations,
		Checkout:      checkout,
		Reconciler:    reconciler,
		Stats:         stats.NewService(db),
		Mailer:        mailer,
		StripeConfig:  stripeCfg,
		JWTSecret:     jwtSecret,
		Logger:        logger,
	})

	r := gin.Default()
	r.Use(middleware.RequestLogger(logger))

	setupRoutes(r, handler, jwtSecret)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return r.Run(":" + port)
}

func setupRoutes(r *gin.Engine, h *handlers.Handler, jwtSecret string) {
	public := r.Group("/v1")
	{
		public.POST("/register", h.Register)
		public.POST("/login", h.Login)

		public.POST("/contacts", h.CreateContact)

		routePublic := public.Group("/routes")
		{
			routePublic.GET("", h.ListRoutes)
			routePublic.GET("/:id", h.GetRoute)
		}

		public.GET("/payments/registrations/:id/checkout", h.GenerateCheckout)
		public.GET("/registrations/:id/stats", h.GetRegistrationStats)

		webhooks := public.Group("/webhooks/stripe")
		{
			webhooks.POST("/platform", h.PlatformWebhook)
			webhooks.POST("/connected", h.ConnectedWebhook)
		}
	}

	protected := r.Group("/v1")
	protected.Use(middleware.JWTAuth(jwtSecret))
	{
		protected.GET("/registrations/:id/credential", h.GetCredential)
		protected.POST("/notifications/confirmation", h.ResendConfirmation)

		couponProtected := protected.Group("/coupons")
		{
			couponProtected.POST("", h.CreateCoupon)
			couponProtected.GET("", h.ListCoupons)
		}
	}
}
