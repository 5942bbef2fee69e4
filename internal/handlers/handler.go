package handlers

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/advmx/rally-backend/config"
	"github.com/advmx/rally-backend/internal/notify"
	"github.com/advmx/rally-backend/internal/payments"
	"github.com/advmx/rally-backend/internal/repository"
	"github.com/advmx/rally-backend/internal/stats"
)

// Handler carries every dependency the HTTP layer needs. Routes get
// their collaborators here instead of digging them out of the gin
// context.
type Handler struct {
	db            *gorm.DB
	registrations repository.Registrations
	checkout      *payments.CheckoutService
	reconciler    *payments.Reconciler
	stats         *stats.Service
	mailer        notify.Mailer
	stripeCfg     *config.StripeConfig
	jwtSecret     string
	logger        *zap.Logger
}

type Deps struct {
	DB            *gorm.DB
	Registrations repository.Registrations
	Checkout      *payments.CheckoutService
	Reconciler    *payments.Reconciler
	Stats         *stats.Service
	Mailer        notify.Mailer
	StripeConfig  *config.StripeConfig
	JWTSecret     string
	Logger        *zap.Logger
}

func New(deps Deps) *Handler {
	return &Handler{
		db:            deps.DB,
		registrations: deps.Registrations,
		checkout:      deps.Checkout,
		reconciler:    deps.Reconciler,
		stats:         deps.Stats,
		mailer:        deps.Mailer,
		stripeCfg:     deps.StripeConfig,
		jwtSecret:     deps.JWTSecret,
		logger:        deps.Logger,
	}
}
