package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/advmx/rally-backend/internal/models"
)

type Incomes interface {
	Create(ctx context.Context, income *models.Income) error
	// MarkPaid stamps the ledger row matched by checkout session once
	// the paid webhook lands.
	MarkPaid(ctx context.Context, checkoutSessionID string, paidAt time.Time) error
}

type incomeRepository struct {
	db *gorm.DB
}

func NewIncomes(db *gorm.DB) Incomes {
	return &incomeRepository{db: db}
}

func (r *incomeRepository) Create(ctx context.Context, income *models.Income) error {
	return r.db.WithContext(ctx).Create(income).Error
}

func (r *incomeRepository) MarkPaid(ctx context.Context, checkoutSessionID string, paidAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Income{}).
		Where("stripe_checkout_id = ?", checkoutSessionID).
		Updates(map[string]interface{}{
			"status":  models.PaymentStatusPaid,
			"paid_at": paidAt,
		}).Error
}
