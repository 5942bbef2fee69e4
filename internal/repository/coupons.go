package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/advmx/rally-backend/internal/models"
)

var (
	ErrCouponInvalid   = errors.New("coupon code does not exist")
	ErrCouponExpired   = errors.New("coupon has expired")
	ErrCouponExhausted = errors.New("coupon has no uses left")
)

type Coupons interface {
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	// Redeem consumes one use. The increment is a single guarded
	// update so two concurrent checkouts cannot push current_uses past
	// max_uses.
	Redeem(ctx context.Context, code string, now time.Time) (*models.Coupon, error)
	// Release gives a use back when the checkout session the redeem
	// was paired with could not be created.
	Release(ctx context.Context, code string) error
}

type couponRepository struct {
	db *gorm.DB
}

func NewCoupons(db *gorm.DB) Coupons {
	return &couponRepository{db: db}
}

func (r *couponRepository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).First(&coupon, "code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponInvalid
		}
		return nil, err
	}
	return &coupon, nil
}

func (r *couponRepository) Redeem(ctx context.Context, code string, now time.Time) (*models.Coupon, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("code = ? AND current_uses < max_uses AND expires_at > ?", code, now).
		UpdateColumn("current_uses", gorm.Expr("current_uses + 1"))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		coupon, err := r.FindByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if !now.Before(coupon.ExpiresAt) {
			return nil, ErrCouponExpired
		}
		return nil, ErrCouponExhausted
	}
	return r.FindByCode(ctx, code)
}

func (r *couponRepository) Release(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("code = ? AND current_uses > 0", code).
		UpdateColumn("current_uses", gorm.Expr("current_uses - 1")).Error
}
