package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Coupon struct {
	ID                 uuid.UUID `gorm:"type:uuid;primary_key"`
	Code               string    `gorm:"not null;unique"`
	DiscountPercentage int       `gorm:"not null"`
	MaxUses            int       `gorm:"not null"`
	CurrentUses        int       `gorm:"not null;default:0"`
	ExpiresAt          time.Time `gorm:"not null"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          gorm.DeletedAt `gorm:"index"`
}

// Usable reports whether the coupon still has uses left and has not
// expired. The authoritative check happens in the guarded redeem
// update; this is for read paths only.
func (coupon *Coupon) Usable(now time.Time) bool {
	return coupon.CurrentUses < coupon.MaxUses && now.Before(coupon.ExpiresAt)
}

func (coupon *Coupon) BeforeCreate(tx *gorm.DB) (err error) {
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	return
}
