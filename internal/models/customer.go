package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer is the merchant an event belongs to. Currency drives the
// checkout session; StripeAccountID is set when the merchant settles
// through a connected account instead of the platform account.
type Customer struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key"`
	Name            string    `gorm:"not null"`
	Email           string
	Currency        string `gorm:"not null;default:'mxn'"`
	StripeAccountID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

func (customer *Customer) BeforeCreate(tx *gorm.DB) (err error) {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	return
}
