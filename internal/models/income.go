package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Income is the merchant-side ledger row for one checkout. Amounts are
// the breakdown computed when the session was created: Total is what
// the payer is charged, Fee the processor plus platform cut, and
// ToBeTransferred the merchant net.
type Income struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	CustomerID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Customer       Customer
	RegistrationID *uuid.UUID `gorm:"type:uuid;index"`
	Email          string

	Amount          decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Fee             decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Total           decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	ToBeTransferred decimal.Decimal `gorm:"type:numeric(10,2);not null"`

	Status           string `gorm:"not null;default:'unpaid'"`
	StripeCheckoutID string `gorm:"index"`
	PaidAt           *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (income *Income) BeforeCreate(tx *gorm.DB) (err error) {
	if income.ID == uuid.Nil {
		income.ID = uuid.New()
	}
	return
}
