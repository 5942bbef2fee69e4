package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Route struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	CustomerID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Customer       Customer
	Title          string `gorm:"not null"`
	Description    string
	Rally          bool `gorm:"not null;default:false"`
	Featured       bool `gorm:"not null;default:false"`
	Pinned         bool `gorm:"not null;default:false"`
	ShowPoints     bool `gorm:"not null;default:true"`
	Active         bool `gorm:"not null;default:true"`
	StartTimestamp time.Time
	EndTimestamp   time.Time
	Cover          string
	Banner         string

	// Rate sheet. Amount is the single-rider price; team and couple
	// rates override it for those categories. ReferrerDiscountPct is
	// applied to the single rate for referred registrations.
	Amount              decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	TeamPrice           decimal.Decimal `gorm:"type:numeric(10,2)"`
	CouplePrice         decimal.Decimal `gorm:"type:numeric(10,2)"`
	ReferrerDiscountPct decimal.Decimal `gorm:"type:numeric(5,2)"`

	Checkpoints   []Checkpoint   `gorm:"foreignKey:RouteID"`
	Registrations []Registration `gorm:"foreignKey:RouteID"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (route *Route) BeforeCreate(tx *gorm.DB) (err error) {
	if route.ID == uuid.Nil {
		route.ID = uuid.New()
	}
	return
}
