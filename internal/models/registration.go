package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PaymentStatusUnpaid   = "unpaid"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
)

// Registration ties a profile to a route. It is the record that gets
// charged: the checkout session, the payment intent and the participant
// number all land here. ParticipantNumber stays null until a paid
// webhook arrives and is unique per route.
type Registration struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	ProfileID uuid.UUID `gorm:"type:uuid;not null;index"`
	Profile   Profile
	RouteID   uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_route_participant"`
	Route     Route

	Category     string `gorm:"not null;default:'single'"`
	FullName     string
	Gender       string
	NameOnJersey string
	JerseySize   string
	Motorcycle   string
	City         string
	Birthday     string
	Status       string `gorm:"not null;default:'registered'"`
	Points       int    `gorm:"not null;default:0"`

	ParticipantNumber *int `gorm:"uniqueIndex:idx_route_participant"`

	PaymentStatus     string `gorm:"not null;default:'unpaid'"`
	CheckoutSessionID string `gorm:"index"`
	PaymentIntentID   string `gorm:"index"`
	NotificationEmail string
	CouponCode        string

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (registration *Registration) BeforeCreate(tx *gorm.DB) (err error) {
	if registration.ID == uuid.Nil {
		registration.ID = uuid.New()
	}
	return
}
