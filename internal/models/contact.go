package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Contact struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	Name      string    `gorm:"not null"`
	Email     string    `gorm:"not null"`
	Message   string    `gorm:"not null"`
	Type      string    `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (contact *Contact) BeforeCreate(tx *gorm.DB) (err error) {
	if contact.ID == uuid.Nil {
		contact.ID = uuid.New()
	}
	return
}
