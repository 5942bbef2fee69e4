package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Checkpoint struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	RouteID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Name        string    `gorm:"not null"`
	Description string
	Lat         float64
	Lng         float64
	Points      int `gorm:"not null;default:0"`
	Position    int `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (checkpoint *Checkpoint) BeforeCreate(tx *gorm.DB) (err error) {
	if checkpoint.ID == uuid.Nil {
		checkpoint.ID = uuid.New()
	}
	return
}
