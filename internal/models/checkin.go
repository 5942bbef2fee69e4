package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CheckIn struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	ProfileID    uuid.UUID `gorm:"type:uuid;not null;index"`
	RouteID      uuid.UUID `gorm:"type:uuid;not null;index"`
	CheckpointID uuid.UUID `gorm:"type:uuid;not null;index"`
	Checkpoint   Checkpoint
	Points       int
	IsValid      *bool `gorm:"default:true"`
	Lat          float64
	Lng          float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (CheckIn) TableName() string {
	return "check_ins"
}

func (checkIn *CheckIn) BeforeCreate(tx *gorm.DB) (err error) {
	if checkIn.ID == uuid.Nil {
		checkIn.ID = uuid.New()
	}
	return
}
