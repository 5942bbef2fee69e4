package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TrophyType struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	Code        string    `gorm:"not null;unique"`
	Name        string    `gorm:"not null"`
	Description string
	Icon        string
	Rarity      string `gorm:"not null;default:'common'"`
	XPReward    int    `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Trophy struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	ProfileID    uuid.UUID `gorm:"type:uuid;not null;index"`
	RouteID      uuid.UUID `gorm:"type:uuid;not null;index"`
	TrophyTypeID uuid.UUID `gorm:"type:uuid;not null;index"`
	TrophyType   TrophyType
	EarnedAt     time.Time `gorm:"not null"`
	Source       string
	// Metadata is a JSON blob; the stats service decodes it per trophy.
	Metadata  string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (Trophy) TableName() string {
	return "trophies"
}

func (trophyType *TrophyType) BeforeCreate(tx *gorm.DB) (err error) {
	if trophyType.ID == uuid.Nil {
		trophyType.ID = uuid.New()
	}
	return
}

func (trophy *Trophy) BeforeCreate(tx *gorm.DB) (err error) {
	if trophy.ID == uuid.Nil {
		trophy.ID = uuid.New()
	}
	return
}
