package models

import "time"

type Level struct {
	ID         uint   `gorm:"primary_key"`
	Level      int    `gorm:"not null;unique"`
	Title      string `gorm:"not null"`
	XPRequired int    `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
