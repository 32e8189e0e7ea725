package model

import "time"

// Question is a prompt the user wants to be asked daily.
type Question struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    int64  `gorm:"index;not null"`
	Enabled   bool   `gorm:"not null"`
	Text      string `gorm:"type:text;not null"`
	Options   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
