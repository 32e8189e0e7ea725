package model

import "time"

// User is a journal owner, identified by the Telegram chat id.
type User struct {
	ChatID       int64 `gorm:"primaryKey;autoIncrement:false"`
	Email        string
	ReminderTime *TimeOfDay `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
