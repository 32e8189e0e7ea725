package model

import "time"

// Update is a single journal entry. QuestionID is nil for free-form entries.
type Update struct {
	ID         uint      `gorm:"primaryKey"`
	UserID     int64     `gorm:"index;not null"`
	QuestionID *uint     `gorm:"index"`
	Timestamp  time.Time `gorm:"column:written_at;index;not null"`
	Text       string    `gorm:"type:text;not null"`
	MessageID  *int
}
