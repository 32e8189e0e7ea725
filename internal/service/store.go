package service

import (
	"context"
	"time"

	"github.com/vigliag/vijournalbot/internal/model"
)

// UserStore is the part of the journal store dealing with users.
type UserStore interface {
	FindByChatID(ctx context.Context, chatID int64) (*model.User, error)
	EnsureUser(ctx context.Context, chatID int64, reminder model.TimeOfDay) (*model.User, bool, error)
	SetEmail(ctx context.Context, chatID int64, email string) error
	SetReminderTime(ctx context.Context, chatID int64, reminder *model.TimeOfDay) error
	ListReminderBetween(ctx context.Context, after, upTo model.TimeOfDay) ([]model.User, error)
	ListAll(ctx context.Context) ([]model.User, error)
}

type QuestionStore interface {
	Create(ctx context.Context, question *model.Question) error
	ListEnabled(ctx context.Context, userID int64) ([]model.Question, error)
	Remove(ctx context.Context, userID int64, questionID uint) (disabled bool, err error)
}

type UpdateStore interface {
	Create(ctx context.Context, update *model.Update) error
	ListSince(ctx context.Context, userID int64, since time.Time) ([]model.Update, error)
}

// Sender delivers a text message to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}
