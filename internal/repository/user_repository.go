package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/vigliag/vijournalbot/internal/model"
)

// UserRepository handles CRUD for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByChatID returns gorm.ErrRecordNotFound when the chat never authenticated.
func (r *UserRepository) FindByChatID(ctx context.Context, chatID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureUser creates the user with the given reminder time unless it already exists.
func (r *UserRepository) EnsureUser(ctx context.Context, chatID int64, reminder model.TimeOfDay) (*model.User, bool, error) {
	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("chat_id = ?", chatID).First(&user).Error
	switch {
	case err == nil:
		return &user, false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = model.User{ChatID: chatID, ReminderTime: &reminder}
		if err := db.Create(&user).Error; err != nil {
			return nil, false, fmt.Errorf("create user: %w", err)
		}
		return &user, true, nil
	default:
		return nil, false, fmt.Errorf("find user: %w", err)
	}
}

func (r *UserRepository) SetEmail(ctx context.Context, chatID int64, email string) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("chat_id = ?", chatID).Update("email", email)
	if res.Error != nil {
		return fmt.Errorf("update email: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetReminderTime stores the daily reminder; nil disables it.
func (r *UserRepository) SetReminderTime(ctx context.Context, chatID int64, reminder *model.TimeOfDay) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("chat_id = ?", chatID).Update("reminder_time", reminder)
	if res.Error != nil {
		return fmt.Errorf("update reminder time: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListReminderBetween returns users whose reminder time lies in (after, upTo].
// Bounds are compared as times of day only.
func (r *UserRepository) ListReminderBetween(ctx context.Context, after, upTo model.TimeOfDay) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).
		Where("reminder_time IS NOT NULL AND reminder_time > ? AND reminder_time <= ?", after, upTo).
		Order("chat_id ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users to remind: %w", err)
	}
	return users, nil
}

func (r *UserRepository) ListAll(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Order("chat_id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
