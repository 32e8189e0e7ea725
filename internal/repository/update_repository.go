package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/vigliag/vijournalbot/internal/model"
)

// UpdateRepository stores journal entries. Entries are never modified.
type UpdateRepository struct {
	db *gorm.DB
}

func NewUpdateRepository(db *gorm.DB) *UpdateRepository {
	return &UpdateRepository{db: db}
}

// Create stores the entry with its timestamp in UTC. SQLite compares the
// column as text, so every row must carry the same offset.
func (r *UpdateRepository) Create(ctx context.Context, update *model.Update) error {
	update.Timestamp = update.Timestamp.UTC()
	if err := r.db.WithContext(ctx).Create(update).Error; err != nil {
		return fmt.Errorf("create update: %w", err)
	}
	return nil
}

// ListSince returns the user's entries strictly after since, oldest first.
func (r *UpdateRepository) ListSince(ctx context.Context, userID int64, since time.Time) ([]model.Update, error) {
	var updates []model.Update
	if err := r.db.WithContext(ctx).Where("user_id = ? AND written_at > ?", userID, since.UTC()).
		Order("written_at ASC, id ASC").
		Find(&updates).Error; err != nil {
		return nil, fmt.Errorf("list updates: %w", err)
	}
	return updates, nil
}
