package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/vigliag/vijournalbot/internal/model"
)

// QuestionRepository manages the questions each user is asked.
type QuestionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

func (r *QuestionRepository) Create(ctx context.Context, question *model.Question) error {
	if err := r.db.WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("create question: %w", err)
	}
	return nil
}

// ListEnabled returns the user's enabled questions in insertion order.
func (r *QuestionRepository) ListEnabled(ctx context.Context, userID int64) ([]model.Question, error) {
	var questions []model.Question
	if err := r.db.WithContext(ctx).Where("user_id = ? AND enabled = ?", userID, true).
		Order("id ASC").
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

// Remove disables a question that already has answers and deletes it otherwise.
// It reports whether the row was kept (disabled).
func (r *QuestionRepository) Remove(ctx context.Context, userID int64, questionID uint) (bool, error) {
	var disabled bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var question model.Question
		if err := tx.Where("user_id = ? AND id = ?", userID, questionID).First(&question).Error; err != nil {
			return err
		}

		var answers int64
		if err := tx.Model(&model.Update{}).Where("question_id = ?", question.ID).Count(&answers).Error; err != nil {
			return fmt.Errorf("count answers: %w", err)
		}

		if answers > 0 {
			disabled = true
			if err := tx.Model(&question).Update("enabled", false).Error; err != nil {
				return fmt.Errorf("disable question: %w", err)
			}
			return nil
		}
		if err := tx.Delete(&question).Error; err != nil {
			return fmt.Errorf("delete question: %w", err)
		}
		return nil
	})
	return disabled, err
}
