package postgres

import (
	"context"

	"github.com/aptitude-portal/timing-analytics-service/internal/models"
	"github.com/aptitude-portal/timing-analytics-service/internal/repositories"
	"gorm.io/gorm"
)

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q QuestionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	var question models.Question
	if err := q.db.WithContext(ctx).First(&question, id).Error; err != nil {
		return nil, err
	}

	return &question, nil
}

func (q QuestionPostgreSQL) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := q.db.WithContext(ctx).
		Model(&models.Question{}).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error; err != nil {
		return nil, err
	}

	return categories, nil
}
