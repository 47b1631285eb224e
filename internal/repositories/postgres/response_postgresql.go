package postgres

import (
	"context"

	"github.com/aptitude-portal/timing-analytics-service/internal/models"
	"github.com/aptitude-portal/timing-analytics-service/internal/repositories"
	"gorm.io/gorm"
)

type ResponsePostgreSQL struct {
	db *gorm.DB
}

func NewResponsePostgreSQL(db *gorm.DB) repositories.ResponseRepository {
	return &ResponsePostgreSQL{db: db}
}

func (r ResponsePostgreSQL) Record(ctx context.Context, response *models.Response) error {
	// Single atomic insert; the composite unique index on
	// (student_id, question_id) rejects duplicates under concurrency.
	return r.db.WithContext(ctx).Create(response).Error
}

func (r ResponsePostgreSQL) ListByStudent(ctx context.Context, studentID string) ([]*models.Response, error) {
	var responses []*models.Response
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Preload("Question").
		Order("created_at ASC").
		Find(&responses).Error; err != nil {
		return nil, err
	}

	return responses, nil
}

func (r ResponsePostgreSQL) ListAll(ctx context.Context, filters repositories.ResponseFilters) ([]*models.Response, error) {
	var responses []*models.Response

	query := r.db.WithContext(ctx).Model(&models.Response{})
	query = applyResponseFilters(query, filters)

	if err := query.
		Preload("Question").
		Order("created_at ASC").
		Find(&responses).Error; err != nil {
		return nil, err
	}

	return responses, nil
}

func (r ResponsePostgreSQL) StudentIDsWithResponses(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&models.Response{}).
		Distinct("student_id").
		Order("student_id ASC").
		Pluck("student_id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}

func applyResponseFilters(query *gorm.DB, filters repositories.ResponseFilters) *gorm.DB {
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}
	return query
}
