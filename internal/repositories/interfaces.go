package repositories

import (
	"context"
	"time"

	"github.com/aptitude-portal/timing-analytics-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

// ResponseFilters narrows ledger reads. The zero value means the full
// population, unscoped in time.
type ResponseFilters struct {
	StudentID *string    `json:"student_id"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

// ===== REPOSITORY INTERFACES =====

// ResponseRepository is the response ledger: an append-only store of
// raw response events. Every read joins the question row so ideal_time
// and category ride alongside each response (the join responsibility
// lives here, not in the engine), ordered created_at ascending.
type ResponseRepository interface {
	// Record appends one response. Uniqueness of (student, question)
	// is enforced by the database constraint in a single atomic
	// insert, never check-then-act; a second submission surfaces as
	// gorm.ErrDuplicatedKey.
	Record(ctx context.Context, response *models.Response) error

	ListByStudent(ctx context.Context, studentID string) ([]*models.Response, error)
	ListAll(ctx context.Context, filters ResponseFilters) ([]*models.Response, error)

	// StudentIDsWithResponses returns the distinct students that have
	// at least one recorded response.
	StudentIDsWithResponses(ctx context.Context) ([]string, error)
}

// QuestionRepository gives the engine read access to the externally
// owned question bank.
type QuestionRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	ListCategories(ctx context.Context) ([]string, error)
}

// UserRepository gives the engine read access to the portal roster.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
}

// Repository bundles the per-entity repositories behind one handle.
type Repository interface {
	Response() ResponseRepository
	Question() QuestionRepository
	User() UserRepository
}
