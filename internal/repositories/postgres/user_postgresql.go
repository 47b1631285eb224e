package postgres

import (
	"context"

	"github.com/aptitude-portal/timing-analytics-service/internal/models"
	"github.com/aptitude-portal/timing-analytics-service/internal/repositories"
	"gorm.io/gorm"
)

type UserPostgreSQL struct {
	db *gorm.DB
}

func NewUserPostgreSQL(db *gorm.DB) repositories.UserRepository {
	return &UserPostgreSQL{db: db}
}

func (u UserPostgreSQL) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

func (u UserPostgreSQL) List(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	if err := u.db.WithContext(ctx).
		Order("username ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}

	return users, nil
}

func (u UserPostgreSQL) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	var users []*models.User
	if len(ids) == 0 {
		return users, nil
	}

	if err := u.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("username ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}

	return users, nil
}

// repository bundles the postgres implementations behind the
// repositories.Repository handle.
type repository struct {
	response repositories.ResponseRepository
	question repositories.QuestionRepository
	user     repositories.UserRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		response: NewResponsePostgreSQL(db),
		question: NewQuestionPostgreSQL(db),
		user:     NewUserPostgreSQL(db),
	}
}

func (r *repository) Response() repositories.ResponseRepository { return r.response }
func (r *repository) Question() repositories.QuestionRepository { return r.question }
func (r *repository) User() repositories.UserRepository         { return r.user }
