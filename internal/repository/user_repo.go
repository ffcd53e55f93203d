package repository

import (
	"context"

	"github.com/pkg/errors"
	"github.com/tkdhub/chatcore/internal/model"
	"gorm.io/gorm"
)

// UserRepository reads the externally managed users table
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID finds a user by id
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, errors.Wrap(err, "userRepo.FindByID")
	}
	return &user, nil
}

// ExistingIDs returns which of ids belong to existing users, deduplicated
func (r *UserRepository) ExistingIDs(ctx context.Context, ids []int64) ([]int64, error) {
	found := []int64{}
	if len(ids) == 0 {
		return found, nil
	}
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id IN ?", ids).
		Order("id").
		Pluck("id", &found).Error
	if err != nil {
		return nil, errors.Wrap(err, "userRepo.ExistingIDs")
	}
	return found, nil
}
