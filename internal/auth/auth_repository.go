package auth

import (
	"context"
	"errors"

	"notify-service/internal/models"

	"gorm.io/gorm"
)

// AuthRepository is the read-only gorm view of the users table.
type AuthRepository struct {
	db *gorm.DB
}

func NewAuthRepository(db *gorm.DB) *AuthRepository {
	return &AuthRepository{db: db}
}

// FindByID finds a user by primary key
func (r *AuthRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	return foundOrNil(&user, err)
}

// FindByUsername finds a user by username
func (r *AuthRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	return foundOrNil(&user, err)
}

func foundOrNil(user *models.User, err error) (*models.User, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
