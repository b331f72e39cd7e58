package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"chatmypdf/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user failed: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user by email failed: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user by id failed: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) UpdateCredits(ctx context.Context, id string, credits int) error {
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("credits", credits).Error; err != nil {
		return fmt.Errorf("update user credits failed: %w", err)
	}
	return nil
}

// SpendCredit takes one credit when the stored balance is positive and
// reports whether it did.
func (r *UserRepository) SpendCredit(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND credits > 0", id).
		Update("credits", gorm.Expr("credits - 1"))
	if result.Error != nil {
		return false, fmt.Errorf("spend user credit failed: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// AddCredits increments the stored balance in a single statement so
// concurrent grants do not overwrite each other.
func (r *UserRepository) AddCredits(ctx context.Context, id string, delta int) error {
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("credits", gorm.Expr("credits + ?", delta)).Error
	if err != nil {
		return fmt.Errorf("add user credits failed: %w", err)
	}
	return nil
}
