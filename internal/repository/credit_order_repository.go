package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"chatmypdf/internal/model"
)

type CreditOrderRepository struct {
	db *gorm.DB
}

func NewCreditOrderRepository(db *gorm.DB) *CreditOrderRepository {
	return &CreditOrderRepository{db: db}
}

func (r *CreditOrderRepository) Create(ctx context.Context, order *model.CreditOrder) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("create credit order failed: %w", err)
	}
	return nil
}

func (r *CreditOrderRepository) GetByID(ctx context.Context, id string) (*model.CreditOrder, error) {
	var order model.CreditOrder
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get credit order failed: %w", err)
	}
	return &order, nil
}

func (r *CreditOrderRepository) SetRedirectURL(ctx context.Context, id, url string) error {
	if err := r.db.WithContext(ctx).Model(&model.CreditOrder{}).Where("id = ?", id).Update("redirect_url", url).Error; err != nil {
		return fmt.Errorf("update credit order redirect failed: %w", err)
	}
	return nil
}

// Transition moves an order from one status to another and reports whether
// this call performed the change. Only one caller can win a transition.
func (r *CreditOrderRepository) Transition(ctx context.Context, id, from, to string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.CreditOrder{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, fmt.Errorf("transition credit order failed: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}
