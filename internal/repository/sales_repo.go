package repository

import (
	"context"

	"go-inventory-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SalesRepository interface {
	WithTx(tx *gorm.DB) SalesRepository
	Create(ctx context.Context, order *model.SalesOrder) error
	FindAll(ctx context.Context, ownerID string) ([]model.SalesOrder, error)
	FindByID(ctx context.Context, ownerID string, id uint) (*model.SalesOrder, error)
	SumSoldByProduct(ctx context.Context, productID uuid.UUID) (int64, error)
}

type salesRepo struct {
	db *gorm.DB
}

func NewSalesRepo(db *gorm.DB) SalesRepository {
	return &salesRepo{db}
}

func (r *salesRepo) WithTx(tx *gorm.DB) SalesRepository {
	return &salesRepo{tx}
}

// Create inserts the order header and its items.
func (r *salesRepo) Create(ctx context.Context, order *model.SalesOrder) error {
	return classify(r.db.WithContext(ctx).Create(order).Error)
}

func (r *salesRepo) FindAll(ctx context.Context, ownerID string) ([]model.SalesOrder, error) {
	var orders []model.SalesOrder
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("user_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	return orders, classify(err)
}

func (r *salesRepo) FindByID(ctx context.Context, ownerID string, id uint) (*model.SalesOrder, error) {
	var order model.SalesOrder
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&order, "id = ? AND user_id = ?", id, ownerID).Error
	if err != nil {
		return nil, classify(err)
	}
	return &order, nil
}

func (r *salesRepo) SumSoldByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.SalesItem{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	return total, classify(err)
}
