package repository

import (
	"context"
	"time"

	"go-inventory-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Columns rewritten when an upsert hits an existing barcode. current_stock is reconciled
// separately through the ledger.
var productUpsertColumns = []string{
	"name",
	"category_id",
	"unit_type",
	"purchase_cost",
	"selling_price",
	"reorder_level",
	"image",
	"is_active",
	"updated_at",
}

type ProductRepository interface {
	WithTx(tx *gorm.DB) ProductRepository
	Upsert(ctx context.Context, product *model.Product, transferOwnership bool) error
	LockByBarcode(ctx context.Context, barcode string) (*model.Product, error)
	LockOwned(ctx context.Context, ownerID string, id uuid.UUID, activeOnly bool) (*model.Product, error)
	FindActive(ctx context.Context, ownerID string) ([]model.Product, error)
	FindActiveByBarcode(ctx context.Context, ownerID, barcode string) (*model.Product, error)
	FindActiveByCategory(ctx context.Context, ownerID string, categoryID uint) ([]model.Product, error)
	FindOwned(ctx context.Context, ownerID string, id uuid.UUID) (*model.Product, error)
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) error
	Deactivate(ctx context.Context, ownerID string, id uuid.UUID) error
	DetachCategory(ctx context.Context, categoryID uint) (int64, error)
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) WithTx(tx *gorm.DB) ProductRepository {
	return &productRepo{tx}
}

// Upsert inserts the product or, when the barcode exists, rewrites the catalog columns in the
// same statement. With transferOwnership the last writer also becomes the owner.
func (r *productRepo) Upsert(ctx context.Context, product *model.Product, transferOwnership bool) error {
	columns := productUpsertColumns
	if transferOwnership {
		columns = append(append([]string(nil), columns...), "user_id")
	}
	err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "barcode"}},
			DoUpdates: clause.AssignmentColumns(columns),
		}).
		Create(product).Error
	return classify(err)
}

func (r *productRepo) LockByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "barcode = ?", barcode).Error
	if err != nil {
		return nil, classify(err)
	}
	return &product, nil
}

// LockOwned reads the product with a row lock, scoped to its owner.
func (r *productRepo) LockOwned(ctx context.Context, ownerID string, id uuid.UUID, activeOnly bool) (*model.Product, error) {
	q := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND user_id = ?", id, ownerID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var product model.Product
	if err := q.First(&product).Error; err != nil {
		return nil, classify(err)
	}
	return &product, nil
}

func (r *productRepo) FindActive(ctx context.Context, ownerID string) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("user_id = ? AND is_active = ?", ownerID, true).
		Order("created_at DESC").
		Find(&products).Error
	return products, classify(err)
}

func (r *productRepo) FindActiveByBarcode(ctx context.Context, ownerID, barcode string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("barcode = ? AND user_id = ? AND is_active = ?", barcode, ownerID, true).
		First(&product).Error
	if err != nil {
		return nil, classify(err)
	}
	return &product, nil
}

func (r *productRepo) FindActiveByCategory(ctx context.Context, ownerID string, categoryID uint) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("category_id = ? AND user_id = ? AND is_active = ?", categoryID, ownerID, true).
		Order("created_at DESC").
		Find(&products).Error
	return products, classify(err)
}

func (r *productRepo) FindOwned(ctx context.Context, ownerID string, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		First(&product, "product_id = ? AND user_id = ?", id, ownerID).Error
	if err != nil {
		return nil, classify(err)
	}
	return &product, nil
}

// AdjustStock applies a signed delta in place so concurrent writers never lose an update.
func (r *productRepo) AdjustStock(ctx context.Context, id uuid.UUID, delta int) error {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("product_id = ?", id).
		Updates(map[string]interface{}{
			"current_stock": gorm.Expr("current_stock + ?", delta),
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepo) Deactivate(ctx context.Context, ownerID string, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("product_id = ? AND user_id = ? AND is_active = ?", id, ownerID, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DetachCategory leaves every product of the category uncategorized. No other column changes.
func (r *productRepo) DetachCategory(ctx context.Context, categoryID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("category_id = ?", categoryID).
		UpdateColumn("category_id", nil)
	return res.RowsAffected, classify(res.Error)
}
