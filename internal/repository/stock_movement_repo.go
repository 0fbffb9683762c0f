package repository

import (
	"context"
	"sort"
	"time"

	"go-inventory-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StockMovementRepository interface {
	WithTx(tx *gorm.DB) StockMovementRepository
	Create(ctx context.Context, movement *model.StockMovement) error
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]model.StockMovement, error)
	SumByProduct(ctx context.Context, productID uuid.UUID) (int64, error)
	GetStockMovement(ctx context.Context, ownerID string, startDate, endDate time.Time) ([]StockMovementData, error)
}

// StockMovementData is one day of the stock movement chart.
type StockMovementData struct {
	Date     string `json:"date"`
	Inbound  int64  `json:"inbound"`
	Outbound int64  `json:"outbound"`
}

type stockMovementRepo struct {
	db *gorm.DB
}

func NewStockMovementRepo(db *gorm.DB) StockMovementRepository {
	return &stockMovementRepo{db}
}

func (r *stockMovementRepo) WithTx(tx *gorm.DB) StockMovementRepository {
	return &stockMovementRepo{tx}
}

func (r *stockMovementRepo) Create(ctx context.Context, movement *model.StockMovement) error {
	return classify(r.db.WithContext(ctx).Create(movement).Error)
}

func (r *stockMovementRepo) FindByProduct(ctx context.Context, productID uuid.UUID) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").
		Find(&movements).Error
	return movements, classify(err)
}

func (r *stockMovementRepo) SumByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.StockMovement{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	return total, classify(err)
}

// GetStockMovement aggregates movements and sold quantities per day. Positive movements count as
// inbound; negative movements and sales count as outbound.
func (r *stockMovementRepo) GetStockMovement(ctx context.Context, ownerID string, startDate, endDate time.Time) ([]StockMovementData, error) {
	byDate := map[string]*StockMovementData{}
	var order []string
	add := func(rows []StockMovementData) {
		for _, row := range rows {
			entry, ok := byDate[row.Date]
			if !ok {
				entry = &StockMovementData{Date: row.Date}
				byDate[row.Date] = entry
				order = append(order, row.Date)
			}
			entry.Inbound += row.Inbound
			entry.Outbound += row.Outbound
		}
	}

	var movements []StockMovementData
	err := r.db.WithContext(ctx).
		Model(&model.StockMovement{}).
		Select(`
			CAST(DATE(created_at) AS CHAR(10)) as date,
			COALESCE(SUM(CASE WHEN quantity > 0 THEN quantity ELSE 0 END), 0) as inbound,
			COALESCE(SUM(CASE WHEN quantity < 0 THEN -quantity ELSE 0 END), 0) as outbound
		`).
		Where("user_id = ? AND created_at BETWEEN ? AND ?", ownerID, startDate, endDate).
		Group("DATE(created_at)").
		Scan(&movements).Error
	if err != nil {
		return nil, classify(err)
	}
	add(movements)

	var sales []StockMovementData
	err = r.db.WithContext(ctx).
		Table("sales_items").
		Select(`
			CAST(DATE(sales_orders.created_at) AS CHAR(10)) as date,
			0 as inbound,
			COALESCE(SUM(sales_items.quantity), 0) as outbound
		`).
		Joins("JOIN sales_orders ON sales_orders.id = sales_items.order_id").
		Where("sales_orders.user_id = ? AND sales_orders.created_at BETWEEN ? AND ?", ownerID, startDate, endDate).
		Group("DATE(sales_orders.created_at)").
		Scan(&sales).Error
	if err != nil {
		return nil, classify(err)
	}
	add(sales)

	sort.Strings(order)
	results := make([]StockMovementData, 0, len(order))
	for _, d := range order {
		results = append(results, *byDate[d])
	}
	return results, nil
}
