package repository

import (
	"context"

	"go-inventory-pos/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DashboardStats is the overview for one owner.
type DashboardStats struct {
	TotalProducts  int64           `json:"total_products"`
	LowStockCount  int64           `json:"low_stock_count"`
	TotalValuation decimal.Decimal `json:"total_valuation"`
	TotalSales     decimal.Decimal `json:"total_sales"`
	SalesCount     int64           `json:"sales_count"`
}

type DashboardRepository interface {
	GetDashboardStats(ctx context.Context, ownerID string) (*DashboardStats, error)
}

type dashboardRepo struct {
	db *gorm.DB
}

func NewDashboardRepo(db *gorm.DB) DashboardRepository {
	return &dashboardRepo{db}
}

func (r *dashboardRepo) GetDashboardStats(ctx context.Context, ownerID string) (*DashboardStats, error) {
	var stats DashboardStats
	db := r.db.WithContext(ctx)
	active := func() *gorm.DB {
		return db.Model(&model.Product{}).Where("user_id = ? AND is_active = ?", ownerID, true)
	}

	if err := active().Count(&stats.TotalProducts).Error; err != nil {
		return nil, classify(err)
	}
	if err := active().Where("current_stock <= reorder_level").Count(&stats.LowStockCount).Error; err != nil {
		return nil, classify(err)
	}

	var valuation decimal.NullDecimal
	if err := active().Select("SUM(current_stock * purchase_cost)").Row().Scan(&valuation); err != nil {
		return nil, classify(err)
	}
	stats.TotalValuation = orZero(valuation)

	orders := func() *gorm.DB {
		return db.Model(&model.SalesOrder{}).Where("user_id = ?", ownerID)
	}
	if err := orders().Count(&stats.SalesCount).Error; err != nil {
		return nil, classify(err)
	}
	var sales decimal.NullDecimal
	if err := orders().Select("SUM(total_amount)").Row().Scan(&sales); err != nil {
		return nil, classify(err)
	}
	stats.TotalSales = orZero(sales)

	return &stats, nil
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if d.Valid {
		return d.Decimal
	}
	return decimal.Zero
}
