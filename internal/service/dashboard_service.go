package service

import (
	"context"
	"time"

	"go-inventory-pos/internal/repository"
)

const maxChartDays = 365

type DashboardService interface {
	GetStockMovement(ctx context.Context, ownerID string, days int) ([]repository.StockMovementData, error)
	GetDashboardStats(ctx context.Context, ownerID string) (*repository.DashboardStats, error)
}

type dashboardService struct {
	movements repository.StockMovementRepository
	dashboard repository.DashboardRepository
	opts      Options
	now       func() time.Time
}

func NewDashboardService(mRepo repository.StockMovementRepository, dRepo repository.DashboardRepository, opts Options) DashboardService {
	return &dashboardService{movements: mRepo, dashboard: dRepo, opts: opts, now: time.Now}
}

// GetStockMovement returns daily inbound and outbound quantities for the last days days.
func (s *dashboardService) GetStockMovement(ctx context.Context, ownerID string, days int) ([]repository.StockMovementData, error) {
	if days <= 0 {
		days = 7
	}
	if days > maxChartDays {
		days = maxChartDays
	}
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	endDate := s.now()
	startDate := endDate.AddDate(0, 0, -days)

	data, err := s.movements.GetStockMovement(ctx, ownerID, startDate, endDate)
	if err != nil {
		return nil, repository.AsAppError(err, "")
	}
	return data, nil
}

func (s *dashboardService) GetDashboardStats(ctx context.Context, ownerID string) (*repository.DashboardStats, error) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	stats, err := s.dashboard.GetDashboardStats(ctx, ownerID)
	if err != nil {
		return nil, repository.AsAppError(err, "")
	}
	return stats, nil
}
