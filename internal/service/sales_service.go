package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go-inventory-pos/internal/apperror"
	"go-inventory-pos/internal/metrics"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/internal/ws"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SaleLineInput struct {
	ProductID        uuid.UUID        `json:"product_id" validate:"uuid_required"`
	Quantity         int              `json:"quantity" validate:"required,gt=0"`
	UnitSellingPrice *decimal.Decimal `json:"unit_selling_price" validate:"omitempty,gte=0,lte=99999999.99"`
}

type RecordSaleInput struct {
	Items         []SaleLineInput `json:"items" validate:"required,min=1,dive"`
	PaymentMethod *string         `json:"payment_method" validate:"omitempty,max=20"`
}

type SalesService interface {
	RecordSale(ctx context.Context, ownerID string, in RecordSaleInput) (*model.SalesOrder, error)
	ListSales(ctx context.Context, ownerID string) ([]model.SalesOrder, error)
	GetSale(ctx context.Context, ownerID string, id uint) (*model.SalesOrder, error)
}

type salesService struct {
	products  repository.ProductRepository
	sales     repository.SalesRepository
	db        *gorm.DB
	publisher ws.Publisher
	metrics   *metrics.Metrics
	opts      Options
	log       *zap.Logger
}

func NewSalesService(
	pRepo repository.ProductRepository,
	sRepo repository.SalesRepository,
	db *gorm.DB,
	publisher ws.Publisher,
	m *metrics.Metrics,
	opts Options,
	log *zap.Logger,
) SalesService {
	return &salesService{
		products:  pRepo,
		sales:     sRepo,
		db:        db,
		publisher: publisherOrNop(publisher),
		metrics:   m,
		opts:      opts,
		log:       log.Named("sales"),
	}
}

// RecordSale writes the order, its items and the stock decrements atomically. Products are
// locked in ascending id order so two sales over the same products cannot deadlock.
func (s *salesService) RecordSale(ctx context.Context, ownerID string, in RecordSaleInput) (*model.SalesOrder, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}

	sold := make(map[uuid.UUID]int, len(in.Items))
	ids := make([]uuid.UUID, 0, len(in.Items))
	for _, item := range in.Items {
		if _, seen := sold[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		sold[item.ProductID] += item.Quantity
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	var order *model.SalesOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := s.products.WithTx(tx)

		locked := make(map[uuid.UUID]*model.Product, len(ids))
		for _, id := range ids {
			p, err := products.LockOwned(ctx, ownerID, id, true)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return apperror.NotFound(fmt.Sprintf("Product %s not found", id))
				}
				return err
			}
			if p.CurrentStock-sold[id] < 0 && !s.opts.AllowNegativeStock {
				return apperror.Conflict(fmt.Sprintf("insufficient stock for '%s': %d available, %d requested", p.Name, p.CurrentStock, sold[id]))
			}
			locked[id] = p
		}

		order = &model.SalesOrder{
			UserID:        ownerID,
			PaymentMethod: in.PaymentMethod,
			TotalAmount:   decimal.Zero,
			Items:         make([]model.SalesItem, 0, len(in.Items)),
		}
		for i, line := range in.Items {
			price := locked[line.ProductID].SellingPrice
			if line.UnitSellingPrice != nil {
				price = line.UnitSellingPrice.Round(2)
			}
			lineTotal := price.Mul(decimal.NewFromInt(int64(line.Quantity)))
			if lineTotal.GreaterThan(model.MaxAmount) {
				return apperror.Validation(
					fmt.Sprintf("line total %s exceeds %s", lineTotal.StringFixed(2), model.MaxAmount.StringFixed(2)),
					map[string]string{fmt.Sprintf("items[%d]", i): "lte"},
				)
			}
			order.Items = append(order.Items, model.SalesItem{
				ProductID:        line.ProductID,
				Quantity:         line.Quantity,
				UnitSellingPrice: price,
				LineTotal:        lineTotal,
			})
			order.TotalAmount = order.TotalAmount.Add(lineTotal)
		}
		if order.TotalAmount.GreaterThan(model.MaxAmount) {
			return apperror.Validation(
				fmt.Sprintf("order total %s exceeds %s", order.TotalAmount.StringFixed(2), model.MaxAmount.StringFixed(2)),
				map[string]string{"items": "lte"},
			)
		}

		if err := s.sales.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}
		for _, id := range ids {
			if err := products.AdjustStock(ctx, id, -sold[id]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, repository.AsAppError(err, "Product not found")
	}

	s.metrics.SalesRecorded.Inc()
	s.log.Info("sale recorded",
		zap.Uint("order_id", order.ID),
		zap.String("user_id", ownerID),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)),
		zap.Int("items", len(order.Items)),
	)
	s.publisher.Publish(ownerID, ws.Event{
		Type:    "stock_update",
		Action:  "sale_recorded",
		Data:    order,
		Message: fmt.Sprintf("Sale #%d recorded, total %s", order.ID, order.TotalAmount.StringFixed(2)),
	})
	return order, nil
}

func (s *salesService) ListSales(ctx context.Context, ownerID string) ([]model.SalesOrder, error) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	orders, err := s.sales.FindAll(ctx, ownerID)
	if err != nil {
		return nil, repository.AsAppError(err, "")
	}
	return orders, nil
}

func (s *salesService) GetSale(ctx context.Context, ownerID string, id uint) (*model.SalesOrder, error) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	order, err := s.sales.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, repository.AsAppError(err, "Sale not found")
	}
	return order, nil
}
