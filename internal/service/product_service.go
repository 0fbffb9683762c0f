package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-inventory-pos/internal/apperror"
	"go-inventory-pos/internal/config"
	"go-inventory-pos/internal/metrics"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/internal/ws"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const catalogUpsertReason = "catalog upsert"

type UpsertProductInput struct {
	Barcode      string           `json:"barcode" validate:"required,max=64"`
	Name         string           `json:"name" validate:"required,max=255"`
	CategoryID   *uint            `json:"category_id" validate:"required"`
	UnitType     model.UnitType   `json:"unit_type" validate:"omitempty,oneof=pcs pack box kg g L mL dozen"`
	PurchaseCost *decimal.Decimal `json:"purchase_cost" validate:"omitempty,gte=0,lte=99999999.99"`
	SellingPrice *decimal.Decimal `json:"selling_price" validate:"required,gt=0,lte=99999999.99"`
	CurrentStock *int             `json:"current_stock" validate:"omitempty,gte=0"`
	ReorderLevel *int             `json:"reorder_level" validate:"omitempty,gte=0"`
	Image        *string          `json:"image" validate:"omitempty,url"`
}

func (in *UpsertProductInput) toModel(ownerID string) *model.Product {
	p := &model.Product{
		Barcode:      in.Barcode,
		Name:         in.Name,
		CategoryID:   in.CategoryID,
		UnitType:     in.UnitType,
		SellingPrice: in.SellingPrice.Round(2),
		PurchaseCost: decimal.Zero,
		ReorderLevel: model.DefaultReorderLevel,
		Image:        in.Image,
		IsActive:     true,
		UserID:       ownerID,
	}
	if p.UnitType == "" {
		p.UnitType = model.UnitPcs
	}
	if in.PurchaseCost != nil {
		p.PurchaseCost = in.PurchaseCost.Round(2)
	}
	if in.ReorderLevel != nil {
		p.ReorderLevel = *in.ReorderLevel
	}
	return p
}

type ProductService interface {
	Upsert(ctx context.Context, ownerID string, in UpsertProductInput) (*model.Product, error)
	ListActive(ctx context.Context, ownerID string) ([]model.Product, error)
	FindByBarcode(ctx context.Context, ownerID, barcode string) (*model.Product, error)
	ListByCategory(ctx context.Context, ownerID string, categoryID uint) ([]model.Product, error)
	Deactivate(ctx context.Context, ownerID string, productID uuid.UUID) error
}

type productService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	movements  repository.StockMovementRepository
	db         *gorm.DB
	publisher  ws.Publisher
	metrics    *metrics.Metrics
	opts       Options
	log        *zap.Logger
}

func NewProductService(
	pRepo repository.ProductRepository,
	cRepo repository.CategoryRepository,
	mRepo repository.StockMovementRepository,
	db *gorm.DB,
	publisher ws.Publisher,
	m *metrics.Metrics,
	opts Options,
	log *zap.Logger,
) ProductService {
	return &productService{
		products:   pRepo,
		categories: cRepo,
		movements:  mRepo,
		db:         db,
		publisher:  publisherOrNop(publisher),
		metrics:    m,
		opts:       opts,
		log:        log.Named("product"),
	}
}

// Upsert creates the product or overwrites the catalog fields of the existing barcode in one
// transaction. A supplied current_stock that differs from the stored one is recorded as an
// adjustment movement so the ledger stays in step with the product row.
func (s *productService) Upsert(ctx context.Context, ownerID string, in UpsertProductInput) (*model.Product, error) {
	in.Barcode = strings.TrimSpace(in.Barcode)
	in.Name = strings.TrimSpace(in.Name)
	if err := validate(&in); err != nil {
		return nil, err
	}

	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	var (
		saved   *model.Product
		created bool
		delta   int
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := s.products.WithTx(tx)

		category, err := s.categories.WithTx(tx).FindByID(ctx, *in.CategoryID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperror.InvalidReference("category_id", "category does not exist")
			}
			return err
		}

		candidate := in.toModel(ownerID)
		if err := products.Upsert(ctx, candidate, s.opts.BarcodePolicy == config.BarcodePolicyShared); err != nil {
			return err
		}

		current, err := products.LockByBarcode(ctx, in.Barcode)
		if err != nil {
			return err
		}
		if current.UserID != ownerID {
			return apperror.Conflict("barcode is registered to another user")
		}
		created = current.ProductID == candidate.ProductID

		if in.CurrentStock != nil && *in.CurrentStock != current.CurrentStock {
			delta = *in.CurrentStock - current.CurrentStock
			if err := products.AdjustStock(ctx, current.ProductID, delta); err != nil {
				return err
			}
			reason := catalogUpsertReason
			if err := s.movements.WithTx(tx).Create(ctx, &model.StockMovement{
				ProductID: current.ProductID,
				Type:      model.MovementAdjustment,
				Quantity:  delta,
				Reason:    &reason,
				UserID:    ownerID,
			}); err != nil {
				return err
			}
			current.CurrentStock = *in.CurrentStock
		}

		current.Category = category
		saved = current
		return nil
	})
	if err != nil {
		if apperror.Is(err, apperror.KindConflict) {
			s.log.Warn("upsert rejected", zap.String("barcode", in.Barcode), zap.String("user_id", ownerID), zap.Error(err))
		}
		return nil, repository.AsAppError(err, "product not found")
	}

	result := "updated"
	if created {
		result = "created"
	}
	s.metrics.ProductsSaved.WithLabelValues(result).Inc()
	if delta != 0 {
		s.metrics.StockMovements.WithLabelValues(string(model.MovementAdjustment)).Inc()
	}

	s.publisher.Publish(ownerID, ws.Event{
		Type:    "stock_update",
		Action:  "product_saved",
		Data:    saved.ToResponse(),
		Message: fmt.Sprintf("Product '%s' %s", saved.Name, result),
	})
	return saved, nil
}

func (s *productService) ListActive(ctx context.Context, ownerID string) ([]model.Product, error) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	products, err := s.products.FindActive(ctx, ownerID)
	if err != nil {
		return nil, repository.AsAppError(err, "")
	}
	return products, nil
}

func (s *productService) FindByBarcode(ctx context.Context, ownerID, barcode string) (*model.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, apperror.MissingFields("barcode")
	}

	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	product, err := s.products.FindActiveByBarcode(ctx, ownerID, barcode)
	if err != nil {
		return nil, repository.AsAppError(err, "Product not found")
	}
	return product, nil
}

func (s *productService) ListByCategory(ctx context.Context, ownerID string, categoryID uint) ([]model.Product, error) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	products, err := s.products.FindActiveByCategory(ctx, ownerID, categoryID)
	if err != nil {
		return nil, repository.AsAppError(err, "")
	}
	return products, nil
}

// Deactivate hides the product from the catalog. Its history is kept.
func (s *productService) Deactivate(ctx context.Context, ownerID string, productID uuid.UUID) error {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	if err := s.products.Deactivate(ctx, ownerID, productID); err != nil {
		return repository.AsAppError(err, "Product not found")
	}
	s.publisher.Publish(ownerID, ws.Event{
		Type:   "stock_update",
		Action: "product_deactivated",
		Data:   map[string]interface{}{"product_id": productID},
	})
	return nil
}
