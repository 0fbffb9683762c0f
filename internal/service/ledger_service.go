package service

import (
	"context"
	"fmt"

	"go-inventory-pos/internal/apperror"
	"go-inventory-pos/internal/metrics"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/internal/ws"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RecordMovementInput struct {
	Type     model.MovementType `json:"type" validate:"required,oneof=add_stock return adjustment wastage"`
	Quantity int                `json:"quantity" validate:"required"`
	Reason   *string            `json:"reason" validate:"omitempty,max=500"`
}

// Reconciliation compares the stored stock with what the ledger and the sales imply.
type Reconciliation struct {
	ProductID    uuid.UUID `json:"product_id"`
	CurrentStock int       `json:"current_stock"`
	LedgerTotal  int64     `json:"ledger_total"`
	SoldTotal    int64     `json:"sold_total"`
	Expected     int64     `json:"expected"`
	Consistent   bool      `json:"consistent"`
}

type LedgerService interface {
	// Record applies a non-sale stock change and returns the movement and the new stock level.
	Record(ctx context.Context, ownerID string, productID uuid.UUID, in RecordMovementInput) (*model.StockMovement, int, error)
	History(ctx context.Context, ownerID string, productID uuid.UUID) ([]model.StockMovement, error)
	Reconcile(ctx context.Context, ownerID string, productID uuid.UUID) (*Reconciliation, error)
}

type ledgerService struct {
	products  repository.ProductRepository
	movements repository.StockMovementRepository
	sales     repository.SalesRepository
	db        *gorm.DB
	publisher ws.Publisher
	metrics   *metrics.Metrics
	opts      Options
	log       *zap.Logger
}

func NewLedgerService(
	pRepo repository.ProductRepository,
	mRepo repository.StockMovementRepository,
	sRepo repository.SalesRepository,
	db *gorm.DB,
	publisher ws.Publisher,
	m *metrics.Metrics,
	opts Options,
	log *zap.Logger,
) LedgerService {
	return &ledgerService{
		products:  pRepo,
		movements: mRepo,
		sales:     sRepo,
		db:        db,
		publisher: publisherOrNop(publisher),
		metrics:   m,
		opts:      opts,
		log:       log.Named("ledger"),
	}
}

func (s *ledgerService) Record(ctx context.Context, ownerID string, productID uuid.UUID, in RecordMovementInput) (*model.StockMovement, int, error) {
	if err := validate(&in); err != nil {
		return nil, 0, err
	}
	if !in.Type.ValidQuantity(in.Quantity) {
		return nil, 0, apperror.Validation(quantitySignMessage(in.Type), map[string]string{"quantity": "sign"})
	}

	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	var (
		movement *model.StockMovement
		product  *model.Product
		newStock int
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := s.products.WithTx(tx)

		p, err := products.LockOwned(ctx, ownerID, productID, false)
		if err != nil {
			return err
		}
		newStock = p.CurrentStock + in.Quantity
		if newStock < 0 && !s.opts.AllowNegativeStock {
			return apperror.Conflict(fmt.Sprintf("insufficient stock: %d available", p.CurrentStock))
		}

		if err := products.AdjustStock(ctx, p.ProductID, in.Quantity); err != nil {
			return err
		}
		movement = &model.StockMovement{
			ProductID: p.ProductID,
			Type:      in.Type,
			Quantity:  in.Quantity,
			Reason:    in.Reason,
			UserID:    ownerID,
		}
		if err := s.movements.WithTx(tx).Create(ctx, movement); err != nil {
			return err
		}
		product = p
		return nil
	})
	if err != nil {
		return nil, 0, repository.AsAppError(err, "Product not found")
	}

	s.metrics.StockMovements.WithLabelValues(string(in.Type)).Inc()
	s.publisher.Publish(ownerID, ws.Event{
		Type:   "stock_update",
		Action: "stock_movement_recorded",
		Data: map[string]interface{}{
			"movement":  movement,
			"new_stock": newStock,
		},
		Message: fmt.Sprintf("%s %+d on '%s'", in.Type, in.Quantity, product.Name),
	})
	return movement, newStock, nil
}

func quantitySignMessage(t model.MovementType) string {
	switch t {
	case model.MovementWastage:
		return "quantity must be negative for wastage"
	case model.MovementAdjustment:
		return "quantity must not be zero for adjustment"
	default:
		return fmt.Sprintf("quantity must be positive for %s", t)
	}
}

func (s *ledgerService) History(ctx context.Context, ownerID string, productID uuid.UUID) ([]model.StockMovement, error) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	if _, err := s.products.FindOwned(ctx, ownerID, productID); err != nil {
		return nil, repository.AsAppError(err, "Product not found")
	}
	movements, err := s.movements.FindByProduct(ctx, productID)
	if err != nil {
		return nil, repository.AsAppError(err, "")
	}
	return movements, nil
}

// Reconcile reads the product, its ledger and its sales in one transaction.
func (s *ledgerService) Reconcile(ctx context.Context, ownerID string, productID uuid.UUID) (*Reconciliation, error) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	var rec Reconciliation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.products.WithTx(tx).LockOwned(ctx, ownerID, productID, false)
		if err != nil {
			return err
		}
		ledger, err := s.movements.WithTx(tx).SumByProduct(ctx, productID)
		if err != nil {
			return err
		}
		sold, err := s.sales.WithTx(tx).SumSoldByProduct(ctx, productID)
		if err != nil {
			return err
		}
		rec = Reconciliation{
			ProductID:    productID,
			CurrentStock: p.CurrentStock,
			LedgerTotal:  ledger,
			SoldTotal:    sold,
			Expected:     ledger - sold,
			Consistent:   int64(p.CurrentStock) == ledger-sold,
		}
		return nil
	})
	if err != nil {
		return nil, repository.AsAppError(err, "Product not found")
	}
	if !rec.Consistent {
		s.log.Warn("stock drift detected",
			zap.String("product_id", productID.String()),
			zap.Int("current_stock", rec.CurrentStock),
			zap.Int64("expected", rec.Expected),
		)
	}
	return &rec, nil
}
