package service

import (
	"context"
	"sync"
	"testing"

	"go-inventory-pos/internal/apperror"
	"go-inventory-pos/internal/config"
	"go-inventory-pos/internal/metrics"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/internal/testutil"
	"go-inventory-pos/internal/ws"

	"github.com/google/uuid"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events map[string][]ws.Event
}

func (p *recordingPublisher) Publish(ownerID string, event ws.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = map[string][]ws.Event{}
	}
	p.events[ownerID] = append(p.events[ownerID], event)
}

func (p *recordingPublisher) actions(ownerID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events[ownerID] {
		out = append(out, e.Action)
	}
	return out
}

type fixture struct {
	db         *gorm.DB
	metrics    *metrics.Metrics
	publisher  *recordingPublisher
	categories CategoryService
	products   ProductService
	ledger     LedgerService
	sales      SalesService
	dashboard  DashboardService
	productsDB repository.ProductRepository
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	log := zap.NewNop()
	m := metrics.New()
	pub := &recordingPublisher{}

	cRepo := repository.NewCategoryRepo(db)
	pRepo := repository.NewProductRepo(db)
	mRepo := repository.NewStockMovementRepo(db)
	sRepo := repository.NewSalesRepo(db)

	return &fixture{
		db:         db,
		metrics:    m,
		publisher:  pub,
		categories: NewCategoryService(cRepo, pRepo, db, opts, log),
		products:   NewProductService(pRepo, cRepo, mRepo, db, pub, m, opts, log),
		ledger:     NewLedgerService(pRepo, mRepo, sRepo, db, pub, m, opts, log),
		sales:      NewSalesService(pRepo, sRepo, db, pub, m, opts, log),
		dashboard:  NewDashboardService(mRepo, repository.NewDashboardRepo(db), opts),
		productsDB: pRepo,
	}
}

func defaultOptions() Options {
	return Options{BarcodePolicy: config.BarcodePolicyReject}
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intPtr(i int) *int { return &i }

func (f *fixture) category(t *testing.T, name string) *model.Category {
	t.Helper()
	c, _, err := f.categories.Create(context.Background(), name)
	require.NoError(t, err)
	return c
}

func (f *fixture) product(t *testing.T, owner, barcode string, price string, stock int, categoryID uint) *model.Product {
	t.Helper()
	p, err := f.products.Upsert(context.Background(), owner, UpsertProductInput{
		Barcode:      barcode,
		Name:         "Product " + barcode,
		CategoryID:   &categoryID,
		SellingPrice: dec(price),
		CurrentStock: intPtr(stock),
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) countProducts(t *testing.T, barcode string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.Product{}).Where("barcode = ?", barcode).Count(&n).Error)
	return n
}

// Category Store

func TestCategoryService_CreateIsCaseInsensitive(t *testing.T) {
	f := newFixture(t, defaultOptions())
	ctx := context.Background()

	first, created, err := f.categories.Create(ctx, "Snacks")
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := f.categories.Create(ctx, "  snacks ")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Snacks", second.Name)

	all, err := f.categories.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCategoryService_CreateRejectsBlankName(t *testing.T) {
	f := newFixture(t, defaultOptions())

	_, _, err := f.categories.Create(context.Background(), "   ")
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestCategoryService_DeleteDetachesProducts(t *testing.T) {
	f := newFixture(t, defaultOptions())
	ctx := context.Background()
	snacks := f.category(t, "Snacks")

	var before []*model.Product
	for _, code := range []string{"A", "B", "C"} {
		before = append(before, f.product(t, "user_1", code, "10.00", 4, snacks.ID))
	}

	require.NoError(t, f.categories.Delete(ctx, snacks.ID))

	for _, p := range before {
		var got model.Product
		require.NoError(t, f.db.First(&got, "product_id = ?", p.ProductID).Error)
		assert.Nil(t, got.CategoryID)
		assert.Equal(t, p.Name, got.Name)
		assert.Equal(t, p.CurrentStock, got.CurrentStock)
		assert.True(t, p.SellingPrice.Equal(got.SellingPrice))
		assert.True(t, got.IsActive)
	}

	err := f.categories.Delete(ctx, snacks.ID)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestCategoryService_SeedDefaults(t *testing.T) {
	f := newFixture(t, defaultOptions())
	ctx := context.Background()
	f.category(t, "snacks")

	n, err := f.categories.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(model.DefaultCategories)-1, n)
}

// Product Catalog

func TestProductService_UpsertTwiceKeepsOneRowWithLatestValues(t *testing.T) {
	f := newFixture(t, defaultOptions())
	ctx := context.Background()
	snacks := f.category(t, "Snacks")

	first, err := f.products.Upsert(ctx, "user_1", UpsertProductInput{
		Barcode: "4800016644290", Name: "Piattos", CategoryID: &snacks.ID, SellingPrice: dec("15.00"),
	})
	require.NoError(t, err)

	second, err := f.products.Upsert(ctx, "user_1", UpsertProductInput{
		Barcode: "4800016644290", Name: "Piattos Cheese", CategoryID: &snacks.ID,
		SellingPrice: dec("17.50"), UnitType: model.UnitPack, ReorderLevel: intPtr(0),
	})
	require.NoError(t, err)

	assert.Equal(t, first.ProductID, second.ProductID)
	assert.Equal(t, int64(1), f.countProducts(t, "4800016644290"))

	got, err := f.products.FindByBarcode(ctx, "user_1", "4800016644290")
	require.NoError(t, err)
	assert.Equal(t, "Piattos Cheese", got.Name)
	assert.Equal(t, model.UnitPack, got.UnitType)
	assert.Equal(t, 0, got.ReorderLevel)
	assert.True(t, got.SellingPrice.Equal(decimal.RequireFromString("17.50")))
	require.NotNil(t, got.Category)
	assert.Equal(t, "Snacks", got.Category.Name)

	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.ProductsSaved.WithLabelValues("created")))
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.ProductsSaved.WithLabelValues("updated")))
	assert.Equal(t, []string{"product_saved", "product_saved"}, f.publisher.actions("user_1"))
}

func TestProductService_ConcurrentUpsertsOfNewBarcode(t *testing.T) {
	f := newFixture(t, defaultOptions())
	snacks := f.category(t, "Snacks")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.products.Upsert(context.Background(), "user_1", UpsertProductInput{
				Barcode: "999", Name: "Coke", CategoryID: &snacks.ID, SellingPrice: dec("20"),
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int64(1), f.countProducts(t, "999"))
}

func TestProductService_UpsertStockIsReconciledThroughLedger(t *testing.T) {
	f := newFixture(t, defaultOptions())
	ctx := context.Background()
	snacks := f.category(t, "Snacks")

	p := f.product(t, "user_1", "A", "10", 12, snacks.ID)
	assert.Equal(t, 12, p.CurrentStock)
	f.product(t, "user_1", "A", "10", 7, snacks.ID)

	history, err := f.ledger.History(ctx, "user_1", p.ProductID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, -5, history[0].Quantity)
	assert.Equal(t, 12, history[1].Quantity)
	assert.Equal(t, model.MovementAdjustment, history[0].Type)

	rec, err := f.ledger.Reconcile(ctx, "user_1", p.ProductID)
	require.NoError(t, err)
	assert.Equal(t, 7, rec.CurrentStock)
	assert.True(t, rec.Consistent)
}

func TestProductService_UpsertValidation(t *testing.T) {
	f := newFixture(t, defaultOptions())

	_, err := f.products.Upsert(context.Background(), "user_1", UpsertProductInput{Name: "Chips"})
	require.Error(t, err)

	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
	assert.Equal(t, "barcode, category_id, selling_price are required", appErr.Message)

	one := uint(1)
	_, err = f.products.Upsert(context.Background(), "user_1", UpsertProductInput{
		Barcode: "X", Name: "Chips", CategoryID: &one, SellingPrice: dec("-1"),
	})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "gt", appErr.Fields["selling_price"])

	_, err = f.products.Upsert(context.Background(), "user_1", UpsertProductInput{
		Barcode: "X", Name: "Chips", CategoryID: &one, SellingPrice: dec("1000000000"), PurchaseCost: dec("100000000"),
	})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
	assert.Equal(t, "lte", appErr.Fields["selling_price"])
	assert.Equal(t, "lte", appErr.Fields["purchase_cost"])
}

func TestProductService_UpsertUnknownCategory(t *testing.T) {
	f := newFixture(t, defaultOptions())
	missing := uint(42)

	_, err := f.products.Upsert(context.Background(), "user_1", UpsertProductInput{
		Barcode: "X", Name: "Chips", CategoryID: &missing, SellingPrice: dec("5"),
	})
	assert.Equal(t, apperror.KindInvalidReference, apperror.KindOf(err))
	assert.Zero(t, f.countProducts(t, "X"))
}

func TestProductService_BarcodePolicyReject(t *testing.T) {
	f := newFixture(t, defaultOptions())
	ctx := context.Background()
	snacks := f.category(t, "Snacks")
	f.product(t, "user_1", "111", "10", 3, snacks.ID)

	_, err := f.products.Upsert(ctx, "user_2", UpsertProductInput{
		Barcode: "111", Name: "Hijacked", CategoryID: &snacks.ID, SellingPrice: dec("1"),
	})
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	got, err := f.products.FindByBarcode(ctx, "user_1", "111")
	require.NoError(t, err)
	assert.Equal(t, "Product 111", got.Name)
	assert.True(t, got.SellingPrice.Equal(decimal.NewFromInt(10)))
}

func TestProductService_BarcodePolicyShared(t *testing.T) {
	f := newFixture(t, Options{BarcodePolicy: config.BarcodePolicyShared})
	ctx := context.Background()
	snacks := f.category(t, "Snacks")
	f.product(t, "user_1", "111", "10", 3, snacks.ID)

	p, err := f.products.Upsert(ctx, "user_2", UpsertProductInput{
		Barcode: "111", Name: "Shared", CategoryID: &snacks.ID, SellingPrice: dec("11"),
	})
	require.NoError(t, err)
	assert.Equal(t, "user_2", p.UserID)

	_, err = f.products.FindByBarcode(ctx, "user_1", "111")
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestProductService_ScopedQueries(t *testing.T) {
	f := newFixture(t, defaultOptions())
	ctx := context.Background()
	snacks := f.category(t, "Snacks")
	drinks := f.category(t, "Drinks")

	chips := f.product(t, "user_1", "A", "10", 1, snacks.ID)
	f.product(t, "user_1", "B", "10", 1, drinks.ID)
	f.product(t, "user_2", "C", "10", 1, snacks.ID)

	mine, err := f.products.ListActive(ctx, "user_1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	bySnacks, err := f.products.ListByCategory(ctx, "user_1", snacks.ID)
	require.NoError(t, err)
	require.Len(t, bySnacks, 1)
	assert.Equal(t, "A", bySnacks[0].Barcode)

	_, err = f.products.FindByBarcode(ctx, "user_1", "")
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	require.NoError(t, f.products.Deactivate(ctx, "user_1", chips.ProductID))
	_, err = f.products.FindByBarcode(ctx, "user_1", "A")
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	err = f.products.Deactivate(ctx, "user_2", chips.ProductID)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

// Stock Ledger

func TestLedgerService_ConcurrentMovementsSumUp(t *testing.T) {
	f := newFixture(t, defaultOptions())
	snacks := f.category(t, "Snacks")
	p := f.product(t, "user_1", "A", "10", 10, snacks.ID)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, err := f.ledger.Record(context.Background(), "user_1", p.ProductID, RecordMovementInput{Type: model.MovementAddStock, Quantity: 3})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, _, err := f.ledger.Record(context.Background(), "user_1", p.ProductID, RecordMovementInput{Type: model.MovementWastage, Quantity: -1})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rec, err := f.ledger.Reconcile(context.Background(), "user_1", p.ProductID)
	require.NoError(t, err)
	assert.Equal(t, 30, rec.CurrentStock)
	assert.Equal(t, int64(30), rec.LedgerTotal)
	assert.True(t, rec.Consistent)
	assert.Equal(t, 10.0, promtest.ToFloat64(f.metrics.StockMovements.WithLabelValues("add_stock")))
}

func TestLedgerService_SignRules(t *testing.T) {
	f := newFixture(t, defaultOptions())
	snacks := f.category(t, "Snacks")
	p := f.product(t, "user_1", "A", "10", 5, snacks.ID)

	cases := []RecordMovementInput{
		{Type: model.MovementAddStock, Quantity: -1},
		{Type: model.MovementReturn, Quantity: -1},
		{Type: model.MovementWastage, Quantity: 2},
		{Type: model.MovementAdjustment, Quantity: 0},
		{Type: "sale", Quantity: 1},
	}
	for _, in := range cases {
		_, _, err := f.ledger.Record(context.Background(), "user_1", p.ProductID, in)
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err), "%s %d", in.Type, in.Quantity)
	}
}

func TestLedgerService_NegativeStockPolicy(t *testing.T) {
	f := newFixture(t, defaultOptions())
	ctx := context.Background()
	snacks := f.category(t, "Snacks")
	p := f.product(t, "user_1", "A", "10", 2, snacks.ID)

	_, _, err := f.ledger.Record(ctx, "user_1", p.ProductID, RecordMovementInput{Type: model.MovementWastage, Quantity: -3})
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	_, _, err = f.ledger.Record(ctx, "user_2", p.ProductID, RecordMovementInput{Type: model.MovementAddStock, Quantity: 3})
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	permissive := newFixture(t, Options{BarcodePolicy: config.BarcodePolicyReject, AllowNegativeStock: true})
	snacks = permissive.category(t, "Snacks")
	p = permissive.product(t, "user_1", "A", "10", 2, snacks.ID)
	_, stock, err := permissive.ledger.Record(ctx, "user_1", p.ProductID, RecordMovementInput{Type: model.MovementWastage, Quantity: -3})
	require.NoError(t, err)
	assert.Equal(t, -1, stock)
}

// Sales Recorder

func TestSalesService_RecordSale(t *testing.T) {
	f := newFixture(t, defaultOptions())
	ctx := context.Background()
	snacks := f.category(t, "Snacks")
	a := f.product(t, "user_1", "A", "10", 5, snacks.ID)
	b := f.product(t, "user_1", "B", "5", 5, snacks.ID)

	order, err := f.sales.RecordSale(ctx, "user_1", RecordSaleInput{Items: []SaleLineInput{
		{ProductID: a.ProductID, Quantity: 2, UnitSellingPrice: dec("10")},
		{ProductID: b.ProductID, Quantity: 1},
	}})
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(25)), order.TotalAmount.String())

	gotA, err := f.products.FindByBarcode(ctx, "user_1", "A")
	require.NoError(t, err)
	assert.Equal(t, 3, gotA.CurrentStock)
	gotB, err := f.products.FindByBarcode(ctx, "user_1", "B")
	require.NoError(t, err)
	assert.Equal(t, 4, gotB.CurrentStock)

	stored, err := f.sales.GetSale(ctx, "user_1", order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.True(t, stored.Items[0].LineTotal.Equal(decimal.NewFromInt(20)))
	assert.True(t, stored.Items[1].UnitSellingPrice.Equal(decimal.NewFromInt(5)))

	orders, err := f.sales.ListSales(ctx, "user_1")
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	_, err = f.sales.GetSale(ctx, "user_2", order.ID)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	rec, err := f.ledger.Reconcile(ctx, "user_1", a.ProductID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.SoldTotal)
	assert.True(t, rec.Consistent)
	assert.Contains(t, f.publisher.actions("user_1"), "sale_recorded")
}

func TestSalesService_InsufficientStockRollsBack(t *testing.T) {
	f := newFixture(t, defaultOptions())
	ctx := context.Background()
	snacks := f.category(t, "Snacks")
	a := f.product(t, "user_1", "A", "10", 5, snacks.ID)
	b := f.product(t, "user_1", "B", "5", 1, snacks.ID)

	_, err := f.sales.RecordSale(ctx, "user_1", RecordSaleInput{Items: []SaleLineInput{
		{ProductID: a.ProductID, Quantity: 1},
		{ProductID: b.ProductID, Quantity: 1},
		{ProductID: b.ProductID, Quantity: 1},
	}})
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	gotA, err := f.products.FindByBarcode(ctx, "user_1", "A")
	require.NoError(t, err)
	assert.Equal(t, 5, gotA.CurrentStock)

	orders, err := f.sales.ListSales(ctx, "user_1")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestSalesService_Validation(t *testing.T) {
	f := newFixture(t, defaultOptions())
	ctx := context.Background()

	_, err := f.sales.RecordSale(ctx, "user_1", RecordSaleInput{})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = f.sales.RecordSale(ctx, "user_1", RecordSaleInput{Items: []SaleLineInput{{ProductID: uuid.New(), Quantity: 0}}})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = f.sales.RecordSale(ctx, "user_1", RecordSaleInput{Items: []SaleLineInput{{ProductID: uuid.New(), Quantity: 1}}})
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestSalesService_TotalsMustFitMoneyColumns(t *testing.T) {
	f := newFixture(t, defaultOptions())
	ctx := context.Background()
	snacks := f.category(t, "Snacks")
	a := f.product(t, "user_1", "A", "10", 5, snacks.ID)

	_, err := f.sales.RecordSale(ctx, "user_1", RecordSaleInput{Items: []SaleLineInput{
		{ProductID: a.ProductID, Quantity: 1, UnitSellingPrice: dec("100000000")},
	}})
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "lte", appErr.Fields["items[0].unit_selling_price"])

	_, err = f.sales.RecordSale(ctx, "user_1", RecordSaleInput{Items: []SaleLineInput{
		{ProductID: a.ProductID, Quantity: 2, UnitSellingPrice: dec("99999999.99")},
	}})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
	assert.Equal(t, "lte", appErr.Fields["items[0]"])

	_, err = f.sales.RecordSale(ctx, "user_1", RecordSaleInput{Items: []SaleLineInput{
		{ProductID: a.ProductID, Quantity: 1, UnitSellingPrice: dec("60000000")},
		{ProductID: a.ProductID, Quantity: 1, UnitSellingPrice: dec("60000000")},
	}})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
	assert.Equal(t, "lte", appErr.Fields["items"])

	got, err := f.products.FindByBarcode(ctx, "user_1", "A")
	require.NoError(t, err)
	assert.Equal(t, 5, got.CurrentStock)
}

// Dashboard

func TestDashboardService_Stats(t *testing.T) {
	f := newFixture(t, defaultOptions())
	ctx := context.Background()
	snacks := f.category(t, "Snacks")
	a := f.product(t, "user_1", "A", "10", 20, snacks.ID)
	f.product(t, "user_1", "B", "10", 2, snacks.ID)

	_, err := f.sales.RecordSale(ctx, "user_1", RecordSaleInput{Items: []SaleLineInput{{ProductID: a.ProductID, Quantity: 3}}})
	require.NoError(t, err)

	stats, err := f.dashboard.GetDashboardStats(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalProducts)
	assert.Equal(t, int64(1), stats.LowStockCount)
	assert.Equal(t, int64(1), stats.SalesCount)
	assert.True(t, stats.TotalSales.Equal(decimal.NewFromInt(30)), stats.TotalSales.String())
}
