package service

import (
	"context"
	"errors"
	"strings"

	"go-inventory-pos/internal/apperror"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CategoryService interface {
	List(ctx context.Context) ([]model.Category, error)
	// Create returns the existing category with created=false when the name is already taken.
	Create(ctx context.Context, name string) (*model.Category, bool, error)
	Delete(ctx context.Context, id uint) error
	SeedDefaults(ctx context.Context) (int, error)
}

type categoryService struct {
	categories repository.CategoryRepository
	products   repository.ProductRepository
	db         *gorm.DB
	opts       Options
	log        *zap.Logger
}

func NewCategoryService(cRepo repository.CategoryRepository, pRepo repository.ProductRepository, db *gorm.DB, opts Options, log *zap.Logger) CategoryService {
	return &categoryService{
		categories: cRepo,
		products:   pRepo,
		db:         db,
		opts:       opts,
		log:        log.Named("category"),
	}
}

func (s *categoryService) List(ctx context.Context) ([]model.Category, error) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	categories, err := s.categories.FindAll(ctx)
	if err != nil {
		return nil, repository.AsAppError(err, "")
	}
	return categories, nil
}

func (s *categoryService) Create(ctx context.Context, name string) (*model.Category, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, apperror.MissingFields("name")
	}
	if len(name) > 100 {
		return nil, false, apperror.Validation("name must be at most 100 characters", map[string]string{"name": "max"})
	}

	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	existing, err := s.categories.FindByName(ctx, name)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, repository.AsAppError(err, "")
	}

	category := &model.Category{Name: name}
	if err := s.categories.Create(ctx, category); err != nil {
		if !errors.Is(err, repository.ErrDuplicateKey) {
			return nil, false, repository.AsAppError(err, "")
		}
		// Lost a race with a concurrent create of the same name.
		existing, err := s.categories.FindByName(ctx, name)
		if err != nil {
			return nil, false, repository.AsAppError(err, "category not found")
		}
		return existing, false, nil
	}

	s.log.Info("category created", zap.Uint("category_id", category.ID), zap.String("name", category.Name))
	return category, true, nil
}

// Delete removes the category. Products that referenced it become uncategorized.
func (s *categoryService) Delete(ctx context.Context, id uint) error {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	var detached int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		categories := s.categories.WithTx(tx)
		if _, err := categories.FindByID(ctx, id); err != nil {
			return err
		}
		n, err := s.products.WithTx(tx).DetachCategory(ctx, id)
		if err != nil {
			return err
		}
		detached = n
		return categories.Delete(ctx, id)
	})
	if err != nil {
		return repository.AsAppError(err, "Category not found")
	}

	s.log.Info("category deleted", zap.Uint("category_id", id), zap.Int64("products_detached", detached))
	return nil
}

func (s *categoryService) SeedDefaults(ctx context.Context) (int, error) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	n, err := s.categories.SeedDefaults(ctx)
	if err != nil {
		return n, repository.AsAppError(err, "")
	}
	return n, nil
}
