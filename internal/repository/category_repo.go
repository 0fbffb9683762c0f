package repository

import (
	"context"
	"errors"

	"go-inventory-pos/internal/model"

	"gorm.io/gorm"
)

type CategoryRepository interface {
	WithTx(tx *gorm.DB) CategoryRepository
	FindAll(ctx context.Context) ([]model.Category, error)
	FindByID(ctx context.Context, id uint) (*model.Category, error)
	FindByName(ctx context.Context, name string) (*model.Category, error)
	Create(ctx context.Context, category *model.Category) error
	Delete(ctx context.Context, id uint) error
	SeedDefaults(ctx context.Context) (int, error)
}

type categoryRepo struct {
	db *gorm.DB
}

func NewCategoryRepo(db *gorm.DB) CategoryRepository {
	return &categoryRepo{db}
}

func (r *categoryRepo) WithTx(tx *gorm.DB) CategoryRepository {
	return &categoryRepo{tx}
}

func (r *categoryRepo) FindAll(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	err := r.db.WithContext(ctx).Order("name_key ASC").Find(&categories).Error
	return categories, classify(err)
}

func (r *categoryRepo) FindByID(ctx context.Context, id uint) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, classify(err)
	}
	return &category, nil
}

// FindByName matches case-insensitively after trimming.
func (r *categoryRepo) FindByName(ctx context.Context, name string) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).First(&category, "name_key = ?", model.CategoryKey(name)).Error; err != nil {
		return nil, classify(err)
	}
	return &category, nil
}

func (r *categoryRepo) Create(ctx context.Context, category *model.Category) error {
	return classify(r.db.WithContext(ctx).Create(category).Error)
}

func (r *categoryRepo) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Category{}, id)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SeedDefaults creates the default categories that don't exist yet and returns how many were added.
func (r *categoryRepo) SeedDefaults(ctx context.Context) (int, error) {
	created := 0
	for _, name := range model.DefaultCategories {
		_, err := r.FindByName(ctx, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return created, err
		}
		if err := r.Create(ctx, &model.Category{Name: name}); err != nil {
			if errors.Is(err, ErrDuplicateKey) {
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}
