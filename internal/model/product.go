package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type UnitType string

const (
	UnitPcs   UnitType = "pcs"
	UnitPack  UnitType = "pack"
	UnitBox   UnitType = "box"
	UnitKg    UnitType = "kg"
	UnitGram  UnitType = "g"
	UnitLiter UnitType = "L"
	UnitML    UnitType = "mL"
	UnitDozen UnitType = "dozen"
)

const DefaultReorderLevel = 10

// MaxAmount is the largest value a decimal(10,2) money column holds.
var MaxAmount = decimal.RequireFromString("99999999.99")

type Product struct {
	ProductID    uuid.UUID       `gorm:"type:varchar(36);primaryKey" json:"product_id"`
	Barcode      string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"barcode"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	CategoryID   *uint           `gorm:"index" json:"category_id"`
	Category     *Category       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`
	UnitType     UnitType        `gorm:"type:varchar(10);not null;default:pcs" json:"unit_type"`
	PurchaseCost decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"purchase_cost"`
	SellingPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"selling_price"`
	CurrentStock int             `gorm:"not null;default:0" json:"current_stock"`
	ReorderLevel int             `gorm:"not null" json:"reorder_level"`
	Image        *string         `gorm:"type:text" json:"image"`
	IsActive     bool            `gorm:"not null;default:true" json:"is_active"`
	UserID       string          `gorm:"type:varchar(255);not null;index" json:"user_id"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	// Movements go with the product; a product that was sold cannot be removed.
	Movements  []StockMovement `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE;" json:"-"`
	SalesItems []SalesItem     `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT;" json:"-"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ProductID == uuid.Nil {
		p.ProductID = uuid.New()
	}
	return nil
}

// LowStock reports whether the product is at or below its reorder level.
func (p *Product) LowStock() bool {
	return p.CurrentStock <= p.ReorderLevel
}

// ProductResponse is the API shape of a product, with the category name resolved.
type ProductResponse struct {
	ProductID    uuid.UUID       `json:"product_id"`
	Barcode      string          `json:"barcode"`
	Name         string          `json:"name"`
	CategoryID   *uint           `json:"category_id"`
	CategoryName *string         `json:"category_name"`
	UnitType     UnitType        `json:"unit_type"`
	PurchaseCost decimal.Decimal `json:"purchase_cost"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	CurrentStock int             `json:"current_stock"`
	ReorderLevel int             `json:"reorder_level"`
	LowStock     bool            `json:"low_stock"`
	Image        *string         `json:"image"`
	IsActive     bool            `json:"is_active"`
	UserID       string          `json:"user_id"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (p *Product) ToResponse() ProductResponse {
	resp := ProductResponse{
		ProductID:    p.ProductID,
		Barcode:      p.Barcode,
		Name:         p.Name,
		CategoryID:   p.CategoryID,
		UnitType:     p.UnitType,
		PurchaseCost: p.PurchaseCost,
		SellingPrice: p.SellingPrice,
		CurrentStock: p.CurrentStock,
		ReorderLevel: p.ReorderLevel,
		LowStock:     p.LowStock(),
		Image:        p.Image,
		IsActive:     p.IsActive,
		UserID:       p.UserID,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if p.Category != nil {
		name := p.Category.Name
		resp.CategoryName = &name
	}
	return resp
}

func ToProductResponses(products []Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, products[i].ToResponse())
	}
	return out
}
