package model

import (
	"time"

	"github.com/google/uuid"
)

type MovementType string

const (
	MovementAddStock   MovementType = "add_stock"
	MovementReturn     MovementType = "return"
	MovementAdjustment MovementType = "adjustment"
	MovementWastage    MovementType = "wastage"
)

// ValidQuantity applies the sign rule of each movement type.
func (t MovementType) ValidQuantity(q int) bool {
	switch t {
	case MovementAddStock, MovementReturn:
		return q > 0
	case MovementWastage:
		return q < 0
	case MovementAdjustment:
		return q != 0
	default:
		return false
	}
}

// StockMovement is an append-only, signed change to a product's stock that is not a sale.
type StockMovement struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	ProductID uuid.UUID    `gorm:"type:varchar(36);not null;index" json:"product_id"`
	Type      MovementType `gorm:"type:varchar(20);not null" json:"type"`
	Quantity  int          `gorm:"not null" json:"quantity"`
	Reason    *string      `gorm:"type:text" json:"reason,omitempty"`
	UserID    string       `gorm:"type:varchar(255);not null;index" json:"user_id"`
	CreatedAt time.Time    `gorm:"index" json:"created_at"`
}
