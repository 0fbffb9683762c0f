package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SalesOrder struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UserID        string          `gorm:"type:varchar(255);not null;index" json:"user_id"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	PaymentMethod *string         `gorm:"type:varchar(20)" json:"payment_method,omitempty"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	Items         []SalesItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE;" json:"items"`
}

// SalesItem snapshots the unit price at the time of sale.
type SalesItem struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	OrderID          uint            `gorm:"not null;index" json:"order_id"`
	ProductID        uuid.UUID       `gorm:"type:varchar(36);not null;index" json:"product_id"`
	Quantity         int             `gorm:"not null" json:"quantity"`
	UnitSellingPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_selling_price"`
	LineTotal        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"line_total"`
	CreatedAt        time.Time       `json:"created_at"`
}
