package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// DefaultCategories are inserted at startup when missing.
var DefaultCategories = []string{
	"Snacks",
	"Drinks",
	"Canned Goods",
	"Toiletries",
	"Rice & Grains",
	"Baby Needs",
	"Frozen Items",
	"E-Load",
}

// Category is shared by every owner. NameKey enforces case-insensitive uniqueness.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	NameKey   string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryKey normalizes a name for uniqueness comparison.
func CategoryKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (c *Category) BeforeSave(tx *gorm.DB) error {
	c.Name = strings.TrimSpace(c.Name)
	c.NameKey = CategoryKey(c.Name)
	return nil
}
