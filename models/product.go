package models

import "time"

type ProductCategory string

const (
	CategoryDrink ProductCategory = "drink"
	CategoryFood  ProductCategory = "food"
	CategoryOther ProductCategory = "other"
)

func KnownProductCategories() []string {
	return []string{
		string(CategoryDrink),
		string(CategoryFood),
		string(CategoryOther),
	}
}

func (c ProductCategory) Known() bool {
	switch c {
	case CategoryDrink, CategoryFood, CategoryOther:
		return true
	}
	return false
}

type Product struct {
	ID        string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	CompanyID string          `gorm:"type:varchar(36);not null;index" json:"company_id"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	Category  ProductCategory `gorm:"type:varchar(50);not null;default:'other'" json:"category"`
	Price     float64         `gorm:"type:decimal(10,2);not null" json:"price"`
	Stock     *int            `json:"stock,omitempty"`
	MinStock  *int            `json:"min_stock,omitempty"`
	UpdatedAt time.Time       `gorm:"not null;index" json:"updated_at"`
}
