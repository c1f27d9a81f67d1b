package models

import "time"

// OrderItem has no company column of its own; tenancy follows the parent
// order. Upload validation resolves order_id before accepting an item.
type OrderItem struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrderID   string    `gorm:"type:varchar(36);not null;index" json:"order_id"`
	ProductID string    `gorm:"type:varchar(36);not null;index" json:"product_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	Price     float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}
