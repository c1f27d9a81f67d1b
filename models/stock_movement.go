package models

import "time"

// StockMovement is append-only: rows are created once and never updated, so
// created_at doubles as the sync watermark.
type StockMovement struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CompanyID    string    `gorm:"type:varchar(36);not null;index" json:"company_id"`
	ProductID    string    `gorm:"type:varchar(36);not null;index" json:"product_id"`
	MovementType string    `gorm:"type:varchar(50);not null" json:"movement_type"`
	Quantity     int       `gorm:"not null" json:"quantity"`
	CreatedAt    time.Time `gorm:"not null;index" json:"created_at"`
}
