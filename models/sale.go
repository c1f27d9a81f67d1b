package models

import "time"

type Sale struct {
	ID            string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CompanyID     string    `gorm:"type:varchar(36);not null;index" json:"company_id"`
	OrderID       string    `gorm:"type:varchar(36);not null;index" json:"order_id"`
	Total         float64   `gorm:"type:decimal(10,2);not null" json:"total"`
	PaymentMethod string    `gorm:"type:varchar(50);not null" json:"payment_method"`
	UpdatedAt     time.Time `gorm:"not null;index" json:"updated_at"`
}
