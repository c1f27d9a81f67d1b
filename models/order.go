package models

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderDelivered OrderStatus = "delivered"
	OrderCanceled  OrderStatus = "canceled"
)

func KnownOrderStatuses() []string {
	return []string{
		string(OrderPending),
		string(OrderPreparing),
		string(OrderReady),
		string(OrderDelivered),
		string(OrderCanceled),
	}
}

func (s OrderStatus) Known() bool {
	switch s {
	case OrderPending, OrderPreparing, OrderReady, OrderDelivered, OrderCanceled:
		return true
	}
	return false
}

type Order struct {
	ID        string      `gorm:"type:varchar(36);primaryKey" json:"id"`
	CompanyID string      `gorm:"type:varchar(36);not null;index" json:"company_id"`
	TableID   string      `gorm:"type:varchar(36);not null;index" json:"table_id"`
	Status    OrderStatus `gorm:"type:varchar(50);not null;default:'pending'" json:"status"`
	CreatedAt time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time   `gorm:"not null;index" json:"updated_at"`
}
