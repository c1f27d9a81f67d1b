package models

import "time"

// Company is the multi-tenancy boundary. Every synced entity belongs to
// exactly one company; cross-company references are invalid.
type Company struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
