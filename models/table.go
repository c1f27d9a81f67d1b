package models

import "time"

type TableStatus string

const (
	TableAvailable   TableStatus = "available"
	TableOccupied    TableStatus = "occupied"
	TableReserved    TableStatus = "reserved"
	TableMaintenance TableStatus = "maintenance"
)

// KnownTableStatuses lists the values advertised by /sync/meta. Status stays
// a string type so values added server-side later still decode on old clients.
func KnownTableStatuses() []string {
	return []string{
		string(TableAvailable),
		string(TableOccupied),
		string(TableReserved),
		string(TableMaintenance),
	}
}

func (s TableStatus) Known() bool {
	switch s {
	case TableAvailable, TableOccupied, TableReserved, TableMaintenance:
		return true
	}
	return false
}

type Table struct {
	ID        string      `gorm:"type:varchar(36);primaryKey" json:"id"`
	CompanyID string      `gorm:"type:varchar(36);not null;index" json:"company_id"`
	Name      string      `gorm:"type:varchar(255);not null" json:"name"`
	Number    *int        `json:"number,omitempty"`
	Status    TableStatus `gorm:"type:varchar(50);not null;default:'available'" json:"status"`
	Capacity  *int        `json:"capacity,omitempty"`
	UpdatedAt time.Time   `gorm:"not null;index" json:"updated_at"`
}
