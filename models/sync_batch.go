package models

import "time"

// SyncBatch records an upload batch id that was already applied, together
// with the JSON response that was returned. A duplicate batch id replays the
// stored response instead of re-applying the batch, which makes upload safe
// to retry after a timeout.
type SyncBatch struct {
	ID          uint      `gorm:"primaryKey"`
	BatchID     string    `gorm:"type:varchar(36);uniqueIndex;not null"`
	CompanyID   string    `gorm:"type:varchar(36);not null;index"`
	Response    string    `gorm:"type:text;not null"`
	ProcessedAt time.Time `gorm:"not null"`
}
