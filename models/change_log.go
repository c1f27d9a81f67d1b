package models

import "time"

// ChangeLog is the server-side change feed. Rows are written by the GORM
// change recorder on every create/update/delete of a synced entity and
// drained by the change monitor to drive realtime notifications.
type ChangeLog struct {
	ID         uint      `gorm:"primaryKey"`
	CompanyID  string    `gorm:"type:varchar(36);not null;index"`
	Entity     string    `gorm:"type:varchar(50);not null;index:idx_entity_action"`
	RecordID   string    `gorm:"type:varchar(36);not null"`
	ActionType string    `gorm:"type:varchar(10);not null;index:idx_entity_action"`
	ChangedAt  time.Time `gorm:"not null"`
	Processed  bool      `gorm:"default:false;index:idx_processed"`
}
