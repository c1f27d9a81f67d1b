package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/Monynha-Softwares/botecopro-sync/models"
	"github.com/Monynha-Softwares/botecopro-sync/realtime"
	"github.com/Monynha-Softwares/botecopro-sync/utils"
)

// ChangeMonitor drains the change log and pushes realtime notifications to
// dashboard clients. The change log rows themselves are written by the GORM
// change recorder in the database package.
type ChangeMonitor struct {
	DB       *gorm.DB
	StopChan chan struct{}
	Interval time.Duration
}

func NewChangeMonitor(db *gorm.DB) *ChangeMonitor {
	return &ChangeMonitor{
		DB:       db,
		StopChan: make(chan struct{}),
		Interval: 1 * time.Second,
	}
}

func (cm *ChangeMonitor) Start() {
	go func() {
		ticker := time.NewTicker(cm.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				cm.checkChanges()
			case <-cm.StopChan:
				return
			}
		}
	}()
}

func (cm *ChangeMonitor) Stop() {
	close(cm.StopChan)
}

func (cm *ChangeMonitor) checkChanges() {
	var changes []models.ChangeLog

	if err := cm.DB.Where("processed = ?", false).
		Order("changed_at ASC").
		Limit(100).
		Find(&changes).Error; err != nil {
		utils.ErrorLogger.Printf("Error fetching changes: %v", err)
		return
	}
	if len(changes) == 0 {
		return
	}

	for _, change := range changes {
		realtime.BroadcastEntityChange(change.CompanyID, change.Entity, change.ActionType, change.RecordID)
	}

	ids := make([]uint, 0, len(changes))
	for _, change := range changes {
		ids = append(ids, change.ID)
	}
	if err := cm.DB.Model(&models.ChangeLog{}).
		Where("id IN ?", ids).
		Update("processed", true).Error; err != nil {
		utils.ErrorLogger.Printf("Error marking changes as processed: %v", err)
	}
}
