package syncengine

import (
	"errors"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Monynha-Softwares/botecopro-sync/models"
	"github.com/Monynha-Softwares/botecopro-sync/syncclient"
)

// syncCheckpoint persists the opaque server cursor per company.
type syncCheckpoint struct {
	CompanyID  string `gorm:"type:varchar(36);primaryKey"`
	Checkpoint string `gorm:"type:varchar(64);not null"`
	UpdatedAt  time.Time
}

func (syncCheckpoint) TableName() string { return "sync_checkpoints" }

// pendingChange marks a locally edited row that still has to be uploaded.
// One row per (collection, record); re-editing before a sync just keeps the
// existing mark.
type pendingChange struct {
	ID         uint   `gorm:"primaryKey"`
	Collection string `gorm:"type:varchar(50);not null;uniqueIndex:idx_pending_row,priority:1"`
	RecordID   string `gorm:"type:varchar(36);not null;uniqueIndex:idx_pending_row,priority:2"`
	EnqueuedAt time.Time
}

func (pendingChange) TableName() string { return "sync_pending_changes" }

// Store is the engine's local database: entity tables mirroring the server
// schema, the checkpoint, and the pending-change outbox.
type Store struct {
	DB *gorm.DB
}

// OpenStore opens (or creates) a local SQLite store. Use ":memory:" in tests.
func OpenStore(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&models.Table{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.Sale{},
		&models.StockMovement{},
		&syncCheckpoint{},
		&pendingChange{},
	)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Checkpoint returns the persisted cursor for a company, zero when the next
// download must be a full sync.
func (s *Store) Checkpoint(companyID string) (syncclient.Checkpoint, error) {
	var row syncCheckpoint
	err := s.DB.Where("company_id = ?", companyID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return syncclient.Checkpoint(row.Checkpoint), nil
}

// SetCheckpoint stores the cursor verbatim.
func (s *Store) SetCheckpoint(companyID string, cp syncclient.Checkpoint) error {
	row := syncCheckpoint{CompanyID: companyID, Checkpoint: cp.String(), UpdatedAt: time.Now()}
	var existing syncCheckpoint
	err := s.DB.Where("company_id = ?", companyID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.DB.Create(&row).Error
	}
	if err != nil {
		return err
	}
	return s.DB.Model(&syncCheckpoint{}).
		Where("company_id = ?", companyID).
		Updates(map[string]interface{}{"checkpoint": cp.String(), "updated_at": row.UpdatedAt}).Error
}

// MarkDirty queues a local row for the next upload.
func (s *Store) MarkDirty(collection, recordID string) error {
	var count int64
	if err := s.DB.Model(&pendingChange{}).
		Where("collection = ? AND record_id = ?", collection, recordID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return s.DB.Create(&pendingChange{
		Collection: collection,
		RecordID:   recordID,
		EnqueuedAt: time.Now(),
	}).Error
}

// ClearDirty removes the upload mark from a row.
func (s *Store) ClearDirty(collection, recordID string) error {
	return s.DB.Where("collection = ? AND record_id = ?", collection, recordID).
		Delete(&pendingChange{}).Error
}

func (s *Store) isDirty(collection, recordID string) bool {
	var count int64
	s.DB.Model(&pendingChange{}).
		Where("collection = ? AND record_id = ?", collection, recordID).
		Count(&count)
	return count > 0
}

// PendingCount reports how many local rows await upload.
func (s *Store) PendingCount() (int, error) {
	var count int64
	err := s.DB.Model(&pendingChange{}).Count(&count).Error
	return int(count), err
}

// takePending returns up to limit queued marks, oldest first.
func (s *Store) takePending(limit int) ([]pendingChange, error) {
	var pending []pendingChange
	err := s.DB.Order("enqueued_at ASC, id ASC").Limit(limit).Find(&pending).Error
	return pending, err
}

// buildBatch loads the current local state of queued rows into upload
// collections. Marks whose row vanished locally are dropped.
func (s *Store) buildBatch(pending []pendingChange) (*syncclient.Collections, error) {
	batch := &syncclient.Collections{}
	for _, p := range pending {
		switch p.Collection {
		case syncclient.CollectionTables:
			var row models.Table
			if err := s.DB.Where("id = ?", p.RecordID).First(&row).Error; err == nil {
				batch.Tables = append(batch.Tables, row)
			}
		case syncclient.CollectionProducts:
			var row models.Product
			if err := s.DB.Where("id = ?", p.RecordID).First(&row).Error; err == nil {
				batch.Products = append(batch.Products, row)
			}
		case syncclient.CollectionOrders:
			var row models.Order
			if err := s.DB.Where("id = ?", p.RecordID).First(&row).Error; err == nil {
				batch.Orders = append(batch.Orders, row)
			}
		case syncclient.CollectionOrderItems:
			var row models.OrderItem
			if err := s.DB.Where("id = ?", p.RecordID).First(&row).Error; err == nil {
				batch.OrderItems = append(batch.OrderItems, row)
			}
		case syncclient.CollectionSales:
			var row models.Sale
			if err := s.DB.Where("id = ?", p.RecordID).First(&row).Error; err == nil {
				batch.Sales = append(batch.Sales, row)
			}
		case syncclient.CollectionStockMovements:
			var row models.StockMovement
			if err := s.DB.Where("id = ?", p.RecordID).First(&row).Error; err == nil {
				batch.StockMovements = append(batch.StockMovements, row)
			}
		}
	}
	return batch, nil
}

// applyDownload upserts downloaded rows into the local tables. Rows with a
// pending local edit are skipped: the local version rides until the next
// upload, where the server either accepts it or rejects it as stale.
func (s *Store) applyDownload(resp *syncclient.DownloadResponse) (applied int, err error) {
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		for i := range resp.Tables {
			row := resp.Tables[i]
			if s.isDirty(syncclient.CollectionTables, row.ID) {
				continue
			}
			if err := upsert(tx, &models.Table{}, row.ID, &row); err != nil {
				return err
			}
			applied++
		}
		for i := range resp.Products {
			row := resp.Products[i]
			if s.isDirty(syncclient.CollectionProducts, row.ID) {
				continue
			}
			if err := upsert(tx, &models.Product{}, row.ID, &row); err != nil {
				return err
			}
			applied++
		}
		for i := range resp.Orders {
			row := resp.Orders[i]
			if s.isDirty(syncclient.CollectionOrders, row.ID) {
				continue
			}
			if err := upsert(tx, &models.Order{}, row.ID, &row); err != nil {
				return err
			}
			applied++
		}
		for i := range resp.OrderItems {
			row := resp.OrderItems[i]
			if s.isDirty(syncclient.CollectionOrderItems, row.ID) {
				continue
			}
			if err := upsert(tx, &models.OrderItem{}, row.ID, &row); err != nil {
				return err
			}
			applied++
		}
		for i := range resp.Sales {
			row := resp.Sales[i]
			if s.isDirty(syncclient.CollectionSales, row.ID) {
				continue
			}
			if err := upsert(tx, &models.Sale{}, row.ID, &row); err != nil {
				return err
			}
			applied++
		}
		for i := range resp.StockMovements {
			row := resp.StockMovements[i]
			if s.isDirty(syncclient.CollectionStockMovements, row.ID) {
				continue
			}
			if err := upsert(tx, &models.StockMovement{}, row.ID, &row); err != nil {
				return err
			}
			applied++
		}
		return nil
	})
	return applied, err
}

// upsert writes a downloaded row exactly as the server sent it.
// UpdateColumns (not Updates) keeps GORM from re-stamping the server
// watermark with the local clock.
func upsert(tx *gorm.DB, model interface{}, id string, row interface{}) error {
	session := tx.Session(&gorm.Session{SkipHooks: true})

	var count int64
	if err := session.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return session.Model(model).Where("id = ?", id).
			Select("*").UpdateColumns(row).Error
	}
	return session.Create(row).Error
}
