package database

import (
	"time"

	"gorm.io/gorm"

	"github.com/Monynha-Softwares/botecopro-sync/models"
)

// RegisterChangeRecorder installs GORM callbacks that append a ChangeLog row
// after every create, update, or delete of a synced entity. This replaces
// database triggers so change capture works on both MySQL and SQLite.
func RegisterChangeRecorder(db *gorm.DB) error {
	if err := db.Callback().Create().After("gorm:create").Register("botecopro:change_create", recordFn("INSERT")); err != nil {
		return err
	}
	if err := db.Callback().Update().After("gorm:update").Register("botecopro:change_update", recordFn("UPDATE")); err != nil {
		return err
	}
	return db.Callback().Delete().After("gorm:delete").Register("botecopro:change_delete", recordFn("DELETE"))
}

func recordFn(action string) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		if tx.Error != nil || tx.Statement.Schema == nil {
			return
		}

		entity, recordID, companyID := describe(tx.Statement.Model)
		if entity == "" || recordID == "" {
			return
		}

		change := models.ChangeLog{
			CompanyID:  companyID,
			Entity:     entity,
			RecordID:   recordID,
			ActionType: action,
			ChangedAt:  time.Now().UTC(),
		}
		// Session without callbacks, otherwise recording would recurse.
		tx.Session(&gorm.Session{NewDB: true, SkipHooks: true}).
			Model(&models.ChangeLog{}).Create(&change)
	}
}

func describe(model interface{}) (entity, recordID, companyID string) {
	switch m := model.(type) {
	case *models.Table:
		return "tables", m.ID, m.CompanyID
	case *models.Product:
		return "products", m.ID, m.CompanyID
	case *models.Order:
		return "orders", m.ID, m.CompanyID
	case *models.OrderItem:
		return "order_items", m.ID, ""
	case *models.Sale:
		return "sales", m.ID, m.CompanyID
	case *models.StockMovement:
		return "stock_movements", m.ID, m.CompanyID
	}
	return "", "", ""
}
