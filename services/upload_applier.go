package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Monynha-Softwares/botecopro-sync/models"
	"github.com/Monynha-Softwares/botecopro-sync/syncclient"
)

// uploadApplier applies one upload batch row by row inside a transaction.
// Accepted rows are stamped with the server clock; clients propose rows but
// never dictate the watermark, so accepted changes always surface in later
// downloads.
type uploadApplier struct {
	tx        *gorm.DB
	companyID string
	resp      *syncclient.UploadResponse
	err       error
}

func (a *uploadApplier) accept(collection, id string) {
	a.resp.Accepted[collection] = append(a.resp.Accepted[collection], id)
}

func (a *uploadApplier) reject(collection, id, reason string) {
	a.resp.Rejected[collection] = append(a.resp.Rejected[collection], syncclient.RejectedItem{
		ID:     id,
		Reason: reason,
	})
}

func (a *uploadApplier) rejectStale(collection, id string, serverUpdatedAt time.Time) {
	at := serverUpdatedAt
	a.resp.Rejected[collection] = append(a.resp.Rejected[collection], syncclient.RejectedItem{
		ID:              id,
		Reason:          syncclient.ReasonStaleVersion,
		ServerUpdatedAt: &at,
	})
}

func (a *uploadApplier) addError(entity, id, message string) {
	a.resp.Errors = append(a.resp.Errors, syncclient.UploadError{
		Entity:  entity,
		ID:      id,
		Message: message,
	})
}

// persist writes the row. New rows are created, known rows fully updated;
// Save alone cannot be used because it never inserts a struct that already
// carries its primary key.
func (a *uploadApplier) persist(exists bool, row interface{}) bool {
	if exists {
		a.err = a.tx.Save(row).Error
	} else {
		a.err = a.tx.Create(row).Error
	}
	return a.err == nil
}

// lookup fills dest and reports whether the row exists. The lookup is by id
// alone; callers must verify the stored row's tenant before comparing
// versions, otherwise an id claimed under the wrong company would be
// reparented. Any error other than not-found aborts the batch.
func (a *uploadApplier) lookup(dest interface{}, id string) (bool, bool) {
	err := a.tx.Where("id = ?", id).First(dest).Error
	switch {
	case err == nil:
		return true, true
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, true
	default:
		a.err = err
		return false, false
	}
}

func (a *uploadApplier) applyTable(row *models.Table) {
	if a.err != nil {
		return
	}
	if row.ID == "" {
		a.addError(syncclient.CollectionTables, "", "missing id")
		return
	}
	if row.CompanyID != a.companyID {
		a.reject(syncclient.CollectionTables, row.ID, syncclient.ReasonWrongTenant)
		return
	}

	var existing models.Table
	exists, ok := a.lookup(&existing, row.ID)
	if !ok {
		return
	}
	if exists && existing.CompanyID != a.companyID {
		a.reject(syncclient.CollectionTables, row.ID, syncclient.ReasonWrongTenant)
		return
	}
	if exists && existing.UpdatedAt.After(row.UpdatedAt) {
		a.rejectStale(syncclient.CollectionTables, row.ID, existing.UpdatedAt)
		return
	}

	row.UpdatedAt = time.Now().UTC()
	if a.persist(exists, row) {
		a.accept(syncclient.CollectionTables, row.ID)
	}
}

func (a *uploadApplier) applyProduct(row *models.Product) {
	if a.err != nil {
		return
	}
	if row.ID == "" {
		a.addError(syncclient.CollectionProducts, "", "missing id")
		return
	}
	if row.CompanyID != a.companyID {
		a.reject(syncclient.CollectionProducts, row.ID, syncclient.ReasonWrongTenant)
		return
	}

	var existing models.Product
	exists, ok := a.lookup(&existing, row.ID)
	if !ok {
		return
	}
	if exists && existing.CompanyID != a.companyID {
		a.reject(syncclient.CollectionProducts, row.ID, syncclient.ReasonWrongTenant)
		return
	}
	if exists && existing.UpdatedAt.After(row.UpdatedAt) {
		a.rejectStale(syncclient.CollectionProducts, row.ID, existing.UpdatedAt)
		return
	}

	row.UpdatedAt = time.Now().UTC()
	if a.persist(exists, row) {
		a.accept(syncclient.CollectionProducts, row.ID)
	}
}

func (a *uploadApplier) applyOrder(row *models.Order) {
	if a.err != nil {
		return
	}
	if row.ID == "" {
		a.addError(syncclient.CollectionOrders, "", "missing id")
		return
	}
	if row.CompanyID != a.companyID {
		a.reject(syncclient.CollectionOrders, row.ID, syncclient.ReasonWrongTenant)
		return
	}

	var existing models.Order
	exists, ok := a.lookup(&existing, row.ID)
	if !ok {
		return
	}
	if exists {
		if existing.CompanyID != a.companyID {
			a.reject(syncclient.CollectionOrders, row.ID, syncclient.ReasonWrongTenant)
			return
		}
		if existing.UpdatedAt.After(row.UpdatedAt) {
			a.rejectStale(syncclient.CollectionOrders, row.ID, existing.UpdatedAt)
			return
		}
		// Creation time is immutable across updates.
		row.CreatedAt = existing.CreatedAt
	} else if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	row.UpdatedAt = time.Now().UTC()
	if a.persist(exists, row) {
		a.accept(syncclient.CollectionOrders, row.ID)
	}
}

// applyOrderItem additionally verifies that order_id resolves to an order of
// the uploading company; item rows carry no company column of their own.
func (a *uploadApplier) applyOrderItem(row *models.OrderItem) {
	if a.err != nil {
		return
	}
	if row.ID == "" {
		a.addError(syncclient.CollectionOrderItems, "", "missing id")
		return
	}
	if !a.orderExists(row.OrderID) {
		if a.err == nil {
			a.reject(syncclient.CollectionOrderItems, row.ID, syncclient.ReasonMissingOrder)
		}
		return
	}

	var existing models.OrderItem
	exists, ok := a.lookup(&existing, row.ID)
	if !ok {
		return
	}
	// A stored item whose parent order belongs to another company must not be
	// reparented onto one of ours.
	if exists && !a.orderExists(existing.OrderID) {
		if a.err == nil {
			a.reject(syncclient.CollectionOrderItems, row.ID, syncclient.ReasonWrongTenant)
		}
		return
	}
	if exists && existing.UpdatedAt.After(row.UpdatedAt) {
		a.rejectStale(syncclient.CollectionOrderItems, row.ID, existing.UpdatedAt)
		return
	}

	row.UpdatedAt = time.Now().UTC()
	if a.persist(exists, row) {
		a.accept(syncclient.CollectionOrderItems, row.ID)
	}
}

func (a *uploadApplier) applySale(row *models.Sale) {
	if a.err != nil {
		return
	}
	if row.ID == "" {
		a.addError(syncclient.CollectionSales, "", "missing id")
		return
	}
	if row.CompanyID != a.companyID {
		a.reject(syncclient.CollectionSales, row.ID, syncclient.ReasonWrongTenant)
		return
	}
	if !a.orderExists(row.OrderID) {
		if a.err == nil {
			a.reject(syncclient.CollectionSales, row.ID, syncclient.ReasonMissingOrder)
		}
		return
	}

	var existing models.Sale
	exists, ok := a.lookup(&existing, row.ID)
	if !ok {
		return
	}
	if exists && existing.CompanyID != a.companyID {
		a.reject(syncclient.CollectionSales, row.ID, syncclient.ReasonWrongTenant)
		return
	}
	if exists && existing.UpdatedAt.After(row.UpdatedAt) {
		a.rejectStale(syncclient.CollectionSales, row.ID, existing.UpdatedAt)
		return
	}

	row.UpdatedAt = time.Now().UTC()
	if a.persist(exists, row) {
		a.accept(syncclient.CollectionSales, row.ID)
	}
}

// applyStockMovement only ever creates. Movements are append-only, so a
// resubmitted id is rejected instead of overwritten.
func (a *uploadApplier) applyStockMovement(row *models.StockMovement) {
	if a.err != nil {
		return
	}
	if row.ID == "" {
		a.addError(syncclient.CollectionStockMovements, "", "missing id")
		return
	}
	if row.CompanyID != a.companyID {
		a.reject(syncclient.CollectionStockMovements, row.ID, syncclient.ReasonWrongTenant)
		return
	}

	var existing models.StockMovement
	exists, ok := a.lookup(&existing, row.ID)
	if !ok {
		return
	}
	if exists {
		if existing.CompanyID != a.companyID {
			a.reject(syncclient.CollectionStockMovements, row.ID, syncclient.ReasonWrongTenant)
		} else {
			a.reject(syncclient.CollectionStockMovements, row.ID, syncclient.ReasonImmutable)
		}
		return
	}

	row.CreatedAt = time.Now().UTC()
	if a.persist(false, row) {
		a.accept(syncclient.CollectionStockMovements, row.ID)
	}
}

func (a *uploadApplier) orderExists(orderID string) bool {
	if orderID == "" {
		return false
	}
	var count int64
	if err := a.tx.Model(&models.Order{}).
		Where("id = ? AND company_id = ?", orderID, a.companyID).
		Count(&count).Error; err != nil {
		a.err = err
		return false
	}
	return count > 0
}
