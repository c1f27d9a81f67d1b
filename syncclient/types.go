// Package syncclient defines the BotecoPro delta-sync wire contract and an
// HTTP client for its three operations: meta, download, and upload. The
// server handlers reuse the same types so both ends of the protocol share
// one contract.
package syncclient

import (
	"time"

	"github.com/Monynha-Softwares/botecopro-sync/models"
)

// Collection names as they appear in upload/download payloads and in the
// accepted/rejected maps of an upload response.
const (
	CollectionTables         = "tables"
	CollectionProducts       = "products"
	CollectionOrders         = "orders"
	CollectionOrderItems     = "order_items"
	CollectionSales          = "sales"
	CollectionStockMovements = "stock_movements"
)

// CollectionNames returns every collection in wire order. The order is part
// of the contract: checksums and download truncation are computed over it.
func CollectionNames() []string {
	return []string{
		CollectionTables,
		CollectionProducts,
		CollectionOrders,
		CollectionOrderItems,
		CollectionSales,
		CollectionStockMovements,
	}
}

// Rejection reasons produced by the upload operation.
const (
	ReasonStaleVersion = "stale_version"
	ReasonImmutable    = "immutable"
	ReasonMissingOrder = "missing_order"
	ReasonWrongTenant  = "wrong_tenant"
)

// MetaResponse advertises server capabilities: the enum values known to the
// server (clients treat anything else as a forward-compatible unknown), the
// upload batch cap, and the server clock for skew detection.
type MetaResponse struct {
	TableStatus     []string  `json:"tableStatus"`
	ProductCategory []string  `json:"productCategory"`
	OrderStatus     []string  `json:"orderStatus"`
	MaxBatch        int       `json:"maxBatch"`
	SupportsDelta   bool      `json:"supportsDelta"`
	ServerTime      time.Time `json:"serverTime"`
}

// Collections carries the per-entity row arrays shared by download responses
// and upload requests. Absent collections are omitted from the JSON.
type Collections struct {
	Tables         []models.Table         `json:"tables,omitempty"`
	Products       []models.Product       `json:"products,omitempty"`
	Orders         []models.Order         `json:"orders,omitempty"`
	OrderItems     []models.OrderItem     `json:"order_items,omitempty"`
	Sales          []models.Sale          `json:"sales,omitempty"`
	StockMovements []models.StockMovement `json:"stock_movements,omitempty"`
}

// Count returns the total number of rows across all collections.
func (c *Collections) Count() int {
	return len(c.Tables) + len(c.Products) + len(c.Orders) +
		len(c.OrderItems) + len(c.Sales) + len(c.StockMovements)
}

// Empty reports whether no collection holds any row. An empty download
// response is the authoritative "caught up" signal.
func (c *Collections) Empty() bool {
	return c.Count() == 0
}

// DownloadResponse is one page of changes since the requested checkpoint.
type DownloadResponse struct {
	Since     Checkpoint `json:"since,omitempty"`
	NextSince Checkpoint `json:"nextSince"`
	Collections
	Checksum string `json:"checksum,omitempty"`
}

// UploadRequest pushes locally changed rows. BatchID identifies the batch
// across retries: the server applies a given batch id at most once and
// replays the stored response on duplicates.
type UploadRequest struct {
	CompanyID  string    `json:"company_id"`
	ClientTime time.Time `json:"clientTime"`
	BatchID    string    `json:"batchId,omitempty"`
	Collections
}

// RejectedItem explains why the server refused one uploaded row.
// ServerUpdatedAt carries the winning version's watermark when the reason is
// a version conflict.
type RejectedItem struct {
	ID              string     `json:"id"`
	Reason          string     `json:"reason"`
	ServerUpdatedAt *time.Time `json:"server_updated_at,omitempty"`
}

type UploadError struct {
	Entity  string `json:"entity,omitempty"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// UploadResponse partitions every submitted row id into accepted or
// rejected, per collection. ServerSince is the new baseline checkpoint to
// persist for the next download.
type UploadResponse struct {
	Accepted    map[string][]string       `json:"accepted"`
	Rejected    map[string][]RejectedItem `json:"rejected"`
	Errors      []UploadError             `json:"errors,omitempty"`
	ServerSince Checkpoint                `json:"serverSince"`
}
