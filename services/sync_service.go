package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Monynha-Softwares/botecopro-sync/models"
	"github.com/Monynha-Softwares/botecopro-sync/syncclient"
	"github.com/Monynha-Softwares/botecopro-sync/utils"
)

var (
	ErrBadCheckpoint = errors.New("invalid since checkpoint")
	ErrBatchTooLarge = errors.New("upload batch exceeds maxBatch")
)

// Checkpoints are RFC3339Nano timestamps, but only the server knows that.
// Clients treat them as opaque strings.
const watermarkLayout = time.RFC3339Nano

// SyncService implements the server side of the delta-sync protocol:
// capability metadata, watermark-based downloads, and last-write-wins upload
// application with per-row rejection.
type SyncService struct {
	DB       *gorm.DB
	MaxBatch int
}

func NewSyncService(db *gorm.DB, maxBatch int) *SyncService {
	return &SyncService{DB: db, MaxBatch: maxBatch}
}

func (s *SyncService) BuildMeta() *syncclient.MetaResponse {
	return &syncclient.MetaResponse{
		TableStatus:     models.KnownTableStatuses(),
		ProductCategory: models.KnownProductCategories(),
		OrderStatus:     models.KnownOrderStatuses(),
		MaxBatch:        s.MaxBatch,
		SupportsDelta:   true,
		ServerTime:      time.Now().UTC(),
	}
}

// Download collects rows changed since the given checkpoint, at most limit
// rows per collection. When every collection is empty the response echoes
// the request checkpoint, which is the caught-up signal.
func (s *SyncService) Download(companyID string, since string, limit int) (*syncclient.DownloadResponse, error) {
	var watermark time.Time
	if since != "" {
		parsed, err := time.Parse(watermarkLayout, since)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadCheckpoint, since)
		}
		watermark = parsed
	}

	if limit <= 0 || limit > s.MaxBatch {
		limit = s.MaxBatch
	}

	resp := &syncclient.DownloadResponse{Since: syncclient.Checkpoint(since)}

	// A truncated collection is extended with every remaining row sharing
	// the boundary watermark. The next page resumes strictly after that
	// watermark, so rows tied at the cut would otherwise never be delivered.
	if err := s.DB.Where("company_id = ? AND updated_at > ?", companyID, watermark).
		Order("updated_at ASC, id ASC").Limit(limit).Find(&resp.Tables).Error; err != nil {
		return nil, err
	}
	if n := len(resp.Tables); n == limit {
		var tail []models.Table
		last := resp.Tables[n-1]
		if err := s.DB.Where("company_id = ? AND updated_at = ? AND id > ?",
			companyID, last.UpdatedAt, last.ID).
			Order("id ASC").Find(&tail).Error; err != nil {
			return nil, err
		}
		resp.Tables = append(resp.Tables, tail...)
	}
	if err := s.DB.Where("company_id = ? AND updated_at > ?", companyID, watermark).
		Order("updated_at ASC, id ASC").Limit(limit).Find(&resp.Products).Error; err != nil {
		return nil, err
	}
	if n := len(resp.Products); n == limit {
		var tail []models.Product
		last := resp.Products[n-1]
		if err := s.DB.Where("company_id = ? AND updated_at = ? AND id > ?",
			companyID, last.UpdatedAt, last.ID).
			Order("id ASC").Find(&tail).Error; err != nil {
			return nil, err
		}
		resp.Products = append(resp.Products, tail...)
	}
	if err := s.DB.Where("company_id = ? AND updated_at > ?", companyID, watermark).
		Order("updated_at ASC, id ASC").Limit(limit).Find(&resp.Orders).Error; err != nil {
		return nil, err
	}
	if n := len(resp.Orders); n == limit {
		var tail []models.Order
		last := resp.Orders[n-1]
		if err := s.DB.Where("company_id = ? AND updated_at = ? AND id > ?",
			companyID, last.UpdatedAt, last.ID).
			Order("id ASC").Find(&tail).Error; err != nil {
			return nil, err
		}
		resp.Orders = append(resp.Orders, tail...)
	}
	if err := s.DB.
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.company_id = ? AND order_items.updated_at > ?", companyID, watermark).
		Order("order_items.updated_at ASC, order_items.id ASC").Limit(limit).
		Find(&resp.OrderItems).Error; err != nil {
		return nil, err
	}
	if n := len(resp.OrderItems); n == limit {
		var tail []models.OrderItem
		last := resp.OrderItems[n-1]
		if err := s.DB.
			Joins("JOIN orders ON orders.id = order_items.order_id").
			Where("orders.company_id = ? AND order_items.updated_at = ? AND order_items.id > ?",
				companyID, last.UpdatedAt, last.ID).
			Order("order_items.id ASC").Find(&tail).Error; err != nil {
			return nil, err
		}
		resp.OrderItems = append(resp.OrderItems, tail...)
	}
	if err := s.DB.Where("company_id = ? AND updated_at > ?", companyID, watermark).
		Order("updated_at ASC, id ASC").Limit(limit).Find(&resp.Sales).Error; err != nil {
		return nil, err
	}
	if n := len(resp.Sales); n == limit {
		var tail []models.Sale
		last := resp.Sales[n-1]
		if err := s.DB.Where("company_id = ? AND updated_at = ? AND id > ?",
			companyID, last.UpdatedAt, last.ID).
			Order("id ASC").Find(&tail).Error; err != nil {
			return nil, err
		}
		resp.Sales = append(resp.Sales, tail...)
	}
	if err := s.DB.Where("company_id = ? AND created_at > ?", companyID, watermark).
		Order("created_at ASC, id ASC").Limit(limit).Find(&resp.StockMovements).Error; err != nil {
		return nil, err
	}
	if n := len(resp.StockMovements); n == limit {
		var tail []models.StockMovement
		last := resp.StockMovements[n-1]
		if err := s.DB.Where("company_id = ? AND created_at = ? AND id > ?",
			companyID, last.CreatedAt, last.ID).
			Order("id ASC").Find(&tail).Error; err != nil {
			return nil, err
		}
		resp.StockMovements = append(resp.StockMovements, tail...)
	}

	resp.NextSince = syncclient.Checkpoint(s.nextSince(resp, since, limit))
	if !resp.Empty() {
		resp.Checksum = syncclient.Checksum(&resp.Collections)
	}
	return resp, nil
}

// nextSince advances the checkpoint to the newest delivered watermark. When
// a collection hit the page limit the checkpoint is clamped to that
// collection's last row; the truncated page already carried every row at the
// clamp watermark, so the next page's strict > filter skips nothing. Rows
// from other collections past the clamp are re-delivered, and applying a row
// twice is harmless under last-write-wins.
func (s *SyncService) nextSince(resp *syncclient.DownloadResponse, since string, limit int) string {
	if resp.Empty() {
		return since
	}

	var newest, clamp time.Time
	observe := func(count int, last time.Time) {
		if count == 0 {
			return
		}
		if last.After(newest) {
			newest = last
		}
		if count >= limit && (clamp.IsZero() || last.Before(clamp)) {
			clamp = last
		}
	}

	if n := len(resp.Tables); n > 0 {
		observe(n, resp.Tables[n-1].UpdatedAt)
	}
	if n := len(resp.Products); n > 0 {
		observe(n, resp.Products[n-1].UpdatedAt)
	}
	if n := len(resp.Orders); n > 0 {
		observe(n, resp.Orders[n-1].UpdatedAt)
	}
	if n := len(resp.OrderItems); n > 0 {
		observe(n, resp.OrderItems[n-1].UpdatedAt)
	}
	if n := len(resp.Sales); n > 0 {
		observe(n, resp.Sales[n-1].UpdatedAt)
	}
	if n := len(resp.StockMovements); n > 0 {
		observe(n, resp.StockMovements[n-1].CreatedAt)
	}

	next := newest
	if !clamp.IsZero() {
		next = clamp
	}
	return next.UTC().Format(watermarkLayout)
}

// Upload applies a batch last-write-wins. Every submitted row id lands in
// exactly one of accepted or rejected; rows without an id are reported via
// the errors list. A batch id seen before replays the stored response.
func (s *SyncService) Upload(req *syncclient.UploadRequest) (*syncclient.UploadResponse, error) {
	if req.BatchID != "" {
		var seen models.SyncBatch
		err := s.DB.Where("batch_id = ?", req.BatchID).First(&seen).Error
		if err == nil {
			var stored syncclient.UploadResponse
			if jsonErr := json.Unmarshal([]byte(seen.Response), &stored); jsonErr == nil {
				utils.InfoLogger.Printf("Replaying upload batch %s for company %s", req.BatchID, req.CompanyID)
				return &stored, nil
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if req.Count() > s.MaxBatch {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, req.Count(), s.MaxBatch)
	}

	resp := &syncclient.UploadResponse{
		Accepted: map[string][]string{},
		Rejected: map[string][]syncclient.RejectedItem{},
	}
	for _, name := range syncclient.CollectionNames() {
		resp.Accepted[name] = []string{}
		resp.Rejected[name] = []syncclient.RejectedItem{}
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		a := &uploadApplier{tx: tx, companyID: req.CompanyID, resp: resp}

		for i := range req.Tables {
			a.applyTable(&req.Tables[i])
		}
		for i := range req.Products {
			a.applyProduct(&req.Products[i])
		}
		for i := range req.Orders {
			a.applyOrder(&req.Orders[i])
		}
		for i := range req.OrderItems {
			a.applyOrderItem(&req.OrderItems[i])
		}
		for i := range req.Sales {
			a.applySale(&req.Sales[i])
		}
		for i := range req.StockMovements {
			a.applyStockMovement(&req.StockMovements[i])
		}
		return a.err
	})
	if err != nil {
		return nil, err
	}

	resp.ServerSince = syncclient.Checkpoint(time.Now().UTC().Format(watermarkLayout))

	if req.BatchID != "" {
		raw, err := json.Marshal(resp)
		if err != nil {
			return nil, err
		}
		record := models.SyncBatch{
			BatchID:     req.BatchID,
			CompanyID:   req.CompanyID,
			Response:    string(raw),
			ProcessedAt: time.Now().UTC(),
		}
		if err := s.DB.Create(&record).Error; err != nil {
			return nil, err
		}
	}
	return resp, nil
}
