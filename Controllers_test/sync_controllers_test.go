package Controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Monynha-Softwares/botecopro-sync/controllers"
	"github.com/Monynha-Softwares/botecopro-sync/middlewares"
	"github.com/Monynha-Softwares/botecopro-sync/models"
	"github.com/Monynha-Softwares/botecopro-sync/syncclient"
	"github.com/Monynha-Softwares/botecopro-sync/utils"
)

func setupTestDBForSync(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	err = db.AutoMigrate(
		&models.Company{},
		&models.Table{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.Sale{},
		&models.StockMovement{},
		&models.SyncBatch{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func setupSyncRouter(db *gorm.DB, maxBatch int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	syncCtrl := controllers.NewSyncController(db, maxBatch)

	group := router.Group("/sync")
	group.Use(middlewares.OptionalAuthMiddleware())
	{
		group.GET("/meta", syncCtrl.GetMeta)
		group.GET("/download", syncCtrl.Download)
		group.POST("/upload", syncCtrl.Upload)
	}
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, url string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != nil {
		payload, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewBuffer(payload)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	assert.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSyncMeta(t *testing.T) {
	utils.InitLogger()
	router := setupSyncRouter(setupTestDBForSync(t), 500)

	w := doJSON(t, router, "GET", "/sync/meta", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var meta syncclient.MetaResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	assert.Contains(t, meta.TableStatus, "available")
	assert.Contains(t, meta.ProductCategory, "drink")
	assert.Contains(t, meta.OrderStatus, "pending")
	assert.Equal(t, 500, meta.MaxBatch)
	assert.True(t, meta.SupportsDelta)
	assert.WithinDuration(t, time.Now(), meta.ServerTime, time.Minute)
}

func TestSyncDownloadRequiresCompany(t *testing.T) {
	utils.InitLogger()
	router := setupSyncRouter(setupTestDBForSync(t), 500)

	w := doJSON(t, router, "GET", "/sync/download", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// A full sync followed by a delta with the returned cursor must come back
// empty and echo the cursor: that is the caught-up contract.
func TestSyncDownloadCaughtUpContract(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForSync(t)
	router := setupSyncRouter(db, 500)

	db.Create(&models.Table{ID: "t-1", CompanyID: "c-1", Name: "Mesa 1", Status: models.TableAvailable})
	db.Create(&models.Product{ID: "p-1", CompanyID: "c-1", Name: "Imperial", Category: models.CategoryDrink, Price: 1.5})

	w := doJSON(t, router, "GET", "/sync/download?company_id=c-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var first syncclient.DownloadResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.Len(t, first.Tables, 1)
	assert.Len(t, first.Products, 1)
	assert.False(t, first.NextSince.IsZero())
	assert.True(t, syncclient.VerifyChecksum(&first))

	w = doJSON(t, router, "GET", "/sync/download?company_id=c-1&since="+first.NextSince.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var second syncclient.DownloadResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.True(t, second.Empty(), "caught-up response must hold no rows")
	assert.Equal(t, first.NextSince, second.NextSince, "caught-up response echoes the cursor")
}

func TestSyncDownloadIsTenantScoped(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForSync(t)
	router := setupSyncRouter(db, 500)

	db.Create(&models.Table{ID: "t-a", CompanyID: "c-a", Name: "A", Status: models.TableAvailable})
	db.Create(&models.Table{ID: "t-b", CompanyID: "c-b", Name: "B", Status: models.TableAvailable})

	w := doJSON(t, router, "GET", "/sync/download?company_id=c-a", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp syncclient.DownloadResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Tables, 1)
	assert.Equal(t, "t-a", resp.Tables[0].ID)
}

func TestSyncDownloadRejectsForeignToken(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForSync(t)
	router := setupSyncRouter(db, 500)

	token, err := utils.GenerateToken(1, "c-a", "admin")
	assert.NoError(t, err)

	req, _ := http.NewRequest("GET", "/sync/download?company_id=c-b", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

// Every submitted id must land in exactly one of accepted or rejected.
func TestSyncUploadPartitionCompleteness(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForSync(t)
	router := setupSyncRouter(db, 500)

	// Existing product newer than the upload -> stale rejection.
	db.Create(&models.Product{
		ID: "p-stale", CompanyID: "c-1", Name: "Bifana", Category: models.CategoryFood,
		Price: 4, UpdatedAt: time.Now().Add(time.Hour),
	})

	now := time.Now()
	req := syncclient.UploadRequest{
		CompanyID:  "c-1",
		ClientTime: now,
		Collections: syncclient.Collections{
			Tables: []models.Table{
				{ID: "t-new", CompanyID: "c-1", Name: "Esplanada 2", Status: models.TableAvailable, UpdatedAt: now},
			},
			Products: []models.Product{
				{ID: "p-stale", CompanyID: "c-1", Name: "Bifana velha", Category: models.CategoryFood, Price: 3, UpdatedAt: now.Add(-time.Hour)},
			},
			Orders: []models.Order{
				{ID: "o-new", CompanyID: "c-1", TableID: "t-new", Status: models.OrderPending, CreatedAt: now, UpdatedAt: now},
			},
			Sales: []models.Sale{
				{ID: "s-dangling", CompanyID: "c-1", OrderID: "o-missing", Total: 9.5, PaymentMethod: "cash", UpdatedAt: now},
			},
		},
	}

	w := doJSON(t, router, "POST", "/sync/upload", req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp syncclient.UploadResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	seen := map[string]int{}
	for _, ids := range resp.Accepted {
		for _, id := range ids {
			seen[id]++
		}
	}
	for _, items := range resp.Rejected {
		for _, item := range items {
			seen[item.ID]++
		}
	}
	assert.Equal(t, map[string]int{"t-new": 1, "p-stale": 1, "o-new": 1, "s-dangling": 1}, seen)

	assert.Equal(t, []string{"t-new"}, resp.Accepted[syncclient.CollectionTables])
	assert.Equal(t, syncclient.ReasonStaleVersion, resp.Rejected[syncclient.CollectionProducts][0].Reason)
	assert.NotNil(t, resp.Rejected[syncclient.CollectionProducts][0].ServerUpdatedAt)
	assert.Equal(t, syncclient.ReasonMissingOrder, resp.Rejected[syncclient.CollectionSales][0].Reason)
	assert.False(t, resp.ServerSince.IsZero())
}

func TestSyncUploadEmptyBatch(t *testing.T) {
	utils.InitLogger()
	router := setupSyncRouter(setupTestDBForSync(t), 500)

	w := doJSON(t, router, "POST", "/sync/upload", syncclient.UploadRequest{
		CompanyID:  "c-1",
		ClientTime: time.Now(),
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp syncclient.UploadResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	for _, name := range syncclient.CollectionNames() {
		items, present := resp.Accepted[name]
		assert.True(t, present)
		assert.Empty(t, items)
		rejected, present := resp.Rejected[name]
		assert.True(t, present)
		assert.Empty(t, rejected)
	}
}

func TestSyncUploadBatchTooLarge(t *testing.T) {
	utils.InitLogger()
	router := setupSyncRouter(setupTestDBForSync(t), 2)

	now := time.Now()
	req := syncclient.UploadRequest{
		CompanyID:  "c-1",
		ClientTime: now,
		Collections: syncclient.Collections{
			Tables: []models.Table{
				{ID: "t-1", CompanyID: "c-1", Name: "1", Status: models.TableAvailable, UpdatedAt: now},
				{ID: "t-2", CompanyID: "c-1", Name: "2", Status: models.TableAvailable, UpdatedAt: now},
				{ID: "t-3", CompanyID: "c-1", Name: "3", Status: models.TableAvailable, UpdatedAt: now},
			},
		},
	}
	w := doJSON(t, router, "POST", "/sync/upload", req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

// Replaying a batch id must return the stored response without re-applying
// the batch.
func TestSyncUploadBatchReplay(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForSync(t)
	router := setupSyncRouter(db, 500)

	now := time.Now()
	req := syncclient.UploadRequest{
		CompanyID:  "c-1",
		ClientTime: now,
		BatchID:    "batch-0001",
		Collections: syncclient.Collections{
			StockMovements: []models.StockMovement{
				{ID: "m-1", CompanyID: "c-1", ProductID: "p-1", MovementType: "in", Quantity: 6, CreatedAt: now},
			},
		},
	}

	first := doJSON(t, router, "POST", "/sync/upload", req)
	assert.Equal(t, http.StatusOK, first.Code)

	second := doJSON(t, router, "POST", "/sync/upload", req)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	var count int64
	db.Model(&models.StockMovement{}).Count(&count)
	assert.Equal(t, int64(1), count, "replay must not duplicate the movement")
}

func TestSyncUploadStockMovementImmutable(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForSync(t)
	router := setupSyncRouter(db, 500)

	db.Create(&models.StockMovement{ID: "m-1", CompanyID: "c-1", ProductID: "p-1", MovementType: "in", Quantity: 2})

	now := time.Now()
	req := syncclient.UploadRequest{
		CompanyID:  "c-1",
		ClientTime: now,
		Collections: syncclient.Collections{
			StockMovements: []models.StockMovement{
				{ID: "m-1", CompanyID: "c-1", ProductID: "p-1", MovementType: "out", Quantity: 99, CreatedAt: now},
			},
		},
	}

	w := doJSON(t, router, "POST", "/sync/upload", req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp syncclient.UploadResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, syncclient.ReasonImmutable, resp.Rejected[syncclient.CollectionStockMovements][0].Reason)

	var movement models.StockMovement
	db.First(&movement, "id = ?", "m-1")
	assert.Equal(t, "in", movement.MovementType, "append-only row must keep its original values")
}

func TestSyncUploadWrongTenant(t *testing.T) {
	utils.InitLogger()
	router := setupSyncRouter(setupTestDBForSync(t), 500)

	now := time.Now()
	req := syncclient.UploadRequest{
		CompanyID:  "c-1",
		ClientTime: now,
		Collections: syncclient.Collections{
			Tables: []models.Table{
				{ID: "t-x", CompanyID: "c-other", Name: "X", Status: models.TableAvailable, UpdatedAt: now},
			},
		},
	}

	w := doJSON(t, router, "POST", "/sync/upload", req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp syncclient.UploadResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, syncclient.ReasonWrongTenant, resp.Rejected[syncclient.CollectionTables][0].Reason)
}

// Claiming another company's row id under your own company_id must be
// rejected; the stored row keeps its tenant and its values.
func TestSyncUploadCannotClaimForeignRow(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForSync(t)
	router := setupSyncRouter(db, 500)

	db.Create(&models.Table{
		ID: "t-1", CompanyID: "c-2", Name: "Mesa da concorrente",
		Status: models.TableAvailable, UpdatedAt: time.Now().Add(-time.Hour),
	})

	// Newer watermark, so only the tenant check can stop this upload.
	now := time.Now()
	req := syncclient.UploadRequest{
		CompanyID:  "c-1",
		ClientTime: now,
		Collections: syncclient.Collections{
			Tables: []models.Table{
				{ID: "t-1", CompanyID: "c-1", Name: "Minha agora", Status: models.TableOccupied, UpdatedAt: now},
			},
		},
	}

	w := doJSON(t, router, "POST", "/sync/upload", req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp syncclient.UploadResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Accepted[syncclient.CollectionTables])
	assert.Equal(t, syncclient.ReasonWrongTenant, resp.Rejected[syncclient.CollectionTables][0].Reason)

	var table models.Table
	db.First(&table, "id = ?", "t-1")
	assert.Equal(t, "c-2", table.CompanyID)
	assert.Equal(t, "Mesa da concorrente", table.Name)
}

// Accepted uploads surface in the next download with a server-assigned
// watermark, regardless of the client's clock.
func TestSyncUploadThenDownload(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForSync(t)
	router := setupSyncRouter(db, 500)

	// A client clock far in the past must not hide the row from peers.
	staleClock := time.Now().Add(-24 * time.Hour)
	req := syncclient.UploadRequest{
		CompanyID:  "c-1",
		ClientTime: staleClock,
		Collections: syncclient.Collections{
			Tables: []models.Table{
				{ID: "t-1", CompanyID: "c-1", Name: "Mesa 1", Status: models.TableOccupied, UpdatedAt: staleClock},
			},
		},
	}
	w := doJSON(t, router, "POST", "/sync/upload", req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "GET", "/sync/download?company_id=c-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp syncclient.DownloadResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Tables, 1)
	assert.Equal(t, "t-1", resp.Tables[0].ID)
	assert.WithinDuration(t, time.Now(), resp.Tables[0].UpdatedAt, time.Minute,
		"server stamps accepted rows with its own clock")
}
