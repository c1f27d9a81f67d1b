package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Monynha-Softwares/botecopro-sync/database"
	"github.com/Monynha-Softwares/botecopro-sync/models"
	"github.com/Monynha-Softwares/botecopro-sync/router"
	"github.com/Monynha-Softwares/botecopro-sync/syncclient"
	"github.com/Monynha-Softwares/botecopro-sync/syncengine"
	"github.com/Monynha-Softwares/botecopro-sync/utils"
)

func TestMain(m *testing.M) {
	utils.InitLogger()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// TestEndToEndSync walks the full flow between a server and one POS client:
// 0. Register a company admin, login -> token
// 1. Create a table and a product through the admin API
// 2. First engine pass pulls both into the local store
// 3. Edit the product locally and create an order + sale offline
// 4. Second engine pass pushes the outbox; the server now holds the changes
// 5. Third engine pass confirms both sides are caught up
func TestEndToEndSync(t *testing.T) {
	db := setupServerDB()
	srv := httptest.NewServer(router.SetupRouter(db))
	defer srv.Close()

	token, companyID := registerAndLogin(t, srv)

	tableID := createTableTest(t, srv, token)
	createProductTest(t, srv, token)

	store, err := syncengine.OpenStore(":memory:")
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}

	engineLog := logrus.New()
	engineLog.SetLevel(logrus.PanicLevel)
	client := syncclient.NewClient(srv.URL)
	client.Token = token
	engine := syncengine.NewEngine(client, store, companyID, engineLog)

	// First pass: full download into the empty store.
	result, err := engine.Sync(context.Background())
	if err != nil {
		t.Fatalf("initial sync: %v", err)
	}
	if result.Downloaded != 2 {
		t.Fatalf("initial sync: want 2 rows downloaded, got %d", result.Downloaded)
	}
	if result.Checkpoint.IsZero() {
		t.Fatalf("initial sync: checkpoint not persisted")
	}

	var localTable models.Table
	if err := store.DB.First(&localTable, "id = ?", tableID).Error; err != nil {
		t.Fatalf("table missing from local store: %v", err)
	}

	// Offline work on the client: occupy the table, take an order, close it
	// with a sale.
	orderID := uuid.NewString()
	saleID := uuid.NewString()
	now := time.Now().UTC()

	if err := store.DB.Model(&models.Table{}).Where("id = ?", tableID).
		Updates(map[string]interface{}{"status": models.TableOccupied, "updated_at": now}).Error; err != nil {
		t.Fatalf("local table edit: %v", err)
	}
	mustMarkDirty(t, store, syncclient.CollectionTables, tableID)

	if err := store.DB.Create(&models.Order{
		ID: orderID, CompanyID: companyID, TableID: tableID,
		Status: models.OrderDelivered, CreatedAt: now, UpdatedAt: now,
	}).Error; err != nil {
		t.Fatalf("local order create: %v", err)
	}
	mustMarkDirty(t, store, syncclient.CollectionOrders, orderID)

	if err := store.DB.Create(&models.Sale{
		ID: saleID, CompanyID: companyID, OrderID: orderID,
		Total: 7.5, PaymentMethod: "cash", UpdatedAt: now,
	}).Error; err != nil {
		t.Fatalf("local sale create: %v", err)
	}
	mustMarkDirty(t, store, syncclient.CollectionSales, saleID)

	// Second pass: push the outbox.
	result, err = engine.Sync(context.Background())
	if err != nil {
		t.Fatalf("push sync: %v", err)
	}
	if result.Accepted != 3 {
		t.Fatalf("push sync: want 3 accepted, got %d (rejected=%d)", result.Accepted, result.Rejected)
	}

	var serverTable models.Table
	if err := db.First(&serverTable, "id = ?", tableID).Error; err != nil {
		t.Fatalf("table missing on server: %v", err)
	}
	if serverTable.Status != models.TableOccupied {
		t.Fatalf("server table status: want occupied, got %s", serverTable.Status)
	}
	var serverSale models.Sale
	if err := db.First(&serverSale, "id = ?", saleID).Error; err != nil {
		t.Fatalf("sale missing on server: %v", err)
	}
	if serverSale.OrderID != orderID {
		t.Fatalf("server sale order: want %s, got %s", orderID, serverSale.OrderID)
	}

	// Third pass: nothing left on either side.
	result, err = engine.Sync(context.Background())
	if err != nil {
		t.Fatalf("caught-up sync: %v", err)
	}
	if result.Downloaded != 0 || result.Uploaded != 0 {
		t.Fatalf("caught-up sync: want empty pass, got downloaded=%d uploaded=%d",
			result.Downloaded, result.Uploaded)
	}
	pending, err := store.PendingCount()
	if err != nil {
		t.Fatalf("pending count: %v", err)
	}
	if pending != 0 {
		t.Fatalf("outbox not drained: %d marks left", pending)
	}
}

// setupServerDB -> in-memory SQLite with the full server schema and change
// capture, like main() wires it.
func setupServerDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to open in-memory sqlite: %v", err)
	}

	err = db.AutoMigrate(
		&models.Company{},
		&models.User{},
		&models.Table{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.Sale{},
		&models.StockMovement{},
		&models.ChangeLog{},
		&models.SyncBatch{},
	)
	if err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	if err := database.RegisterChangeRecorder(db); err != nil {
		log.Fatalf("failed to register change recorder: %v", err)
	}
	return db
}

func registerAndLogin(t *testing.T, srv *httptest.Server) (token, companyID string) {
	registerBody, _ := json.Marshal(map[string]string{
		"name":         "Dona Rosa",
		"email":        "rosa@boteco.example",
		"password":     "segredo123",
		"company_name": "Boteco da Rosa",
	})
	resp, err := http.Post(srv.URL+"/register", "application/json", bytes.NewBuffer(registerBody))
	if err != nil {
		t.Fatalf("register request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: want 201, got %d", resp.StatusCode)
	}
	var registerResp struct {
		Status bool `json:"status"`
		Data   struct {
			CompanyID string `json:"company_id"`
		} `json:"data"`
	}
	json.NewDecoder(resp.Body).Decode(&registerResp)
	if !registerResp.Status || registerResp.Data.CompanyID == "" {
		t.Fatalf("register: no company id in response")
	}

	loginBody, _ := json.Marshal(map[string]string{
		"email":    "rosa@boteco.example",
		"password": "segredo123",
	})
	resp, err = http.Post(srv.URL+"/login", "application/json", bytes.NewBuffer(loginBody))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: want 200, got %d", resp.StatusCode)
	}
	var loginResp struct {
		Status bool `json:"status"`
		Data   struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp.Data.Token == "" {
		t.Fatalf("login: token empty")
	}

	return loginResp.Data.Token, registerResp.Data.CompanyID
}

// createTableTest -> POST /admin/tables => 201, returns the new table id
func createTableTest(t *testing.T, srv *httptest.Server, token string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"name":     "Esplanada 1",
		"number":   1,
		"capacity": 4,
	})
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/admin/tables", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("create table request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create table: want 201, got %d", resp.StatusCode)
	}

	var tableResp struct {
		Status bool         `json:"status"`
		Data   models.Table `json:"data"`
	}
	json.NewDecoder(resp.Body).Decode(&tableResp)
	if tableResp.Data.ID == "" {
		t.Fatalf("create table: empty id")
	}
	return tableResp.Data.ID
}

// createProductTest -> POST /admin/products => 201
func createProductTest(t *testing.T, srv *httptest.Server, token string) {
	body, _ := json.Marshal(map[string]interface{}{
		"name":     "Imperial",
		"category": "drink",
		"price":    1.5,
		"stock":    120,
	})
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/admin/products", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("create product request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create product: want 201, got %d", resp.StatusCode)
	}
}

func mustMarkDirty(t *testing.T, store *syncengine.Store, collection, id string) {
	if err := store.MarkDirty(collection, id); err != nil {
		t.Fatalf("mark dirty %s/%s: %v", collection, id, err)
	}
}
