package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Monynha-Softwares/botecopro-sync/models"
	"github.com/Monynha-Softwares/botecopro-sync/utils"
)

type StockMovementController struct {
	DB *gorm.DB
}

func NewStockMovementController(db *gorm.DB) *StockMovementController {
	return &StockMovementController{DB: db}
}

// CreateStockMovement -> append a movement and adjust the product's stock
func (smc *StockMovementController) CreateStockMovement(c *gin.Context) {
	companyID, ok := companyFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	var req struct {
		ProductID    string `json:"product_id" binding:"required"`
		MovementType string `json:"movement_type" binding:"required"` // in, out, adjustment
		Quantity     int    `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var product models.Product
	if err := smc.DB.Where("id = ? AND company_id = ?", req.ProductID, companyID).
		First(&product).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("product not found"))
		return
	}

	movement := models.StockMovement{
		ID:           uuid.NewString(),
		CompanyID:    companyID,
		ProductID:    product.ID,
		MovementType: req.MovementType,
		Quantity:     req.Quantity,
	}

	err := smc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&movement).Error; err != nil {
			return err
		}
		if product.Stock != nil {
			stock := *product.Stock
			switch req.MovementType {
			case "in":
				stock += req.Quantity
			case "out":
				stock -= req.Quantity
			case "adjustment":
				stock = req.Quantity
			}
			product.Stock = &stock
			return tx.Save(&product).Error
		}
		return nil
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Stock movement %s for product %s (%s %d)",
		movement.ID, product.ID, movement.MovementType, movement.Quantity)
	utils.RespondJSON(c, http.StatusCreated, "Stock movement recorded", movement)
}

// GetAllStockMovements -> movement history, newest first
func (smc *StockMovementController) GetAllStockMovements(c *gin.Context) {
	companyID, ok := companyFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	var movements []models.StockMovement
	query := smc.DB.Where("company_id = ?", companyID)
	if productID := c.Query("product_id"); productID != "" {
		query = query.Where("product_id = ?", productID)
	}
	if err := query.Order("created_at DESC").Find(&movements).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of stock movements", movements)
}
