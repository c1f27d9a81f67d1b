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

type SaleController struct {
	DB *gorm.DB
}

func NewSaleController(db *gorm.DB) *SaleController {
	return &SaleController{DB: db}
}

// CreateSale -> close an order into a sale
func (sc *SaleController) CreateSale(c *gin.Context) {
	companyID, ok := companyFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	var req struct {
		OrderID       string  `json:"order_id" binding:"required"`
		Total         float64 `json:"total"`
		PaymentMethod string  `json:"payment_method" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var order models.Order
	if err := sc.DB.Where("id = ? AND company_id = ?", req.OrderID, companyID).
		First(&order).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("order not found"))
		return
	}

	total := req.Total
	if total == 0 {
		// Derive from the order's items when the caller did not price it.
		var items []models.OrderItem
		if err := sc.DB.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		for _, item := range items {
			total += float64(item.Quantity) * item.Price
		}
	}

	sale := models.Sale{
		ID:            uuid.NewString(),
		CompanyID:     companyID,
		OrderID:       order.ID,
		Total:         total,
		PaymentMethod: req.PaymentMethod,
	}
	if err := sc.DB.Create(&sale).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Sale %s recorded for order %s (total=%.2f)", sale.ID, order.ID, total)
	utils.RespondJSON(c, http.StatusCreated, "Sale recorded", sale)
}

// GetAllSales -> list the company's sales
func (sc *SaleController) GetAllSales(c *gin.Context) {
	companyID, ok := companyFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	var sales []models.Sale
	if err := sc.DB.Where("company_id = ?", companyID).
		Order("updated_at DESC").Find(&sales).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of sales", sales)
}
