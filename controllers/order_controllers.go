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

type OrderController struct {
	DB *gorm.DB
}

func NewOrderController(db *gorm.DB) *OrderController {
	return &OrderController{DB: db}
}

// CreateOrder -> open an order on a table, optionally with initial items
func (oc *OrderController) CreateOrder(c *gin.Context) {
	companyID, ok := companyFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	var req struct {
		TableID string `json:"table_id" binding:"required"`
		Items   []struct {
			ProductID string  `json:"product_id" binding:"required"`
			Quantity  int     `json:"quantity" binding:"required"`
			Price     float64 `json:"price"`
		} `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var table models.Table
	if err := oc.DB.Where("id = ? AND company_id = ?", req.TableID, companyID).
		First(&table).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("table not found"))
		return
	}

	order := models.Order{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		TableID:   table.ID,
		Status:    models.OrderPending,
	}

	err := oc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		for _, item := range req.Items {
			price := item.Price
			if price == 0 {
				var product models.Product
				if err := tx.Where("id = ? AND company_id = ?", item.ProductID, companyID).
					First(&product).Error; err != nil {
					return err
				}
				price = product.Price
			}
			row := models.OrderItem{
				ID:        uuid.NewString(),
				OrderID:   order.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     price,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		table.Status = models.TableOccupied
		return tx.Save(&table).Error
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("New order %s on table %s", order.ID, table.ID)
	utils.RespondJSON(c, http.StatusCreated, "Order created successfully", order)
}

// GetAllOrders -> list orders, optionally filtered by status
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	companyID, ok := companyFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	var orders []models.Order
	query := oc.DB.Where("company_id = ?", companyID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("created_at DESC").Find(&orders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

// GetOrderByID -> one order with its items
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	companyID, ok := companyFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	var order models.Order
	if err := oc.DB.Where("id = ? AND company_id = ?", c.Param("order_id"), companyID).
		First(&order).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	var items []models.OrderItem
	if err := oc.DB.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Order detail", gin.H{
		"order": order,
		"items": items,
	})
}

// UpdateOrderStatus -> move an order through its lifecycle
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	companyID, ok := companyFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var order models.Order
	if err := oc.DB.Where("id = ? AND company_id = ?", c.Param("order_id"), companyID).
		First(&order).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	order.Status = models.OrderStatus(body.Status)
	if err := oc.DB.Save(&order).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	// A delivered or canceled order frees its table.
	if order.Status == models.OrderDelivered || order.Status == models.OrderCanceled {
		oc.DB.Model(&models.Table{}).
			Where("id = ? AND company_id = ?", order.TableID, companyID).
			Update("status", models.TableAvailable)
	}

	utils.InfoLogger.Printf("Order %s status changed to %s", order.ID, order.Status)
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}
