package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Monynha-Softwares/botecopro-sync/models"
	"github.com/Monynha-Softwares/botecopro-sync/utils"
)

type ProductController struct {
	DB *gorm.DB
}

func NewProductController(db *gorm.DB) *ProductController {
	return &ProductController{DB: db}
}

// CreateProduct -> add a product to the menu
func (pc *ProductController) CreateProduct(c *gin.Context) {
	companyID, ok := companyFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	var req struct {
		Name     string  `json:"name" binding:"required"`
		Category string  `json:"category"`
		Price    float64 `json:"price" binding:"required"`
		Stock    *int    `json:"stock"`
		MinStock *int    `json:"min_stock"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	product := models.Product{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		Name:      req.Name,
		Category:  models.CategoryOther,
		Price:     req.Price,
		Stock:     req.Stock,
		MinStock:  req.MinStock,
	}
	if req.Category != "" {
		product.Category = models.ProductCategory(req.Category)
	}

	if err := pc.DB.Create(&product).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("New product created: %s (category=%s)", product.Name, product.Category)
	utils.RespondJSON(c, http.StatusCreated, "Product created successfully", product)
}

// GetAllProducts -> list the company's products
func (pc *ProductController) GetAllProducts(c *gin.Context) {
	companyID, ok := companyFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	var products []models.Product
	query := pc.DB.Where("company_id = ?", companyID)
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.Find(&products).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of products", products)
}

// UpdateProduct -> patch product fields
func (pc *ProductController) UpdateProduct(c *gin.Context) {
	companyID, ok := companyFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	var product models.Product
	if err := pc.DB.Where("id = ? AND company_id = ?", c.Param("product_id"), companyID).
		First(&product).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	var req struct {
		Name     *string  `json:"name"`
		Category *string  `json:"category"`
		Price    *float64 `json:"price"`
		Stock    *int     `json:"stock"`
		MinStock *int     `json:"min_stock"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Category != nil {
		product.Category = models.ProductCategory(*req.Category)
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Stock != nil {
		product.Stock = req.Stock
	}
	if req.MinStock != nil {
		product.MinStock = req.MinStock
	}

	if err := pc.DB.Save(&product).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product updated", product)
}

// DeleteProduct -> remove a product
func (pc *ProductController) DeleteProduct(c *gin.Context) {
	companyID, ok := companyFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	var product models.Product
	if err := pc.DB.Where("id = ? AND company_id = ?", c.Param("product_id"), companyID).
		First(&product).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	if err := pc.DB.Delete(&product).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product deleted", gin.H{"id": product.ID})
}
