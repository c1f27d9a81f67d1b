package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Monynha-Softwares/botecopro-sync/models"
	"github.com/Monynha-Softwares/botecopro-sync/utils"
)

type UserController struct {
	DB *gorm.DB
}

func NewUserController(db *gorm.DB) *UserController {
	return &UserController{DB: db}
}

// Register -> create a company owner account. When company_id is omitted a
// new company is created and the user becomes its admin.
func (uc *UserController) Register(c *gin.Context) {
	type request struct {
		Name        string `json:"name" binding:"required"`
		Email       string `json:"email" binding:"required,email"`
		Password    string `json:"password" binding:"required"`
		CompanyID   string `json:"company_id"`
		CompanyName string `json:"company_name"`
	}
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	companyID := req.CompanyID
	role := "staff"
	if companyID == "" {
		company := models.Company{
			ID:   uuid.NewString(),
			Name: req.CompanyName,
		}
		if company.Name == "" {
			company.Name = req.Name
		}
		if err := uc.DB.Create(&company).Error; err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		companyID = company.ID
		role = "admin"
	}

	user := models.User{
		CompanyID: companyID,
		Name:      req.Name,
		Email:     req.Email,
		Password:  string(hashed),
		Role:      role,
	}
	if err := uc.DB.Create(&user).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("New user registered: %s (company=%s, role=%s)", user.Email, companyID, role)
	utils.RespondJSON(c, http.StatusCreated, "User registered", gin.H{
		"user_id":    user.ID,
		"company_id": companyID,
	})
}

// Login -> return JWT carrying the user's company
func (uc *UserController) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var user models.User
	if err := uc.DB.Where("email = ?", input.Email).First(&user).Error; err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid credentials"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid credentials"))
		return
	}

	token, err := utils.GenerateToken(user.ID, user.CompanyID, user.Role)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Login successful for user %s", user.Email)
	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{
		"token":      token,
		"company_id": user.CompanyID,
		"user_role":  user.Role,
	})
}

// GetProfile -> the account behind the presented JWT
func (uc *UserController) GetProfile(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing token"))
		return
	}

	var user models.User
	if err := uc.DB.First(&user, userID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Profile", gin.H{
		"user_id":    user.ID,
		"name":       user.Name,
		"email":      user.Email,
		"company_id": user.CompanyID,
		"role":       user.Role,
	})
}
