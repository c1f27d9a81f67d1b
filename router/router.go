package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Monynha-Softwares/botecopro-sync/config"
	"github.com/Monynha-Softwares/botecopro-sync/controllers"
	"github.com/Monynha-Softwares/botecopro-sync/middlewares"
)

func SetupRouter(db *gorm.DB) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())

	userCtrl := controllers.NewUserController(db)
	tableCtrl := controllers.NewTableController(db)
	productCtrl := controllers.NewProductController(db)
	orderCtrl := controllers.NewOrderController(db)
	saleCtrl := controllers.NewSaleController(db)
	stockCtrl := controllers.NewStockMovementController(db)
	syncCtrl := controllers.NewSyncController(db, config.MaxBatch())

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}

	// ----------------------------------------------------------------
	//                      SYNC PROTOCOL
	// ----------------------------------------------------------------
	// Tokens are optional here: unauthenticated requests pass through, but
	// a presented token must be valid and pins the tenant.
	sync := r.Group("/sync")
	sync.Use(middlewares.OptionalAuthMiddleware())
	{
		sync.GET("/meta", syncCtrl.GetMeta)
		sync.GET("/download", syncCtrl.Download)
		sync.POST("/upload", syncCtrl.Upload)
	}

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/admin")
	auth.Use(middlewares.AuthMiddleware())

	auth.GET("/profile", userCtrl.GetProfile)

	// TABLES
	auth.GET("/tables", tableCtrl.GetAllTables)
	auth.POST("/tables", tableCtrl.CreateTable)
	auth.PATCH("/tables/:table_id", tableCtrl.UpdateTableStatus)
	auth.DELETE("/tables/:table_id", tableCtrl.DeleteTable)

	// PRODUCTS
	auth.GET("/products", productCtrl.GetAllProducts)
	auth.POST("/products", productCtrl.CreateProduct)
	auth.PATCH("/products/:product_id", productCtrl.UpdateProduct)
	auth.DELETE("/products/:product_id", productCtrl.DeleteProduct)

	// ORDERS
	auth.GET("/orders", orderCtrl.GetAllOrders)
	auth.POST("/orders", orderCtrl.CreateOrder)
	auth.GET("/orders/:order_id", orderCtrl.GetOrderByID)
	auth.PATCH("/orders/:order_id", orderCtrl.UpdateOrderStatus)

	// SALES
	auth.GET("/sales", saleCtrl.GetAllSales)
	auth.POST("/sales", saleCtrl.CreateSale)

	// STOCK MOVEMENTS
	auth.GET("/stock-movements", stockCtrl.GetAllStockMovements)
	auth.POST("/stock-movements", stockCtrl.CreateStockMovement)

	// Realtime change notifications
	wsGroup := r.Group("/ws")
	wsGroup.Use(middlewares.WebSocketAuthMiddleware())
	{
		wsGroup.GET("/updates", controllers.RealtimeHandler)
	}

	return r
}
