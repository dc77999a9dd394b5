package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"servifix/handlers"
	"servifix/middleware"
	"servifix/models"
)

// RegisterRequestRoutes registers service-request endpoints.
func RegisterRequestRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/requests")
	api.Use(middleware.AuthMiddleware())
	{
		api.POST("", middleware.RequireRole(models.RoleClient), hb.CreateRequest)
		api.GET("", middleware.RequireRole(models.RoleClient), hb.ListMyRequests)
		api.GET("/available", middleware.RequireRole(models.RoleTechnician), hb.AvailableRequests)
		api.GET("/:id", middleware.RequireRole(models.RoleClient), hb.GetRequest)
		api.POST("/:id/cancel", middleware.RequireRole(models.RoleClient), hb.CancelRequest)
		api.GET("/:id/quotes", middleware.RequireRole(models.RoleClient), hb.ListRequestQuotes)
	}
}

// RegisterQuoteRoutes registers quote-ledger endpoints.
func RegisterQuoteRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/quotes")
	api.Use(middleware.AuthMiddleware())
	{
		api.POST("", middleware.RequireRole(models.RoleTechnician), hb.SubmitQuote)
		api.GET("/mine", middleware.RequireRole(models.RoleTechnician), hb.MyQuotes)
		api.PATCH("/:id", middleware.RequireRole(models.RoleTechnician), hb.EditQuote)
		api.POST("/:id/accept", middleware.RequireRole(models.RoleClient), hb.AcceptQuote)
		api.POST("/:id/reject", middleware.RequireRole(models.RoleClient), hb.RejectQuote)
		api.POST("/:id/cancel", middleware.RequireRole(models.RoleTechnician), hb.CancelQuote)
	}
}

// RegisterJobRoutes registers job-lifecycle endpoints.
func RegisterJobRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/jobs")
	api.Use(middleware.AuthMiddleware())
	{
		api.GET("", hb.ListJobs)
		api.GET("/:id", hb.GetJob)
		api.PATCH("/:id/status", hb.UpdateJobStatus)
		api.POST("/:id/approve", middleware.RequireRole(models.RoleClient), hb.ApproveJob)
		api.POST("/:id/dispute", middleware.RequireRole(models.RoleClient), hb.DisputeJob)
	}
}

// RegisterLoyaltyRoutes registers loyalty-account endpoints.
func RegisterLoyaltyRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/loyalty")
	api.Use(middleware.AuthMiddleware(), middleware.RequireRole(models.RoleClient))
	{
		api.GET("", hb.GetLoyalty)
		api.POST("/redeem", hb.RedeemPoints)
	}
}

// RegisterRealtimeRoutes registers the websocket endpoint.
func RegisterRealtimeRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/ws", middleware.AuthMiddleware(), hb.WSConnect)
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", handlers.Health)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterRequestRoutes(r, hb)
	RegisterQuoteRoutes(r, hb)
	RegisterJobRoutes(r, hb)
	RegisterLoyaltyRoutes(r, hb)
	RegisterRealtimeRoutes(r, hb)
}
