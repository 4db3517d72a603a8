package routes

import (
	"net/http"
	"time"

	"localcity/config"
	"localcity/handlers"
	"localcity/middleware"
	"localcity/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterHealthRoutes registers the health and metrics endpoints.
func RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		status := utils.GetHealthStatus()
		code := http.StatusOK
		if !status.Healthy() {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "message": "Hi, I'm LocalCity admin"})
	})
	r.GET("/metrics", utils.MetricsHandler())
}

// RegisterMerchantRoutes sets up merchant page management.
func RegisterMerchantRoutes(admin *gin.RouterGroup, hb *handlers.HandlerBundle) {
	merchants := admin.Group("/merchants")
	{
		merchants.GET("", hb.Merchants.ListMerchantsHandler)
		merchants.POST("", hb.Merchants.CreateMerchantHandler)
		merchants.GET("/:id", hb.Merchants.GetMerchantHandler)
		merchants.PUT("/:id", hb.Merchants.UpdateMerchantHandler)
		merchants.DELETE("/:id", hb.Merchants.DeleteMerchantHandler)
		merchants.POST("/:id/publish", hb.Merchants.PublishMerchantHandler)
		merchants.POST("/:id/unpublish", hb.Merchants.UnpublishMerchantHandler)
		merchants.PUT("/:id/hours", hb.Merchants.UpdateHoursHandler)
		merchants.POST("/:id/images/:kind", hb.Merchants.UploadImageHandler)
		merchants.DELETE("/:id/images/:kind", hb.Merchants.RemoveImageHandler)
		merchants.PUT("/:id/gallery/order", hb.Merchants.ReorderGalleryHandler)
	}

	hours := admin.Group("/hours")
	{
		hours.GET("/presets", hb.Hours.PresetsHandler)
		hours.POST("/bulk", hb.Hours.BulkHoursHandler)
		hours.POST("/display", hb.Hours.DisplayHoursHandler)
	}
}

// RegisterCampaignRoutes sets up the email campaign builder.
func RegisterCampaignRoutes(admin *gin.RouterGroup, hb *handlers.HandlerBundle) {
	campaigns := admin.Group("/campaigns")
	{
		campaigns.GET("", hb.Campaigns.ListCampaignsHandler)
		campaigns.POST("", hb.Campaigns.CreateCampaignHandler)
		campaigns.GET("/:id", hb.Campaigns.GetCampaignHandler)
		campaigns.PUT("/:id", hb.Campaigns.UpdateCampaignHandler)
		campaigns.DELETE("/:id", hb.Campaigns.DeleteCampaignHandler)
		campaigns.GET("/:id/preview", hb.Campaigns.PreviewCampaignHandler)
		campaigns.POST("/:id/test", hb.Campaigns.TestCampaignHandler)
		campaigns.POST("/:id/send", hb.Campaigns.SendCampaignHandler)
		campaigns.POST("/:id/schedule", hb.Campaigns.ScheduleCampaignHandler)
		campaigns.POST("/:id/unschedule", hb.Campaigns.UnscheduleCampaignHandler)
	}
}

// RegisterModerationRoutes sets up receipt and review moderation.
func RegisterModerationRoutes(admin *gin.RouterGroup, hb *handlers.HandlerBundle) {
	receipts := admin.Group("/receipts")
	{
		receipts.GET("", hb.Receipts.ListReceiptsHandler)
		receipts.GET("/export", hb.Receipts.ExportReceiptsHandler)
		receipts.POST("/bulk-approve", hb.Receipts.BulkApproveReceiptsHandler)
		receipts.POST("/:id/approve", hb.Receipts.ApproveReceiptHandler)
		receipts.POST("/:id/reject", hb.Receipts.RejectReceiptHandler)
	}

	reviews := admin.Group("/reviews")
	{
		reviews.GET("", hb.Reviews.ListReviewsHandler)
		reviews.POST("/:id/approve", hb.Reviews.ApproveReviewHandler)
		reviews.POST("/:id/hide", hb.Reviews.HideReviewHandler)
		reviews.DELETE("/:id", hb.Reviews.DeleteReviewHandler)
	}
}

// RegisterUserRoutes sets up account management.
func RegisterUserRoutes(admin *gin.RouterGroup, hb *handlers.HandlerBundle) {
	users := admin.Group("/users")
	{
		users.GET("", hb.Users.ListUsersHandler)
		users.GET("/:id", hb.Users.GetUserHandler)
		users.DELETE("/:id", hb.Users.DeleteUserHandler)
		users.PUT("/:id/role", hb.Users.UpdateRoleHandler)
		users.POST("/:id/suspend", hb.Users.SuspendUserHandler)
		users.POST("/:id/reactivate", hb.Users.ReactivateUserHandler)
	}
}

// RegisterEditorRoutes sets up live editing sessions.
func RegisterEditorRoutes(admin *gin.RouterGroup, hb *handlers.HandlerBundle) {
	sessions := admin.Group("/editor/sessions")
	{
		sessions.POST("", hb.Editor.OpenSessionHandler)
		sessions.GET("/:id", hb.Editor.StateHandler)
		sessions.PATCH("/:id", hb.Editor.EditHandler)
		sessions.DELETE("/:id", hb.Editor.CloseSessionHandler)
		sessions.POST("/:id/undo", hb.Editor.UndoHandler)
		sessions.POST("/:id/save-now", hb.Editor.SaveNowHandler)
		sessions.POST("/:id/save", hb.Editor.SaveHandler)
		sessions.POST("/:id/retry", hb.Editor.RetryHandler)
		sessions.GET("/:id/events", hb.Editor.EventsHandler)
	}
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(gin.Recovery())
	r.Use(utils.ErrorHandler())
	r.Use(middleware.RequestLogger())
	r.Use(utils.MetricsMiddleware())
	r.Use(middleware.RateLimitMiddleware(config.AppConfig.MaxRequestsPerMin))

	RegisterHealthRoutes(r)

	api := r.Group("/api/admin")
	api.POST("/login", hb.Auth.LoginHandler)

	admin := api.Group("")
	admin.Use(middleware.JWTAuthAdminMiddleware(hb.UserRepo))
	RegisterMerchantRoutes(admin, hb)
	RegisterCampaignRoutes(admin, hb)
	RegisterModerationRoutes(admin, hb)
	RegisterUserRoutes(admin, hb)
	RegisterEditorRoutes(admin, hb)
}
