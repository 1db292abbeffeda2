package api

import (
	"dailymind-api/internal/middleware"
	"dailymind-api/internal/services"
	"dailymind-api/internal/storage"

	"github.com/gin-gonic/gin"
)

// Dependencies carries the long-lived collaborators handlers need. Optional
// vendors (generator, synthesizer) may be nil; their endpoints then report
// service unavailable.
type Dependencies struct {
	Poller    *services.Poller
	Apple     *services.AppleVerifier
	Google    *services.GoogleVerifier
	Speech    *services.SpeechService
	Generator services.AffirmationGenerator
	Store     storage.Store
}

var deps Dependencies

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine, d Dependencies) {
	deps = d

	api := r.Group("/api")
	{
		// Subscription verification (called by the app clients)
		api.POST("/verify-receipt", VerifyAppleReceipt)
		api.POST("/verify-google-receipt", VerifyGoogleReceipt)
		api.GET("/check-subscription/:subscription_id", CheckSubscription)

		// Vendor notification endpoints (Apple and Google call these)
		api.POST("/apple-subscription-notifications", AppleSubscriptionNotifications)
		api.POST("/google-subscription-notifications", GoogleSubscriptionNotifications)

		// Admin routes
		admin := api.Group("/admin")
		admin.Use(middleware.AdminAuthMiddleware())
		{
			admin.POST("/poll-subscriptions", PollSubscriptions)
			admin.GET("/subscription-stats", GetSubscriptionStats)
		}

		// Affirmation content. The daily feed lives outside /affirmations
		// because gin's route tree rejects a static sibling of :id.
		api.GET("/affirmations", GetAffirmations)
		api.GET("/daily-affirmations", GetDailyAffirmations)
		api.GET("/affirmations/:id", GetAffirmation)
		api.POST("/affirmations", middleware.AdminAuthMiddleware(), CreateAffirmation)
		api.POST("/affirmations/generate", middleware.AdminAuthMiddleware(), GenerateAffirmations)

		// White noise content
		api.GET("/whitenoises", GetWhiteNoises)
		api.GET("/whitenoises/:id/audio", GetWhiteNoiseAudio)
		api.POST("/whitenoises", middleware.AdminAuthMiddleware(), CreateWhiteNoise)
		api.POST("/upload", middleware.AdminAuthMiddleware(), UploadAudio)

		// Categories and modules
		api.GET("/categories", GetCategories)
		api.POST("/categories", middleware.AdminAuthMiddleware(), CreateCategory)
		api.PUT("/categories/:id", middleware.AdminAuthMiddleware(), UpdateCategory)
		api.DELETE("/categories/:id", middleware.AdminAuthMiddleware(), DeleteCategory)
		api.GET("/modules", GetModules)
		api.POST("/modules", middleware.AdminAuthMiddleware(), CreateModule)
		api.PUT("/modules/:id", middleware.AdminAuthMiddleware(), UpdateModule)
		api.DELETE("/modules/:id", middleware.AdminAuthMiddleware(), DeleteModule)

		// Text to speech
		api.POST("/tts", SynthesizeSpeech)

		// Health check
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "ok",
				"service": "dailymind-api",
			})
		})
	}
}
