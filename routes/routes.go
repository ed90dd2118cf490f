package routes

import (
	"time"

	"footyreserve/handlers"
	"footyreserve/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterUserRoutes registers account endpoints.
func RegisterUserRoutes(r *gin.Engine) {
	api := r.Group("/api/users")
	{
		api.POST("/signup", handlers.Signup)
		api.POST("/login", handlers.Login)
		api.POST("/refresh", handlers.RefreshToken)

		// Protected routes (Require Authentication)
		api.Use(middleware.JWTAuthMiddleware())
		api.GET("/me", handlers.GetProfile)
		api.GET("/me/matches", handlers.UserUpcomingMatches)
	}
}

// RegisterMatchRoutes registers match lifecycle and roster endpoints.
func RegisterMatchRoutes(r *gin.Engine) {
	api := r.Group("/api/matches")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.POST("", handlers.CreateMatch)
		api.GET("/upcoming", handlers.AdminUpcomingMatches)
		api.GET("/:matchId", handlers.GetMatch)
		api.PATCH("/:matchId", handlers.UpdateMatch)
		api.DELETE("/:matchId", handlers.CancelMatch)
		api.GET("/:matchId/roster", handlers.MatchRoster)
		api.GET("/:matchId/finances", handlers.MatchFinances)
		api.POST("/:matchId/join", handlers.JoinMatch)
		api.DELETE("/:matchId/players/:userId", handlers.RemovePlayer)
	}
}

// RegisterPaymentRoutes registers the spot purchase flow. The webhook
// stays outside the auth group: Stripe authenticates with its
// signature, not a bearer token.
func RegisterPaymentRoutes(r *gin.Engine) {
	r.POST("/api/payments/webhook", handlers.StripeWebhook)

	api := r.Group("/api/payments")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.POST("/initiate", handlers.InitiatePayment)
		api.GET("/:paymentId/status", handlers.PaymentStatus)
		api.DELETE("/:paymentId", handlers.CancelPayment)
	}
}

// RegisterPayoutRoutes registers organizer payout endpoints.
func RegisterPayoutRoutes(r *gin.Engine) {
	api := r.Group("/api/payouts")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.POST("/:matchId/setup-account", handlers.SetupPayoutAccount)
		api.POST("/:matchId/initiate", handlers.InitiatePayout)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", handlers.Health)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware())

	RegisterHealthRoute(r)
	RegisterUserRoutes(r)
	RegisterMatchRoutes(r)
	RegisterPaymentRoutes(r)
	RegisterPayoutRoutes(r)
}
