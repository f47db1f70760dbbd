package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pixelpanic/pixel-panic-api/config"
	"github.com/pixelpanic/pixel-panic-api/controllers"
	"github.com/pixelpanic/pixel-panic-api/events"
	"github.com/pixelpanic/pixel-panic-api/logging"
	"github.com/pixelpanic/pixel-panic-api/middleware"
	"github.com/pixelpanic/pixel-panic-api/models"
	"github.com/pixelpanic/pixel-panic-api/services"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Deps are the collaborators the HTTP layer is built from
type Deps struct {
	Config    *config.Config
	DB        *gorm.DB
	Logger    zerolog.Logger
	SMS       services.SMSProvider
	Throttle  services.Throttle
	Publisher events.Publisher
	// Store is nil when object storage is not configured; uploads then answer 503
	Store services.ObjectStore
}

// Setup wires services and controllers and registers every route
func Setup(d Deps) (*gin.Engine, error) {
	cfg := d.Config

	auth, err := middleware.NewAuthenticator(cfg, d.DB, d.Logger)
	if err != nil {
		return nil, err
	}

	sessions := services.NewSessionService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.SessionTTL)
	authService := services.NewAuthService(d.DB, d.SMS, d.Throttle, cfg.OTPSendCooldown, sessions, cfg.SMSCountryCode, d.Logger)
	catalogService := services.NewCatalogService(d.DB)
	couponService := services.NewCouponService(d.DB)
	checkoutService := services.NewCheckoutService(d.DB, couponService, d.Publisher, models.OrderStatus(cfg.OrderInitialStatus), d.Logger)
	orderService := services.NewOrderService(d.DB, d.Publisher, cfg.CompletionOTPTTL, d.Logger)
	dashboardService := services.NewDashboardService(d.DB)
	technicianService := services.NewTechnicianService(d.DB, dashboardService, cfg.SMSCountryCode, d.Logger)
	contactService := services.NewContactService(d.DB)

	var images *services.ImageService
	if d.Store != nil {
		images = services.NewImageService(d.Store)
	}

	cookie := controllers.NewCookieSettings(cfg)
	healthController := controllers.NewHealthController(d.DB)
	authController := controllers.NewAuthController(authService, cookie)
	userController := controllers.NewUserController(authService)
	catalogController := controllers.NewCatalogController(catalogService, images)
	checkoutController := controllers.NewCheckoutController(checkoutService, couponService)
	couponController := controllers.NewCouponController(couponService)
	orderController := controllers.NewOrderController(orderService)
	technicianController := controllers.NewTechnicianController(orderService, technicianService, images, authService, cookie)
	adminTechnicianController := controllers.NewAdminTechnicianController(technicianService)
	dashboardController := controllers.NewDashboardController(dashboardService)
	contactController := controllers.NewContactController(contactService)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 3*time.Minute)
	limited := limiter.Middleware()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.RequestLogger(d.Logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", logging.RequestIDHeader},
		ExposeHeaders:    []string{logging.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("/api")
	{
		api.GET("/health", healthController.Health)
		api.GET("/health/database", healthController.Database)

		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/send-otp", limited, authController.SendOTP)
			authRoutes.POST("/verify-otp", limited, authController.VerifyOTP)
			authRoutes.POST("/logout", authController.Logout)
			authRoutes.GET("/me", auth.RequireSession(), userController.GetMyProfile)
			authRoutes.PUT("/me", auth.RequireSession(), userController.UpdateMyProfile)
		}

		api.GET("/brands", catalogController.ListBrands)
		api.GET("/models", catalogController.ListModels)
		api.GET("/services", catalogController.Services)

		api.POST("/contact/submit", limited, contactController.Submit)

		checkout := api.Group("/checkout")
		{
			checkout.POST("/validate-coupon-public", limited, auth.OptionalSession(), checkoutController.ValidateCouponPublic)
			checkout.POST("/validate-coupon", auth.RequireSession(), checkoutController.ValidateCoupon)
			checkout.POST("/create-order", auth.RequireSession(), checkoutController.CreateOrder)
		}

		orders := api.Group("/orders", auth.RequireSession())
		{
			orders.GET("", orderController.ListMine)
			orders.GET("/:id", orderController.GetMine)
		}

		// invitations are redeemed by users who are not technicians yet
		api.GET("/technicians/invites/:token", technicianController.GetInvite)
		api.POST("/technicians/invites/:token/complete", auth.RequireSession(), technicianController.CompleteInvite)

		technicians := api.Group("/technicians", auth.RequireSession(), middleware.RequireRole(models.RoleTechnician))
		{
			technicians.GET("/me/gigs", technicianController.ListGigs)
			technicians.GET("/gigs/:id", technicianController.GetGig)
			technicians.POST("/gigs/:id/status", technicianController.UpdateGigStatus)
			technicians.POST("/gigs/:id/complete", technicianController.CompleteGig)
			technicians.POST("/upload", technicianController.UploadPhoto)
		}

		admin := api.Group("/admin", auth.RequireSession(), middleware.RequireRole(models.RoleAdmin))
		{
			admin.GET("/dashboard", dashboardController.Stats)

			admin.GET("/orders", orderController.List)
			admin.POST("/orders", orderController.Search)
			admin.GET("/orders/:id", orderController.Get)
			admin.POST("/assign-order", orderController.Assign)
			admin.POST("/orders/:id/regenerate-otp", orderController.RegenerateOTP)
			admin.POST("/orders/:id/confirm-payment", orderController.ConfirmPayment)
			admin.POST("/orders/:id/complete-with-costs", orderController.CompleteWithCosts)
			admin.POST("/orders/:id/cancel", orderController.Cancel)

			admin.GET("/technicians", adminTechnicianController.List)
			admin.POST("/technicians", adminTechnicianController.Create)
			admin.GET("/technicians/:id", adminTechnicianController.Get)
			admin.PATCH("/technicians/:id", adminTechnicianController.Update)
			admin.POST("/technician-invites", adminTechnicianController.CreateInvite)
			admin.GET("/technician-invites", adminTechnicianController.ListInvites)

			admin.POST("/coupons", couponController.Create)
			admin.GET("/coupons", couponController.List)
			admin.GET("/coupons/:id", couponController.Get)
			admin.PATCH("/coupons/:id", couponController.Update)

			admin.GET("/form-data", catalogController.FormData)
			admin.POST("/brands", catalogController.CreateBrand)
			admin.POST("/issues", catalogController.CreateIssue)
			admin.POST("/models", catalogController.CreateModel)
			admin.GET("/models/:id", catalogController.GetModel)
			admin.PATCH("/models/:id", catalogController.UpdateModel)
			admin.POST("/uploads/model-image", catalogController.UploadModelImage)
			admin.POST("/generate-upload-url", catalogController.GenerateUploadURL)

			admin.GET("/contact-messages", contactController.List)
			admin.GET("/contact-messages/stats", contactController.Stats)
			admin.GET("/contact-messages/:id", contactController.Get)
			admin.PATCH("/contact-messages/:id", contactController.Update)
		}
	}

	return router, nil
}
