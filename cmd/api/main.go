package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	log "github.com/sirupsen/logrus"

	"postspark_backend/internal/controller"
	"postspark_backend/internal/middleware"
	"postspark_backend/internal/model"
	"postspark_backend/pkg/billing"
	"postspark_backend/pkg/config"
	"postspark_backend/pkg/cron"
	"postspark_backend/pkg/database"
)

func setupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Auth Routes
	auth := api.Group("/auth")
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)

	// Public plan catalog
	api.Get("/plans", controller.ListPlans)
	api.Get("/plans/:id/savings", controller.GetAnnualSavings)

	// Protected Routes
	protected := api.Group("/", middleware.AuthMiddleware())
	protected.Get("/me", controller.GetMe)

	// Billing routes
	billingRoutes := api.Group("/billing", middleware.AuthMiddleware())
	billingRoutes.Get("/", controller.GetMyBilling)
	billingRoutes.Get("/history", controller.GetBillingHistory)
	billingRoutes.Get("/can/:action", controller.CanPerform)
	billingRoutes.Post("/topup", controller.TopUp)

	// Subscription routes
	subscriptions := api.Group("/subscriptions", middleware.AuthMiddleware())
	subscriptions.Post("/", controller.Subscribe)
	subscriptions.Post("/cancel", controller.CancelSubscription)
	subscriptions.Get("/my", controller.GetMySubscription)

	// Content metering routes with credit pre-flight
	content := api.Group("/content", middleware.AuthMiddleware())
	content.Post("/generate", middleware.RequireCredits(model.ActionAIGeneration), controller.RecordGeneration)
	content.Post("/enhance", middleware.RequireCredits(model.ActionAIEnhance), controller.RecordEnhancement)
	content.Post("/carousel", middleware.RequireCredits(model.ActionCarouselGen), controller.RecordCarousel)
	content.Post("/export", middleware.RequireCredits(model.ActionExportPDF), controller.RecordExport)

	// Scheduled post routes
	posts := api.Group("/posts", middleware.AuthMiddleware())
	posts.Post("/", middleware.RequireCredits(model.ActionSchedulePost), controller.SchedulePost)
	posts.Get("/my", controller.ListMyPosts)
	posts.Get("/upcoming", controller.ListUpcomingPosts)
	posts.Put("/:id/cancel", middleware.CheckPostOwnership(), controller.CancelPost)

	// Dashboard routes
	dashboard := api.Group("/dashboard", middleware.AuthMiddleware())
	dashboard.Get("/stats", controller.GetDashboardStats)
}

func main() {
	cfg := config.Load()

	database.InitDB(cfg.DSN())
	err := database.MigrateDatabase(
		&model.User{},
		&model.UserBilling{},
		&model.ScheduledPost{},
	)
	if err != nil {
		log.Warnf("Migration warning: %v", err)
	}

	ledger := billing.NewLedger(billing.NewGormStore(database.GetDB()))
	controller.InitBillingController(ledger)
	middleware.InitCreditMiddleware(ledger)
	cron.InitMonthlyResetCron(ledger)
	cron.InitPublisherCron()

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(fiberlogger.New())
	app.Use(cors.New())

	setupRoutes(app)

	log.Infof("Server is running on port %s", cfg.Server.Port)
	log.Fatal(app.Listen(":" + cfg.Server.Port))
}
