package main

import (
	"context"
	"log"

	"coursehub/backend/config"
	"coursehub/backend/middleware"
	"coursehub/backend/routes"
	"coursehub/backend/services"
	"coursehub/backend/storage"
	"coursehub/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(cfg.LogMode)
	if err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := utils.InitDB(cfg, logger)
	if err != nil {
		logger.Fatal("Error initializing database", "error", err)
	}

	store, err := storage.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Error initializing object storage", "error", err)
	}

	svc := routes.Services{
		Content:     services.NewContentService(db, logger, services.UUIDCodes{Length: cfg.EnrollCodeLength}),
		Enrollments: services.NewEnrollmentService(db, logger),
		Quizzes:     services.NewQuizService(db, logger),
		Assignments: services.NewAssignmentService(db, store, logger, services.WithMaxFileSize(cfg.MaxUploadSize)),
		Progress:    services.NewProgressService(db, logger, services.EqualWeights),
	}

	// Create Fiber app
	app := fiber.New()

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(logger))

	// Setup routes
	routes.SetupRoutes(app, db, cfg, logger, svc)

	// Start server
	logger.Info("Starting server", "port", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logger.Fatal("Server stopped", "error", err)
	}
}
