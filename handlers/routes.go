// handlers/routes.go - Fiber app construction and route table
package handlers

import (
	"time"

	"proofofcrab/config"
	"proofofcrab/handlers/admin"
	"proofofcrab/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// NewApp builds the Fiber app with the global middleware stack.
func NewApp(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(cfg.IsProduction()),
		BodyLimit:    1 * 1024 * 1024, // 1MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	if cfg.RateLimitEnabled {
		app.Use(middleware.FiberRateLimit(middleware.NewRateLimiter(cfg.RateLimitMaxRequests, cfg.RateLimitWindow)))
	}
	return app
}

// RegisterRoutes mounts the frame, provisioning and admin routes.
func RegisterRoutes(app *fiber.App, h *Handler, adminHandler *admin.Handler) {
	api := app.Group("/api")

	poc := api.Group("/proof-of-crab")
	poc.Post("/challenge/:challengeId/proof", h.MintProof)
	poc.Post("/challenge/:challengeId", h.SubmitAnswer)
	poc.Get("/challenge/:challengeId", h.CurrentStep)
	poc.Post("/:frameId/new-challenge", h.NewChallenge)
	poc.Get("", h.Home)
	poc.Post("", h.Home)
	poc.Get("/:frameId", h.Home)
	poc.Post("/:frameId", h.Home)

	api.Get("/add-frame-to-account", h.AddFrame)
	api.Post("/add-frame-to-account", h.AddFrame)
	api.Post("/add-frame-to-account/clone", h.CloneFrame)

	adminHandler.Register(api)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
		})
	})
}
