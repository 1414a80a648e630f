package main

import (
	"fmt"
	"log"

	"github.com/TobiKellner/StockShip/internal/pkg/cache"
	"github.com/TobiKellner/StockShip/internal/pkg/database"
	"github.com/TobiKellner/StockShip/internal/pkg/env"
	"github.com/TobiKellner/StockShip/internal/pkg/jobqueue"
	"github.com/TobiKellner/StockShip/internal/pkg/router"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	jobqueue.GetManager().Start()

	app := fiber.New(fiber.Config{
		BodyLimit: 838860800, // large enough for batch image uploads
		// alternative:
		// StreamRequestBody: true
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
