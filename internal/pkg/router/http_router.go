package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/TobiKellner/StockShip/internal/pkg/cache"
	"github.com/TobiKellner/StockShip/internal/pkg/database"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"name":    "StockShip",
			"message": "Marketplace export pipeline",
		})
	})

	app.Get("/health", healthHandler)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

// healthHandler reports readiness of the database and the cache
func healthHandler(c *fiber.Ctx) error {
	status := fiber.StatusOK
	checks := fiber.Map{"database": "ok", "cache": "ok"}

	if db := database.GetDB(); db == nil {
		checks["database"] = "unavailable"
		status = fiber.StatusServiceUnavailable
	} else if sqlDB, err := db.DB(); err != nil || sqlDB.Ping() != nil {
		checks["database"] = "unreachable"
		status = fiber.StatusServiceUnavailable
	}

	if client := cache.GetClient(); client == nil {
		checks["cache"] = "unavailable"
		status = fiber.StatusServiceUnavailable
	} else if err := client.Ping(c.Context()).Err(); err != nil {
		checks["cache"] = "unreachable"
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{"status": checks})
}
