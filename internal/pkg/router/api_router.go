package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/TobiKellner/StockShip/app/controllers"
	"github.com/TobiKellner/StockShip/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1", middleware.APIKeyAuthMiddleware())
	v1.Post("/exports", controllers.HandleCreateExport)
	v1.Get("/exports/:uuid", controllers.HandleGetExport)
	v1.Get("/exports/:uuid/download", controllers.HandleDownloadExport)
	v1.Get("/queue/stats", controllers.HandleQueueStats)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
