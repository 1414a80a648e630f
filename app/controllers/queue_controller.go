package controllers

import (
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/TobiKellner/StockShip/internal/pkg/jobqueue"
)

// HandleQueueStats exposes job queue counters for monitoring
func HandleQueueStats(c *fiber.Ctx) error {
	queue := jobqueue.GetManager().GetQueue()

	stats, err := queue.GetJobStats(c.Context())
	if err != nil {
		fiberlog.Errorf("[Queue] failed to read job stats: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "failed to read queue stats"})
	}

	queueSize, err := queue.GetQueueSize(c.Context())
	if err != nil {
		queueSize = -1
	}
	processingSize, err := queue.GetProcessingSize(c.Context())
	if err != nil {
		processingSize = -1
	}

	return c.JSON(fiber.Map{
		"jobs":       stats,
		"queued":     queueSize,
		"processing": processingSize,
	})
}
