package routes

import (
	"github.com/anjiri1684/job_connect/handlers"
	"github.com/anjiri1684/job_connect/middleware"
	"github.com/gofiber/fiber/v2"
)

func JobRoutes(app *fiber.App) {
	jobs := app.Group("/api/v1/jobs")
	jobs.Get("", handlers.ListJobs)
	jobs.Get("/:id", handlers.GetJob)

	jobs.Post("", middleware.Protected(), handlers.CreateJob)
	jobs.Patch("/:id", middleware.Protected(), handlers.UpdateJob)
	jobs.Delete("/:id", middleware.Protected(), handlers.DeleteJob)
}
