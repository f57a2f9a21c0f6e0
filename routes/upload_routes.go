package routes

import (
	"github.com/anjiri1684/job_connect/handlers"
	"github.com/anjiri1684/job_connect/middleware"
	"github.com/gofiber/fiber/v2"
)

func UploadRoutes(app *fiber.App) {
	uploads := app.Group("/api/v1/uploads", middleware.Protected())
	uploads.Get("/signature", handlers.GenerateUploadSignature)
}
