package routes

import (
	"github.com/anjiri1684/job_connect/handlers"
	"github.com/anjiri1684/job_connect/middleware"
	"github.com/gofiber/fiber/v2"
)

func ProfileRoutes(app *fiber.App) {
	profile := app.Group("/api/v1/profile", middleware.Protected())
	profile.Get("", handlers.GetProfile)
	profile.Patch("", handlers.UpdateProfile)
	profile.Delete("", handlers.DeleteAccount)

	app.Get("/api/v1/users/:id", middleware.Protected(), handlers.GetPublicProfile)
}
