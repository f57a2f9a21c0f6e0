package routes

import (
	"github.com/anjiri1684/job_connect/handlers"
	"github.com/anjiri1684/job_connect/middleware"
	"github.com/gofiber/fiber/v2"
)

func ApplicationRoutes(app *fiber.App, h *handlers.ApplicationHandler) {
	applications := app.Group("/api/v1/applications", middleware.Protected())
	applications.Post("", h.ApplyForJob)
	applications.Get("/me", h.GetMyApplications)
	applications.Get("/job/:jobId", h.GetJobApplications)
	applications.Patch("/:id/status", h.UpdateApplicationStatus)
	applications.Delete("/:id", h.WithdrawApplication)
}
