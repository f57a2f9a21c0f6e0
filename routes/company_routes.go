package routes

import (
	"github.com/anjiri1684/job_connect/handlers"
	"github.com/anjiri1684/job_connect/middleware"
	"github.com/gofiber/fiber/v2"
)

func CompanyRoutes(app *fiber.App) {
	companies := app.Group("/api/v1/companies", middleware.Protected())
	companies.Post("", handlers.CreateCompany)
	companies.Get("", handlers.SearchCompanies)
	companies.Get("/:id", handlers.GetCompany)
	companies.Patch("/:id/approve", middleware.AdminRequired(), handlers.ApproveCompany)
	companies.Patch("/:id", handlers.UpdateCompany)
	companies.Delete("/:id", handlers.DeleteCompany)
	companies.Post("/:id/hrs", handlers.AddHR)
	companies.Delete("/:id/hrs/:userId", handlers.RemoveHR)
}
