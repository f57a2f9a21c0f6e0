package handlers

import (
	"errors"

	"github.com/anjiri1684/job_connect/database"
	"github.com/anjiri1684/job_connect/models"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateCompanyRequest struct {
	CompanyName       string `json:"company_name" validate:"required,min=2"`
	Description       string `json:"description" validate:"required,min=20"`
	Industry          string `json:"industry" validate:"required"`
	Address           string `json:"address" validate:"required"`
	NumberOfEmployees string `json:"number_of_employees"`
	CompanyEmail      string `json:"company_email" validate:"required,email"`
}

func CreateCompany(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, _ := uuid.Parse(claims["user_id"].(string))

	var req CreateCompanyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	company := models.Company{
		CompanyName:       req.CompanyName,
		Description:       req.Description,
		Industry:          req.Industry,
		Address:           req.Address,
		NumberOfEmployees: req.NumberOfEmployees,
		CompanyEmail:      req.CompanyEmail,
		CreatedByID:       userID,
	}
	if err := database.DB.Create(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Company name or email already exists"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create company"})
	}

	return c.Status(fiber.StatusCreated).JSON(company)
}

func GetCompany(c *fiber.Ctx) error {
	companyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid company ID"})
	}

	var company models.Company
	if err := database.DB.Preload("HRs").Where("id = ?", companyID).First(&company).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Company not found"})
	}

	return c.JSON(company)
}

func SearchCompanies(c *fiber.Ctx) error {
	name := c.Query("name")

	query := database.DB.Model(&models.Company{})
	if name != "" {
		query = query.Where("company_name LIKE ?", "%"+name+"%")
	}

	var companies []models.Company
	if err := query.Order("company_name asc").Find(&companies).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to search companies"})
	}

	return c.JSON(fiber.Map{"results": len(companies), "companies": companies})
}

type UpdateCompanyRequest struct {
	Description       *string `json:"description"`
	Industry          *string `json:"industry"`
	Address           *string `json:"address"`
	NumberOfEmployees *string `json:"number_of_employees"`
	LogoURL           *string `json:"logo_url"`
	LogoID            *string `json:"logo_id"`
	CoverPicURL       *string `json:"cover_pic_url"`
	CoverPicID        *string `json:"cover_pic_id"`
}

func UpdateCompany(c *fiber.Ctx) error {
	company, fiberErr := loadOwnedCompany(c)
	if fiberErr != nil {
		return fiberErr
	}

	var req UpdateCompanyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	if req.Description != nil {
		company.Description = *req.Description
	}
	if req.Industry != nil {
		company.Industry = *req.Industry
	}
	if req.Address != nil {
		company.Address = *req.Address
	}
	if req.NumberOfEmployees != nil {
		company.NumberOfEmployees = *req.NumberOfEmployees
	}
	if req.LogoURL != nil {
		company.LogoURL = req.LogoURL
	}
	if req.LogoID != nil {
		company.LogoID = req.LogoID
	}
	if req.CoverPicURL != nil {
		company.CoverPicURL = req.CoverPicURL
	}
	if req.CoverPicID != nil {
		company.CoverPicID = req.CoverPicID
	}

	if err := database.DB.Save(company).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update company"})
	}

	return c.JSON(company)
}

// DeleteCompany cascades: applications for the company's jobs, the jobs
// themselves, the HR join rows, then the company. One transaction.
func DeleteCompany(c *fiber.Ctx) error {
	company, fiberErr := loadOwnedCompany(c)
	if fiberErr != nil {
		return fiberErr
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var jobIDs []uuid.UUID
		if err := tx.Model(&models.Job{}).Where("company_id = ?", company.ID).
			Pluck("id", &jobIDs).Error; err != nil {
			return err
		}
		if len(jobIDs) > 0 {
			if err := tx.Where("job_id IN ?", jobIDs).Delete(&models.Application{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", jobIDs).Delete(&models.Job{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Exec("DELETE FROM company_hrs WHERE company_id = ?", company.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Company{}, "id = ?", company.ID).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete company"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ApproveCompany marks the company as vetted. Jobs only accept
// applications once their company is approved.
func ApproveCompany(c *fiber.Ctx) error {
	companyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid company ID"})
	}

	var company models.Company
	if err := database.DB.Where("id = ?", companyID).First(&company).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Company not found"})
	}

	company.ApprovedByAdmin = true
	if err := database.DB.Save(&company).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to approve company"})
	}

	return c.JSON(company)
}

type HRRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

func AddHR(c *fiber.Ctx) error {
	company, fiberErr := loadOwnedCompany(c)
	if fiberErr != nil {
		return fiberErr
	}

	var req HRRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	hrID, _ := uuid.Parse(req.UserID)

	var hr models.User
	if err := database.DB.First(&hr, "id = ?", hrID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	if err := database.DB.Model(company).Association("HRs").Append(&hr); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to add HR"})
	}

	return c.JSON(fiber.Map{"message": "HR added successfully."})
}

func RemoveHR(c *fiber.Ctx) error {
	company, fiberErr := loadOwnedCompany(c)
	if fiberErr != nil {
		return fiberErr
	}

	hrID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	hr := models.User{ID: hrID}
	if err := database.DB.Model(company).Association("HRs").Delete(&hr); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to remove HR"})
	}

	return c.JSON(fiber.Map{"message": "HR removed successfully."})
}

// loadOwnedCompany resolves :id and checks the caller owns the company or
// is an admin. Failures come back as *fiber.Error for the app-level error
// handler.
func loadOwnedCompany(c *fiber.Ctx) (*models.Company, error) {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, _ := uuid.Parse(claims["user_id"].(string))
	role, _ := claims["role"].(string)

	companyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid company ID")
	}

	var company models.Company
	if err := database.DB.Where("id = ?", companyID).First(&company).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Company not found")
	}

	if company.CreatedByID != userID && role != models.RoleAdmin {
		return nil, fiber.NewError(fiber.StatusForbidden, "Only the company owner can do this")
	}

	return &company, nil
}
