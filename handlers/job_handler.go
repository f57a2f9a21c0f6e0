package handlers

import (
	"strconv"
	"strings"

	"github.com/anjiri1684/job_connect/database"
	"github.com/anjiri1684/job_connect/models"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type CreateJobRequest struct {
	JobTitle        string   `json:"job_title" validate:"required,min=3"`
	JobLocation     string   `json:"job_location" validate:"required,oneof=onsite remotely hybrid"`
	WorkingTime     string   `json:"working_time" validate:"required,oneof=part-time full-time"`
	SeniorityLevel  string   `json:"seniority_level" validate:"required"`
	JobDescription  string   `json:"job_description" validate:"required,min=50"`
	TechnicalSkills []string `json:"technical_skills" validate:"required,min=1"`
	SoftSkills      []string `json:"soft_skills"`
	CompanyID       string   `json:"company_id" validate:"required,uuid"`
}

func CreateJob(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, _ := uuid.Parse(claims["user_id"].(string))
	role, _ := claims["role"].(string)

	var req CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	companyID, _ := uuid.Parse(req.CompanyID)

	var company models.Company
	if err := database.DB.Where("id = ?", companyID).First(&company).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Company not found"})
	}

	if role != models.RoleAdmin {
		ok, err := isCompanyHR(userID, companyID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
		}
		if !ok && company.CreatedByID != userID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only the company owner or HR can post jobs"})
		}
	}

	job := models.Job{
		JobTitle:        req.JobTitle,
		JobLocation:     req.JobLocation,
		WorkingTime:     req.WorkingTime,
		SeniorityLevel:  req.SeniorityLevel,
		JobDescription:  req.JobDescription,
		TechnicalSkills: req.TechnicalSkills,
		SoftSkills:      req.SoftSkills,
		AddedByID:       userID,
		CompanyID:       companyID,
	}
	if err := database.DB.Create(&job).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create job"})
	}

	return c.Status(fiber.StatusCreated).JSON(job)
}

func GetJob(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid job ID"})
	}

	var job models.Job
	if err := database.DB.Preload("Company").Where("id = ?", jobID).First(&job).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Job not found"})
	}

	return c.JSON(job)
}

// ListJobs filters open jobs by location, working time, seniority, title
// and skill, paginated.
func ListJobs(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := database.DB.Model(&models.Job{}).Where("closed = ?", false)

	if companyID := c.Query("company_id"); companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}
	if location := c.Query("job_location"); location != "" {
		query = query.Where("job_location = ?", location)
	}
	if workingTime := c.Query("working_time"); workingTime != "" {
		query = query.Where("working_time = ?", workingTime)
	}
	if seniority := c.Query("seniority_level"); seniority != "" {
		query = query.Where("seniority_level = ?", seniority)
	}
	if title := c.Query("job_title"); title != "" {
		query = query.Where("job_title LIKE ?", "%"+title+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to count jobs"})
	}

	var jobs []models.Job
	err := query.Preload("Company").
		Order("created_at desc").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&jobs).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch jobs"})
	}

	// Skill filtering happens after the page load since skills are stored
	// serialized.
	if skill := c.Query("skill"); skill != "" {
		jobs = lo.Filter(jobs, func(j models.Job, _ int) bool {
			return lo.ContainsBy(j.TechnicalSkills, func(s string) bool {
				return strings.EqualFold(s, skill)
			})
		})
	}

	return c.JSON(fiber.Map{
		"jobs": jobs,
		"pagination": fiber.Map{
			"total_jobs":   total,
			"current_page": page,
			"page_size":    pageSize,
		},
	})
}

type UpdateJobRequest struct {
	JobTitle        *string   `json:"job_title"`
	JobLocation     *string   `json:"job_location"`
	WorkingTime     *string   `json:"working_time"`
	SeniorityLevel  *string   `json:"seniority_level"`
	JobDescription  *string   `json:"job_description"`
	TechnicalSkills *[]string `json:"technical_skills"`
	SoftSkills      *[]string `json:"soft_skills"`
	Closed          *bool     `json:"closed"`
}

func UpdateJob(c *fiber.Ctx) error {
	job, err := loadManagedJob(c)
	if err != nil {
		return err
	}

	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, _ := uuid.Parse(claims["user_id"].(string))

	var req UpdateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	if req.JobTitle != nil {
		job.JobTitle = *req.JobTitle
	}
	if req.JobLocation != nil {
		job.JobLocation = *req.JobLocation
	}
	if req.WorkingTime != nil {
		job.WorkingTime = *req.WorkingTime
	}
	if req.SeniorityLevel != nil {
		job.SeniorityLevel = *req.SeniorityLevel
	}
	if req.JobDescription != nil {
		job.JobDescription = *req.JobDescription
	}
	if req.TechnicalSkills != nil {
		job.TechnicalSkills = *req.TechnicalSkills
	}
	if req.SoftSkills != nil {
		job.SoftSkills = *req.SoftSkills
	}
	if req.Closed != nil {
		job.Closed = *req.Closed
	}
	job.UpdatedByID = &userID

	if err := database.DB.Save(job).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update job"})
	}

	return c.JSON(job)
}

// DeleteJob removes the job and its applications in one transaction.
func DeleteJob(c *fiber.Ctx) error {
	job, err := loadManagedJob(c)
	if err != nil {
		return err
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", job.ID).Delete(&models.Application{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Job{}, "id = ?", job.ID).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete job"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// isCompanyHR is a fresh lookup on every call; revoked HRs lose access on
// their next action.
func isCompanyHR(userID, companyID uuid.UUID) (bool, error) {
	var count int64
	err := database.DB.Table("company_hrs").
		Where("company_id = ? AND user_id = ?", companyID, userID).
		Count(&count).Error
	return count > 0, err
}

// loadManagedJob resolves :id and checks the caller is the job creator,
// the company owner, an HR of the company, or an admin.
func loadManagedJob(c *fiber.Ctx) (*models.Job, error) {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, _ := uuid.Parse(claims["user_id"].(string))
	role, _ := claims["role"].(string)

	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid job ID")
	}

	var job models.Job
	if err := database.DB.Preload("Company").Where("id = ?", jobID).First(&job).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Job not found")
	}

	if role == models.RoleAdmin || job.AddedByID == userID || job.Company.CreatedByID == userID {
		return &job, nil
	}
	ok, err := isCompanyHR(userID, job.CompanyID)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Database error")
	}
	if !ok {
		return nil, fiber.NewError(fiber.StatusForbidden, "You are not authorized to manage this job")
	}
	return &job, nil
}
