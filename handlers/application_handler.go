package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	config "github.com/anjiri1684/job_connect/configs"
	"github.com/anjiri1684/job_connect/database"
	"github.com/anjiri1684/job_connect/models"
	"github.com/anjiri1684/job_connect/notifications"
	ws "github.com/anjiri1684/job_connect/websocket"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// ApplicationHandler owns the application endpoints. It broadcasts state
// changes through the hub primitive directly; the hub never calls back
// into it.
type ApplicationHandler struct {
	hub *ws.Hub
}

func NewApplicationHandler(hub *ws.Hub) *ApplicationHandler {
	return &ApplicationHandler{hub: hub}
}

func (h *ApplicationHandler) ApplyForJob(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, _ := uuid.Parse(claims["user_id"].(string))

	jobID, err := uuid.Parse(c.FormValue("job_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid job ID"})
	}
	notes := c.FormValue("notes")

	var job models.Job
	if err := database.DB.Preload("Company").Where("id = ?", jobID).First(&job).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Job not found"})
	}
	if job.Closed {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "This job is no longer accepting applications"})
	}
	if !job.Company.ApprovedByAdmin {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot apply to jobs from unapproved companies"})
	}

	var existing models.Application
	err = database.DB.Where("job_id = ? AND user_id = ?", jobID, userID).First(&existing).Error
	if err == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "You have already applied for this job"})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}

	fileHeader, err := c.FormFile("cv")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "CV is required for job application"})
	}
	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to read CV"})
	}
	defer file.Close()

	cld, err := cloudinary.NewFromURL(config.Config("CLOUDINARY_URL"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to initialize Cloudinary"})
	}
	uploadResp, err := cld.Upload.Upload(c.UserContext(), file, uploader.UploadParams{Folder: "user-cvs"})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload CV"})
	}

	application := models.Application{
		JobID:      jobID,
		UserID:     userID,
		CVURL:      uploadResp.SecureURL,
		CVPublicID: uploadResp.PublicID,
		Status:     models.ApplicationPending,
	}
	if notes != "" {
		application.Notes = &notes
	}
	if err := database.DB.Create(&application).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "You have already applied for this job"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create application"})
	}

	var applicant models.User
	_ = database.DB.First(&applicant, "id = ?", userID).Error

	// Live HR notification, scoped to the company room.
	h.hub.Broadcast(ws.CompanyRoom(job.CompanyID), "newApplication", fiber.Map{
		"application_id": application.ID,
		"job_title":      job.JobTitle,
		"applicant": fiber.Map{
			"name":  applicant.FirstName + " " + applicant.LastName,
			"email": applicant.Email,
		},
		"timestamp": time.Now().UTC(),
	})

	go notifications.SendEmail(
		applicant.FirstName,
		applicant.Email,
		"Application received",
		fmt.Sprintf("<h1>Application Received</h1><p>Your application for <b>%s</b> at %s has been submitted.</p>",
			job.JobTitle, job.Company.CompanyName),
	)
	go h.notifyCompanyHRs(&job, &applicant)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":     "Application submitted successfully",
		"application": application,
	})
}

// notifyCompanyHRs emails the job creator plus at most five other HRs.
func (h *ApplicationHandler) notifyCompanyHRs(job *models.Job, applicant *models.User) {
	var company models.Company
	if err := database.DB.Preload("HRs").Preload("CreatedBy").
		First(&company, "id = ?", job.CompanyID).Error; err != nil {
		return
	}

	recipients := []*models.User{&company.CreatedBy}
	others := lo.Filter(company.HRs, func(u *models.User, _ int) bool {
		return u.ID != company.CreatedByID
	})
	recipients = append(recipients, lo.Subset(others, 0, 5)...)

	body := fmt.Sprintf("<h1>New Application</h1><p>%s %s applied for <b>%s</b>.</p>",
		applicant.FirstName, applicant.LastName, job.JobTitle)
	for _, hr := range recipients {
		notifications.SendEmail(hr.FirstName, hr.Email, "New application received", body)
	}
}

func (h *ApplicationHandler) GetJobApplications(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("jobId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid job ID"})
	}

	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, _ := uuid.Parse(claims["user_id"].(string))
	role, _ := claims["role"].(string)

	var job models.Job
	if err := database.DB.Preload("Company").Where("id = ?", jobID).First(&job).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Job not found"})
	}

	if role != models.RoleAdmin && job.AddedByID != userID && job.Company.CreatedByID != userID {
		ok, err := isCompanyHR(userID, job.CompanyID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
		}
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not authorized to view applications for this job"})
		}
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	query := database.DB.Model(&models.Application{}).Where("job_id = ?", jobID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to count applications"})
	}

	order := "created_at desc"
	if c.Query("sort") == "oldest" {
		order = "created_at asc"
	}

	var applications []models.Application
	err = query.Preload("User").
		Order(order).
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&applications).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch applications"})
	}

	return c.JSON(fiber.Map{
		"applications": applications,
		"pagination": fiber.Map{
			"total_docs":   total,
			"current_page": page,
			"page_size":    pageSize,
		},
	})
}

func (h *ApplicationHandler) GetMyApplications(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, _ := uuid.Parse(claims["user_id"].(string))

	var applications []models.Application
	err := database.DB.Preload("Job").Preload("Job.Company").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&applications).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch applications"})
	}

	return c.JSON(fiber.Map{"results": len(applications), "applications": applications})
}

type UpdateApplicationStatusRequest struct {
	Status string  `json:"status" validate:"required"`
	Notes  *string `json:"notes"`
}

func (h *ApplicationHandler) UpdateApplicationStatus(c *fiber.Ctx) error {
	applicationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid application ID"})
	}

	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, _ := uuid.Parse(claims["user_id"].(string))
	role, _ := claims["role"].(string)

	var req UpdateApplicationStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if !models.ValidApplicationStatus(req.Status) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid application status"})
	}

	var application models.Application
	if err := database.DB.Where("id = ?", applicationID).First(&application).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Application not found"})
	}

	var job models.Job
	if err := database.DB.Preload("Company").Where("id = ?", application.JobID).First(&job).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Job not found"})
	}

	if role != models.RoleAdmin && job.AddedByID != userID && job.Company.CreatedByID != userID {
		ok, err := isCompanyHR(userID, job.CompanyID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
		}
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not authorized to update this application"})
		}
	}

	now := time.Now().UTC()
	application.Status = req.Status
	application.ReviewedByID = &userID
	application.ReviewedAt = &now
	if req.Notes != nil {
		application.Notes = req.Notes
	}
	if err := database.DB.Save(&application).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update application"})
	}

	// Live notification to the applicant's personal room.
	h.hub.Broadcast(ws.UserRoom(application.UserID), "applicationStatusUpdate", fiber.Map{
		"application_id": application.ID,
		"job_title":      job.JobTitle,
		"status":         application.Status,
		"company":        job.Company.CompanyName,
		"timestamp":      now,
	})

	var applicant models.User
	if err := database.DB.First(&applicant, "id = ?", application.UserID).Error; err == nil {
		go notifications.SendEmail(
			applicant.FirstName,
			applicant.Email,
			"Application status updated",
			fmt.Sprintf("<h1>Status Update</h1><p>Your application for <b>%s</b> at %s is now <b>%s</b>.</p>",
				job.JobTitle, job.Company.CompanyName, application.Status),
		)
	}

	return c.JSON(fiber.Map{
		"message":     "Application status updated to " + application.Status,
		"application": application,
	})
}

// WithdrawApplication lets the applicant (or an admin) remove an
// application.
func (h *ApplicationHandler) WithdrawApplication(c *fiber.Ctx) error {
	applicationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid application ID"})
	}

	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, _ := uuid.Parse(claims["user_id"].(string))
	role, _ := claims["role"].(string)

	var application models.Application
	if err := database.DB.Where("id = ?", applicationID).First(&application).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Application not found"})
	}

	if application.UserID != userID && role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not authorized to delete this application"})
	}

	if err := database.DB.Delete(&application).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete application"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
