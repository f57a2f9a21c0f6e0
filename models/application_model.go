package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ApplicationPending         = "pending"
	ApplicationViewed          = "viewed"
	ApplicationInConsideration = "in consideration"
	ApplicationAccepted        = "accepted"
	ApplicationRejected        = "rejected"
)

func ValidApplicationStatus(status string) bool {
	switch status {
	case ApplicationPending, ApplicationViewed, ApplicationInConsideration,
		ApplicationAccepted, ApplicationRejected:
		return true
	}
	return false
}

type Application struct {
	ID uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`

	JobID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_applications_job_user" json:"job_id"`
	Job   Job       `gorm:"foreignKey:JobID" json:"job,omitempty"`

	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_applications_job_user" json:"user_id"`
	User   User      `gorm:"foreignKey:UserID" json:"-"`

	CVURL      string `gorm:"size:255;not null" json:"cv_url"`
	CVPublicID string `gorm:"size:255;not null" json:"-"`

	Status string  `gorm:"size:30;not null;default:'pending'" json:"status"`
	Notes  *string `gorm:"type:text" json:"notes"`

	ReviewedByID *uuid.UUID `gorm:"type:uuid" json:"reviewed_by_id"`
	ReviewedAt   *time.Time `json:"reviewed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
