package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	JobLocationOnsite = "onsite"
	JobLocationRemote = "remotely"
	JobLocationHybrid = "hybrid"

	WorkingTimePartTime = "part-time"
	WorkingTimeFullTime = "full-time"
)

type Job struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	JobTitle       string    `gorm:"size:255;not null" json:"job_title"`
	JobLocation    string    `gorm:"size:20;not null" json:"job_location"`
	WorkingTime    string    `gorm:"size:20;not null" json:"working_time"`
	SeniorityLevel string    `gorm:"size:50;not null" json:"seniority_level"`
	JobDescription string    `gorm:"type:text;not null" json:"job_description"`

	TechnicalSkills []string `gorm:"serializer:json" json:"technical_skills"`
	SoftSkills      []string `gorm:"serializer:json" json:"soft_skills"`

	AddedByID   uuid.UUID  `gorm:"type:uuid;not null" json:"added_by_id"`
	AddedBy     User       `gorm:"foreignKey:AddedByID" json:"-"`
	UpdatedByID *uuid.UUID `gorm:"type:uuid" json:"updated_by_id"`

	CompanyID uuid.UUID `gorm:"type:uuid;not null;index" json:"company_id"`
	Company   Company   `gorm:"foreignKey:CompanyID" json:"company,omitempty"`

	Closed bool `gorm:"default:false" json:"closed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}
