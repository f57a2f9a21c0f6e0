package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Company struct {
	ID                uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	CompanyName       string    `gorm:"size:255;not null;unique" json:"company_name"`
	Description       string    `gorm:"type:text;not null" json:"description"`
	Industry          string    `gorm:"size:255;not null" json:"industry"`
	Address           string    `gorm:"size:255;not null" json:"address"`
	NumberOfEmployees string    `gorm:"size:50" json:"number_of_employees"`
	CompanyEmail      string    `gorm:"size:255;not null;unique" json:"company_email"`

	CreatedByID uuid.UUID `gorm:"type:uuid;not null" json:"created_by_id"`
	CreatedBy   User      `gorm:"foreignKey:CreatedByID" json:"-"`

	LogoURL     *string `gorm:"size:255" json:"logo_url"`
	LogoID      *string `gorm:"size:255" json:"-"`
	CoverPicURL *string `gorm:"size:255" json:"cover_pic_url"`
	CoverPicID  *string `gorm:"size:255" json:"-"`

	HRs []*User `gorm:"many2many:company_hrs;" json:"hrs,omitempty"`

	ApprovedByAdmin bool `gorm:"default:false" json:"approved_by_admin"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (co *Company) BeforeCreate(tx *gorm.DB) error {
	if co.ID == uuid.Nil {
		co.ID = uuid.New()
	}
	return nil
}
