package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxMessageLength bounds the body of a single chat message.
const MaxMessageLength = 2000

type Message struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ChatID   uuid.UUID `gorm:"type:uuid;not null;index" json:"chat_id"`
	SenderID uuid.UUID `gorm:"type:uuid;not null" json:"sender_id"`
	Body     string    `gorm:"type:text;not null" json:"message"`

	Chat Chat `gorm:"foreignKey:ChatID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
