package services

import (
	"github.com/anjiri1684/job_connect/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatPolicy decides who may open and who may post to a conversation.
// Initiating contact is restricted to company owners, HR members and
// admins; replying is open to both participants once a chat exists.
type ChatPolicy struct {
	db *gorm.DB
}

func NewChatPolicy(db *gorm.DB) *ChatPolicy {
	return &ChatPolicy{db: db}
}

// IsHRCapable reports whether the user created at least one company or is
// in some company's HR set. Looked up fresh on every call so a revoked HR
// loses initiation rights immediately.
func (p *ChatPolicy) IsHRCapable(userID uuid.UUID) (bool, error) {
	var count int64
	err := p.db.Model(&models.Company{}).
		Joins("LEFT JOIN company_hrs ON company_hrs.company_id = companies.id").
		Where("companies.created_by_id = ? OR company_hrs.user_id = ?", userID, userID).
		Count(&count).Error
	if err != nil {
		return false, wrapStore("failed to check HR membership", err)
	}
	return count > 0, nil
}

func (p *ChatPolicy) CanInitiate(actor *models.User, counterpartyID uuid.UUID) (bool, error) {
	if actor.ID == counterpartyID {
		return false, nil
	}
	if actor.IsAdmin() {
		return true, nil
	}
	return p.IsHRCapable(actor.ID)
}

// CanPost allows the initiator (vetted at creation), the counterparty and
// admins. The counterparty never needs an HR check to reply.
func (p *ChatPolicy) CanPost(actor *models.User, chat *models.Chat) bool {
	return actor.IsAdmin() || chat.HasParticipant(actor.ID)
}
