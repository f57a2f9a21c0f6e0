package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chat is a single conversation thread between exactly two users. The
// initiator is the side that passed the HR/owner check at creation time;
// the pair key makes the unordered (initiator, counterparty) pair unique
// at the store level so concurrent first-contact attempts cannot produce
// duplicate threads.
type Chat struct {
	ID uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`

	InitiatorID    uuid.UUID `gorm:"type:uuid;not null" json:"initiator_id"`
	CounterpartyID uuid.UUID `gorm:"type:uuid;not null" json:"counterparty_id"`
	PairKey        string    `gorm:"size:80;not null;uniqueIndex" json:"-"`

	Initiator    User `gorm:"foreignKey:InitiatorID" json:"initiator"`
	Counterparty User `gorm:"foreignKey:CounterpartyID" json:"counterparty"`

	Messages []Message `json:"messages,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatPairKey returns the same key for (a, b) and (b, a).
func ChatPairKey(a, b uuid.UUID) string {
	first, second := a.String(), b.String()
	if strings.Compare(second, first) < 0 {
		first, second = second, first
	}
	return first + ":" + second
}

func (ch *Chat) BeforeCreate(tx *gorm.DB) error {
	if ch.ID == uuid.Nil {
		ch.ID = uuid.New()
	}
	if ch.PairKey == "" {
		ch.PairKey = ChatPairKey(ch.InitiatorID, ch.CounterpartyID)
	}
	return nil
}

func (ch *Chat) HasParticipant(userID uuid.UUID) bool {
	return ch.InitiatorID == userID || ch.CounterpartyID == userID
}

// OtherParty returns the participant that is not userID.
func (ch *Chat) OtherParty(userID uuid.UUID) User {
	if ch.InitiatorID == userID {
		return ch.Counterparty
	}
	return ch.Initiator
}
