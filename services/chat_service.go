package services

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anjiri1684/job_connect/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultHistoryPageSize = 50
	maxHistoryPageSize     = 100
)

// ChatService is the single writer of chat state. Both the REST handlers
// and the realtime socket loop go through it, so the two paths cannot
// diverge. No other code appends messages.
type ChatService struct {
	db     *gorm.DB
	policy *ChatPolicy
}

func NewChatService(db *gorm.DB) *ChatService {
	return &ChatService{db: db, policy: NewChatPolicy(db)}
}

// ChatPreview summarizes one conversation for the chat-list view: the
// other party's public profile and the most recent message, if any.
type ChatPreview struct {
	ID          uuid.UUID          `json:"id"`
	OtherUser   models.UserPublic  `json:"other_user"`
	LastMessage *models.Message    `json:"last_message"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func (s *ChatService) loadActor(actorID uuid.UUID) (*models.User, error) {
	var actor models.User
	if err := s.db.First(&actor, "id = ?", actorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthenticated("account not found")
		}
		return nil, wrapStore("failed to load user", err)
	}
	return &actor, nil
}

// CreateOrGetChat resolves the conversation between actor and counterparty,
// creating it if this is the first contact. Repeated calls from either side
// return the same chat. The reported bool is true only when a new chat was
// created by this call.
func (s *ChatService) CreateOrGetChat(actorID, counterpartyID uuid.UUID) (*models.Chat, bool, error) {
	if actorID == counterpartyID {
		return nil, false, ErrBadRequest("cannot create a chat with yourself")
	}

	actor, err := s.loadActor(actorID)
	if err != nil {
		return nil, false, err
	}

	var counterparty models.User
	if err := s.db.First(&counterparty, "id = ?", counterpartyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrNotFound("recipient not found")
		}
		return nil, false, wrapStore("failed to load recipient", err)
	}

	allowed, err := s.policy.CanInitiate(actor, counterpartyID)
	if err != nil {
		return nil, false, err
	}
	if !allowed {
		return nil, false, ErrForbidden("only HR, company owner, or admin can initiate chats")
	}

	pairKey := models.ChatPairKey(actorID, counterpartyID)

	chat, err := s.findChatByPairKey(pairKey)
	if err == nil {
		return chat, false, nil
	}
	if KindOf(err) != KindNotFound {
		return nil, false, err
	}

	newChat := models.Chat{InitiatorID: actorID, CounterpartyID: counterpartyID}
	if err := s.db.Create(&newChat).Error; err != nil {
		// Someone else won the first-contact race; the unique pair key
		// guarantees at most one chat, so fetch the winner.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			chat, err := s.findChatByPairKey(pairKey)
			if err != nil {
				return nil, false, err
			}
			return chat, false, nil
		}
		return nil, false, wrapStore("failed to create chat", err)
	}

	chat, err = s.findChatByPairKey(pairKey)
	if err != nil {
		return nil, false, err
	}
	return chat, true, nil
}

func (s *ChatService) findChatByPairKey(pairKey string) (*models.Chat, error) {
	var chat models.Chat
	err := s.db.Preload("Initiator").Preload("Counterparty").
		First(&chat, "pair_key = ?", pairKey).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound("chat not found")
		}
		return nil, wrapStore("failed to load chat", err)
	}
	return &chat, nil
}

// AuthorizeParticipant loads the chat and verifies the actor may access it.
// Used by history, delete and the realtime joinChat gate.
func (s *ChatService) AuthorizeParticipant(actorID, chatID uuid.UUID) (*models.Chat, error) {
	actor, err := s.loadActor(actorID)
	if err != nil {
		return nil, err
	}

	var chat models.Chat
	if err := s.db.Preload("Initiator").Preload("Counterparty").
		First(&chat, "id = ?", chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound("chat not found")
		}
		return nil, wrapStore("failed to load chat", err)
	}

	if !actor.IsAdmin() && !chat.HasParticipant(actorID) {
		return nil, ErrForbidden("you are not a participant in this chat")
	}
	return &chat, nil
}

// PostMessage appends a message to the chat on behalf of the actor. The
// append is a single transaction (message insert + updated_at bump) so
// concurrent posts to the same chat cannot lose updates.
func (s *ChatService) PostMessage(actorID, chatID uuid.UUID, body string) (*models.Message, *models.Chat, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, nil, ErrBadRequest("message content is required")
	}
	if utf8.RuneCountInString(body) > models.MaxMessageLength {
		return nil, nil, ErrBadRequest("message exceeds maximum length")
	}

	actor, err := s.loadActor(actorID)
	if err != nil {
		return nil, nil, err
	}

	var chat models.Chat
	if err := s.db.Preload("Initiator").Preload("Counterparty").
		First(&chat, "id = ?", chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound("chat not found")
		}
		return nil, nil, wrapStore("failed to load chat", err)
	}

	if !s.policy.CanPost(actor, &chat) {
		return nil, nil, ErrForbidden("you are not a participant in this chat")
	}

	message := models.Message{
		ChatID:    chat.ID,
		SenderID:  actorID,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&message).Error; err != nil {
			return err
		}
		return tx.Model(&models.Chat{}).Where("id = ?", chat.ID).
			Update("updated_at", message.CreatedAt).Error
	})
	if err != nil {
		return nil, nil, wrapStore("failed to save message", err)
	}

	chat.UpdatedAt = message.CreatedAt
	return &message, &chat, nil
}

// GetHistory returns one page of the chat's messages, newest first, plus
// the total message count across all pages.
func (s *ChatService) GetHistory(actorID, chatID uuid.UUID, page, pageSize int) ([]models.Message, int64, error) {
	chat, err := s.AuthorizeParticipant(actorID, chatID)
	if err != nil {
		return nil, 0, err
	}
	return s.pageMessages(chat.ID, page, pageSize)
}

// GetHistoryWithUser is history addressed by counterpart instead of chat
// id. A missing conversation is not an error: callers get a nil chat and an
// empty page.
func (s *ChatService) GetHistoryWithUser(actorID, otherUserID uuid.UUID, page, pageSize int) (*models.Chat, []models.Message, int64, error) {
	if _, err := s.loadActor(actorID); err != nil {
		return nil, nil, 0, err
	}

	chat, err := s.findChatByPairKey(models.ChatPairKey(actorID, otherUserID))
	if err != nil {
		if KindOf(err) == KindNotFound {
			return nil, []models.Message{}, 0, nil
		}
		return nil, nil, 0, err
	}

	messages, total, err := s.pageMessages(chat.ID, page, pageSize)
	if err != nil {
		return nil, nil, 0, err
	}
	return chat, messages, total, nil
}

// ClampHistoryPage normalizes pagination inputs to the bounds the history
// queries actually serve. Handlers use it so the reported page size always
// matches the served one.
func ClampHistoryPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultHistoryPageSize
	}
	if pageSize > maxHistoryPageSize {
		pageSize = maxHistoryPageSize
	}
	return page, pageSize
}

func (s *ChatService) pageMessages(chatID uuid.UUID, page, pageSize int) ([]models.Message, int64, error) {
	page, pageSize = ClampHistoryPage(page, pageSize)

	var total int64
	if err := s.db.Model(&models.Message{}).Where("chat_id = ?", chatID).Count(&total).Error; err != nil {
		return nil, 0, wrapStore("failed to count messages", err)
	}

	var messages []models.Message
	err := s.db.Where("chat_id = ?", chatID).
		Order("created_at DESC, id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&messages).Error
	if err != nil {
		return nil, 0, wrapStore("failed to fetch messages", err)
	}
	return messages, total, nil
}

// ListChats returns previews for every chat the actor takes part in,
// most recently active first.
func (s *ChatService) ListChats(actorID uuid.UUID) ([]ChatPreview, error) {
	if _, err := s.loadActor(actorID); err != nil {
		return nil, err
	}

	var chats []models.Chat
	err := s.db.Preload("Initiator").Preload("Counterparty").
		Where("initiator_id = ? OR counterparty_id = ?", actorID, actorID).
		Order("updated_at DESC").
		Find(&chats).Error
	if err != nil {
		return nil, wrapStore("failed to list chats", err)
	}

	previews := make([]ChatPreview, 0, len(chats))
	for i := range chats {
		chat := &chats[i]

		var last models.Message
		err := s.db.Where("chat_id = ?", chat.ID).
			Order("created_at DESC, id DESC").
			First(&last).Error

		var lastMessage *models.Message
		switch {
		case err == nil:
			lastMessage = &last
		case errors.Is(err, gorm.ErrRecordNotFound):
			// empty chat, preview carries no message
		default:
			return nil, wrapStore("failed to load last message", err)
		}

		other := chat.OtherParty(actorID)
		previews = append(previews, ChatPreview{
			ID:          chat.ID,
			OtherUser:   other.Public(),
			LastMessage: lastMessage,
			CreatedAt:   chat.CreatedAt,
			UpdatedAt:   chat.UpdatedAt,
		})
	}
	return previews, nil
}

// DeleteChat removes the chat and all of its messages in one transaction.
func (s *ChatService) DeleteChat(actorID, chatID uuid.UUID) error {
	chat, err := s.AuthorizeParticipant(actorID, chatID)
	if err != nil {
		if KindOf(err) == KindForbidden {
			return ErrForbidden("you are not authorized to delete this chat")
		}
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", chat.ID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Chat{}, "id = ?", chat.ID).Error
	})
	if err != nil {
		return wrapStore("failed to delete chat", err)
	}
	return nil
}
