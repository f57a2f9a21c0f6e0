package handlers

import (
	"errors"
	"log"
	"math"
	"strconv"

	"github.com/anjiri1684/job_connect/services"
	ws "github.com/anjiri1684/job_connect/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// ChatHandler adapts the chat service to the REST surface. The hub is an
// explicit dependency handed in at startup, not ambient request state.
type ChatHandler struct {
	svc *services.ChatService
	hub *ws.Hub
}

func NewChatHandler(svc *services.ChatService, hub *ws.Hub) *ChatHandler {
	return &ChatHandler{svc: svc, hub: hub}
}

func serviceError(c *fiber.Ctx, err error) error {
	var se *services.Error
	if errors.As(err, &se) {
		if se.Kind == services.KindInternal || se.Kind == services.KindTransient {
			log.Printf("[ERROR] %v | Path: %s", err, c.Path())
		}
		return c.Status(se.HTTPStatus()).JSON(fiber.Map{"error": se.Message})
	}
	log.Printf("[ERROR] %v | Path: %s", err, c.Path())
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}

type CreateChatRequest struct {
	ReceiverID string `json:"receiver_id" validate:"required,uuid"`
}

func (h *ChatHandler) CreateOrGetChat(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, _ := uuid.Parse(claims["user_id"].(string))

	var req CreateChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	receiverID, _ := uuid.Parse(req.ReceiverID)

	chat, _, err := h.svc.CreateOrGetChat(userID, receiverID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"chat": chat})
}

func (h *ChatHandler) GetUserChats(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, _ := uuid.Parse(claims["user_id"].(string))

	previews, err := h.svc.ListChats(userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"results": len(previews), "chats": previews})
}

func (h *ChatHandler) GetChatByID(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, _ := uuid.Parse(claims["user_id"].(string))

	chatID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid chat ID"})
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "50"))
	page, pageSize = services.ClampHistoryPage(page, pageSize)

	messages, total, err := h.svc.GetHistory(userID, chatID, page, pageSize)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"messages": messages,
		"pagination": fiber.Map{
			"total_messages": total,
			"total_pages":    int(math.Ceil(float64(total) / float64(pageSize))),
			"current_page":   page,
			"page_size":      pageSize,
		},
	})
}

// GetChatHistory addresses the conversation by the other participant
// instead of the chat id. No conversation yet is a 200 with a null chat.
func (h *ChatHandler) GetChatHistory(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, _ := uuid.Parse(claims["user_id"].(string))

	otherID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "50"))
	page, pageSize = services.ClampHistoryPage(page, pageSize)

	chat, messages, total, err := h.svc.GetHistoryWithUser(userID, otherID, page, pageSize)
	if err != nil {
		return serviceError(c, err)
	}
	if chat == nil {
		return c.JSON(fiber.Map{"chat": nil, "messages": []interface{}{}})
	}

	return c.JSON(fiber.Map{
		"chat":     chat,
		"messages": messages,
		"pagination": fiber.Map{
			"total_messages": total,
			"total_pages":    int(math.Ceil(float64(total) / float64(pageSize))),
			"current_page":   page,
			"page_size":      pageSize,
		},
	})
}

type SendMessageRequest struct {
	Message string `json:"message" validate:"required"`
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, _ := uuid.Parse(claims["user_id"].(string))

	chatID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid chat ID"})
	}

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	message, chat, err := h.svc.PostMessage(userID, chatID, req.Message)
	if err != nil {
		return serviceError(c, err)
	}

	// Live viewers of the chat room see REST-posted messages too.
	h.hub.Broadcast(ws.ChatRoom(chat.ID), "newMessage", fiber.Map{
		"chat_id": chat.ID,
		"message": message,
	})

	return c.JSON(fiber.Map{"chat": chat, "message": message})
}

func (h *ChatHandler) DeleteChat(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, _ := uuid.Parse(claims["user_id"].(string))

	chatID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid chat ID"})
	}

	if err := h.svc.DeleteChat(userID, chatID); err != nil {
		return serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
