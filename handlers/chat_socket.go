package handlers

import (
	"errors"
	"fmt"
	"log"

	configs "github.com/anjiri1684/job_connect/configs"
	"github.com/anjiri1684/job_connect/services"
	ws "github.com/anjiri1684/job_connect/websocket"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// SocketRequest is the client→server envelope. A connection is anonymous:
// joinChat and sendMessage each carry their own token and are verified per
// action, joining a user or company room only grants delivery.
type SocketRequest struct {
	Event      string `json:"event"`
	UserID     string `json:"user_id,omitempty"`
	CompanyID  string `json:"company_id,omitempty"`
	ChatID     string `json:"chat_id,omitempty"`
	Token      string `json:"token,omitempty"`
	Message    string `json:"message,omitempty"`
	SenderID   string `json:"sender_id,omitempty"`
	ReceiverID string `json:"receiver_id,omitempty"`
}

func (h *ChatHandler) ServeWs(c *websocketcontrib.Conn) {
	client := &ws.Client{Conn: c}
	h.hub.Register(client)
	defer func() {
		h.hub.Unregister(client)
		c.Close()
	}()

	for {
		var req SocketRequest
		if err := c.ReadJSON(&req); err != nil {
			if websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseAbnormalClosure) {
				log.Printf("WebSocket closed: %v", err)
			} else {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}
		h.HandleSocketEvent(client, req)
	}
}

// HandleSocketEvent dispatches one client frame. Errors go back to the
// originating connection only and are never broadcast.
func (h *ChatHandler) HandleSocketEvent(client *ws.Client, req SocketRequest) {
	switch req.Event {
	case "joinUserRoom":
		id, err := uuid.Parse(req.UserID)
		if err != nil {
			h.socketError(client, "Invalid user ID")
			return
		}
		h.hub.Join(ws.UserRoom(id), client)

	case "joinCompanyRoom":
		id, err := uuid.Parse(req.CompanyID)
		if err != nil {
			h.socketError(client, "Invalid company ID")
			return
		}
		h.hub.Join(ws.CompanyRoom(id), client)

	case "joinChat":
		h.handleJoinChat(client, req)

	case "sendMessage":
		h.handleSendMessage(client, req)

	default:
		h.socketError(client, "Unknown event: "+req.Event)
	}
}

// handleJoinChat admits the connection to a chat room only after the token
// holder proves they are a participant, so a passive listener cannot
// receive live messages for a conversation it has no access to.
func (h *ChatHandler) handleJoinChat(client *ws.Client, req SocketRequest) {
	userID, ok := h.verifyCredential(client, req.Token)
	if !ok {
		return
	}

	chatID, err := uuid.Parse(req.ChatID)
	if err != nil {
		h.socketError(client, "Invalid chat ID")
		return
	}

	if _, err := h.svc.AuthorizeParticipant(userID, chatID); err != nil {
		h.socketServiceError(client, err)
		return
	}

	client.UserID = userID
	h.hub.Join(ws.ChatRoom(chatID), client)
}

func (h *ChatHandler) handleSendMessage(client *ws.Client, req SocketRequest) {
	userID, ok := h.verifyCredential(client, req.Token)
	if !ok {
		return
	}

	// The declared sender must match the verified identity; the payload
	// field is never trusted at face value.
	if req.SenderID != "" && req.SenderID != userID.String() {
		h.socketError(client, "Unauthorized sender")
		return
	}
	client.UserID = userID

	if req.ChatID != "" {
		chatID, err := uuid.Parse(req.ChatID)
		if err != nil {
			h.socketError(client, "Invalid chat ID")
			return
		}

		message, chat, err := h.svc.PostMessage(userID, chatID, req.Message)
		if err != nil {
			h.socketServiceError(client, err)
			return
		}

		h.hub.Broadcast(ws.ChatRoom(chat.ID), "newMessage", fiber.Map{
			"chat_id": chat.ID,
			"message": message,
		})
		return
	}

	// No chat id: first contact. Resolve (or create) the conversation,
	// then append through the same single write path as REST.
	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		h.socketError(client, "Invalid receiver ID")
		return
	}

	chat, created, err := h.svc.CreateOrGetChat(userID, receiverID)
	if err != nil {
		h.socketServiceError(client, err)
		return
	}

	message, chat, err := h.svc.PostMessage(userID, chat.ID, req.Message)
	if err != nil {
		h.socketServiceError(client, err)
		return
	}

	if created {
		// Nobody has joined the chat room yet, so notify both parties
		// through their personal rooms.
		payload := fiber.Map{"chat": chat, "message": message}
		h.hub.Broadcast(ws.UserRoom(chat.InitiatorID), "chatCreated", payload)
		h.hub.Broadcast(ws.UserRoom(chat.CounterpartyID), "chatCreated", payload)
		return
	}

	h.hub.Broadcast(ws.ChatRoom(chat.ID), "newMessage", fiber.Map{
		"chat_id": chat.ID,
		"message": message,
	})
}

func (h *ChatHandler) verifyCredential(client *ws.Client, token string) (uuid.UUID, bool) {
	claims, err := parseToken(token)
	if err != nil {
		h.socketError(client, "Invalid or expired token")
		return uuid.Nil, false
	}
	idClaim, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(idClaim)
	if err != nil {
		h.socketError(client, "Invalid user ID in token")
		return uuid.Nil, false
	}
	return userID, true
}

func (h *ChatHandler) socketError(client *ws.Client, message string) {
	_ = client.Send(ws.Event{Event: "error", Data: fiber.Map{"message": message}})
}

func (h *ChatHandler) socketServiceError(client *ws.Client, err error) {
	var se *services.Error
	if errors.As(err, &se) {
		h.socketError(client, se.Message)
		return
	}
	log.Printf("[ERROR] socket action failed: %v", err)
	h.socketError(client, "Failed to send message")
}

func parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(configs.Config("JWT_SECRET")), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
