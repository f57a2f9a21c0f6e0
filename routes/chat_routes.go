package routes

import (
	"github.com/anjiri1684/job_connect/handlers"
	"github.com/anjiri1684/job_connect/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func ChatRoutes(app *fiber.App, h *handlers.ChatHandler) {
	chats := app.Group("/api/v1/chats", middleware.Protected())
	chats.Post("", h.CreateOrGetChat)
	chats.Get("", h.GetUserChats)
	// History by counterpart must come before the /:id routes.
	chats.Get("/history/:userId", h.GetChatHistory)
	chats.Get("/:id", h.GetChatByID)
	chats.Delete("/:id", h.DeleteChat)
	chats.Post("/:id/messages", h.SendMessage)

	api := app.Group("/api/v1")
	api.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	api.Get("/ws", websocket.New(h.ServeWs))
}
