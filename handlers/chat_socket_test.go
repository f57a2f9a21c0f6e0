package handlers_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/anjiri1684/job_connect/handlers"
	"github.com/anjiri1684/job_connect/models"
	"github.com/anjiri1684/job_connect/services"
	ws "github.com/anjiri1684/job_connect/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "socket-test-secret"

var testDBSeq int

// newTestDB opens a fresh named in-memory database. The shared cache keeps
// every pooled connection on the same database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDBSeq++
	dsn := fmt.Sprintf("file:handlers_test_%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Company{},
		&models.Chat{},
		&models.Message{},
	))
	return db
}

// newTestApp builds a fiber app with the same JSON error handler the
// production app installs in cmd/api/main.go.
func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})
}

var userSeq int

func createUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()
	userSeq++
	user := models.User{
		FirstName:      "Test",
		LastName:       fmt.Sprintf("User%d", userSeq),
		Email:          fmt.Sprintf("handler-user%d@example.com", userSeq),
		Password:       "hashed",
		Role:           role,
		EmailConfirmed: true,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createCompany(t *testing.T, db *gorm.DB, owner *models.User, hrs ...*models.User) *models.Company {
	t.Helper()
	userSeq++
	company := models.Company{
		CompanyName:  fmt.Sprintf("Handler Co %d", userSeq),
		Description:  "A test company with a long enough description.",
		Industry:     "Software",
		Address:      "1 Test Street",
		CompanyEmail: fmt.Sprintf("handler-co%d@example.com", userSeq),
		CreatedByID:  owner.ID,
		HRs:          hrs,
	}
	require.NoError(t, db.Create(&company).Error)
	return &company
}

func signToken(t *testing.T, user *models.User) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"role":    user.Role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

type fakeSocket struct {
	events []ws.Event
	closed bool
}

func (f *fakeSocket) WriteJSON(v interface{}) error {
	f.events = append(f.events, v.(ws.Event))
	return nil
}

func (f *fakeSocket) Close() error {
	f.closed = true
	return nil
}

func (f *fakeSocket) lastEvent(t *testing.T) ws.Event {
	t.Helper()
	require.NotEmpty(t, f.events)
	return f.events[len(f.events)-1]
}

func newSocketFixture(t *testing.T) (*gorm.DB, *handlers.ChatHandler, *ws.Hub) {
	t.Helper()
	t.Setenv("JWT_SECRET", testSecret)
	db := newTestDB(t)
	hub := ws.NewHub()
	h := handlers.NewChatHandler(services.NewChatService(db), hub)
	return db, h, hub
}

func connect(hub *ws.Hub) (*ws.Client, *fakeSocket) {
	conn := &fakeSocket{}
	client := &ws.Client{Conn: conn}
	hub.Register(client)
	return client, conn
}

func TestSocketSendMessage_SpoofedSenderRejected(t *testing.T) {
	db, h, hub := newSocketFixture(t)

	hr := createUser(t, db, models.RoleUser)
	createCompany(t, db, hr)
	victim := createUser(t, db, models.RoleUser)
	candidate := createUser(t, db, models.RoleUser)

	client, conn := connect(hub)
	h.HandleSocketEvent(client, handlers.SocketRequest{
		Event:      "sendMessage",
		Token:      signToken(t, hr),
		SenderID:   victim.ID.String(),
		ReceiverID: candidate.ID.String(),
		Message:    "pretending to be someone else",
	})

	event := conn.lastEvent(t)
	require.Equal(t, "error", event.Event)

	var count int64
	require.NoError(t, db.Model(&models.Message{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestSocketSendMessage_InvalidToken(t *testing.T) {
	db, h, hub := newSocketFixture(t)

	candidate := createUser(t, db, models.RoleUser)

	client, conn := connect(hub)
	h.HandleSocketEvent(client, handlers.SocketRequest{
		Event:      "sendMessage",
		Token:      "not-a-jwt",
		ReceiverID: candidate.ID.String(),
		Message:    "hello",
	})

	require.Equal(t, "error", conn.lastEvent(t).Event)

	var count int64
	require.NoError(t, db.Model(&models.Message{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestSocketSendMessage_FirstContact(t *testing.T) {
	db, h, hub := newSocketFixture(t)

	hr := createUser(t, db, models.RoleUser)
	createCompany(t, db, hr)
	candidate := createUser(t, db, models.RoleUser)

	// The candidate is online, listening on their personal room.
	listener, listenerConn := connect(hub)
	h.HandleSocketEvent(listener, handlers.SocketRequest{
		Event:  "joinUserRoom",
		UserID: candidate.ID.String(),
	})

	sender, senderConn := connect(hub)
	h.HandleSocketEvent(sender, handlers.SocketRequest{
		Event:  "joinUserRoom",
		UserID: hr.ID.String(),
	})
	h.HandleSocketEvent(sender, handlers.SocketRequest{
		Event:      "sendMessage",
		Token:      signToken(t, hr),
		ReceiverID: candidate.ID.String(),
		Message:    "Hi, saw your application",
	})

	require.Equal(t, "chatCreated", listenerConn.lastEvent(t).Event)
	require.Equal(t, "chatCreated", senderConn.lastEvent(t).Event)

	var chat models.Chat
	require.NoError(t, db.First(&chat).Error)
	require.Equal(t, hr.ID, chat.InitiatorID)

	var count int64
	require.NoError(t, db.Model(&models.Message{}).Where("chat_id = ?", chat.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestSocketSendMessage_ExistingChat(t *testing.T) {
	db, h, hub := newSocketFixture(t)

	hr := createUser(t, db, models.RoleUser)
	createCompany(t, db, hr)
	candidate := createUser(t, db, models.RoleUser)

	svc := services.NewChatService(db)
	chat, _, err := svc.CreateOrGetChat(hr.ID, candidate.ID)
	require.NoError(t, err)

	viewer, viewerConn := connect(hub)
	h.HandleSocketEvent(viewer, handlers.SocketRequest{
		Event:  "joinChat",
		Token:  signToken(t, hr),
		ChatID: chat.ID.String(),
	})
	require.Empty(t, viewerConn.events)

	sender, _ := connect(hub)
	h.HandleSocketEvent(sender, handlers.SocketRequest{
		Event:   "sendMessage",
		Token:   signToken(t, candidate),
		ChatID:  chat.ID.String(),
		Message: "Thanks for reaching out",
	})

	require.Equal(t, "newMessage", viewerConn.lastEvent(t).Event)

	messages, total, err := svc.GetHistory(hr.ID, chat.ID, 1, 50)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "Thanks for reaching out", messages[0].Body)
	require.Equal(t, candidate.ID, messages[0].SenderID)
}

func TestSocketJoinChat_NonParticipantRejected(t *testing.T) {
	db, h, hub := newSocketFixture(t)

	hr := createUser(t, db, models.RoleUser)
	createCompany(t, db, hr)
	candidate := createUser(t, db, models.RoleUser)
	outsider := createUser(t, db, models.RoleUser)

	svc := services.NewChatService(db)
	chat, _, err := svc.CreateOrGetChat(hr.ID, candidate.ID)
	require.NoError(t, err)

	eavesdropper, eavesConn := connect(hub)
	h.HandleSocketEvent(eavesdropper, handlers.SocketRequest{
		Event:  "joinChat",
		Token:  signToken(t, outsider),
		ChatID: chat.ID.String(),
	})
	require.Equal(t, "error", eavesConn.lastEvent(t).Event)

	// The rejected join never granted room membership.
	sender, _ := connect(hub)
	h.HandleSocketEvent(sender, handlers.SocketRequest{
		Event:   "sendMessage",
		Token:   signToken(t, hr),
		ChatID:  chat.ID.String(),
		Message: "confidential",
	})
	require.Len(t, eavesConn.events, 1)
}

func TestSocketSendMessage_InitiationGateApplies(t *testing.T) {
	db, h, hub := newSocketFixture(t)

	plainUser := createUser(t, db, models.RoleUser)
	other := createUser(t, db, models.RoleUser)

	client, conn := connect(hub)
	h.HandleSocketEvent(client, handlers.SocketRequest{
		Event:      "sendMessage",
		Token:      signToken(t, plainUser),
		ReceiverID: other.ID.String(),
		Message:    "hello",
	})

	require.Equal(t, "error", conn.lastEvent(t).Event)

	var count int64
	require.NoError(t, db.Model(&models.Chat{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestSocketUnknownEvent(t *testing.T) {
	_, h, hub := newSocketFixture(t)

	client, conn := connect(hub)
	h.HandleSocketEvent(client, handlers.SocketRequest{Event: "subscribeEverything"})
	require.Equal(t, "error", conn.lastEvent(t).Event)
}
