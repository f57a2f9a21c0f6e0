package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/anjiri1684/job_connect/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq int

// newTestDB opens a fresh named in-memory database. The shared cache keeps
// every pooled connection on the same database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDBSeq++
	dsn := fmt.Sprintf("file:services_test_%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Company{},
		&models.Job{},
		&models.Application{},
		&models.Chat{},
		&models.Message{},
		&models.OTP{},
	))
	return db
}

var userSeq int

func createUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()
	userSeq++
	user := models.User{
		FirstName:      "Test",
		LastName:       fmt.Sprintf("User%d", userSeq),
		Email:          fmt.Sprintf("user%d@example.com", userSeq),
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
		CompanyName:  fmt.Sprintf("Company %d", userSeq),
		Description:  "A test company with a long enough description.",
		Industry:     "Software",
		Address:      "1 Test Street",
		CompanyEmail: fmt.Sprintf("company%d@example.com", userSeq),
		CreatedByID:  owner.ID,
		HRs:          hrs,
	}
	require.NoError(t, db.Create(&company).Error)
	return &company
}

func TestCreateOrGetChat_Idempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db)

	hr := createUser(t, db, models.RoleUser)
	createCompany(t, db, hr)
	candidate := createUser(t, db, models.RoleUser)

	first, created, err := svc.CreateOrGetChat(hr.ID, candidate.ID)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, hr.ID, first.InitiatorID)
	require.Equal(t, candidate.ID, first.CounterpartyID)

	second, created, err := svc.CreateOrGetChat(hr.ID, candidate.ID)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.Chat{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestChatPairKeyUniqueAcrossOrderings(t *testing.T) {
	db := newTestDB(t)

	a := createUser(t, db, models.RoleUser)
	b := createUser(t, db, models.RoleUser)

	first := models.Chat{InitiatorID: a.ID, CounterpartyID: b.ID}
	require.NoError(t, db.Create(&first).Error)

	// The reversed pair computes the same key, so the index rejects it.
	reversed := models.Chat{InitiatorID: b.ID, CounterpartyID: a.ID}
	err := db.Create(&reversed).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestCreateOrGetChat_FirstContactRace(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db)

	hr := createUser(t, db, models.RoleUser)
	createCompany(t, db, hr)
	candidate := createUser(t, db, models.RoleUser)

	// A rival request lands between the lookup and the insert: sneak the
	// competing chat in right before the service's own create runs.
	raced := false
	err := db.Callback().Create().Before("gorm:create").Register("rival_first_contact", func(tx *gorm.DB) {
		if raced {
			return
		}
		if _, ok := tx.Statement.Dest.(*models.Chat); !ok {
			return
		}
		raced = true
		rival := models.Chat{InitiatorID: candidate.ID, CounterpartyID: hr.ID}
		require.NoError(t, db.Create(&rival).Error)
	})
	require.NoError(t, err)

	chat, created, err := svc.CreateOrGetChat(hr.ID, candidate.ID)
	require.NoError(t, err)
	require.True(t, raced)

	// The loser reports the winner's chat, not a fresh one.
	require.False(t, created)
	require.Equal(t, candidate.ID, chat.InitiatorID)
	require.Equal(t, hr.ID, chat.CounterpartyID)

	var count int64
	require.NoError(t, db.Model(&models.Chat{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestCreateOrGetChat_SelfChatRejected(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db)

	admin := createUser(t, db, models.RoleAdmin)

	_, _, err := svc.CreateOrGetChat(admin.ID, admin.ID)
	require.Error(t, err)
	require.Equal(t, KindBadRequest, KindOf(err))
}

func TestCreateOrGetChat_CounterpartyMissing(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db)

	hr := createUser(t, db, models.RoleUser)
	createCompany(t, db, hr)

	_, _, err := svc.CreateOrGetChat(hr.ID, uuid.New())
	require.Error(t, err)
	require.Equal(t, KindNotFound, KindOf(err))
}

func TestCreateOrGetChat_InitiationGating(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db)

	owner := createUser(t, db, models.RoleUser)
	company := createCompany(t, db, owner)
	outsider := createUser(t, db, models.RoleUser)
	candidate := createUser(t, db, models.RoleUser)

	_, _, err := svc.CreateOrGetChat(outsider.ID, candidate.ID)
	require.Error(t, err)
	require.Equal(t, KindForbidden, KindOf(err))

	// The HR set is checked fresh, so adding the user takes effect on the
	// very next attempt.
	require.NoError(t, db.Model(company).Association("HRs").Append(outsider))

	chat, created, err := svc.CreateOrGetChat(outsider.ID, candidate.ID)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, outsider.ID, chat.InitiatorID)
}

func TestCreateOrGetChat_AdminBypassesGating(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db)

	admin := createUser(t, db, models.RoleAdmin)
	candidate := createUser(t, db, models.RoleUser)

	_, created, err := svc.CreateOrGetChat(admin.ID, candidate.ID)
	require.NoError(t, err)
	require.True(t, created)
}

func TestPostMessage_ReplyNotGated(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db)

	hr := createUser(t, db, models.RoleUser)
	createCompany(t, db, hr)
	candidate := createUser(t, db, models.RoleUser)
	third := createUser(t, db, models.RoleUser)

	chat, _, err := svc.CreateOrGetChat(hr.ID, candidate.ID)
	require.NoError(t, err)

	// The candidate never passes an HR check, replying is open to both
	// participants.
	message, updated, err := svc.PostMessage(candidate.ID, chat.ID, "Thanks for reaching out")
	require.NoError(t, err)
	require.Equal(t, candidate.ID, message.SenderID)
	require.Equal(t, chat.ID, updated.ID)

	_, _, err = svc.PostMessage(third.ID, chat.ID, "let me in")
	require.Error(t, err)
	require.Equal(t, KindForbidden, KindOf(err))
}

func TestPostMessage_Validation(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db)

	hr := createUser(t, db, models.RoleUser)
	createCompany(t, db, hr)
	candidate := createUser(t, db, models.RoleUser)

	chat, _, err := svc.CreateOrGetChat(hr.ID, candidate.ID)
	require.NoError(t, err)

	_, _, err = svc.PostMessage(hr.ID, chat.ID, "   ")
	require.Error(t, err)
	require.Equal(t, KindBadRequest, KindOf(err))

	_, _, err = svc.PostMessage(hr.ID, chat.ID, strings.Repeat("x", models.MaxMessageLength+1))
	require.Error(t, err)
	require.Equal(t, KindBadRequest, KindOf(err))

	_, _, err = svc.PostMessage(hr.ID, uuid.New(), "hello")
	require.Error(t, err)
	require.Equal(t, KindNotFound, KindOf(err))
}

func TestPostMessage_AppendOrdering(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db)

	hr := createUser(t, db, models.RoleUser)
	createCompany(t, db, hr)
	candidate := createUser(t, db, models.RoleUser)

	chat, _, err := svc.CreateOrGetChat(hr.ID, candidate.ID)
	require.NoError(t, err)

	m1, _, err := svc.PostMessage(hr.ID, chat.ID, "first")
	require.NoError(t, err)
	m2, _, err := svc.PostMessage(candidate.ID, chat.ID, "second")
	require.NoError(t, err)

	require.False(t, m2.CreatedAt.Before(m1.CreatedAt))

	messages, total, err := svc.GetHistory(hr.ID, chat.ID, 1, 50)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, messages, 2)
	require.Equal(t, "second", messages[0].Body)
	require.Equal(t, "first", messages[1].Body)
}

func TestPostMessage_BumpsUpdatedAt(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db)

	hr := createUser(t, db, models.RoleUser)
	createCompany(t, db, hr)
	candidate := createUser(t, db, models.RoleUser)

	chat, _, err := svc.CreateOrGetChat(hr.ID, candidate.ID)
	require.NoError(t, err)
	before := chat.UpdatedAt

	message, updated, err := svc.PostMessage(hr.ID, chat.ID, "hello")
	require.NoError(t, err)
	require.False(t, updated.UpdatedAt.Before(before))
	require.Equal(t, message.CreatedAt, updated.UpdatedAt)
}

func TestGetHistory_Pagination(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db)

	hr := createUser(t, db, models.RoleUser)
	createCompany(t, db, hr)
	candidate := createUser(t, db, models.RoleUser)

	chat, _, err := svc.CreateOrGetChat(hr.ID, candidate.ID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, _, err := svc.PostMessage(hr.ID, chat.ID, fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
	}

	page1, total, err := svc.GetHistory(hr.ID, chat.ID, 1, 2)
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, page1, 2)

	page2, total, err := svc.GetHistory(hr.ID, chat.ID, 2, 2)
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, page2, 1)
}

func TestGetHistory_Authorization(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db)

	hr := createUser(t, db, models.RoleUser)
	createCompany(t, db, hr)
	candidate := createUser(t, db, models.RoleUser)
	outsider := createUser(t, db, models.RoleUser)
	admin := createUser(t, db, models.RoleAdmin)

	chat, _, err := svc.CreateOrGetChat(hr.ID, candidate.ID)
	require.NoError(t, err)

	_, _, err = svc.GetHistory(outsider.ID, chat.ID, 1, 50)
	require.Error(t, err)
	require.Equal(t, KindForbidden, KindOf(err))

	_, _, err = svc.GetHistory(admin.ID, chat.ID, 1, 50)
	require.NoError(t, err)
}

func TestGetHistoryWithUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db)

	hr := createUser(t, db, models.RoleUser)
	createCompany(t, db, hr)
	candidate := createUser(t, db, models.RoleUser)

	chat, messages, total, err := svc.GetHistoryWithUser(hr.ID, candidate.ID, 1, 50)
	require.NoError(t, err)
	require.Nil(t, chat)
	require.Empty(t, messages)
	require.EqualValues(t, 0, total)

	created, _, err := svc.CreateOrGetChat(hr.ID, candidate.ID)
	require.NoError(t, err)
	_, _, err = svc.PostMessage(hr.ID, created.ID, "hello there")
	require.NoError(t, err)

	// Order of the pair does not matter for the lookup.
	chat, messages, total, err = svc.GetHistoryWithUser(candidate.ID, hr.ID, 1, 50)
	require.NoError(t, err)
	require.NotNil(t, chat)
	require.Equal(t, created.ID, chat.ID)
	require.Len(t, messages, 1)
	require.EqualValues(t, 1, total)
}

func TestListChats(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db)

	hr := createUser(t, db, models.RoleUser)
	createCompany(t, db, hr)
	alice := createUser(t, db, models.RoleUser)
	bob := createUser(t, db, models.RoleUser)

	chatAlice, _, err := svc.CreateOrGetChat(hr.ID, alice.ID)
	require.NoError(t, err)
	_, _, err = svc.CreateOrGetChat(hr.ID, bob.ID)
	require.NoError(t, err)

	_, _, err = svc.PostMessage(hr.ID, chatAlice.ID, "hello alice")
	require.NoError(t, err)

	previews, err := svc.ListChats(hr.ID)
	require.NoError(t, err)
	require.Len(t, previews, 2)

	// The chat with activity sorts first and carries its last message.
	require.Equal(t, chatAlice.ID, previews[0].ID)
	require.Equal(t, alice.ID, previews[0].OtherUser.ID)
	require.NotNil(t, previews[0].LastMessage)
	require.Equal(t, "hello alice", previews[0].LastMessage.Body)
	require.Nil(t, previews[1].LastMessage)

	// Each side sees the other party in the preview.
	alicePreviews, err := svc.ListChats(alice.ID)
	require.NoError(t, err)
	require.Len(t, alicePreviews, 1)
	require.Equal(t, hr.ID, alicePreviews[0].OtherUser.ID)
}

func TestDeleteChat_Cascades(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db)

	hr := createUser(t, db, models.RoleUser)
	createCompany(t, db, hr)
	candidate := createUser(t, db, models.RoleUser)
	outsider := createUser(t, db, models.RoleUser)

	chat, _, err := svc.CreateOrGetChat(hr.ID, candidate.ID)
	require.NoError(t, err)
	_, _, err = svc.PostMessage(hr.ID, chat.ID, "hello")
	require.NoError(t, err)

	err = svc.DeleteChat(outsider.ID, chat.ID)
	require.Error(t, err)
	require.Equal(t, KindForbidden, KindOf(err))

	require.NoError(t, svc.DeleteChat(candidate.ID, chat.ID))

	_, _, err = svc.GetHistory(hr.ID, chat.ID, 1, 50)
	require.Error(t, err)
	require.Equal(t, KindNotFound, KindOf(err))

	var count int64
	require.NoError(t, db.Model(&models.Message{}).Where("chat_id = ?", chat.ID).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestDeleteChat_AllowsNewChatWithNewID(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db)

	hr := createUser(t, db, models.RoleUser)
	createCompany(t, db, hr)
	candidate := createUser(t, db, models.RoleUser)

	first, _, err := svc.CreateOrGetChat(hr.ID, candidate.ID)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteChat(hr.ID, first.ID))

	second, created, err := svc.CreateOrGetChat(hr.ID, candidate.ID)
	require.NoError(t, err)
	require.True(t, created)
	require.NotEqual(t, first.ID, second.ID)
}

func TestChatScenario_EndToEnd(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db)

	hr1 := createUser(t, db, models.RoleUser)
	createCompany(t, db, hr1)
	candidate := createUser(t, db, models.RoleUser)
	hr2 := createUser(t, db, models.RoleUser)
	createCompany(t, db, hr2)

	chat, created, err := svc.CreateOrGetChat(hr1.ID, candidate.ID)
	require.NoError(t, err)
	require.True(t, created)

	messages, total, err := svc.GetHistory(hr1.ID, chat.ID, 1, 50)
	require.NoError(t, err)
	require.Empty(t, messages)
	require.EqualValues(t, 0, total)

	_, updated, err := svc.PostMessage(candidate.ID, chat.ID, "Thanks for reaching out")
	require.NoError(t, err)
	require.False(t, updated.UpdatedAt.Before(chat.CreatedAt))

	messages, total, err = svc.GetHistory(hr1.ID, chat.ID, 1, 50)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.EqualValues(t, 1, total)

	// hr2 is HR-capable but has no relation to this conversation.
	_, _, err = svc.PostMessage(hr2.ID, chat.ID, "hello from elsewhere")
	require.Error(t, err)
	require.Equal(t, KindForbidden, KindOf(err))
}
