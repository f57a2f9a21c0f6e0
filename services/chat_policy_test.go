package services

import (
	"testing"

	"github.com/anjiri1684/job_connect/models"
	"github.com/stretchr/testify/require"
)

func TestIsHRCapable(t *testing.T) {
	db := newTestDB(t)
	policy := NewChatPolicy(db)

	owner := createUser(t, db, models.RoleUser)
	hr := createUser(t, db, models.RoleUser)
	nobody := createUser(t, db, models.RoleUser)
	createCompany(t, db, owner, hr)

	capable, err := policy.IsHRCapable(owner.ID)
	require.NoError(t, err)
	require.True(t, capable)

	capable, err = policy.IsHRCapable(hr.ID)
	require.NoError(t, err)
	require.True(t, capable)

	capable, err = policy.IsHRCapable(nobody.ID)
	require.NoError(t, err)
	require.False(t, capable)
}

func TestCanInitiate(t *testing.T) {
	db := newTestDB(t)
	policy := NewChatPolicy(db)

	owner := createUser(t, db, models.RoleUser)
	createCompany(t, db, owner)
	admin := createUser(t, db, models.RoleAdmin)
	candidate := createUser(t, db, models.RoleUser)

	ok, err := policy.CanInitiate(owner, candidate.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = policy.CanInitiate(admin, candidate.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = policy.CanInitiate(candidate, owner.ID)
	require.NoError(t, err)
	require.False(t, ok)

	// Nobody chats with themselves, admins included.
	ok, err = policy.CanInitiate(admin, admin.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCanPost(t *testing.T) {
	db := newTestDB(t)
	policy := NewChatPolicy(db)

	owner := createUser(t, db, models.RoleUser)
	createCompany(t, db, owner)
	candidate := createUser(t, db, models.RoleUser)
	outsider := createUser(t, db, models.RoleUser)
	admin := createUser(t, db, models.RoleAdmin)

	chat := models.Chat{InitiatorID: owner.ID, CounterpartyID: candidate.ID}

	require.True(t, policy.CanPost(owner, &chat))
	require.True(t, policy.CanPost(candidate, &chat))
	require.True(t, policy.CanPost(admin, &chat))
	require.False(t, policy.CanPost(outsider, &chat))
}
