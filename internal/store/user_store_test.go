package store

import (
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/medrec/prescript-be/internal/database"
	"github.com/medrec/prescript-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(":memory:")
	require.NoError(t, err)
	// A pool would hand each connection its own in-memory database.
	db.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func testUser(name, pfNo, email string) models.User {
	return models.User{
		ID:           uuid.New().String(),
		Name:         name,
		PfNo:         pfNo,
		Email:        email,
		PasswordHash: "$2a$10$fakefakefakefakefakefakefakefakefakefakefakefakefakef",
	}
}

func TestUserStore_CreateAndLookup(t *testing.T) {
	s := NewUserStore(newTestDB(t))

	user := testUser("Alice", "E1", "alice@example.com")
	require.NoError(t, s.Create(user))

	byID, err := s.ByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)
	assert.Equal(t, user.PasswordHash, byID.PasswordHash)
	assert.Nil(t, byID.Prescription)
	assert.False(t, byID.IsAdmin)

	byEmail, err := s.ByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byPfNo, err := s.ByPfNo("E1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byPfNo.ID)
}

func TestUserStore_LookupMisses(t *testing.T) {
	s := NewUserStore(newTestDB(t))

	_, err := s.ByID("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.ByEmail("nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.ByPfNo("E404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserStore_DuplicateEmail(t *testing.T) {
	s := NewUserStore(newTestDB(t))

	require.NoError(t, s.Create(testUser("Alice", "E1", "alice@example.com")))
	err := s.Create(testUser("Impostor", "E2", "alice@example.com"))
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	users, err := s.List()
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUserStore_ByPfNo_OldestWins(t *testing.T) {
	s := NewUserStore(newTestDB(t))

	first := testUser("First", "E7", "first@example.com")
	second := testUser("Second", "E7", "second@example.com")
	require.NoError(t, s.Create(first))
	require.NoError(t, s.Create(second))

	got, err := s.ByPfNo("E7")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestUserStore_Save(t *testing.T) {
	s := NewUserStore(newTestDB(t))

	user := testUser("Alice", "E1", "alice@example.com")
	require.NoError(t, s.Create(user))

	user.Name = "Alice B"
	user.IsAdmin = true
	require.NoError(t, s.Save(user))

	got, err := s.ByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice B", got.Name)
	assert.True(t, got.IsAdmin)

	missing := testUser("Ghost", "E9", "ghost@example.com")
	assert.ErrorIs(t, s.Save(missing), ErrNotFound)
}

func TestUserStore_SetPrescription(t *testing.T) {
	s := NewUserStore(newTestDB(t))

	user := testUser("Alice", "E1", "alice@example.com")
	require.NoError(t, s.Create(user))

	matched, err := s.SetPrescription("E1", json.RawMessage(`{"drug":"ibuprofen","dose":"200mg"}`))
	require.NoError(t, err)
	assert.True(t, matched)

	got, err := s.ByID(user.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"drug":"ibuprofen","dose":"200mg"}`, string(got.Prescription))

	matched, err = s.SetPrescription("E404", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestUserStore_Delete(t *testing.T) {
	s := NewUserStore(newTestDB(t))

	user := testUser("Alice", "E1", "alice@example.com")
	require.NoError(t, s.Create(user))

	found, err := s.Delete(user.ID)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = s.Delete(user.ID)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = s.ByID(user.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserStore_ListOrder(t *testing.T) {
	s := NewUserStore(newTestDB(t))

	a := testUser("A", "E1", "a@example.com")
	b := testUser("B", "E2", "b@example.com")
	require.NoError(t, s.Create(a))
	require.NoError(t, s.Create(b))

	users, err := s.List()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, a.ID, users[0].ID)
	assert.Equal(t, b.ID, users[1].ID)
}
