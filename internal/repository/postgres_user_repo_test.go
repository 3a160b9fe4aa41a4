package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var userColumns = []string{"id", "username", "password_hash", "created_at", "updated_at"}

func TestPostgresUserRepo_FindByUsername_Found(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)
	now := time.Now()

	mock.ExpectQuery(`(?s)SELECT id, username, password_hash, created_at, updated_at FROM users\s+WHERE username = \$1`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u-1", "alice", nil, now, now))

	user, err := repo.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Nil(t, user.PasswordHash)
	assert.False(t, user.HasPassword())
}

func TestPostgresUserRepo_FindByUsername_NotFound_ReturnsNil(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)

	mock.ExpectQuery(`FROM users\s+WHERE username = \$1`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	user, err := repo.FindByUsername(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestPostgresUserRepo_FindByID_WithPasswordHash(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)
	now := time.Now()

	mock.ExpectQuery(`FROM users\s+WHERE id = \$1`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u-1", "alice", "$2a$10$hash", now, now))

	user, err := repo.FindByID(context.Background(), "u-1")
	require.NoError(t, err)
	require.NotNil(t, user)
	require.NotNil(t, user.PasswordHash)
	assert.Equal(t, "$2a$10$hash", *user.PasswordHash)
	assert.True(t, user.HasPassword())
}

func TestPostgresUserRepo_GetOrCreate_NewUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)
	now := time.Now()

	mock.ExpectExec(`(?s)INSERT INTO users \(id, username, created_at, updated_at\).*ON CONFLICT \(username\) DO NOTHING`).
		WithArgs(sqlmock.AnyArg(), "alice", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM users\s+WHERE username = \$1`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u-1", "alice", nil, now, now))

	user, created, err := repo.GetOrCreate(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "u-1", user.ID)
}

func TestPostgresUserRepo_GetOrCreate_ExistingUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)
	now := time.Now()

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(sqlmock.AnyArg(), "alice", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM users\s+WHERE username = \$1`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u-1", "alice", nil, now, now))

	user, created, err := repo.GetOrCreate(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "u-1", user.ID)
}

func TestPostgresUserRepo_GetOrCreate_InsertError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(errors.New("connection refused"))

	_, _, err := repo.GetOrCreate(context.Background(), "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestPostgresUserRepo_SetPasswordHash(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)

	mock.ExpectExec(`UPDATE users SET password_hash = \$2, updated_at = now\(\) WHERE id = \$1`).
		WithArgs("u-1", "hash").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetPasswordHash(context.Background(), "u-1", "hash"))
}

func TestPostgresUserRepo_SetPasswordHash_UnknownUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)

	mock.ExpectExec(`UPDATE users SET password_hash`).
		WithArgs("u-404", "hash").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetPasswordHash(context.Background(), "u-404", "hash")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user not found")
}
