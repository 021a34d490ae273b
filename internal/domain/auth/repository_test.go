package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"imagegallery/internal/database"
)

func TestRepository_CreateDuplicateEmail(t *testing.T) {
	db, err := database.Connect(fmt.Sprintf("file:auth_repo_%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, db.AutoMigrate(&User{}))

	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &User{Email: "ann@example.com", Name: "Ann", PasswordHash: "x"}))

	err = repo.Create(ctx, &User{Email: "ann@example.com", Name: "Other Ann", PasswordHash: "y"})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)

	var count int64
	require.NoError(t, db.Model(&User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestIsDuplicateKey(t *testing.T) {
	assert.False(t, isDuplicateKey(nil))
	assert.True(t, isDuplicateKey(gorm.ErrDuplicatedKey))
	assert.True(t, isDuplicateKey(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isDuplicateKey(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isDuplicateKey(errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)")))
	assert.False(t, isDuplicateKey(errors.New("connection refused")))
}
