package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/yardconnect/internal/model"
	"github.com/qs3c/yardconnect/internal/testutil"
)

func TestAccountRepository_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAccountRepository(db)
	ctx := context.Background()

	account := &model.Account{Email: "  Worker@Example.com ", PasswordHash: "hash", Role: model.RoleYardWorker}
	require.NoError(t, repo.Create(ctx, account))
	assert.NotZero(t, account.ID)
	assert.Equal(t, "worker@example.com", account.Email)

	found, err := repo.GetByEmail(ctx, "WORKER@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.ID, found.ID)

	byID, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleYardWorker, byID.Role)
}

func TestAccountRepository_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAccountRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Account{Email: "a@b.com", PasswordHash: "x"}))
	err := repo.Create(ctx, &model.Account{Email: "A@B.com", PasswordHash: "y"})
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))
}

func TestAccountRepository_ExistsByEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAccountRepository(db)
	testutil.TestAccount(t, db, testutil.WithEmail("taken@example.com"))

	exists, err := repo.ExistsByEmail(context.Background(), "taken@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByEmail(context.Background(), "free@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAccountRepository_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	_, err := NewAccountRepository(db).GetByID(context.Background(), 99999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
