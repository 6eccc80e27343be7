package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/yardconnect/internal/model"
	"github.com/qs3c/yardconnect/internal/testutil"
)

func TestPendingReviewRepository_CreateDedup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewPendingReviewRepository(db)
	ctx := context.Background()
	profile := testutil.TestProfile(t, db, testutil.TestAccount(t, db).ID)

	first := &model.PendingReview{ProfileID: profile.ID, Email: "a@b.com", Rating: 5, Token: "token-1"}
	require.NoError(t, repo.Create(ctx, first))
	require.NotNil(t, first.PendingKey)

	dup := &model.PendingReview{ProfileID: profile.ID, Email: "A@B.com", Rating: 4, Token: "token-2"}
	err := repo.Create(ctx, dup)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))

	// 不同邮箱不冲突
	require.NoError(t, repo.Create(ctx, &model.PendingReview{ProfileID: profile.ID, Email: "c@d.com", Rating: 4, Token: "token-3"}))

	found, err := repo.FindUnverified(ctx, profile.ID, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestPendingReviewRepository_GetByToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewPendingReviewRepository(db)
	profile := testutil.TestProfile(t, db, testutil.TestAccount(t, db).ID)
	pending := testutil.TestPendingReview(t, db, profile.ID, "a@b.com")

	found, err := repo.GetByToken(context.Background(), pending.Token)
	require.NoError(t, err)
	assert.Equal(t, pending.ID, found.ID)

	_, err = repo.GetByToken(context.Background(), "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPendingReviewRepository_Release(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewPendingReviewRepository(db)
	ctx := context.Background()
	profile := testutil.TestProfile(t, db, testutil.TestAccount(t, db).ID)
	pending := testutil.TestPendingReview(t, db, profile.ID, "a@b.com")

	require.NoError(t, repo.Release(ctx, pending.ID))

	_, err := repo.FindUnverified(ctx, profile.ID, "a@b.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, repo.Create(ctx, &model.PendingReview{ProfileID: profile.ID, Email: "a@b.com", Rating: 3, Token: "again"}))
}

func TestPendingReviewRepository_Expired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewPendingReviewRepository(db)
	ctx := context.Background()
	profile := testutil.TestProfile(t, db, testutil.TestAccount(t, db).ID)

	old := time.Now().Add(-72 * time.Hour)
	testutil.TestPendingReview(t, db, profile.ID, "old@b.com", testutil.WithPendingCreatedAt(old))
	testutil.TestPendingReview(t, db, profile.ID, "verified@b.com",
		testutil.WithPendingCreatedAt(old), testutil.WithVerifiedAt(old.Add(time.Hour)))
	testutil.TestPendingReview(t, db, profile.ID, "fresh@b.com")

	cutoff := time.Now().Add(-48 * time.Hour)

	unverified, err := repo.CountUnverified(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unverified)

	count, err := repo.CountExpired(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	released, err := repo.ReleaseExpired(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)

	released, err = repo.ReleaseExpired(ctx, cutoff)
	require.NoError(t, err)
	assert.Zero(t, released)

	deleted, err := repo.DeleteExpired(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := repo.CountUnverified(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), remaining)
}
