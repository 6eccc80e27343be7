package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/yardconnect/internal/model"
	"github.com/qs3c/yardconnect/internal/testutil"
)

func TestReviewRepository_UniquePerAccount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewReviewRepository(db)
	ctx := context.Background()
	owner := testutil.TestAccount(t, db)
	reviewer := testutil.TestAccount(t, db, testutil.WithRole(model.RoleClient))
	profile := testutil.TestProfile(t, db, owner.ID)

	require.NoError(t, repo.Create(ctx, &model.Review{ProfileID: profile.ID, AccountID: &reviewer.ID, Rating: 4}))

	exists, err := repo.ExistsByAccount(ctx, profile.ID, reviewer.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	err = repo.Create(ctx, &model.Review{ProfileID: profile.ID, AccountID: &reviewer.ID, Rating: 2})
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))

	// 匿名评价不受唯一约束限制
	require.NoError(t, repo.Create(ctx, &model.Review{ProfileID: profile.ID, Rating: 5}))
	require.NoError(t, repo.Create(ctx, &model.Review{ProfileID: profile.ID, Rating: 3}))
}

func TestReviewRepository_ListByProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewReviewRepository(db)
	owner := testutil.TestAccount(t, db)
	profile := testutil.TestProfile(t, db, owner.ID)
	other := testutil.TestProfile(t, db, testutil.TestAccount(t, db).ID)

	first := testutil.TestReview(t, db, profile.ID, nil, 3)
	second := testutil.TestReview(t, db, profile.ID, nil, 4)
	third := testutil.TestReview(t, db, profile.ID, nil, 5)
	testutil.TestReview(t, db, other.ID, nil, 1)

	reviews, err := repo.ListByProfile(context.Background(), profile.ID, 20)
	require.NoError(t, err)
	require.Len(t, reviews, 3)
	assert.Equal(t, third.ID, reviews[0].ID)
	assert.Equal(t, second.ID, reviews[1].ID)
	assert.Equal(t, first.ID, reviews[2].ID)

	limited, err := repo.ListByProfile(context.Background(), profile.ID, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestReviewRepository_RatingStats(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewReviewRepository(db)
	rated := testutil.TestProfile(t, db, testutil.TestAccount(t, db).ID)
	unrated := testutil.TestProfile(t, db, testutil.TestAccount(t, db).ID)
	for _, r := range []int{4, 5, 5} {
		testutil.TestReview(t, db, rated.ID, nil, r)
	}

	stats, err := repo.RatingStats(context.Background(), []int64{rated.ID, unrated.ID})
	require.NoError(t, err)

	assert.InDelta(t, 4.6667, stats[rated.ID].AverageRating, 0.001)
	assert.Equal(t, int64(3), stats[rated.ID].ReviewCount)
	_, ok := stats[unrated.ID]
	assert.False(t, ok)

	empty, err := repo.RatingStats(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestReviewRepository_PublishPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewReviewRepository(db)
	profile := testutil.TestProfile(t, db, testutil.TestAccount(t, db).ID)
	pending := testutil.TestPendingReview(t, db, profile.ID, "a@b.com")

	now := time.Now().UTC()
	review, err := repo.PublishPending(context.Background(), pending.ID, now)
	require.NoError(t, err)
	assert.Equal(t, profile.ID, review.ProfileID)
	assert.Nil(t, review.AccountID)
	assert.Equal(t, pending.Rating, review.Rating)
	assert.Equal(t, pending.Comment, review.Comment)

	var stored model.PendingReview
	require.NoError(t, db.First(&stored, pending.ID).Error)
	assert.NotNil(t, stored.VerifiedAt)
	assert.Nil(t, stored.PendingKey)

	_, err = repo.PublishPending(context.Background(), pending.ID, now)
	assert.ErrorIs(t, err, ErrPendingConsumed)

	var count int64
	db.Model(&model.Review{}).Where("profile_id = ?", profile.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestReviewRepository_PublishPending_RollsBackOnStoreFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewReviewRepository(db)
	profile := testutil.TestProfile(t, db, testutil.TestAccount(t, db).ID)
	pending := testutil.TestPendingReview(t, db, profile.ID, "a@b.com")

	diskFull := errors.New("disk full")
	restore := testutil.FailCreates(t, db, "reviews", diskFull)

	review, err := repo.PublishPending(context.Background(), pending.ID, time.Now())
	require.ErrorIs(t, err, diskFull)
	assert.Nil(t, review)

	var stored model.PendingReview
	require.NoError(t, db.First(&stored, pending.ID).Error)
	assert.Nil(t, stored.VerifiedAt)
	assert.NotNil(t, stored.PendingKey)

	var count int64
	require.NoError(t, db.Model(&model.Review{}).Where("profile_id = ?", profile.ID).Count(&count).Error)
	assert.Zero(t, count)

	// 存储恢复后同一条记录仍可发布
	restore()
	review, err = repo.PublishPending(context.Background(), pending.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, profile.ID, review.ProfileID)
}

func TestReviewRepository_PublishPending_Concurrent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewReviewRepository(db)
	profile := testutil.TestProfile(t, db, testutil.TestAccount(t, db).ID)
	pending := testutil.TestPendingReview(t, db, profile.ID, "a@b.com")

	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.PublishPending(context.Background(), pending.ID, time.Now())
		}(i)
	}
	wg.Wait()

	success, consumed := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			success++
		case errors.Is(err, ErrPendingConsumed):
			consumed++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, success)
	assert.Equal(t, n-1, consumed)

	var count int64
	db.Model(&model.Review{}).Where("profile_id = ?", profile.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}
