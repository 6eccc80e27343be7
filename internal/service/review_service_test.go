package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/yardconnect/config"
	"github.com/qs3c/yardconnect/internal/model"
	"github.com/qs3c/yardconnect/internal/pkg/notify"
	"github.com/qs3c/yardconnect/internal/repository"
	"github.com/qs3c/yardconnect/internal/testutil"
)

type fakeNotifier struct {
	mu      sync.Mutex
	notices []*notify.ReviewNotice
	err     error
}

func (f *fakeNotifier) ReviewPublished(ctx context.Context, n *notify.ReviewNotice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, n)
	return f.err
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notices)
}

type reviewFixture struct {
	db       *gorm.DB
	svc      *ReviewService
	sender   *testutil.FakeSender
	notifier *fakeNotifier
	cfg      *config.Config
}

func setupReviewService(t *testing.T) *reviewFixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := &config.Config{
		Review: config.ReviewConfig{VerifyBaseURL: "https://yardconnect.test/verify/"},
	}
	sender := &testutil.FakeSender{}
	notifier := &fakeNotifier{}

	svc := NewReviewService(
		repository.NewProfileRepository(db),
		repository.NewReviewRepository(db),
		repository.NewPendingReviewRepository(db),
		sender,
		notifier,
		cfg,
	)

	return &reviewFixture{db: db, svc: svc, sender: sender, notifier: notifier, cfg: cfg}
}

func (f *reviewFixture) profile(t *testing.T) *model.Profile {
	t.Helper()
	account := testutil.TestAccount(t, f.db)
	return testutil.TestProfile(t, f.db, account.ID, testutil.WithProfileName("Green Thumb"))
}

func (f *reviewFixture) countPending(t *testing.T, profileID int64) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&model.PendingReview{}).Where("profile_id = ?", profileID).Count(&count).Error)
	return count
}

func (f *reviewFixture) countReviews(t *testing.T, profileID int64) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&model.Review{}).Where("profile_id = ?", profileID).Count(&count).Error)
	return count
}

// tokenFromEmail 从验证邮件正文中取出 token
func tokenFromEmail(t *testing.T, body string) string {
	t.Helper()
	const prefix = "https://yardconnect.test/verify/"
	idx := strings.Index(body, prefix)
	require.NotEqual(t, -1, idx, "verification link not found in body")
	return body[idx+len(prefix) : idx+len(prefix)+2*TokenBytes]
}

func TestReviewService_Submit_CreatesPendingAndSendsOneEmail(t *testing.T) {
	f := setupReviewService(t)
	profile := f.profile(t)

	name, err := f.svc.SubmitPendingReview(context.Background(), profile.ID, "a@b.com", 5, "great")
	require.NoError(t, err)
	assert.Equal(t, "Green Thumb", name)

	assert.Equal(t, int64(1), f.countPending(t, profile.ID))
	assert.Zero(t, f.countReviews(t, profile.ID))
	require.Equal(t, 1, f.sender.Count())

	sent := f.sender.Last()
	assert.Equal(t, "a@b.com", sent.To)
	assert.Contains(t, sent.Subject, "Green Thumb")

	var pending model.PendingReview
	require.NoError(t, f.db.Where("profile_id = ?", profile.ID).First(&pending).Error)
	assert.Len(t, pending.Token, 64)
	assert.Equal(t, pending.Token, tokenFromEmail(t, sent.Body))
	assert.Nil(t, pending.VerifiedAt)
}

func TestReviewService_Submit_Duplicate(t *testing.T) {
	f := setupReviewService(t)
	profile := f.profile(t)
	ctx := context.Background()

	_, err := f.svc.SubmitPendingReview(ctx, profile.ID, "a@b.com", 5, "great")
	require.NoError(t, err)

	_, err = f.svc.SubmitPendingReview(ctx, profile.ID, "A@B.com", 3, "again")
	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, ErrPendingReviewExists)

	assert.Equal(t, int64(1), f.countPending(t, profile.ID))
	assert.Equal(t, 1, f.sender.Count())

	// 其他邮箱不受影响
	_, err = f.svc.SubmitPendingReview(ctx, profile.ID, "c@d.com", 4, "")
	assert.NoError(t, err)
}

func TestReviewService_Submit_Validation(t *testing.T) {
	f := setupReviewService(t)
	profile := f.profile(t)

	tests := []struct {
		name    string
		email   string
		rating  int
		comment string
		wantErr error
	}{
		{name: "rating zero", email: "a@b.com", rating: 0, wantErr: ErrValidation},
		{name: "rating six", email: "a@b.com", rating: 6, wantErr: ErrValidation},
		{name: "bad email", email: "not-an-email", rating: 3, wantErr: ErrValidation},
		{name: "email without dot", email: "a@b", rating: 3, wantErr: ErrValidation},
		{name: "comment too long", email: "a@b.com", rating: 3, comment: strings.Repeat("x", 501), wantErr: ErrValidation},
		{name: "rating one", email: "one@b.com", rating: 1},
		{name: "rating five", email: "five@b.com", rating: 5},
		{name: "comment at limit", email: "limit@b.com", rating: 3, comment: strings.Repeat("é", 500)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SubmitPendingReview(context.Background(), profile.ID, tt.email, tt.rating, tt.comment)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}

	assert.Equal(t, int64(3), f.countPending(t, profile.ID))
	assert.Equal(t, 3, f.sender.Count())
}

func TestReviewService_Submit_UnknownProfile(t *testing.T) {
	f := setupReviewService(t)

	_, err := f.svc.SubmitPendingReview(context.Background(), 9999, "a@b.com", 5, "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, f.sender.Count())
}

func TestReviewService_Submit_EmailFailureRollsBack(t *testing.T) {
	f := setupReviewService(t)
	profile := f.profile(t)
	f.sender.Err = errors.New("smtp down")

	_, err := f.svc.SubmitPendingReview(context.Background(), profile.ID, "a@b.com", 5, "")
	assert.ErrorIs(t, err, ErrDependency)
	assert.Zero(t, f.countPending(t, profile.ID))

	// 恢复后可以重新提交
	f.sender.Err = nil
	_, err = f.svc.SubmitPendingReview(context.Background(), profile.ID, "a@b.com", 5, "")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), f.countPending(t, profile.ID))
}

func TestReviewService_Verify_RoundTrip(t *testing.T) {
	f := setupReviewService(t)
	profile := f.profile(t)
	ctx := context.Background()

	_, err := f.svc.SubmitPendingReview(ctx, profile.ID, "a@b.com", 4, "neat edges")
	require.NoError(t, err)
	token := tokenFromEmail(t, f.sender.Last().Body)

	review, name, err := f.svc.VerifyPendingReview(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "Green Thumb", name)
	assert.Equal(t, profile.ID, review.ProfileID)
	assert.Nil(t, review.AccountID)
	assert.Equal(t, 4, review.Rating)
	assert.Equal(t, "neat edges", review.Comment)

	reviews, err := f.svc.ListProfileReviews(ctx, profile.ID, 0)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, review.ID, reviews[0].ID)

	require.Equal(t, 1, f.notifier.count())
	assert.Equal(t, profile.AccountID, f.notifier.notices[0].OwnerAccountID)
	assert.True(t, f.notifier.notices[0].Verified)

	_, _, err = f.svc.VerifyPendingReview(ctx, token)
	assert.ErrorIs(t, err, ErrAlreadyVerified)
	assert.Equal(t, int64(1), f.countReviews(t, profile.ID))

	// 验证后同一邮箱可以再次提交
	_, err = f.svc.SubmitPendingReview(ctx, profile.ID, "a@b.com", 5, "")
	assert.NoError(t, err)
}

func TestReviewService_Verify_StoreFailureLeavesTokenRedeemable(t *testing.T) {
	f := setupReviewService(t)
	profile := f.profile(t)
	ctx := context.Background()

	_, err := f.svc.SubmitPendingReview(ctx, profile.ID, "a@b.com", 3, "")
	require.NoError(t, err)
	token := tokenFromEmail(t, f.sender.Last().Body)

	restore := testutil.FailCreates(t, f.db, "reviews", errors.New("disk full"))
	_, _, err = f.svc.VerifyPendingReview(ctx, token)
	assert.ErrorIs(t, err, ErrDependency)
	assert.Zero(t, f.countReviews(t, profile.ID))
	assert.Zero(t, f.notifier.count())

	var pending model.PendingReview
	require.NoError(t, f.db.Where("token = ?", token).First(&pending).Error)
	assert.Nil(t, pending.VerifiedAt)

	restore()
	review, _, err := f.svc.VerifyPendingReview(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, 3, review.Rating)
	assert.Equal(t, int64(1), f.countReviews(t, profile.ID))
}

func TestReviewService_Verify_UnknownToken(t *testing.T) {
	f := setupReviewService(t)

	for _, token := range []string{"", "unknown", strings.Repeat("0", 64)} {
		_, _, err := f.svc.VerifyPendingReview(context.Background(), token)
		assert.ErrorIs(t, err, ErrNotFound, "token %q", token)
	}
}

func TestReviewService_Verify_Concurrent(t *testing.T) {
	f := setupReviewService(t)
	profile := f.profile(t)
	pending := testutil.TestPendingReview(t, f.db, profile.ID, "a@b.com")

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = f.svc.VerifyPendingReview(context.Background(), pending.Token)
		}(i)
	}
	wg.Wait()

	success, already := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			success++
		case errors.Is(err, ErrAlreadyVerified):
			already++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, success)
	assert.Equal(t, n-1, already)
	assert.Equal(t, int64(1), f.countReviews(t, profile.ID))
}

func TestReviewService_PendingTTL(t *testing.T) {
	f := setupReviewService(t)
	f.cfg.Review.PendingTTLHours = 24
	profile := f.profile(t)
	ctx := context.Background()

	stale := testutil.TestPendingReview(t, f.db, profile.ID, "a@b.com",
		testutil.WithPendingCreatedAt(time.Now().Add(-48*time.Hour)))

	_, _, err := f.svc.VerifyPendingReview(ctx, stale.Token)
	assert.ErrorIs(t, err, ErrNotFound)

	// 过期记录不再阻止重新提交
	_, err = f.svc.SubmitPendingReview(ctx, profile.ID, "a@b.com", 5, "")
	require.NoError(t, err)

	other := testutil.TestPendingReview(t, f.db, profile.ID, "b@b.com",
		testutil.WithPendingCreatedAt(time.Now().Add(-48*time.Hour)))
	released, err := f.svc.ReleaseExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)

	_, err = repository.NewPendingReviewRepository(f.db).FindUnverified(ctx, profile.ID, other.Email)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestReviewService_ReleaseExpired_Disabled(t *testing.T) {
	f := setupReviewService(t)
	profile := f.profile(t)
	testutil.TestPendingReview(t, f.db, profile.ID, "a@b.com",
		testutil.WithPendingCreatedAt(time.Now().AddDate(-1, 0, 0)))

	released, err := f.svc.ReleaseExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, released)
}

func TestReviewService_CreateAuthenticated(t *testing.T) {
	f := setupReviewService(t)
	profile := f.profile(t)
	reviewer := testutil.TestAccount(t, f.db, testutil.WithRole(model.RoleClient))
	ctx := context.Background()

	t.Run("rating bounds", func(t *testing.T) {
		for _, rating := range []int{0, 6} {
			_, err := f.svc.CreateAuthenticatedReview(ctx, profile.ID, reviewer.ID, rating, "")
			assert.ErrorIs(t, err, ErrValidation)
		}
	})

	t.Run("own profile", func(t *testing.T) {
		_, err := f.svc.CreateAuthenticatedReview(ctx, profile.ID, profile.AccountID, 5, "")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown profile", func(t *testing.T) {
		_, err := f.svc.CreateAuthenticatedReview(ctx, 9999, reviewer.ID, 5, "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("success then duplicate", func(t *testing.T) {
		review, err := f.svc.CreateAuthenticatedReview(ctx, profile.ID, reviewer.ID, 1, "late")
		require.NoError(t, err)
		require.NotNil(t, review.AccountID)
		assert.Equal(t, reviewer.ID, *review.AccountID)
		assert.Equal(t, 1, f.notifier.count())

		_, err = f.svc.CreateAuthenticatedReview(ctx, profile.ID, reviewer.ID, 5, "again")
		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, int64(1), f.countReviews(t, profile.ID))
	})

	t.Run("rating five accepted", func(t *testing.T) {
		other := testutil.TestAccount(t, f.db)
		_, err := f.svc.CreateAuthenticatedReview(ctx, profile.ID, other.ID, 5, "")
		assert.NoError(t, err)
	})
}

func TestReviewService_NotifierFailureDoesNotFail(t *testing.T) {
	f := setupReviewService(t)
	f.notifier.err = errors.New("redis down")
	profile := f.profile(t)
	pending := testutil.TestPendingReview(t, f.db, profile.ID, "a@b.com")

	review, _, err := f.svc.VerifyPendingReview(context.Background(), pending.Token)
	require.NoError(t, err)
	assert.NotZero(t, review.ID)
}

func TestReviewService_ListProfileReviews(t *testing.T) {
	f := setupReviewService(t)
	profile := f.profile(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		testutil.TestReview(t, f.db, profile.ID, nil, 5)
	}

	reviews, err := f.svc.ListProfileReviews(ctx, profile.ID, 2)
	require.NoError(t, err)
	assert.Len(t, reviews, 2)

	_, err = f.svc.ListProfileReviews(ctx, 9999, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewVerificationToken(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		token := NewVerificationToken()
		assert.Len(t, token, 64)
		_, dup := seen[token]
		assert.False(t, dup)
		seen[token] = struct{}{}
	}
}

func TestKindErrors(t *testing.T) {
	err := dependencyError("save", errors.New("disk full"))
	assert.ErrorIs(t, err, ErrDependency)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "save: disk full", err.Error())

	assert.ErrorIs(t, ErrPendingReviewExists, ErrConflict)
	assert.ErrorIs(t, ErrReviewLinkInvalid, ErrNotFound)
	assert.ErrorIs(t, ErrReviewAlreadyVerified, ErrAlreadyVerified)
}
