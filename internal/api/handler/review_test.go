package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/yardconnect/internal/model"
	"github.com/qs3c/yardconnect/internal/pkg/response"
	"github.com/qs3c/yardconnect/internal/testutil"
)

func submitBody(email string, rating int) map[string]interface{} {
	return map[string]interface{}{
		"email":   email,
		"rating":  rating,
		"comment": "Showed up on time and did a great job.",
	}
}

func TestReviewHandler_PendingRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	owner := testutil.TestAccount(t, env.db)
	profile := testutil.TestProfile(t, env.db, owner.ID)
	path := fmt.Sprintf("/profiles/%d/reviews/pending", profile.ID)

	w := env.do(http.MethodPost, path, submitBody("client@example.com", 5), "")
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.Equal(t, profile.Name, dataMap(t, resp)["profile_name"])
	assert.Equal(t, 1, env.sender.Count())

	// 重复提交
	w = env.do(http.MethodPost, path, submitBody("CLIENT@example.com", 4), "")
	assert.Equal(t, response.CodeDuplicateAction, parseResponse(t, w).Code)
	assert.Equal(t, 1, env.sender.Count())

	var pending model.PendingReview
	require.NoError(t, env.db.First(&pending).Error)
	assert.Contains(t, env.sender.Last().Body, "/reviews/verify/"+pending.Token)

	w = env.do(http.MethodGet, "/reviews/verify/"+pending.Token, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Review verified")
	assert.Contains(t, w.Body.String(), profile.Name)

	w = env.do(http.MethodGet, "/reviews/verify/"+pending.Token, nil, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Already verified")

	w = env.do(http.MethodGet, fmt.Sprintf("/profiles/%d/reviews", profile.ID), nil, "")
	resp = parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)
	items := resp.Data.([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, float64(5), item["rating"])
	assert.Equal(t, true, item["verified"])
	assert.Nil(t, item["account_id"])
}

func TestReviewHandler_SubmitPending_Errors(t *testing.T) {
	env := newTestEnv(t)
	owner := testutil.TestAccount(t, env.db)
	profile := testutil.TestProfile(t, env.db, owner.ID)
	path := fmt.Sprintf("/profiles/%d/reviews/pending", profile.ID)

	tests := []struct {
		name string
		path string
		body map[string]interface{}
		code int
	}{
		{"rating too low", path, submitBody("a@example.com", 0), response.CodeParamError},
		{"rating too high", path, submitBody("a@example.com", 6), response.CodeParamError},
		{"bad email", path, submitBody("not-an-email", 5), response.CodeParamError},
		{"unknown profile", "/profiles/99999/reviews/pending", submitBody("a@example.com", 5), response.CodeResourceNotFound},
		{"bad id", "/profiles/x/reviews/pending", submitBody("a@example.com", 5), response.CodeParamError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, tt.path, tt.body, "")
			assert.Equal(t, tt.code, parseResponse(t, w).Code)
		})
	}
	assert.Equal(t, 0, env.sender.Count())
}

func TestReviewHandler_SubmitPending_EmailFailure(t *testing.T) {
	env := newTestEnv(t)
	env.sender.Err = errors.New("smtp down")
	owner := testutil.TestAccount(t, env.db)
	profile := testutil.TestProfile(t, env.db, owner.ID)

	w := env.do(http.MethodPost, fmt.Sprintf("/profiles/%d/reviews/pending", profile.ID), submitBody("c@example.com", 4), "")
	assert.Equal(t, response.CodeDependencyFailed, parseResponse(t, w).Code)

	var count int64
	env.db.Model(&model.PendingReview{}).Count(&count)
	assert.Zero(t, count)
}

func TestReviewHandler_Verify_UnknownToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/reviews/verify/does-not-exist", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "invalid or has expired")
}

func TestReviewHandler_Verify_StorageDown(t *testing.T) {
	env := newTestEnv(t)
	sqlDB, err := env.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w := env.do(http.MethodGet, "/reviews/verify/abc", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReviewHandler_CreateAuthenticated(t *testing.T) {
	env := newTestEnv(t)
	owner := testutil.TestAccount(t, env.db)
	profile := testutil.TestProfile(t, env.db, owner.ID)
	client := testutil.TestAccount(t, env.db, testutil.WithRole(model.RoleClient))
	path := fmt.Sprintf("/profiles/%d/reviews", profile.ID)

	body := map[string]interface{}{"rating": 4, "comment": "Solid work"}

	w := env.do(http.MethodPost, path, body, "")
	assert.Equal(t, response.CodeAuthFailed, parseResponse(t, w).Code)

	w = env.do(http.MethodPost, path, body, bearer(t, client.ID))
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.Equal(t, float64(client.ID), dataMap(t, resp)["account_id"])
	assert.Equal(t, false, dataMap(t, resp)["verified"])

	w = env.do(http.MethodPost, path, body, bearer(t, client.ID))
	assert.Equal(t, response.CodeDuplicateAction, parseResponse(t, w).Code)

	w = env.do(http.MethodPost, path, body, bearer(t, owner.ID))
	assert.Equal(t, response.CodeParamError, parseResponse(t, w).Code)

	w = env.do(http.MethodPost, path, map[string]interface{}{"rating": 6}, bearer(t, testutil.TestAccount(t, env.db).ID))
	assert.Equal(t, response.CodeParamError, parseResponse(t, w).Code)
}
