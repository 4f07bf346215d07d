package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"requisas/auth"
	"requisas/model"
)

var testSecret = []byte("test-secret")

func testUser(role model.Role) *model.User {
	return &model.User{ID: 7, Username: "sup", FullName: "Sup", Role: role}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := auth.HashPassword("pass")
	require.NoError(t, err)
	assert.NotEqual(t, "pass", hash)
	assert.True(t, auth.CheckPasswordHash("pass", hash))
	assert.False(t, auth.CheckPasswordHash("wrong", hash))
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := auth.GenerateToken(testUser(model.RoleRequester), testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := auth.ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "sup", claims.Username)
	assert.Equal(t, model.RoleRequester, claims.Role)
	assert.NotEmpty(t, claims.ID, "token must carry a unique id")
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken(testUser(model.RoleRequester), testSecret, time.Hour)
	require.NoError(t, err)

	_, err = auth.ParseToken(token, []byte("other-secret"))
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := auth.GenerateToken(testUser(model.RoleRequester), testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = auth.ParseToken(token, testSecret)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func requireStatus(t *testing.T, handler http.HandlerFunc, token string, want int) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, want, rec.Code)
}

func TestRequireMiddleware(t *testing.T) {
	var gotIdentity auth.Identity
	inner := func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.FromContext(r.Context())
		require.True(t, ok)
		gotIdentity = identity
		w.WriteHeader(http.StatusOK)
	}

	approverOnly := auth.Require(testSecret, inner, model.RoleApprover)

	requesterToken, err := auth.GenerateToken(testUser(model.RoleRequester), testSecret, time.Hour)
	require.NoError(t, err)
	approverToken, err := auth.GenerateToken(testUser(model.RoleApprover), testSecret, time.Hour)
	require.NoError(t, err)
	adminToken, err := auth.GenerateToken(testUser(model.RoleAdmin), testSecret, time.Hour)
	require.NoError(t, err)

	requireStatus(t, approverOnly, "", http.StatusUnauthorized)
	requireStatus(t, approverOnly, "garbage", http.StatusUnauthorized)
	requireStatus(t, approverOnly, requesterToken, http.StatusForbidden)
	requireStatus(t, approverOnly, approverToken, http.StatusOK)
	assert.Equal(t, model.RoleApprover, gotIdentity.Role)
	assert.Equal(t, int64(7), gotIdentity.UserID)

	// Administrators pass every role gate.
	requireStatus(t, approverOnly, adminToken, http.StatusOK)

	// Without a role list any authenticated user passes.
	anyUser := auth.Require(testSecret, inner)
	requireStatus(t, anyUser, requesterToken, http.StatusOK)
}
