package security

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chirino/social-service/internal/config"
	"github.com/chirino/social-service/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T) *TokenResolver {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.SessionSecret = "test-secret"
	cfg.SessionTTL = time.Hour
	r, err := NewTokenResolver(&cfg, nil)
	require.NoError(t, err)
	return r
}

func TestIssueAndResolve(t *testing.T) {
	r := newTestResolver(t)
	u := &model.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com"}

	token, exp, err := r.Issue(u)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	id, err := r.Resolve(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, u.ID, id.UserID)
	require.Equal(t, "alice", id.Username)
	require.Equal(t, "alice@example.com", id.Email)
}

func TestResolve_Expired(t *testing.T) {
	r := newTestResolver(t)
	issued := time.Now().Add(-2 * time.Hour)
	r.now = func() time.Time { return issued }
	token, _, err := r.Issue(&model.User{ID: uuid.New(), Username: "bob"})
	require.NoError(t, err)

	r.now = time.Now
	_, err = r.Resolve(context.Background(), token)
	require.ErrorIs(t, err, errExpiredToken)
}

func TestResolve_WrongSecret(t *testing.T) {
	other := newTestResolver(t)
	other.secret = []byte("another-secret")
	token, _, err := other.Issue(&model.User{ID: uuid.New(), Username: "eve"})
	require.NoError(t, err)

	_, err = newTestResolver(t).Resolve(context.Background(), token)
	require.ErrorIs(t, err, errInvalidToken)
}

func TestNewTokenResolver_GeneratesSecret(t *testing.T) {
	cfg := config.DefaultConfig()
	r, err := NewTokenResolver(&cfg, nil)
	require.NoError(t, err)
	require.Len(t, r.secret, 32)
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := newTestResolver(t)
	userID := uuid.New()
	token, _, err := r.Issue(&model.User{ID: userID, Username: "carol"})
	require.NoError(t, err)

	router := gin.New()
	router.GET("/me", AuthMiddleware(r), func(c *gin.Context) {
		c.String(http.StatusOK, GetUserID(c).String())
	})

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-token", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			require.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				require.Equal(t, userID.String(), w.Body.String())
			}
		})
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := newTestResolver(t)

	router := gin.New()
	router.GET("/feed", OptionalAuthMiddleware(r), func(c *gin.Context) {
		c.String(http.StatusOK, GetUserID(c).String())
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/feed", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, uuid.Nil.String(), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
