package serve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chirino/social-service/internal/config"
	"github.com/chirino/social-service/internal/plugin/cache/memory"
	"github.com/chirino/social-service/internal/plugin/media/inline"
	registryevents "github.com/chirino/social-service/internal/registry/events"
	"github.com/chirino/social-service/internal/security"
	"github.com/chirino/social-service/internal/testutil/testsqlite"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvents struct {
	mu     sync.Mutex
	events []registryevents.Event
}

func (r *recordedEvents) Publish(_ context.Context, events ...registryevents.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *recordedEvents) Close() error { return nil }

func (r *recordedEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type testAPI struct {
	t      *testing.T
	router *gin.Engine
	events *recordedEvents
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.DefaultConfig()
	cfg.SessionSecret = "test-secret"
	cfg.RateLimitPerSecond = 0
	store := testsqlite.NewStore(t)
	tokens, err := security.NewTokenResolver(&cfg, store)
	require.NoError(t, err)
	profiles, err := memory.New(1000, time.Minute)
	require.NoError(t, err)
	t.Cleanup(profiles.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	events := &recordedEvents{}
	router, err := NewRouter(ctx, &cfg, Components{
		Store:    store,
		Profiles: profiles,
		Media:    inline.New(cfg.MediaMaxSize),
		Events:   events,
		Tokens:   tokens,
	})
	require.NoError(t, err)
	require.NoError(t, mountManagementRoutes(router))
	return &testAPI{t: t, router: router, events: events}
}

func (a *testAPI) serve(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return a.serve(req, token)
}

type session struct {
	Token string `json:"token"`
	User  struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

func (a *testAPI) signup(username string) session {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret123",
		"fullName": "User " + username,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var s session
	decode(a.t, rec, &s)
	require.NotEmpty(a.t, s.Token)
	return s
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

type part struct {
	field, filename, contentType, content string
}

func multipartRequest(t *testing.T, method, path string, fields map[string]string, parts ...part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, p := range parts {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.field, p.filename))
		h.Set("Content-Type", p.contentType)
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write([]byte(p.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestRoutes_SignupLoginAndMe(t *testing.T) {
	api := newTestAPI(t)
	alice := api.signup("alice")

	rec := api.do(http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "secret123", "fullName": "Other",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"username": "x", "email": "x@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"username": "alice", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "ALICE@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login session
	decode(t, rec, &login)
	assert.Equal(t, alice.User.ID, login.User.ID)

	rec = api.do(http.MethodGet, "/v1/users/me", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)
	assert.NotContains(t, rec.Body.String(), "secret123")

	rec = api.do(http.MethodGet, "/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
}

func TestRoutes_SignupValidation(t *testing.T) {
	api := newTestAPI(t)
	cases := []struct {
		body  map[string]string
		field string
	}{
		{map[string]string{"username": "bob", "email": "not-an-email", "password": "secret123"}, "email"},
		{map[string]string{"username": "bob", "email": "bob@example.com", "password": "short"}, "password"},
		{map[string]string{"username": "bob smith", "email": "bob@example.com", "password": "secret123"}, "username"},
		{map[string]string{"email": "bob@example.com", "password": "secret123"}, "username"},
	}
	for _, tc := range cases {
		rec := api.do(http.MethodPost, "/v1/auth/signup", "", tc.body)
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		var body struct {
			Code  string `json:"code"`
			Field string `json:"field"`
		}
		decode(t, rec, &body)
		assert.Equal(t, "validation_error", body.Code)
		assert.Equal(t, tc.field, body.Field)
	}

	rec := api.do(http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"username": "bob.smith_2", "email": "Bob@Example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"email":"bob@example.com"`)
}

func TestRoutes_PostLifecycle(t *testing.T) {
	api := newTestAPI(t)
	alice := api.signup("alice")
	bob := api.signup("bob")

	rec := api.serve(multipartRequest(t, http.MethodPost, "/v1/posts", map[string]string{"caption": "sunset"},
		part{"images", "a.png", "image/png", "first"},
		part{"images", "b.jpg", "image/jpeg", "second"},
		part{"notes", "n.txt", "text/plain", "ignored"},
	), alice.Token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var post struct {
		ID     string `json:"id"`
		Images []struct {
			ImageURL string `json:"imageUrl"`
		} `json:"images"`
	}
	decode(t, rec, &post)
	require.Len(t, post.Images, 2)
	assert.True(t, strings.HasPrefix(post.Images[0].ImageURL, "data:image/png;base64,"))

	rec = api.serve(multipartRequest(t, http.MethodPost, "/v1/posts", nil,
		part{"notes", "n.txt", "text/plain", "no images"},
	), alice.Token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/v1/posts?authorId="+alice.User.ID+"&page=1&limit=10", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Posts      []json.RawMessage `json:"posts"`
		Pagination struct {
			Page    int  `json:"page"`
			HasNext bool `json:"hasNext"`
			HasPrev bool `json:"hasPrev"`
		} `json:"pagination"`
	}
	decode(t, rec, &page)
	assert.Len(t, page.Posts, 1)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.False(t, page.Pagination.HasNext)

	rec = api.do(http.MethodGet, "/v1/posts?limit=0", bob.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/v1/posts/"+post.ID+"/like", bob.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(http.MethodPost, "/v1/posts/"+post.ID+"/like", bob.Token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodGet, "/v1/posts/"+post.ID, bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		LikeCount int64 `json:"likeCount"`
		IsLiked   bool  `json:"isLiked"`
	}
	decode(t, rec, &view)
	assert.Equal(t, int64(1), view.LikeCount)
	assert.True(t, view.IsLiked)

	rec = api.do(http.MethodDelete, "/v1/posts/"+post.ID+"/like", bob.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(http.MethodDelete, "/v1/posts/"+post.ID, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = api.do(http.MethodGet, "/v1/posts/not-a-uuid", bob.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Contains(t, api.events.types(), registryevents.TypePostLiked)
}

func TestRoutes_MessagingAndConversationList(t *testing.T) {
	api := newTestAPI(t)
	alice := api.signup("alice")
	bob := api.signup("bob")

	rec := api.do(http.MethodPost, "/v1/messages", alice.Token, map[string]string{"receiverId": bob.User.ID, "content": "hi"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sent struct {
		ID int64 `json:"id"`
	}
	decode(t, rec, &sent)

	rec = api.do(http.MethodGet, "/v1/messages", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Conversations []struct {
			Type string `json:"type"`
			User struct {
				Username string `json:"username"`
			} `json:"user"`
			LastMessage struct {
				ID     int64 `json:"id"`
				IsRead bool  `json:"isRead"`
			} `json:"lastMessage"`
		} `json:"conversations"`
		Pagination struct {
			HasMore bool `json:"hasMore"`
		} `json:"pagination"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Conversations, 1)
	assert.Equal(t, "direct", list.Conversations[0].Type)
	assert.Equal(t, "alice", list.Conversations[0].User.Username)
	assert.False(t, list.Conversations[0].LastMessage.IsRead)
	assert.False(t, list.Pagination.HasMore)

	path := fmt.Sprintf("/v1/messages/%d", sent.ID)
	rec = api.do(http.MethodGet, path, bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isRead":true`)

	rec = api.do(http.MethodPost, "/v1/groups", alice.Token, map[string]any{"name": "team", "memberIds": []string{bob.User.ID}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var group struct {
		ID string `json:"id"`
	}
	decode(t, rec, &group)

	rec = api.serve(multipartRequest(t, http.MethodPost, "/v1/messages", map[string]string{"groupId": group.ID},
		part{"media", "pic.png", "image/png", "pixels"},
	), alice.Token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"mediaUrl":"data:image/png;base64,`)

	rec = api.do(http.MethodGet, "/v1/messages?page=1&limit=1", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &list)
	require.Len(t, list.Conversations, 1)
	assert.Equal(t, "group", list.Conversations[0].Type)
	assert.True(t, list.Pagination.HasMore)

	rec = api.do(http.MethodGet, "/v1/messages?groupId="+group.ID, bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalMessages":1`)

	rec = api.do(http.MethodGet, "/v1/messages?groupId="+group.ID+"&receiverId="+alice.User.ID, bob.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodDelete, path, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = api.do(http.MethodDelete, path, alice.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(http.MethodGet, path, alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = api.do(http.MethodGet, "/v1/messages/abc", alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Contains(t, api.events.types(), registryevents.TypeMessageSent)
}

func TestRoutes_FollowAndNotifications(t *testing.T) {
	api := newTestAPI(t)
	alice := api.signup("alice")
	bob := api.signup("bob")

	rec := api.do(http.MethodPost, "/v1/users/alice/follow", bob.Token, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = api.do(http.MethodPost, "/v1/users/alice/follow", bob.Token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = api.do(http.MethodPost, "/v1/users/bob/follow", bob.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/v1/users/alice", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isFollowing":true`)
	assert.Contains(t, rec.Body.String(), `"followerCount":1`)

	rec = api.do(http.MethodGet, "/v1/notifications", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"follow"`)

	rec = api.do(http.MethodPost, "/v1/notifications/read", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":1}`, rec.Body.String())

	rec = api.do(http.MethodDelete, "/v1/users/alice/follow", bob.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, api.events.types(), registryevents.TypeUserFollowed)
}

func TestRoutes_HealthIsPublic(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestNewRouter_MountsRegisteredAreas(t *testing.T) {
	api := newTestAPI(t)
	routes := map[string]bool{}
	for _, r := range api.router.Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"POST /v1/auth/signup",
		"GET /v1/users/me",
		"POST /v1/posts",
		"DELETE /v1/comments/:commentId",
		"POST /v1/groups",
		"GET /v1/notifications",
		"GET /v1/messages",
		"GET /health",
	} {
		assert.True(t, routes[want], want)
	}
}

func TestNewRouter_RequiresComponents(t *testing.T) {
	cfg := config.DefaultConfig()
	_, err := NewRouter(context.Background(), &cfg, Components{})
	require.Error(t, err)
}
