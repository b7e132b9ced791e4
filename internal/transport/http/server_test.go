package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"anime-api/internal/bootstrap"
	"anime-api/internal/cache"
	"anime-api/internal/config"
	"anime-api/internal/model"
	"anime-api/internal/transport/http/response"
)

func newTestApp(t *testing.T) *bootstrap.App {
	t.Helper()
	cfg := config.Default()
	cfg.App.GinMode = gin.TestMode
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.Store.Location = t.TempDir()
	require.NoError(t, cfg.Validate())

	store, err := bootstrap.OpenStore(context.Background(), cfg.Store)
	require.NoError(t, err)

	a := &bootstrap.App{
		Config:    cfg,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Store:     store,
		StartedAt: time.Now(),
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	a := newTestApp(t)
	require.NoError(t, a.Wire(nil, nil))
	return NewRouter(a)
}

func doJSON(t *testing.T, router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doForm(t *testing.T, router http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func register(t *testing.T, router http.Handler, username, email, password string) map[string]interface{} {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/register", "",
		`{"username":"`+username+`","email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func login(t *testing.T, router http.Handler, username, password string) string {
	t.Helper()
	w := doForm(t, router, "/token", url.Values{"username": {username}, "password": {password}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "bearer", body["token_type"])
	require.NotEmpty(t, body["access_token"])
	return body["access_token"]
}

func assertUnauthorized(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	var body response.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, response.CodeUnauthorized, body.Code)
	assert.Equal(t, response.UnauthorizedMessage, body.Message)
}

func TestRouter_EndToEnd(t *testing.T) {
	router := newTestRouter(t)

	user := register(t, router, "alice", "a@x.com", "pw123")
	aliceID, _ := user["id"].(string)
	require.NotEmpty(t, aliceID)
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "a@x.com", user["email"])
	assert.NotContains(t, user, "password")
	assert.NotContains(t, user, "password_hash")

	token := login(t, router, "alice", "pw123")

	w := doJSON(t, router, http.MethodPost, "/posts", token,
		`{"title":"T","embed_url":"u","user_id":"mallory"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, aliceID, created["user_id"])
	assert.Equal(t, "T", created["title"])
	assert.Equal(t, "u", created["embed_url"])
	assert.Contains(t, created, "description")
	assert.Nil(t, created["description"])
	assert.NotEmpty(t, created["id"])
	assert.NotEmpty(t, created["created_at"])

	w = doJSON(t, router, http.MethodGet, "/posts", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var posts []model.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, created["id"], posts[0].ID)
	assert.Equal(t, aliceID, posts[0].OwnerID)
}

func TestRouter_RegisterRejects(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "alice", "a@x.com", "pw123")

	for name, body := range map[string]string{
		"duplicate username": `{"username":"alice","email":"other@x.com","password":"pw"}`,
		"duplicate email":    `{"username":"bob","email":"a@x.com","password":"pw"}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/register", "", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			var apiErr response.APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
			assert.Equal(t, response.CodeDuplicateIdentity, apiErr.Code)
		})
	}

	for name, body := range map[string]string{
		"missing password": `{"username":"carol","email":"c@x.com"}`,
		"malformed json":   `{"username":`,
	} {
		t.Run(name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/register", "", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestRouter_RegisterRejectsMultibytePasswordOverLimit(t *testing.T) {
	router := newTestRouter(t)

	// 40 runes but 80 bytes, past bcrypt's 72-byte limit.
	body, err := json.Marshal(map[string]string{
		"username": "alice",
		"email":    "a@x.com",
		"password": strings.Repeat("é", 40),
	})
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodPost, "/register", "", string(body))
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	var apiErr response.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, response.CodeBadRequest, apiErr.Code)

	register(t, router, "alice", "a@x.com", "pw123")
}

func TestRouter_TokenRejectsUniformly(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "alice", "a@x.com", "pw123")

	wrongPassword := doForm(t, router, "/token", url.Values{"username": {"alice"}, "password": {"nope"}})
	unknownUser := doForm(t, router, "/token", url.Values{"username": {"mallory"}, "password": {"pw123"}})

	assertUnauthorized(t, wrongPassword)
	assertUnauthorized(t, unknownUser)
	assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())

	missing := doForm(t, router, "/token", url.Values{"username": {"alice"}})
	assert.Equal(t, http.StatusBadRequest, missing.Code)
}

func TestRouter_CreatePostRequiresToken(t *testing.T) {
	router := newTestRouter(t)
	body := `{"title":"T","embed_url":"u"}`

	assertUnauthorized(t, doJSON(t, router, http.MethodPost, "/posts", "", body))
	assertUnauthorized(t, doJSON(t, router, http.MethodPost, "/posts", "not-a-jwt", body))

	req := httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(body))
	req.Header.Set("Authorization", "Basic YWxpY2U6cHcxMjM=")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assertUnauthorized(t, w)
}

func TestRouter_CreatePostValidation(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "alice", "a@x.com", "pw123")
	token := login(t, router, "alice", "pw123")

	w := doJSON(t, router, http.MethodPost, "/posts", token, `{"embed_url":"u"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(t, router, http.MethodPost, "/posts", token, `{"title":"T"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_ListPostsPaging(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "alice", "a@x.com", "pw123")
	token := login(t, router, "alice", "pw123")

	var ids []string
	for i := 0; i < 15; i++ {
		w := doJSON(t, router, http.MethodPost, "/posts", token, `{"title":"T","embed_url":"u","description":"d"}`)
		require.Equal(t, http.StatusOK, w.Code)
		var p model.Post
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
		ids = append(ids, p.ID)
	}

	list := func(query string) []model.Post {
		w := doJSON(t, router, http.MethodGet, "/posts"+query, "", "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var posts []model.Post
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
		return posts
	}

	first := list("?skip=0&limit=10")
	require.Len(t, first, 10)
	assert.Equal(t, ids[0], first[0].ID)
	assert.Equal(t, ids[9], first[9].ID)
	require.NotNil(t, first[0].Description)
	assert.Equal(t, "d", *first[0].Description)

	rest := list("?skip=10&limit=10")
	require.Len(t, rest, 5)
	assert.Equal(t, ids[10], rest[0].ID)

	assert.Len(t, list(""), 10)
	assert.Len(t, list("?limit=1000"), 15)
	assert.Empty(t, list("?skip=100"))

	for _, query := range []string{"?skip=-1", "?limit=-1", "?skip=abc", "?limit=x"} {
		w := doJSON(t, router, http.MethodGet, "/posts"+query, "", "")
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestRouter_ListPostsWithCache(t *testing.T) {
	a := newTestApp(t)
	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, a.Wire(cache.NewPostPageCache(client, time.Minute), nil))
	router := NewRouter(a)

	register(t, router, "alice", "a@x.com", "pw123")
	token := login(t, router, "alice", "pw123")

	count := func() int {
		w := doJSON(t, router, http.MethodGet, "/posts", "", "")
		require.Equal(t, http.StatusOK, w.Code)
		var posts []model.Post
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
		return len(posts)
	}

	assert.Equal(t, 0, count())
	w := doJSON(t, router, http.MethodPost, "/posts", token, `{"title":"T","embed_url":"u"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, count())
	assert.Equal(t, 1, count())
}

func TestRouter_RequestIDAndHealth(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	deps, ok := body["dependencies"].(map[string]interface{})
	require.True(t, ok)
	store, ok := deps["store"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, store["ok"])
}

func TestRouter_HealthReportsClosedStore(t *testing.T) {
	a := newTestApp(t)
	require.NoError(t, a.Wire(nil, nil))
	router := NewRouter(a)
	require.NoError(t, a.Store.Close())

	w := doJSON(t, router, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_Metrics(t *testing.T) {
	router := newTestRouter(t)
	assertUnauthorized(t, doJSON(t, router, http.MethodPost, "/posts", "", `{}`))

	w := doJSON(t, router, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `auth_rejections_total{kind="missing_credential"}`)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestRouter_StoreUnavailable(t *testing.T) {
	a := newTestApp(t)
	require.NoError(t, a.Wire(nil, nil))
	router := NewRouter(a)
	require.NoError(t, a.Store.Close())

	w := doJSON(t, router, http.MethodGet, "/posts", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var apiErr response.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, response.CodeInternalServer, apiErr.Code)
}
