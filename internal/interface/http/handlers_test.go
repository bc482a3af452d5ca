package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servicehooks/userbase/internal/application"
	"github.com/servicehooks/userbase/internal/domain/entity"
	"github.com/servicehooks/userbase/internal/infrastructure/localstore"
	"github.com/servicehooks/userbase/internal/router"
	"github.com/servicehooks/userbase/pkg/helpers"
	"github.com/servicehooks/userbase/pkg/validation"
)

var setupOnce sync.Once

type testServer struct {
	engine *gin.Engine
	auth   *application.AuthService
	repo   *localstore.UserRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	setupOnce.Do(func() {
		gin.SetMode(gin.TestMode)
		validation.Init()
	})

	store, err := localstore.NewStore(t.TempDir())
	require.NoError(t, err)
	repo := localstore.NewUserRepository(store)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	tokens := helpers.NewTokenManager("test-secret", time.Hour)
	auth := application.NewAuthService(repo, tokens, logger)
	users := application.NewUserService(repo, logger)

	engine := gin.New()
	reg := router.NewRegistry(engine)
	router.InitModules(reg, router.Deps{
		Auth:   auth,
		Users:  users,
		Tokens: tokens,
		Logger: logger,
	})
	reg.RegisterAll()

	return &testServer{engine: engine, auth: auth, repo: repo}
}

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
	Error   map[string]any  `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func (s *testServer) signUp(t *testing.T, email string) string {
	t.Helper()
	w, _ := s.do(t, http.MethodPost, "/api/auth/signup", "", gin.H{
		"email":        email,
		"password":     "secret1",
		"display_name": "Test User",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	token, err := s.auth.RefreshToken()
	require.NoError(t, err)
	return token
}

func TestSignUpEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w, env := srv.do(t, http.MethodPost, "/api/auth/signup", "", gin.H{
		"email":        "new@example.com",
		"password":     "secret1",
		"display_name": "New User",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.Meta["token"])

	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "new@example.com", data["email"])
}

func TestSignUpRejectsInvalidPayload(t *testing.T) {
	srv := newTestServer(t)

	w, env := srv.do(t, http.MethodPost, "/api/auth/signup", "", gin.H{
		"email":    "not-an-email",
		"password": "123",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "invalid payload", env.Message)
}

func TestSignInEndpoint(t *testing.T) {
	srv := newTestServer(t)
	srv.signUp(t, "login@example.com")
	_, _ = srv.do(t, http.MethodPost, "/api/auth/signout", "", nil)

	w, env := srv.do(t, http.MethodPost, "/api/auth/signin", "", gin.H{
		"email":    "login@example.com",
		"password": "secret1",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	w, env = srv.do(t, http.MethodPost, "/api/auth/signin", "", gin.H{
		"email":    "login@example.com",
		"password": "wrongpass",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTHENTICATION_ERROR", env.Error["code"])
}

func TestMeEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w, env := srv.do(t, http.MethodGet, "/api/auth/me", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "signed out", env.Message)

	srv.signUp(t, "me@example.com")
	w, env = srv.do(t, http.MethodGet, "/api/auth/me", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "me@example.com", data["email"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	w, env := srv.do(t, http.MethodPut, "/api/auth/password", "", gin.H{"password": "newpass1"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)

	w, _ = srv.do(t, http.MethodPut, "/api/auth/password", "garbage-token", gin.H{"password": "newpass1"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdatePasswordEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signUp(t, "pwd@example.com")

	w, _ := srv.do(t, http.MethodPut, "/api/auth/password", token, gin.H{"password": "newpass1"})
	require.Equal(t, http.StatusOK, w.Code)

	_, _ = srv.do(t, http.MethodPost, "/api/auth/signout", "", nil)
	w, _ = srv.do(t, http.MethodPost, "/api/auth/signin", "", gin.H{
		"email":    "pwd@example.com",
		"password": "newpass1",
	})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestVerifyEmailEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signUp(t, "verify@example.com")

	w, env := srv.do(t, http.MethodPost, "/api/auth/verify", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, true, data["email_verified"])
}

func TestTokenEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signUp(t, "tok@example.com")

	w, env := srv.do(t, http.MethodGet, "/api/auth/token", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.NotEmpty(t, data["token"])
}

func TestResetEndpointNeverLeaksExistence(t *testing.T) {
	srv := newTestServer(t)
	srv.signUp(t, "real@example.com")

	w1, env1 := srv.do(t, http.MethodPost, "/api/auth/reset", "", gin.H{"email": "real@example.com"})
	w2, env2 := srv.do(t, http.MethodPost, "/api/auth/reset", "", gin.H{"email": "ghost@example.com"})

	require.Equal(t, http.StatusOK, w1.Code)
	require.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, env1.Message, env2.Message)
}

func TestListUsersEndpoint(t *testing.T) {
	srv := newTestServer(t)
	for i := 0; i < 5; i++ {
		_, err := srv.repo.Create(entity.CreateUser{
			Email:       string(rune('a'+i)) + "@example.com",
			DisplayName: "User",
		})
		require.NoError(t, err)
	}

	w, env := srv.do(t, http.MethodGet, "/api/users?limit=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Len(t, data, 2)
	assert.Equal(t, float64(5), env.Meta["total"])
	assert.Equal(t, true, env.Meta["has_more"])
	assert.Equal(t, float64(2), env.Meta["last_doc"])

	w, env = srv.do(t, http.MethodGet, "/api/users?limit=3&start_after=3", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Len(t, data, 2)
	assert.Equal(t, false, env.Meta["has_more"])
	_, present := env.Meta["last_doc"]
	assert.False(t, present)
}

func TestSearchEndpoint(t *testing.T) {
	srv := newTestServer(t)
	_, err := srv.repo.Create(entity.CreateUser{Email: "zoe@example.com", DisplayName: "Zoe Carter"})
	require.NoError(t, err)

	w, _ := srv.do(t, http.MethodGet, "/api/users/search", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, env := srv.do(t, http.MethodGet, "/api/users/search?q=carter", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), env.Meta["count"])
}

func TestStatsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	srv.signUp(t, "one@example.com")

	w, env := srv.do(t, http.MethodGet, "/api/users/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, float64(1), stats["totalUsers"])
	assert.Equal(t, float64(1), stats["activeUsers"])
}

func TestGetUserEndpoint(t *testing.T) {
	srv := newTestServer(t)
	u, err := srv.repo.Create(entity.CreateUser{Email: "get@example.com"})
	require.NoError(t, err)

	w, env := srv.do(t, http.MethodGet, "/api/users/"+u.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "get@example.com", data["email"])

	w, env = srv.do(t, http.MethodGet, "/api/users/missing", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error["code"])
}

func TestUpdateUserEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signUp(t, "edit@example.com")
	u := srv.auth.CurrentUser()

	w, env := srv.do(t, http.MethodPut, "/api/users/"+u.ID, token, gin.H{
		"display_name": "Edited Name",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "Edited Name", data["display_name"])

	// bad photo URL fails binding before the service runs
	w, _ = srv.do(t, http.MethodPut, "/api/users/"+u.ID, token, gin.H{
		"photo_url": "not a url",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChangeRoleEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signUp(t, "role@example.com")
	u := srv.auth.CurrentUser()

	w, env := srv.do(t, http.MethodPut, "/api/users/"+u.ID+"/role", token, gin.H{"role": "admin"})
	require.Equal(t, http.StatusOK, w.Code)

	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	md := data["metadata"].(map[string]any)
	assert.Equal(t, "admin", md["role"])

	w, _ = srv.do(t, http.MethodPut, "/api/users/"+u.ID+"/role", token, gin.H{"role": "superuser"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeactivateActivateEndpoints(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signUp(t, "flip@example.com")
	u := srv.auth.CurrentUser()

	w, _ := srv.do(t, http.MethodPost, "/api/users/"+u.ID+"/deactivate", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	got, err := srv.repo.FindByID(u.ID)
	require.NoError(t, err)
	assert.False(t, got.Metadata.IsActive)

	w, _ = srv.do(t, http.MethodPost, "/api/users/"+u.ID+"/activate", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteUserEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signUp(t, "gone@example.com")
	u := srv.auth.CurrentUser()

	w, _ := srv.do(t, http.MethodDelete, "/api/users/"+u.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env := srv.do(t, http.MethodDelete, "/api/users/"+u.ID, token, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error["code"])
}
