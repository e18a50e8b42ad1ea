package app

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tempizhere/shortlink/internal/auth"
	"github.com/tempizhere/shortlink/internal/clicks"
	"github.com/tempizhere/shortlink/internal/credentials"
	"github.com/tempizhere/shortlink/internal/middleware"
	"github.com/tempizhere/shortlink/internal/models"
	"github.com/tempizhere/shortlink/internal/repository"
	"github.com/tempizhere/shortlink/internal/service"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testBaseURL = "http://localhost:8080"

type testEnv struct {
	handler http.Handler
	repo    *repository.MemoryRepository
	clicks  *clicks.Accounter
	tokens  *auth.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := repository.NewMemoryRepository()
	acc := clicks.NewAccounter(repo, zap.NewNop(), clicks.Options{Workers: 2, QueueSize: 64})
	acc.Start()
	t.Cleanup(func() {
		_ = acc.Close(context.Background())
	})

	svc := service.NewService(repo, credentials.NewBcryptGate(bcrypt.MinCost), acc, zap.NewNop(),
		service.Options{BaseURL: testBaseURL})
	tokens := auth.NewManager("test-secret", time.Hour)
	subnet, err := middleware.ParseSubnet("10.0.0.0/8")
	require.NoError(t, err)

	a := NewApp(svc, repo, zap.NewNop())
	return &testEnv{
		handler: a.Router(RouterOptions{Tokens: tokens, Subnet: subnet}),
		repo:    repo,
		clicks:  acc,
		tokens:  tokens,
	}
}

func (e *testEnv) do(t *testing.T, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) shorten(t *testing.T, body string, headers map[string]string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/shorten", body, headers)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.ShortenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, strings.HasPrefix(resp.ShortURL, testBaseURL+"/"))
	return strings.TrimPrefix(resp.ShortURL, testBaseURL+"/")
}

func (e *testEnv) bearer(t *testing.T, user models.UserIdentity) map[string]string {
	t.Helper()
	token, err := e.tokens.Generate(user)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestHandleShorten(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		expectedCode int
		expectedBody string
	}{
		{name: "invalid json", body: "{", expectedCode: http.StatusBadRequest, expectedBody: `{"error":"Invalid JSON"}`},
		{name: "empty body", body: "", expectedCode: http.StatusBadRequest, expectedBody: `{"error":"Invalid JSON"}`},
		{name: "not a url", body: `{"url":"not-a-url"}`, expectedCode: http.StatusBadRequest, expectedBody: `{"error":"Invalid URL"}`},
		{name: "missing url", body: `{"password":"x"}`, expectedCode: http.StatusBadRequest, expectedBody: `{"error":"URL is required"}`},
		{
			name:         "password too long",
			body:         `{"url":"https://example.com","password":"` + strings.Repeat("p", 80) + `"}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"error":"Password is too long"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			w := env.do(t, http.MethodPost, "/api/shorten", tt.body, nil)
			assert.Equal(t, tt.expectedCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestShortenIsIdempotent(t *testing.T) {
	env := newTestEnv(t)

	first := env.shorten(t, `{"url":"https://example.com"}`, nil)
	second := env.shorten(t, `{"url":"https://example.com"}`, nil)
	assert.Equal(t, first, second)
}

func TestRedirectPublicLink(t *testing.T) {
	env := newTestEnv(t)
	code := env.shorten(t, `{"url":"https://example.com/a"}`, nil)

	w := env.do(t, http.MethodGet, "/"+code, "", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com/a", w.Header().Get("Location"))

	require.NoError(t, env.clicks.Close(context.Background()))
	link, err := env.repo.FindByCode(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, int64(1), link.Clicks)
}

func TestRedirectUnknownCode(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/doesnotexist", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"URL not found"}`, w.Body.String())
}

func TestProtectedLinkFlow(t *testing.T) {
	env := newTestEnv(t)
	code := env.shorten(t, `{"url":"https://example.com/p","password":"secret"}`, nil)

	w := env.do(t, http.MethodGet, "/"+code, "", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/"+code+"/password", w.Header().Get("Location"))
	assert.NotContains(t, w.Body.String(), "example.com")

	w = env.do(t, http.MethodPost, "/api/verify-password", `{"shortCode":"`+code+`","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Incorrect password"}`, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/verify-password", `{"shortCode":"`+code+`","password":"secret"}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"originalUrl":"https://example.com/p"}`, w.Body.String())

	require.NoError(t, env.clicks.Close(context.Background()))
	link, err := env.repo.FindByCode(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, int64(1), link.Clicks)
}

func TestHandleVerifyPassword_Errors(t *testing.T) {
	env := newTestEnv(t)
	public := env.shorten(t, `{"url":"https://example.com/public"}`, nil)

	tests := []struct {
		name         string
		body         string
		expectedCode int
	}{
		{name: "invalid json", body: "nope", expectedCode: http.StatusBadRequest},
		{name: "unknown code", body: `{"shortCode":"doesnotexist","password":"x"}`, expectedCode: http.StatusNotFound},
		{name: "empty code", body: `{"password":"x"}`, expectedCode: http.StatusNotFound},
		{name: "unprotected link", body: `{"shortCode":"` + public + `","password":"x"}`, expectedCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/verify-password", tt.body, nil)
			assert.Equal(t, tt.expectedCode, w.Code)
		})
	}
}

func TestHandleUserLinks(t *testing.T) {
	env := newTestEnv(t)
	alice := env.bearer(t, models.UserIdentity{ID: "alice", Email: "alice@example.com"})
	bob := env.bearer(t, models.UserIdentity{ID: "bob"})

	code := env.shorten(t, `{"url":"https://example.com/1","password":"pw"}`, alice)
	env.shorten(t, `{"url":"https://example.com/2"}`, bob)

	w := env.do(t, http.MethodGet, "/api/user/links", "", alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	assert.NotContains(t, w.Body.String(), "$2a$")

	var resp models.LinksResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Links, 1)
	assert.Equal(t, code, resp.Links[0].ShortCode)
	assert.Equal(t, testBaseURL+"/"+code, resp.Links[0].ShortURL)
	assert.Equal(t, "https://example.com/1", resp.Links[0].Original)
	assert.True(t, resp.Links[0].Protected)
}

func TestHandleUserLinks_Empty(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/user/links", "", env.bearer(t, models.UserIdentity{ID: "nobody"}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"links":[]}`, w.Body.String())
}

func TestHandleUserLinks_Unauthorized(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		headers map[string]string
	}{
		{name: "no token"},
		{name: "invalid token", headers: map[string]string{"Authorization": "Bearer broken"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/user/links", "", tt.headers)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
		})
	}
}

func TestShortenWithCookieIdentity(t *testing.T) {
	env := newTestEnv(t)
	token, err := env.tokens.Generate(models.UserIdentity{ID: "carol"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/shorten", strings.NewReader(`{"url":"https://example.com/c"}`))
	req.AddCookie(&http.Cookie{Name: middleware.CookieName, Value: token})
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	links, err := env.repo.ListByOwner(context.Background(), "carol")
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestHandleStats(t *testing.T) {
	env := newTestEnv(t)
	env.shorten(t, `{"url":"https://example.com/1"}`, env.bearer(t, models.UserIdentity{ID: "u1"}))
	env.shorten(t, `{"url":"https://example.com/2"}`, nil)

	w := env.do(t, http.MethodGet, "/api/internal/stats", "", map[string]string{"X-Real-IP": "10.1.2.3"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"links":2,"users":1,"clicks":0}`, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/internal/stats", "", map[string]string{"X-Real-IP": "192.168.0.1"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/api/internal/stats", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandleStats_NoSubnet(t *testing.T) {
	repo := repository.NewMemoryRepository()
	svc := service.NewService(repo, credentials.NewBcryptGate(bcrypt.MinCost), clicks.NewAccounter(repo, zap.NewNop(), clicks.Options{}), zap.NewNop(),
		service.Options{BaseURL: testBaseURL})
	handler := NewApp(svc, repo, zap.NewNop()).Router(RouterOptions{})

	req := httptest.NewRequest(http.MethodGet, "/api/internal/stats", nil)
	req.Header.Set("X-Real-IP", "127.0.0.1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandlePing(t *testing.T) {
	tests := []struct {
		name         string
		pingErr      error
		expectedCode int
	}{
		{name: "storage available", expectedCode: http.StatusOK},
		{name: "storage unavailable", pingErr: errors.New("connection refused"), expectedCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			pinger := repository.NewMockPinger(ctrl)
			pinger.EXPECT().PingContext(gomock.Any()).Return(tt.pingErr)

			a := NewApp(nil, pinger, zap.NewNop())
			w := httptest.NewRecorder()
			a.HandlePing(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
			assert.Equal(t, tt.expectedCode, w.Code)
		})
	}
}

func TestInternalErrorsDoNotLeakDetails(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := repository.NewMockRepository(ctrl)
	repo.EXPECT().FindByOriginal(gomock.Any(), gomock.Any()).Return(models.Link{}, errors.New("pq: secret table missing"))
	repo.EXPECT().FindByCode(gomock.Any(), gomock.Any()).Return(models.Link{}, errors.New("pq: secret table missing"))

	svc := service.NewService(repo, credentials.NewBcryptGate(bcrypt.MinCost), clicks.NewAccounter(repo, zap.NewNop(), clicks.Options{}), zap.NewNop(),
		service.Options{BaseURL: testBaseURL})
	handler := NewApp(svc, nil, zap.NewNop()).Router(RouterOptions{})

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/api/shorten", strings.NewReader(`{"url":"https://example.com"}`)),
		httptest.NewRequest(http.MethodGet, "/abcdef", nil),
	} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"Internal Server Error"}`, w.Body.String())
	}
}

func TestRouterFallbacks(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/api/shorten", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestShortenGzipRequest(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(`{"url":"https://example.com/gz"}`))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/shorten", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), testBaseURL)
}
