package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tempizhere/shortlink/internal/auth"
	"github.com/tempizhere/shortlink/internal/models"
	"go.uber.org/zap"
)

// BenchmarkLoggingMiddleware измеряет производительность middleware логирования
func BenchmarkLoggingMiddleware(b *testing.B) {
	handler := LoggingMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))
	}
}

// BenchmarkGzipMiddleware измеряет производительность middleware сжатия
func BenchmarkGzipMiddleware(b *testing.B) {
	body := `{"links":[` + strings.Repeat(`{"id":"x"},`, 200) + `{"id":"y"}]}`
	handler := GzipMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/user/links", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}

// BenchmarkAuthMiddleware измеряет разбор JWT из заголовка
func BenchmarkAuthMiddleware(b *testing.B) {
	manager := auth.NewManager("bench-secret", time.Hour)
	token, err := manager.Generate(models.UserIdentity{ID: "user-1"})
	if err != nil {
		b.Fatal(err)
	}
	handler := AuthMiddleware(manager, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/user/links", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}
