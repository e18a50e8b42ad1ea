package middleware

import (
	"net/http"
	"strings"

	"github.com/tempizhere/shortlink/internal/auth"
	"github.com/tempizhere/shortlink/internal/models"
	"go.uber.org/zap"
)

// CookieName имя куки с JWT
const CookieName = "jwt_token"

// TokenParser разбирает JWT в идентичность пользователя
type TokenParser interface {
	Parse(token string) (models.UserIdentity, error)
}

// AuthMiddleware добавляет в контекст идентичность пользователя из JWT.
// Токен берётся из заголовка Authorization: Bearer или из куки jwt_token.
// Запрос без токена или с невалидным токеном обрабатывается как анонимный.
func AuthMiddleware(parser TokenParser, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := parser.Parse(token)
			if err != nil {
				logger.Warn("Invalid JWT token",
					zap.String("uri", r.RequestURI),
					zap.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}

// TokenFromRequest извлекает JWT из запроса; заголовок приоритетнее куки
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := BearerToken(header); ok {
			return token
		}
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// BearerToken разбирает значение вида "Bearer <token>"
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
