// Package auth выпускает и проверяет JWT, которыми внешний провайдер идентификации
// передаёт сервису аутентифицированного пользователя.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/tempizhere/shortlink/internal/models"
)

// ErrInvalidToken возвращается для неподписанных, просроченных или неполных токенов
var ErrInvalidToken = errors.New("invalid token")

// Claims содержит данные пользователя в токене
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// Manager подписывает и разбирает токены секретом HS256
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager создаёт Manager
func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate выпускает токен для пользователя
func (m *Manager) Generate(user models.UserIdentity) (string, error) {
	if user.ID == "" {
		return "", fmt.Errorf("%w: empty user id", ErrInvalidToken)
	}
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		UserID: user.ID,
		Email:  user.Email,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Parse проверяет подпись и срок действия токена и возвращает пользователя
func (m *Manager) Parse(tokenString string) (models.UserIdentity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return models.UserIdentity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return models.UserIdentity{}, ErrInvalidToken
	}
	return models.UserIdentity{ID: claims.UserID, Email: claims.Email}, nil
}

type identityKey struct{}

// WithIdentity кладёт пользователя в контекст
func WithIdentity(ctx context.Context, user models.UserIdentity) context.Context {
	return context.WithValue(ctx, identityKey{}, user)
}

// IdentityFromContext возвращает пользователя из контекста или nil для анонимного запроса
func IdentityFromContext(ctx context.Context) *models.UserIdentity {
	user, ok := ctx.Value(identityKey{}).(models.UserIdentity)
	if !ok || user.ID == "" {
		return nil
	}
	return &user
}
