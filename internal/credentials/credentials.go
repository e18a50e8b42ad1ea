// Package credentials хеширует и проверяет пароли защищённых ссылок.
package credentials

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost стоимость bcrypt по умолчанию
const DefaultCost = bcrypt.DefaultCost

// ErrPasswordTooLong возвращается для паролей длиннее 72 байт, которые bcrypt не принимает
var ErrPasswordTooLong = errors.New("password is too long")

// Gate хеширует пароли и сверяет их с сохранённым хешем
type Gate interface {
	// Hash возвращает солёный хеш пароля
	Hash(plaintext string) (string, error)
	// Verify сообщает, соответствует ли пароль хешу; некорректный хеш даёт false
	Verify(plaintext, hash string) bool
}

// BcryptGate реализует Gate на bcrypt
type BcryptGate struct {
	cost int
}

// NewBcryptGate создаёт BcryptGate; стоимость вне допустимых границ bcrypt зажимается
func NewBcryptGate(cost int) *BcryptGate {
	switch {
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &BcryptGate{cost: cost}
}

// Cost возвращает используемую стоимость
func (g *BcryptGate) Cost() int {
	return g.cost
}

// Hash хеширует пароль
func (g *BcryptGate) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), g.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify сверяет пароль с хешем за постоянное время
func (g *BcryptGate) Verify(plaintext, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
