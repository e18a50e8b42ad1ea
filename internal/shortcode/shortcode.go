// Package shortcode генерирует короткие коды и подбирает свободный код с ограниченным числом попыток.
package shortcode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
)

const (
	// Alphabet содержит URL-безопасные символы base62
	Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	// DefaultLength длина кода по умолчанию: 62^6 ≈ 5.7e10 комбинаций
	DefaultLength = 6
	// DefaultMaxAttempts число кандидатов, проверяемых до отказа
	DefaultMaxAttempts = 5
	// MinLength минимальная длина: не меньше 36^6 комбинаций
	MinLength = 6
)

// ErrAllocationExhausted возвращается, если все попытки подобрать свободный код исчерпаны
var ErrAllocationExhausted = errors.New("short code allocation exhausted")

var alphabetSize = big.NewInt(int64(len(Alphabet)))

// Generator генерирует случайные коды фиксированной длины
type Generator struct {
	length int
	random io.Reader
}

// NewGenerator создаёт генератор; длина меньше MinLength поднимается до MinLength
func NewGenerator(length int) *Generator {
	if length < MinLength {
		length = MinLength
	}
	return &Generator{length: length, random: rand.Reader}
}

// Length возвращает длину генерируемых кодов
func (g *Generator) Length() int {
	return g.length
}

// Generate возвращает новый случайный код
func (g *Generator) Generate() (string, error) {
	var b strings.Builder
	b.Grow(g.length)
	for i := 0; i < g.length; i++ {
		idx, err := rand.Int(g.random, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("generate short code: %w", err)
		}
		b.WriteByte(Alphabet[idx.Int64()])
	}
	return b.String(), nil
}

// IsValid проверяет, что код состоит только из символов алфавита и имеет допустимую длину
func IsValid(code string) bool {
	if len(code) < MinLength || len(code) > 64 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(Alphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}

// ExistsFunc сообщает, занят ли код в хранилище
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Allocator подбирает код, не занятый в хранилище
type Allocator struct {
	gen         *Generator
	exists      ExistsFunc
	maxAttempts int
}

// NewAllocator создаёт Allocator; maxAttempts <= 0 заменяется на DefaultMaxAttempts
func NewAllocator(gen *Generator, exists ExistsFunc, maxAttempts int) *Allocator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Allocator{gen: gen, exists: exists, maxAttempts: maxAttempts}
}

// Allocate возвращает свободный на момент проверки код.
// Окончательно уникальность гарантирует хранилище при Create.
func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	for i := 0; i < a.maxAttempts; i++ {
		code, err := a.gen.Generate()
		if err != nil {
			return "", err
		}
		taken, err := a.exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check short code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrAllocationExhausted
}
