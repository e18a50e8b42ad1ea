// Package models содержит доменные типы сервиса коротких ссылок и DTO внешних интерфейсов.
package models

import "time"

// Link представляет сохранённую короткую ссылку
type Link struct {
	ID           string    `json:"id"`
	Original     string    `json:"original"`
	ShortCode    string    `json:"shortCode"`
	PasswordHash string    `json:"-"`
	Clicks       int64     `json:"clicks"`
	OwnerID      string    `json:"ownerId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Protected сообщает, закрыта ли ссылка паролем
func (l Link) Protected() bool {
	return l.PasswordHash != ""
}

// UserIdentity описывает пользователя, выданного внешним провайдером идентификации
type UserIdentity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Stats содержит агрегированную статистику сервиса
type Stats struct {
	Links  int   `json:"links"`
	Users  int   `json:"users"`
	Clicks int64 `json:"clicks"`
}

// ShortenRequest тело запроса POST /api/shorten
type ShortenRequest struct {
	URL      string `json:"url"`
	Password string `json:"password,omitempty"`
}

// ShortenResponse ответ на POST /api/shorten
type ShortenResponse struct {
	ShortURL string `json:"shortUrl"`
}

// VerifyPasswordRequest тело запроса POST /api/verify-password
type VerifyPasswordRequest struct {
	ShortCode string `json:"shortCode"`
	Password  string `json:"password"`
}

// VerifyPasswordResponse ответ на успешную проверку пароля
type VerifyPasswordResponse struct {
	OriginalURL string `json:"originalUrl"`
}

// LinkResponse представление ссылки для владельца, без хеша пароля
type LinkResponse struct {
	ID        string    `json:"id"`
	Original  string    `json:"original"`
	ShortCode string    `json:"shortCode"`
	ShortURL  string    `json:"shortUrl"`
	Protected bool      `json:"protected"`
	Clicks    int64     `json:"clicks"`
	CreatedAt time.Time `json:"createdAt"`
}

// LinksResponse ответ на GET /api/user/links
type LinksResponse struct {
	Links []LinkResponse `json:"links"`
}

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Error string `json:"error"`
}
