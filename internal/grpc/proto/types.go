// Package proto содержит описание gRPC сервиса коротких ссылок и его сообщений
package proto

import "time"

// IssueRequest запрос на выдачу короткой ссылки
type IssueRequest struct {
	URL      string `json:"url"`
	Password string `json:"password,omitempty"`
}

// IssueResponse ответ с коротким URL
type IssueResponse struct {
	ShortURL string `json:"short_url"`
}

// ResolveRequest запрос на разрешение короткого кода
type ResolveRequest struct {
	ShortCode string `json:"short_code"`
}

// ResolveResponse ответ на разрешение кода. Для защищённой ссылки OriginalURL пуст.
type ResolveResponse struct {
	OriginalURL      string `json:"original_url,omitempty"`
	RequiresPassword bool   `json:"requires_password"`
}

// VerifyAndResolveRequest запрос на открытие защищённой ссылки
type VerifyAndResolveRequest struct {
	ShortCode string `json:"short_code"`
	Password  string `json:"password"`
}

// VerifyAndResolveResponse ответ с исходным URL защищённой ссылки
type VerifyAndResolveResponse struct {
	OriginalURL string `json:"original_url"`
}

// ListLinksRequest запрос ссылок текущего пользователя
type ListLinksRequest struct{}

// Link ссылка пользователя
type Link struct {
	ID        string    `json:"id"`
	Original  string    `json:"original"`
	ShortCode string    `json:"short_code"`
	ShortURL  string    `json:"short_url"`
	Protected bool      `json:"protected"`
	Clicks    int64     `json:"clicks"`
	CreatedAt time.Time `json:"created_at"`
}

// ListLinksResponse ссылки пользователя, новые первыми
type ListLinksResponse struct {
	Links []*Link `json:"links"`
}

// PingRequest запрос проверки состояния
type PingRequest struct{}

// PingResponse ответ проверки состояния
type PingResponse struct {
	StorageAvailable bool `json:"storage_available"`
}

// GetStatsRequest запрос статистики сервиса
type GetStatsRequest struct{}

// GetStatsResponse статистика сервиса
type GetStatsResponse struct {
	Links  int64 `json:"links"`
	Users  int64 `json:"users"`
	Clicks int64 `json:"clicks"`
}
