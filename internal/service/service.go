// Package service реализует бизнес-логику выдачи и разрешения коротких ссылок.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tempizhere/shortlink/internal/credentials"
	"github.com/tempizhere/shortlink/internal/models"
	"github.com/tempizhere/shortlink/internal/repository"
	"github.com/tempizhere/shortlink/internal/shortcode"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	maxURLLength = 2048
	// createAttempts первая попытка Create плюс один повтор при гонке за short_code
	createAttempts = 2
)

var (
	ErrEmptyURL            = errors.New("URL is required")
	ErrInvalidURL          = errors.New("invalid URL")
	ErrNotFound            = errors.New("link not found")
	ErrIncorrectPassword   = errors.New("incorrect password")
	ErrUnauthenticated     = errors.New("user not authenticated")
	ErrPasswordTooLong     = credentials.ErrPasswordTooLong
	ErrAllocationExhausted = shortcode.ErrAllocationExhausted
)

// ClickRecorder принимает переход по ссылке без ожидания его учёта
type ClickRecorder interface {
	Record(id string)
}

// Outcome результат разрешения короткого кода
type Outcome int

const (
	// OutcomeResolved ссылка открыта, OriginalURL заполнен
	OutcomeResolved Outcome = iota + 1
	// OutcomeRequiresPassword ссылка защищена, нужен пароль
	OutcomeRequiresPassword
)

// Resolution результат Resolve
type Resolution struct {
	Outcome     Outcome
	OriginalURL string
}

// IssueRequest параметры выдачи короткой ссылки
type IssueRequest struct {
	URL      string
	Password string
	// Owner nil для анонимного пользователя
	Owner *models.UserIdentity
}

// Options настройки Service
type Options struct {
	BaseURL     string
	CodeLength  int
	MaxAttempts int
}

// Service реализует логику работы с короткими ссылками
type Service struct {
	repo      repository.Repository
	allocator *shortcode.Allocator
	gate      credentials.Gate
	clicks    ClickRecorder
	baseURL   string
	logger    *zap.Logger
	group     singleflight.Group
	now       func() time.Time
	newID     func() string
}

// NewService создаёт новый экземпляр Service
func NewService(repo repository.Repository, gate credentials.Gate, clicks ClickRecorder, logger *zap.Logger, opts Options) *Service {
	gen := shortcode.NewGenerator(opts.CodeLength)
	return &Service{
		repo:      repo,
		allocator: shortcode.NewAllocator(gen, repo.CodeExists, opts.MaxAttempts),
		gate:      gate,
		clicks:    clicks,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Issue возвращает короткий URL для ссылки, создавая запись при первом обращении.
// Для уже сокращённого URL возвращается существующий код; пароль и владелец
// повторного запроса игнорируются.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (string, error) {
	original, err := ValidateURL(req.URL)
	if err != nil {
		return "", err
	}

	// Параллельные запросы на один URL внутри процесса схлопываются в один.
	// Общий вызов не зависит от отмены контекста первого из них.
	ch := s.group.DoChan(original, func() (interface{}, error) {
		return s.issue(context.WithoutCancel(ctx), original, req)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (s *Service) issue(ctx context.Context, original string, req IssueRequest) (string, error) {
	existing, err := s.repo.FindByOriginal(ctx, original)
	if err == nil {
		return s.ShortURL(existing.ShortCode), nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("find link by original: %w", err)
	}

	var hash string
	if req.Password != "" {
		hash, err = s.gate.Hash(req.Password)
		if err != nil {
			if errors.Is(err, credentials.ErrPasswordTooLong) {
				return "", err
			}
			return "", fmt.Errorf("hash password: %w", err)
		}
	}

	link := models.Link{
		ID:           s.newID(),
		Original:     original,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if req.Owner != nil {
		link.OwnerID = req.Owner.ID
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		code, err := s.allocator.Allocate(ctx)
		if err != nil {
			return "", err
		}
		link.ShortCode = code

		created, err := s.repo.Create(ctx, link)
		switch {
		case err == nil:
			s.logger.Info("Link issued",
				zap.String("short_code", created.ShortCode),
				zap.Bool("protected", created.Protected()),
				zap.Bool("owned", created.OwnerID != ""),
			)
			return s.ShortURL(created.ShortCode), nil
		case errors.Is(err, repository.ErrURLExists):
			// Другой запрос успел сохранить этот URL раньше
			winner, err := s.repo.FindByOriginal(ctx, original)
			if err != nil {
				return "", fmt.Errorf("re-read link after conflict: %w", err)
			}
			return s.ShortURL(winner.ShortCode), nil
		case errors.Is(err, repository.ErrCodeExists):
			s.logger.Warn("Short code taken concurrently, retrying", zap.String("short_code", code))
			continue
		default:
			return "", fmt.Errorf("create link: %w", err)
		}
	}
	return "", ErrAllocationExhausted
}

// Resolve находит ссылку по коду. Для защищённой ссылки исходный URL не раскрывается
// и переход не учитывается.
func (s *Service) Resolve(ctx context.Context, code string) (Resolution, error) {
	link, err := s.lookup(ctx, code)
	if err != nil {
		return Resolution{}, err
	}
	if link.Protected() {
		return Resolution{Outcome: OutcomeRequiresPassword}, nil
	}
	s.clicks.Record(link.ID)
	return Resolution{Outcome: OutcomeResolved, OriginalURL: link.Original}, nil
}

// VerifyAndResolve проверяет пароль защищённой ссылки и возвращает исходный URL.
// Незащищённая ссылка даёт ErrNotFound так же, как отсутствующая.
func (s *Service) VerifyAndResolve(ctx context.Context, code, password string) (string, error) {
	link, err := s.lookup(ctx, code)
	if err != nil {
		return "", err
	}
	if !link.Protected() {
		return "", ErrNotFound
	}
	if !s.gate.Verify(password, link.PasswordHash) {
		return "", ErrIncorrectPassword
	}
	s.clicks.Record(link.ID)
	return link.Original, nil
}

// ListOwned возвращает ссылки аутентифицированного пользователя
func (s *Service) ListOwned(ctx context.Context, owner *models.UserIdentity) ([]models.Link, error) {
	if owner == nil || owner.ID == "" {
		return nil, ErrUnauthenticated
	}
	links, err := s.repo.ListByOwner(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("list owned links: %w", err)
	}
	return links, nil
}

// Stats возвращает агрегированную статистику сервиса
func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return models.Stats{}, fmt.Errorf("get stats: %w", err)
	}
	return stats, nil
}

// ShortURL собирает короткий URL из базового адреса и кода
func (s *Service) ShortURL(code string) string {
	return s.baseURL + "/" + code
}

// BaseURL возвращает базовый адрес коротких ссылок
func (s *Service) BaseURL() string {
	return s.baseURL
}

func (s *Service) lookup(ctx context.Context, code string) (models.Link, error) {
	if !shortcode.IsValid(code) {
		return models.Link{}, ErrNotFound
	}
	link, err := s.repo.FindByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Link{}, ErrNotFound
	}
	if err != nil {
		return models.Link{}, fmt.Errorf("find link by code: %w", err)
	}
	return link, nil
}

// ValidateURL проверяет, что строка является абсолютным URL со схемой и хостом.
// URL сохраняется побайтно, окружающие пробелы считаются ошибкой.
func ValidateURL(raw string) (string, error) {
	if raw == "" {
		return "", ErrEmptyURL
	}
	if strings.TrimSpace(raw) != raw || len(raw) > maxURLLength {
		return "", ErrInvalidURL
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidURL
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", ErrInvalidURL
	}
	return raw, nil
}
