package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/tempizhere/shortlink/internal/models"
)

// MemoryRepository реализует интерфейс Repository с использованием map
type MemoryRepository struct {
	mu         sync.RWMutex
	links      map[string]*models.Link // id -> link
	byCode     map[string]string       // short_code -> id
	byOriginal map[string]string       // original -> id
}

// NewMemoryRepository создаёт новый экземпляр MemoryRepository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		links:      make(map[string]*models.Link),
		byCode:     make(map[string]string),
		byOriginal: make(map[string]string),
	}
}

// FindByOriginal возвращает ссылку по исходному URL
func (r *MemoryRepository) FindByOriginal(_ context.Context, original string) (models.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byOriginal[original]
	if !ok {
		return models.Link{}, ErrNotFound
	}
	return *r.links[id], nil
}

// FindByCode возвращает ссылку по короткому коду
func (r *MemoryRepository) FindByCode(_ context.Context, code string) (models.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byCode[code]
	if !ok {
		return models.Link{}, ErrNotFound
	}
	return *r.links[id], nil
}

// CodeExists проверяет, занят ли код
func (r *MemoryRepository) CodeExists(_ context.Context, code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byCode[code]
	return ok, nil
}

// Create сохраняет новую ссылку
func (r *MemoryRepository) Create(_ context.Context, link models.Link) (models.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.insertLocked(link); err != nil {
		return models.Link{}, err
	}
	return link, nil
}

// insertLocked проверяет уникальность и добавляет ссылку; вызывается под r.mu
func (r *MemoryRepository) insertLocked(link models.Link) error {
	// Конфликт по URL проверяется первым: сервис в этом случае перечитывает запись
	if _, exists := r.byOriginal[link.Original]; exists {
		return ErrURLExists
	}
	if _, exists := r.byCode[link.ShortCode]; exists {
		return ErrCodeExists
	}
	stored := link
	r.links[link.ID] = &stored
	r.byCode[link.ShortCode] = link.ID
	r.byOriginal[link.Original] = link.ID
	return nil
}

func (r *MemoryRepository) hasID(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.links[id]
	return ok
}

// IncrementClicks увеличивает счётчик переходов
func (r *MemoryRepository) IncrementClicks(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[id]
	if !ok {
		return ErrNotFound
	}
	link.Clicks++
	return nil
}

// ListByOwner возвращает ссылки пользователя
func (r *MemoryRepository) ListByOwner(_ context.Context, ownerID string) ([]models.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	links := make([]models.Link, 0)
	for _, link := range r.links {
		if ownerID != "" && link.OwnerID == ownerID {
			links = append(links, *link)
		}
	}
	sort.Slice(links, func(i, j int) bool {
		return links[i].CreatedAt.After(links[j].CreatedAt)
	})
	return links, nil
}

// Stats возвращает количество ссылок, владельцев и суммарное число переходов
func (r *MemoryRepository) Stats(_ context.Context) (models.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owners := make(map[string]struct{})
	var stats models.Stats
	for _, link := range r.links {
		stats.Links++
		stats.Clicks += link.Clicks
		if link.OwnerID != "" {
			owners[link.OwnerID] = struct{}{}
		}
	}
	stats.Users = len(owners)
	return stats, nil
}

// PingContext всегда успешен для in-memory хранилища
func (r *MemoryRepository) PingContext(_ context.Context) error {
	return nil
}

// Clear очищает хранилище
func (r *MemoryRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.links = make(map[string]*models.Link)
	r.byCode = make(map[string]string)
	r.byOriginal = make(map[string]string)
}
