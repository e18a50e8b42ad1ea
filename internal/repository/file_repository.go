package repository

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tempizhere/shortlink/internal/models"
	"go.uber.org/zap"
)

const (
	opCreate = "create"
	opClick  = "click"
)

// journalEntry представляет строку в JSON-журнале
type journalEntry struct {
	Op           string    `json:"op"`
	ID           string    `json:"id"`
	ShortCode    string    `json:"short_code,omitempty"`
	Original     string    `json:"original,omitempty"`
	PasswordHash string    `json:"password_hash,omitempty"`
	OwnerID      string    `json:"owner_id,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// FileRepository хранит ссылки в памяти и дописывает каждое изменение в журнал
type FileRepository struct {
	*MemoryRepository
	filePath string
	file     *os.File
	logger   *zap.Logger
	writeMu  sync.Mutex
}

// NewFileRepository создаёт FileRepository и восстанавливает состояние из журнала
func NewFileRepository(filePath string, logger *zap.Logger) (*FileRepository, error) {
	repo := &FileRepository{
		MemoryRepository: NewMemoryRepository(),
		filePath:         filePath,
		logger:           logger,
	}

	// Создаём директорию, если не существует
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, err
	}

	if err := repo.replay(); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	repo.file = file
	return repo, nil
}

// replay читает журнал построчно и применяет записи к памяти
func (r *FileRepository) replay() error {
	file, err := os.Open(r.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	r.mu.Lock()
	defer r.mu.Unlock()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry journalEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			// Пропускаем некорректные строки и логируем это
			r.logger.Warn("Skipping invalid journal line", zap.String("line", scanner.Text()), zap.Error(err))
			continue
		}
		switch entry.Op {
		case opCreate:
			link := models.Link{
				ID:           entry.ID,
				Original:     entry.Original,
				ShortCode:    entry.ShortCode,
				PasswordHash: entry.PasswordHash,
				OwnerID:      entry.OwnerID,
				CreatedAt:    entry.CreatedAt,
			}
			if err := r.insertLocked(link); err != nil {
				r.logger.Warn("Skipping conflicting journal entry", zap.String("id", entry.ID), zap.Error(err))
			}
		case opClick:
			if link, ok := r.links[entry.ID]; ok {
				link.Clicks++
			}
		default:
			r.logger.Warn("Skipping unknown journal operation", zap.String("op", entry.Op))
		}
	}
	return scanner.Err()
}

// Create проверяет уникальность, пишет запись в журнал и сохраняет ссылку в памяти
func (r *FileRepository) Create(ctx context.Context, link models.Link) (models.Link, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if _, err := r.MemoryRepository.FindByOriginal(ctx, link.Original); err == nil {
		return models.Link{}, ErrURLExists
	}
	if exists, _ := r.MemoryRepository.CodeExists(ctx, link.ShortCode); exists {
		return models.Link{}, ErrCodeExists
	}

	if err := r.append(journalEntry{
		Op:           opCreate,
		ID:           link.ID,
		ShortCode:    link.ShortCode,
		Original:     link.Original,
		PasswordHash: link.PasswordHash,
		OwnerID:      link.OwnerID,
		CreatedAt:    link.CreatedAt,
	}); err != nil {
		r.logger.Error("Failed to append link to journal", zap.String("short_code", link.ShortCode), zap.Error(err))
		return models.Link{}, err
	}
	return r.MemoryRepository.Create(ctx, link)
}

// IncrementClicks увеличивает счётчик и фиксирует переход в журнале
func (r *FileRepository) IncrementClicks(ctx context.Context, id string) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if !r.MemoryRepository.hasID(id) {
		return ErrNotFound
	}
	if err := r.append(journalEntry{Op: opClick, ID: id}); err != nil {
		return fmt.Errorf("append click to journal: %w", err)
	}
	return r.MemoryRepository.IncrementClicks(ctx, id)
}

// append дописывает одну JSON-строку в журнал
func (r *FileRepository) append(entry journalEntry) error {
	if r.file == nil {
		return errors.New("journal is closed")
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = r.file.Write(data)
	return err
}

// Close закрывает файл журнала
func (r *FileRepository) Close() error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// Clear очищает хранилище и файл
func (r *FileRepository) Clear() {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.MemoryRepository.Clear()
	if r.file != nil {
		if err := r.file.Truncate(0); err != nil {
			r.logger.Error("Failed to truncate journal", zap.Error(err))
		}
	}
}
