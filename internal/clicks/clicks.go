// Package clicks ведёт учёт переходов по ссылкам в фоне, не задерживая ответы на запросы.
package clicks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultWorkers количество воркеров по умолчанию
	DefaultWorkers = 4
	// DefaultQueueSize размер очереди событий по умолчанию
	DefaultQueueSize = 1024
	// DefaultTimeout ограничение на одно увеличение счётчика
	DefaultTimeout = 5 * time.Second
)

// Incrementer атомарно увеличивает счётчик переходов ссылки
type Incrementer interface {
	IncrementClicks(ctx context.Context, id string) error
}

// Options настройки Accounter
type Options struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Accounter принимает события переходов и применяет их пулом воркеров
type Accounter struct {
	store   Incrementer
	logger  *zap.Logger
	queue   chan string
	timeout time.Duration
	workers int

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	once   sync.Once
}

// NewAccounter создаёт Accounter; нулевые значения в opts заменяются значениями по умолчанию
func NewAccounter(store Incrementer, logger *zap.Logger, opts Options) *Accounter {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Accounter{
		store:   store,
		logger:  logger,
		queue:   make(chan string, opts.QueueSize),
		timeout: opts.Timeout,
		workers: opts.Workers,
	}
}

// Start запускает воркеры; повторный вызов ничего не делает
func (a *Accounter) Start() {
	a.once.Do(func() {
		for i := 0; i < a.workers; i++ {
			a.wg.Add(1)
			go a.worker(i)
		}
		a.logger.Info("Click workers started", zap.Int("workers", a.workers))
	})
}

// Record ставит переход в очередь и сразу возвращает управление.
// При переполненной очереди или после Close событие отбрасывается с предупреждением в логе.
func (a *Accounter) Record(id string) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		a.logger.Warn("Click dropped: accounter is closed", zap.String("link_id", id))
		return
	}
	select {
	case a.queue <- id:
	default:
		a.logger.Warn("Click dropped: queue is full", zap.String("link_id", id))
	}
}

// Close прекращает приём событий и дожидается обработки очереди, но не дольше ctx
func (a *Accounter) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	// Без запущенных воркеров очередь некому разбирать
	a.Start()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Accounter) worker(n int) {
	defer a.wg.Done()
	for id := range a.queue {
		a.apply(n, id)
	}
}

func (a *Accounter) apply(worker int, id string) {
	// Контекст запроса не используется: у каждого увеличения свой таймаут
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if err := a.store.IncrementClicks(ctx, id); err != nil {
		a.logger.Error("Failed to increment clicks",
			zap.Int("worker", worker),
			zap.String("link_id", id),
			zap.Error(err),
		)
	}
}
