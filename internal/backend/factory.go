package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/ports"
	"ledger/internal/services"
	"ledger/internal/storage"
	"ledger/internal/storage/memory"
)

const cacheCleanupInterval = time.Minute

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
	now    func() time.Time
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
		now:    time.Now,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	repo, err := f.createRepository(ctx, config)
	if err != nil {
		return nil, err
	}

	client := f.createAMQPClient(ctx, config)
	var events services.EventPublisher
	if client != nil {
		events = client
	}

	size, ttl := config.cacheSettings()
	progress := cache.NewLRUCache[[]core.CategoryProgress](size, ttl)
	caches := cache.NewManager()
	caches.Register(progress)
	caches.StartCleanup(cacheCleanupInterval)

	ledger, err := services.NewLedger(repo, config.Currency, services.LedgerOptions{
		Events:   events,
		Progress: progress,
		Now:      f.now,
	})
	if err != nil {
		caches.Stop()
		closeAll(client, repo)
		return nil, err
	}

	f.logger.InfoContext(ctx, "Initialized ledger backend",
		"backend", config.Type.String(),
		"currency", config.Currency,
		"amqp_enabled", client != nil,
		"progress_cache_size", size)

	return &BackendResult{
		Ledger:     ledger,
		Repository: repo,
		AMQP:       client,
		Cleanup: func() error {
			caches.Stop()
			return closeAll(client, repo)
		},
	}, nil
}

func (f *DefaultFactory) createRepository(ctx context.Context, config Config) (ports.Repository, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite storage", "db_path", config.SQLiteDBPath)
		return repo, nil
	case MemoryBackend:
		f.logger.InfoContext(ctx, "Initialized memory storage")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// createAMQPClient connects to the broker when one is configured. A broker
// that cannot be reached is not fatal; events are simply not published.
func (f *DefaultFactory) createAMQPClient(ctx context.Context, config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events",
			log.FieldError, err)
		return nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}

func closeAll(client *amqp.Client, repo ports.Repository) error {
	var errs []error
	if client != nil {
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close AMQP client: %w", err))
		}
	}
	if repo != nil {
		if err := repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close repository: %w", err))
		}
	}
	return errors.Join(errs...)
}
