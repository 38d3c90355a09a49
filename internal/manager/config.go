package manager

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"chatd/internal/backend"
	"chatd/internal/cache"
	"chatd/internal/chat"
	"chatd/internal/hub"
	"chatd/internal/registry"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
)

// Fetcher lists a model repository and transfers its files into a local directory.
type Fetcher interface {
	List(ctx context.Context, src hub.Source, id string) ([]hub.File, error)
	FetchFiles(ctx context.Context, src hub.Source, id string, files []hub.File, destDir string, progress hub.Progress) error
}

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// Registry defaults to the builtin catalog.
	Registry *registry.Registry
	Cache    *cache.Store
	Hub      Fetcher
	Loader   backend.Loader
	// Engine defaults to chat.New with Logger.
	Engine        *chat.Engine
	Publisher     EventPublisher
	Logger        *zerolog.Logger
	MaxQueueDepth int
	MaxWait       time.Duration
}

// NewWithConfig constructs a Manager from ManagerConfig. Cache, Hub and Loader are required.
func NewWithConfig(cfg ManagerConfig) (*Manager, error) {
	if cfg.Cache == nil {
		return nil, errors.New("manager: cache store is required")
	}
	if cfg.Hub == nil {
		return nil, errors.New("manager: hub fetcher is required")
	}
	if cfg.Loader == nil {
		return nil, errors.New("manager: model loader is required")
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = cfg.Logger.With().Str("component", "manager").Logger()
	}
	m := &Manager{
		registry:  cfg.Registry,
		cache:     cfg.Cache,
		hub:       cfg.Hub,
		loader:    cfg.Loader,
		engine:    cfg.Engine,
		publisher: cfg.Publisher,
		log:       log,
		tasks:     make(map[string]*task),
		status:    newStatusStore(),
		instances: newInstanceStore(),
	}
	if m.registry == nil {
		m.registry = registry.Builtin()
	}
	if m.engine == nil {
		m.engine = chat.New(chat.Options{Logger: cfg.Logger})
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	// Apply defaults if unset
	if cfg.MaxQueueDepth <= 0 {
		m.maxQueueDepth = defaultMaxQueueDepth
	} else {
		m.maxQueueDepth = cfg.MaxQueueDepth
	}
	if cfg.MaxWait <= 0 {
		m.maxWait = defaultMaxWait
	} else {
		m.maxWait = cfg.MaxWait
	}
	m.baseCtx, m.cancel = context.WithCancel(context.Background())
	return m, nil
}
