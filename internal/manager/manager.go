package manager

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chatd/internal/backend"
	"chatd/internal/cache"
	"chatd/internal/chat"
	"chatd/internal/hub"
	"chatd/internal/registry"
	"chatd/pkg/types"
)

// Manager coordinates downloads, instances and chat admission for the catalog.
type Manager struct {
	// mu guards tasks, closed and publisher. Lock order: mu, then the status store.
	mu     sync.RWMutex
	tasks  map[string]*task
	closed bool
	wg     sync.WaitGroup

	status    *statusStore
	instances *instanceStore

	registry  *registry.Registry
	cache     *cache.Store
	hub       Fetcher
	loader    backend.Loader
	engine    *chat.Engine
	publisher EventPublisher
	log       zerolog.Logger

	// baseCtx bounds download workers; canceled when Close abandons them.
	baseCtx context.Context
	cancel  context.CancelFunc

	// Queue config
	maxQueueDepth int
	maxWait       time.Duration
}

// task is the handle of a running download worker.
type task struct {
	opID    string
	source  hub.Source
	started time.Time
}

// SetEventPublisher installs an EventPublisher; nil restores the no-op publisher.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p == nil {
		m.publisher = noopPublisher{}
		return
	}
	m.publisher = p
}

// Registry returns the catalog served by the manager.
func (m *Manager) Registry() *registry.Registry { return m.registry }

// ListModels returns every catalog entry merged with its live download status.
func (m *Manager) ListModels() types.ModelsResponse {
	out := make(types.ModelsResponse, m.registry.Len())
	for _, d := range m.registry.List() {
		st := m.Status(d.ID)
		out[d.ID] = types.ModelEntry{
			ID:          d.ID,
			Name:        d.Name,
			Size:        d.Size,
			Type:        string(d.Architecture),
			Downloaded:  st.State == StateDownloaded,
			Progress:    st.Progress,
			Error:       st.errorPtr(),
			Downloading: st.State == StateDownloading,
		}
	}
	return out
}

// ModelStatus reports the download status of id in wire form. Unknown ids report idle.
func (m *Manager) ModelStatus(id string) types.ModelStatusResponse {
	st := m.Status(id)
	return types.ModelStatusResponse{
		Downloaded:  st.State == StateDownloaded,
		Downloading: st.State == StateDownloading,
		Progress:    st.Progress,
		Error:       st.errorPtr(),
	}
}

// CacheSize reports the on-disk size of the cached artifacts of id.
func (m *Manager) CacheSize(id string) (int64, error) {
	if !m.registry.Contains(id) {
		return 0, ErrUnsupportedModel(id)
	}
	return m.cache.Size(id)
}
