package manager

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"chatd/internal/backend"
)

// instanceStore memoizes constructed instances for the process lifetime.
type instanceStore struct {
	mu    sync.Mutex
	m     map[string]*Instance
	group singleflight.Group
}

func newInstanceStore() *instanceStore {
	return &instanceStore{m: make(map[string]*Instance)}
}

func (s *instanceStore) get(id string) *Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[id]
}

func (s *instanceStore) put(id string, inst *Instance) {
	s.mu.Lock()
	s.m[id] = inst
	s.mu.Unlock()
}

// drain removes and returns every instance.
func (s *instanceStore) drain() map[string]*Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.m
	s.m = make(map[string]*Instance)
	return out
}

// Instance returns the instance for id, constructing it from the cache on first use.
// Concurrent first calls share one construction. It never triggers a download.
func (m *Manager) Instance(ctx context.Context, id string) (*Instance, error) {
	desc, ok := m.registry.Describe(id)
	if !ok {
		return nil, ErrUnsupportedModel(id)
	}
	if inst := m.instances.get(id); inst != nil {
		return inst, nil
	}
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	// A canceled request must not abort a load other callers are waiting on.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := m.instances.group.Do(id, func() (any, error) {
		if inst := m.instances.get(id); inst != nil {
			return inst, nil
		}
		if !m.cache.Exists(id) {
			return nil, ErrModelLoad(id, errors.New("model artifacts are not in the cache; download it first"))
		}
		dir, err := m.cache.Path(id)
		if err != nil {
			return nil, ErrModelLoad(id, err)
		}
		m.publish(Event{Name: "instance_load_start", ModelID: id, Fields: map[string]any{"architecture": string(desc.Architecture)}})
		model, err := backend.Load(loadCtx, m.loader, id, dir, desc.Architecture)
		instanceLoadsTotal.WithLabelValues(string(desc.Architecture), result(err)).Inc()
		if err != nil {
			m.log.Error().Err(err).Str("model", id).Msg("instance load failed")
			m.publish(Event{Name: "instance_load_error", ModelID: id, Fields: map[string]any{"error": err.Error()}})
			return nil, ErrModelLoad(id, err)
		}
		// Close may have drained the store while the model was loading.
		m.mu.RLock()
		if m.closed {
			m.mu.RUnlock()
			if cerr := model.Close(); cerr != nil {
				m.log.Warn().Err(cerr).Str("model", id).Msg("close after shutdown failed")
			}
			return nil, ErrClosed
		}
		inst := newInstance(model, m.maxQueueDepth)
		m.instances.put(id, inst)
		m.mu.RUnlock()
		m.log.Info().Str("model", id).Str("architecture", string(desc.Architecture)).Msg("instance ready")
		m.publish(Event{Name: "instance_ready", ModelID: id})
		return inst, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Instance), nil
}
