package manager

import "sync"

// statusStore holds the last recorded download status per model id.
type statusStore struct {
	mu sync.Mutex
	m  map[string]DownloadStatus
}

func newStatusStore() *statusStore {
	return &statusStore{m: make(map[string]DownloadStatus)}
}

func (s *statusStore) get(id string) (DownloadStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.m[id]
	return st, ok
}

func (s *statusStore) set(id string, st DownloadStatus) {
	s.mu.Lock()
	s.m[id] = st
	s.mu.Unlock()
}

// setProgress updates progress for an in-flight download; it never reaches 100 and never
// moves backwards.
func (s *statusStore) setProgress(id string, pct int) {
	if pct > 99 {
		pct = 99
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.m[id]
	if !ok || st.State != StateDownloading || pct <= st.Progress {
		return
	}
	st.Progress = pct
	s.m[id] = st
}

// Status reports the download status of id. An active worker wins, then artifacts on disk,
// then the last recorded failure. Everything else, including ids outside the catalog, is idle.
func (m *Manager) Status(id string) DownloadStatus {
	if !m.registry.Contains(id) {
		return DownloadStatus{State: StateIdle}
	}
	m.mu.RLock()
	_, active := m.tasks[id]
	st, recorded := m.status.get(id)
	m.mu.RUnlock()
	if active {
		return DownloadStatus{State: StateDownloading, Progress: st.Progress}
	}
	if m.cache.Exists(id) {
		return DownloadStatus{State: StateDownloaded, Progress: 100}
	}
	if recorded && st.State == StateError {
		return st
	}
	return DownloadStatus{State: StateIdle}
}

// percent scales done/total to 0..99.
func percent(done, total int64) int {
	if total <= 0 || done <= 0 {
		return 0
	}
	p := int(done * 100 / total)
	if p > 99 {
		p = 99
	}
	return p
}
