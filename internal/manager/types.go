package manager

import (
	"time"

	"chatd/internal/backend"
)

// DownloadState is the lifecycle state of a model's artifacts.
type DownloadState string

const (
	StateIdle        DownloadState = "idle"
	StateDownloading DownloadState = "downloading"
	StateDownloaded  DownloadState = "downloaded"
	StateError       DownloadState = "error"
)

// DownloadStatus is the reported download state of one model.
type DownloadStatus struct {
	State DownloadState
	// Progress is a percentage; 100 only once downloaded.
	Progress int
	// Error is set only in StateError.
	Error string
}

func (s DownloadStatus) errorPtr() *string {
	if s.State != StateError || s.Error == "" {
		return nil
	}
	e := s.Error
	return &e
}

// Instance is a loaded chat model plus its admission primitives. One per model id.
type Instance struct {
	*backend.Model
	LoadedAt time.Time
	// Queueing primitives
	genCh   chan struct{} // size 1: single in-flight generation
	queueCh chan struct{} // buffered: queue slots
}

func newInstance(m *backend.Model, queueDepth int) *Instance {
	return &Instance{
		Model:    m,
		LoadedAt: time.Now(),
		genCh:    make(chan struct{}, 1),
		queueCh:  make(chan struct{}, queueDepth),
	}
}
