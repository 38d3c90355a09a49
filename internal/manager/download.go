package manager

import (
	"context"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chatd/internal/backend"
	"chatd/internal/hub"
	"chatd/pkg/types"
)

// RequestDownload starts a background download of id from src and returns immediately.
// It fails with ErrUnsupportedModel for ids outside the catalog and ErrAlreadyInProgress while
// a worker for id is running. Download failures are recorded in Status, never returned here.
func (m *Manager) RequestDownload(id string, src hub.Source) error {
	desc, ok := m.registry.Describe(id)
	if !ok {
		return ErrUnsupportedModel(id)
	}
	if src == "" {
		src = hub.HuggingFace
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if _, busy := m.tasks[id]; busy {
		m.mu.Unlock()
		return ErrAlreadyInProgress(id)
	}
	t := &task{opID: uuid.NewString(), source: src, started: time.Now()}
	m.tasks[id] = t
	m.status.set(id, DownloadStatus{State: StateDownloading})
	m.wg.Add(1)
	m.mu.Unlock()

	log := m.log.With().Str("model", id).Str("op_id", t.opID).Str("source", string(src)).Logger()
	// Stale artifacts go before the worker starts.
	if err := m.cache.Remove(id); err != nil {
		log.Warn().Err(err).Msg("clear cached artifacts")
	}
	if err := m.cache.Discard(id); err != nil {
		log.Warn().Err(err).Msg("clear staged artifacts")
	}
	go m.runDownload(desc, t, log)
	return nil
}

func (m *Manager) runDownload(desc types.ModelDescriptor, t *task, log zerolog.Logger) {
	defer m.wg.Done()
	id := desc.ID
	downloadsActive.Inc()
	defer downloadsActive.Dec()
	m.publish(Event{Name: "download_start", ModelID: id, Fields: map[string]any{"op_id": t.opID, "source": string(t.source)}})
	log.Info().Msg("download start")

	err := m.download(m.baseCtx, desc, t, log)
	downloadsTotal.WithLabelValues(string(t.source), result(err)).Inc()
	if err != nil {
		if derr := m.cache.Discard(id); derr != nil {
			log.Warn().Err(derr).Msg("discard staged artifacts")
		}
		if rerr := m.cache.Remove(id); rerr != nil {
			log.Warn().Err(rerr).Msg("remove cached artifacts")
		}
		m.finish(id, DownloadStatus{State: StateError, Error: err.Error()})
		log.Error().Err(err).Dur("elapsed", time.Since(t.started)).Msg("download failed")
		m.publish(Event{Name: "download_error", ModelID: id, Fields: map[string]any{"op_id": t.opID, "error": err.Error()}})
		return
	}
	m.finish(id, DownloadStatus{State: StateDownloaded, Progress: 100})
	size, _ := m.cache.Size(id)
	log.Info().Dur("elapsed", time.Since(t.started)).Str("size", humanize.Bytes(uint64(size))).Msg("download done")
	m.publish(Event{Name: "download_done", ModelID: id, Fields: map[string]any{"op_id": t.opID, "bytes": size}})
}

// download checks the repository listing against the loader, fetches into staging, validates by
// constructing a throwaway instance and commits.
func (m *Manager) download(ctx context.Context, desc types.ModelDescriptor, t *task, log zerolog.Logger) error {
	id := desc.ID
	if err := m.cache.Discard(id); err != nil {
		return ErrDownloadFailure(id, err)
	}
	staging, err := m.cache.Staging(id)
	if err != nil {
		return ErrDownloadFailure(id, err)
	}
	progress := func(done, total int64) {
		m.status.setProgress(id, percent(done, total))
	}
	files, err := m.hub.List(ctx, t.source, id)
	if err != nil {
		return ErrDownloadFailure(id, err)
	}
	if ck, ok := m.loader.(backend.ArtifactChecker); ok {
		paths := make([]string, len(files))
		for i, f := range files {
			paths[i] = f.Path
		}
		if err := ck.CheckArtifacts(paths, desc.Architecture); err != nil {
			return ErrModelLoad(id, err)
		}
	}
	if err := m.hub.FetchFiles(ctx, t.source, id, files, staging, progress); err != nil {
		return ErrDownloadFailure(id, err)
	}
	log.Debug().Msg("validating artifacts")
	probe, err := backend.Load(ctx, m.loader, id, staging, desc.Architecture)
	if err != nil {
		return ErrModelLoad(id, err)
	}
	if err := probe.Close(); err != nil {
		log.Warn().Err(err).Msg("close validation instance")
	}
	if err := m.cache.Commit(id); err != nil {
		return ErrDownloadFailure(id, err)
	}
	return nil
}

// finish records the terminal status and drops the task handle in one step.
func (m *Manager) finish(id string, st DownloadStatus) {
	m.mu.Lock()
	delete(m.tasks, id)
	m.status.set(id, st)
	m.mu.Unlock()
}

// Download runs a download for id in the foreground and returns its terminal status.
// Used by the CLI; progress, when non-nil, receives percentage updates.
func (m *Manager) Download(ctx context.Context, id string, src hub.Source, progress func(pct int)) (DownloadStatus, error) {
	if err := m.RequestDownload(id, src); err != nil {
		return DownloadStatus{}, err
	}
	tick := time.NewTicker(250 * time.Millisecond)
	defer tick.Stop()
	last := -1
	for {
		st := m.Status(id)
		if progress != nil && st.Progress != last {
			last = st.Progress
			progress(st.Progress)
		}
		if st.State != StateDownloading {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-tick.C:
		}
	}
}
