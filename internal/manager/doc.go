// Package manager owns the model lifecycle: on-demand downloads into the cache, download status
// reporting, memoized instance construction and admission of chat requests. It is structured
// into small files by concern:
//
//   - manager.go: core Manager type, catalog views.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: download states, DownloadStatus, Instance.
//   - errors.go: error types and helpers (IsUnsupportedModel, IsAlreadyInProgress, IsTooBusy, ...).
//   - download.go: RequestDownload and the download worker.
//   - status.go: the status store and Status reporting.
//   - instance.go: Instance construction and the per-process instance store.
//   - admission.go: per-instance queueing and generation admission.
//   - infer.go: Chat entry point.
//   - close.go: shutdown of workers and runtimes.
//   - events.go, eventpub_memory.go: lifecycle event publishing.
//   - metrics.go: Prometheus collectors.
//
// External packages should treat this package as the orchestration layer and use public
// methods only (NewWithConfig, ListModels, ModelStatus, RequestDownload, Chat, Close).
package manager
