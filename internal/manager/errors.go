package manager

import "errors"

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{ modelID string }

func (e tooBusyError) Error() string { return "too busy: " + e.modelID }

// ErrTooBusy constructs a tooBusyError for modelID.
func ErrTooBusy(modelID string) error { return tooBusyError{modelID: modelID} }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var e tooBusyError
	return errors.As(err, &e)
}

// unsupportedModelError is returned for ids that are not in the catalog.
type unsupportedModelError struct{ id string }

func (e unsupportedModelError) Error() string { return "unsupported model: " + e.id }

// ErrUnsupportedModel constructs an unsupportedModelError.
func ErrUnsupportedModel(id string) error { return unsupportedModelError{id: id} }

// IsUnsupportedModel reports whether err indicates an id outside the catalog.
func IsUnsupportedModel(err error) bool {
	var e unsupportedModelError
	return errors.As(err, &e)
}

// alreadyInProgressError rejects a second download while a worker is active for the id.
type alreadyInProgressError struct{ id string }

func (e alreadyInProgressError) Error() string { return "download already in progress: " + e.id }

func ErrAlreadyInProgress(id string) error { return alreadyInProgressError{id: id} }

// IsAlreadyInProgress reports whether err rejected a duplicate download.
func IsAlreadyInProgress(err error) bool {
	var e alreadyInProgressError
	return errors.As(err, &e)
}

// downloadFailure wraps a transfer or commit failure.
type downloadFailure struct {
	id  string
	err error
}

func (e downloadFailure) Error() string { return "download failed for " + e.id + ": " + e.err.Error() }
func (e downloadFailure) Unwrap() error { return e.err }

func ErrDownloadFailure(id string, err error) error { return downloadFailure{id: id, err: err} }

// IsDownloadFailure reports whether err is a transfer failure.
func IsDownloadFailure(err error) bool {
	var e downloadFailure
	return errors.As(err, &e)
}

// modelLoadError wraps a failure to construct a model instance from cached artifacts.
type modelLoadError struct {
	id  string
	err error
}

func (e modelLoadError) Error() string { return "failed to load model " + e.id + ": " + e.err.Error() }
func (e modelLoadError) Unwrap() error { return e.err }

func ErrModelLoad(id string, err error) error { return modelLoadError{id: id, err: err} }

// IsModelLoadError reports whether err is an instance construction failure.
func IsModelLoadError(err error) bool {
	var e modelLoadError
	return errors.As(err, &e)
}

// ErrClosed is returned once Close has been called.
var ErrClosed = errors.New("manager is shut down")
