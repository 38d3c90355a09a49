package chat

import "errors"

// imageDecodeError wraps any failure to turn the request image into a raster.
type imageDecodeError struct{ err error }

func (e imageDecodeError) Error() string { return "image decode failed: " + e.err.Error() }
func (e imageDecodeError) Unwrap() error { return e.err }

// ErrImageDecode wraps err as an image decode failure.
func ErrImageDecode(err error) error { return imageDecodeError{err: err} }

// IsImageDecode reports whether err is an image decode failure.
func IsImageDecode(err error) bool {
	var e imageDecodeError
	return errors.As(err, &e)
}

// unsupportedModalityError is returned when an image is sent to a text-only model and the
// engine is configured to reject it.
type unsupportedModalityError struct{ modelID string }

func (e unsupportedModalityError) Error() string {
	return "model does not accept image input: " + e.modelID
}

// ErrUnsupportedModality constructs an unsupportedModalityError.
func ErrUnsupportedModality(modelID string) error { return unsupportedModalityError{modelID: modelID} }

// IsUnsupportedModality reports whether err indicates image input sent to a text-only model.
func IsUnsupportedModality(err error) bool {
	var e unsupportedModalityError
	return errors.As(err, &e)
}
