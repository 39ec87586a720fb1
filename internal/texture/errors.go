package texture

import "errors"

var (
	// ErrUnsupportedFormat is returned when no decoder recognises the source.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrEmptyImage is returned when a source decodes to zero pixels.
	ErrEmptyImage = errors.New("image has no pixels")
	// ErrTooLarge is returned when a remote source exceeds the size limit.
	ErrTooLarge = errors.New("source too large")
)

// LoadError reports a texture that could not be fetched or decoded.
// It is recoverable: the sampler stays empty and samples transparent black.
type LoadError struct {
	Source string
	Err    error
}

// Error returns the cause, which already names the source.
func (e *LoadError) Error() string {
	if e.Err == nil {
		return "texture: load " + e.Source + ": unknown error"
	}
	return e.Err.Error()
}

func (e *LoadError) Unwrap() error { return e.Err }
