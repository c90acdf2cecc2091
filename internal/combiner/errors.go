package combiner

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTiles means the requested world/zoom directory exists but holds no
	// tile images; almost always a path or zoom-level mistake by the caller.
	ErrNoTiles = errors.New("no tile images found")

	// ErrCancelled is returned when the confirmation callback declines an
	// expensive operation.
	ErrCancelled = errors.New("cancelled by confirmation callback")
)

// ConfigError reports invalid input configuration, detected before any
// expensive work begins.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return e.Msg
}

func configErrorf(format string, args ...any) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// InternalError reports a broken invariant inside the combiner itself. It is
// kept distinct from configuration and domain errors so users know to file a
// bug rather than fix their input.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string {
	return e.Msg + " (this is likely a bug; please report it)"
}
