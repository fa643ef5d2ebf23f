package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every error caused by a malformed or
// incomplete experiment template. Such errors are fatal: the template must be
// fixed before generation can start.
var ErrInvalidConfig = errors.New("invalid config")

// IsConfigError reports whether err was caused by an invalid template.
func IsConfigError(err error) bool { return errors.Is(err, ErrInvalidConfig) }

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
