package apperr

import (
	"context"
	"errors"
)

// Exit codes returned by the binaries.
const (
	ExitOK     = 0
	ExitFatal  = 1
	ExitConfig = 2
)

// IsConfig reports whether err is (or wraps) a ConfigError.
func IsConfig(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// IsDecode reports whether err is (or wraps) a per-image DecodeError.
func IsDecode(err error) bool {
	var decErr *DecodeError
	return errors.As(err, &decErr)
}

// IsFatal checks if err must abort the run. Only per-image decode failures are recoverable.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !IsDecode(err)
}

// IsInterrupted reports whether the run stopped because its context was cancelled.
func IsInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// ExitCode maps a run error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case IsConfig(err):
		return ExitConfig
	default:
		return ExitFatal
	}
}
