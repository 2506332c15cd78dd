package apperr

import "fmt"

// ConfigError is a fatal problem with the run's inputs: flags, the corrections file,
// the input directory or the manifest. Nothing is written when one is returned.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", msg, e.Err)
	}
	return fmt.Sprintf("configuration error: %s", msg)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Configf builds a ConfigError for field with a formatted message.
func Configf(field, format string, args ...any) error {
	return &ConfigError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// DecodeError reports a single image that could not be read or decoded.
// The run skips the image and carries on.
type DecodeError struct {
	ID  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.ID, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// WriteError is a fatal output failure (output dir, PDF file, verification or upload).
// Documents flushed before it stay on disk.
type WriteError struct {
	Op   string
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
