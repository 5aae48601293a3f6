package types

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Error kinds surfaced by the hasher and the stores. Callers match them with errors.Is.
var (
	ErrNotFound = errors.New("not found")
	ErrIO       = errors.New("io error")
	ErrStorage  = errors.New("storage error")
)

var (
	ErrConfigNotFound       = errors.New("config not found")
	ErrConfigParseFailed    = errors.New("config parse failed")
	ErrConfigIsNil          = errors.New("config is nil")
	ErrConfigValidateFailed = errors.New("config validate failed")
	ErrDataDirUnavailable   = errors.New("data dir unavailable")
)

var (
	ErrStoreTypeUnknown    = errors.New("store type unknown")
	ErrStoreNotInitialized = errors.New("store not initialized")
	ErrStoreClosed         = errors.New("store closed")
	ErrStorePathEmpty      = errors.New("store path empty")
)

var (
	ErrHashAlgorithmUnknown = errors.New("hash algorithm unknown")
	ErrChunkSizeInvalid     = errors.New("chunk size invalid")
)

var (
	ErrMetricsTypeUnknown = errors.New("metrics type unknown")
)

var (
	ErrLogFileIsEmpty    = errors.New("log file is empty")
	ErrLoggerTypeUnknown = errors.New("logger type unknown")
)

var (
	ErrFetchIsNil = errors.New("fetch func is nil")
)

type Error struct {
	Kind error
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.Error() + ": " + e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func NewNotFoundError(op, path string, err error) error {
	return pkgerrors.WithStack(&Error{Kind: ErrNotFound, Op: op, Path: path, Err: err})
}

func NewIOError(op, path string, err error) error {
	return pkgerrors.WithStack(&Error{Kind: ErrIO, Op: op, Path: path, Err: err})
}

func NewStorageError(op string, err error) error {
	return pkgerrors.WithStack(&Error{Kind: ErrStorage, Op: op, Err: err})
}

func Errorf(baseErr error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", baseErr, fmt.Sprintf(format, args...))
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func IsError(err, target error) bool {
	return errors.Is(err, target)
}
