package errors

import (
	"context"
	"errors"
	"fmt"
)

// ErrorClass tells callers how to react to an error.
type ErrorClass int

const (
	// ErrorTransient errors may go away on their own, such as a scheduler
	// that did not stop in time.
	ErrorTransient ErrorClass = iota
	// ErrorInvalid errors are caused by the caller: bad input, a read-only
	// view, a duplicate index name.
	ErrorInvalid
	// ErrorFatal errors mean the requested store setup cannot work.
	ErrorFatal
)

func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

var (
	// Index management
	ErrIndexExists    = errors.New("index already exists")
	ErrIndexNotFound  = errors.New("index not found")
	ErrIndexingFailed = errors.New("indexing failed")

	// Store usage
	ErrReadOnly                   = errors.New("store is read-only")
	ErrSynchronizationUnsupported = errors.New("store does not support synchronized access")
	ErrNoIdentity                 = errors.New("value has no identity")

	ErrInvalidData = errors.New("invalid data format")

	// Configuration
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")

	// Expiration scheduling
	ErrSchedulerClosed = errors.New("scheduler closed")
	ErrShutdownTimeout = errors.New("shutdown timeout exceeded")
)

// sentinelClasses classifies errors that were never wrapped with a class.
// Order matters: the first sentinel in the chain wins.
var sentinelClasses = []struct {
	err   error
	class ErrorClass
}{
	{ErrShutdownTimeout, ErrorTransient},
	{context.DeadlineExceeded, ErrorTransient},
	{context.Canceled, ErrorTransient},
	{ErrInvalidConfig, ErrorFatal},
	{ErrMissingConfig, ErrorFatal},
	{ErrSynchronizationUnsupported, ErrorFatal},
	{ErrInvalidData, ErrorInvalid},
	{ErrIndexExists, ErrorInvalid},
	{ErrIndexNotFound, ErrorInvalid},
	{ErrIndexingFailed, ErrorInvalid},
	{ErrReadOnly, ErrorInvalid},
	{ErrNoIdentity, ErrorInvalid},
	{ErrSchedulerClosed, ErrorInvalid},
}

// ClassifiedError carries a class and the component and operation that
// produced the error.
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// classOf reports the class of err. The outermost ClassifiedError decides;
// otherwise known sentinels do.
func classOf(err error) (ErrorClass, bool) {
	if err == nil {
		return 0, false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class, true
	}

	for _, s := range sentinelClasses {
		if errors.Is(err, s.err) {
			return s.class, true
		}
	}
	return 0, false
}

// IsTransient checks if an error is transient
func IsTransient(err error) bool {
	class, ok := classOf(err)
	return ok && class == ErrorTransient
}

// IsFatal checks if an error is fatal
func IsFatal(err error) bool {
	class, ok := classOf(err)
	return ok && class == ErrorFatal
}

// IsInvalid checks if an error is due to invalid input or misuse
func IsInvalid(err error) bool {
	class, ok := classOf(err)
	return ok && class == ErrorInvalid
}

// Classify returns the class of err. Nil and unknown errors are transient.
func Classify(err error) ErrorClass {
	if class, ok := classOf(err); ok {
		return class
	}
	return ErrorTransient
}

// Wrap adds context following the pattern
// "component.method: action failed: %w".
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps an error as transient with context
func WrapTransient(err error, component, method, action string) error {
	return wrapClassified(ErrorTransient, err, component, method, action)
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	return wrapClassified(ErrorFatal, err, component, method, action)
}

// WrapInvalid wraps an error as invalid with context
func WrapInvalid(err error, component, method, action string) error {
	return wrapClassified(ErrorInvalid, err, component, method, action)
}

func wrapClassified(class ErrorClass, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, method, action)
	return &ClassifiedError{
		Class:     class,
		Err:       wrapped,
		Message:   wrapped.Error(),
		Component: component,
		Operation: method,
	}
}
