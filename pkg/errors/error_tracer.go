package errors

import "github.com/pkg/errors"

// ErrorTracer carries an infrastructure failure up to the engine with the
// stack of the call that produced it. Code classifies the failure for
// metrics and responses; when empty, the code of the wrapped error is used.
type ErrorTracer struct {
	Message string
	Code    ErrorCode
	Err     error
}

// NewTracer creates a tracer with message and no cause.
func NewTracer(message string) *ErrorTracer {
	return &ErrorTracer{
		Message: message,
	}
}

// TracerFromError wraps err, keeping its message and any code it carries.
func TracerFromError(err error) *ErrorTracer {
	return &ErrorTracer{
		Message: err.Error(),
		Code:    CodeOf(err),
		Err:     withStack(err),
	}
}

// StackTracer is implemented by errors created through github.com/pkg/errors.
type StackTracer interface {
	StackTrace() errors.StackTrace
}

func (e *ErrorTracer) Error() string {
	return e.Message
}

func (e *ErrorTracer) Unwrap() error {
	return e.Err
}

// Wrap sets err as the cause.
func (e *ErrorTracer) Wrap(err error) *ErrorTracer {
	e.Err = withStack(err)
	return e
}

// WithCode classifies the failure, e.g. RedisZAddError for a failed upsert.
func (e *ErrorTracer) WithCode(code ErrorCode) *ErrorTracer {
	e.Code = code
	return e
}

// StackTrace returns the stack recorded when the cause was wrapped.
func (e *ErrorTracer) StackTrace() errors.StackTrace {
	if st, ok := e.Err.(StackTracer); ok {
		return st.StackTrace()
	}
	return nil
}

func withStack(err error) error {
	if _, ok := err.(StackTracer); ok {
		return err
	}
	return errors.WithStack(err)
}
