package errors

import pkgerrors "github.com/pkg/errors"

// ErrorDetails represents detailed information about an error.
type ErrorDetails struct {
	// Message (required) is the user-defined error message.
	// E.g. "seller balance is lower than transfer amount".
	Message string

	// Code (required) is one of the ErrorCode values.
	Code string

	// Field (optional) is the related field the error occurred on, if any.
	Field string

	// Object (optional) is the related object the error occured on, if any.
	Object interface{}
}

// NewErrorDetails creates a new ErrorDetails struct with the given parameters.
func NewErrorDetails(message, code, field string) *ErrorDetails {
	return &ErrorDetails{
		Message: message,
		Code:    code,
		Field:   field,
	}
}

// NewErrorDetailsWithObject creates a new ErrorDetails struct with an associated object.
func NewErrorDetailsWithObject(message, code, field string, object interface{}) *ErrorDetails {
	return &ErrorDetails{
		Message: message,
		Code:    code,
		Field:   field,
		Object:  object,
	}
}

// Error() is used to implement the Golang `error` interface.
func (e *ErrorDetails) Error() string {
	return e.Message
}

// ErrorCodeEquals checks whether a given `error`, or any error it wraps, has a specific code.
func ErrorCodeEquals(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf returns the code of err. A coded ErrorTracer in the chain wins,
// then the first ErrorDetails or BaseError. BaseError reports its code only
// when every detail shares it.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}

	var tracer *ErrorTracer
	if pkgerrors.As(err, &tracer) && tracer.Code != "" {
		return tracer.Code
	}

	var details *ErrorDetails
	if pkgerrors.As(err, &details) {
		return ErrorCode(details.Code)
	}

	var base *BaseError
	if pkgerrors.As(err, &base) && base.HasDetails() {
		code := base.details[0].Code
		if base.IsAllCodeEqual(code) {
			return ErrorCode(code)
		}
	}

	return ""
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return pkgerrors.As(err, target)
}
