// Package errors defines the domain error values shared across
// services and handlers. Each value carries a stable machine code and
// a caller-facing message.
package errors

import "fmt"

// DomainError is a coded business error. Services return these
// directly; handlers map codes to HTTP responses and reason strings.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// WithDetail returns a copy carrying extra caller-facing context.
// errors.Is against the original value still matches.
func (e *DomainError) WithDetail(format string, args ...interface{}) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: fmt.Sprintf(e.Message+": "+format, args...),
	}
}

// Is matches any DomainError with the same code, so wrapped and
// detailed variants compare equal to their base value.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}
