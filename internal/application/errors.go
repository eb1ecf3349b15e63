package application

import "fmt"

// ErrNotFound is returned when an application is missing or does not belong
// to the requesting user. The two cases are deliberately indistinguishable.
var ErrNotFound = fmt.Errorf("application not found")

// ValidationError wraps a user-facing validation message. It is always
// raised before any persistence side effect.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
