package models

import "fmt"

// ValidationError reports malformed input data: empty names or
// descriptions, negative amounts, mismatched weights or shares, or a
// payer/participant that is not part of the event. It is raised at
// construction or mutation time, before any computation runs.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Validationf builds a ValidationError from a format string. Exported so
// collaborators (importers, handlers) can classify their own input
// failures the same way.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
