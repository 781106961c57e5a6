package prompt

import "errors"

var (
	// ErrEmpty is returned when the template string is empty.
	ErrEmpty = errors.New("template is empty")

	// ErrParse is returned when the template fails to parse.
	ErrParse = errors.New("template parse error")

	// ErrExecute is returned when template execution fails.
	ErrExecute = errors.New("template execution error")

	// ErrMissingVariable is returned when a required variable is absent.
	ErrMissingVariable = errors.New("required variable missing")
)
