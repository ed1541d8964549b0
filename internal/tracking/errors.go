package tracking

import "fmt"

// ValidationError reports a single invalid input field.
type ValidationError struct {
	Field string
	Issue string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Issue)
}

func invalid(field, issue string) error {
	return &ValidationError{Field: field, Issue: issue}
}
