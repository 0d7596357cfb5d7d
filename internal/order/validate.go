package order

import (
	"errors"
	"fmt"
)

// ValidationError reports a submission rejected before any state changed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsValidation helps callers tell bad input apart from infrastructure failures.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Validate checks a submission against the menu and returns the canonical
// item kind and size.
func (m Menu) Validate(itemKind, size string, quantity int) (string, Size, error) {
	kind, ok := m.Match(itemKind)
	if !ok {
		return "", "", &ValidationError{Field: "item kind", Message: fmt.Sprintf("%q is not on the menu", itemKind)}
	}
	sz, ok := ParseSize(size)
	if !ok {
		return "", "", &ValidationError{Field: "size", Message: fmt.Sprintf("%q is not one of small, medium, large", size)}
	}
	if quantity < MinQuantity || quantity > MaxQuantity {
		return "", "", &ValidationError{
			Field:   "quantity",
			Message: fmt.Sprintf("%d is outside %d-%d", quantity, MinQuantity, MaxQuantity),
		}
	}
	return kind, sz, nil
}
