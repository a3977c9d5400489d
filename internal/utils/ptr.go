// Package utils has small generic helpers for the nullable columns of the
// bracket rows.
package utils

// Ptr returns a pointer to a copy of v, for filling optional fields from literals
func Ptr[T any](v T) *T {
	return &v
}

// OrZero dereferences v, or returns the zero value for a NULL column
func OrZero[T comparable](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}
