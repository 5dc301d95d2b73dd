package models

import "errors"

var (
	// ErrOrderNotFound is returned when a referenced order does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrStatusConflict is returned when a conditional status update matched
	// nothing because the order's status changed underneath the caller.
	ErrStatusConflict = errors.New("order status changed concurrently")

	ErrStaffNotFound = errors.New("staff not found")
)
