package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrActiveTripConflict is returned when a write would give a customer or a
	// driver a second active trip.
	ErrActiveTripConflict = errors.New("active trip conflict")
)
