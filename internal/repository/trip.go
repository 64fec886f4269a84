package repository

import (
	"context"

	"ride-trip/internal/domain"
)

// TripRepository defines the persistence operations for trips.
type TripRepository interface {
	// Create persists a new trip.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by ID.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// Update replaces the stored trip and refreshes its UpdatedAt.
	Update(ctx context.Context, trip *domain.Trip) error

	// FindActiveByCustomerID retrieves the trip a customer is currently waiting on
	// (status WAITING_FOR_DRIVER). Returns nil if there is none.
	FindActiveByCustomerID(ctx context.Context, customerID string) (*domain.Trip, error)

	// FindActiveByDriverID retrieves the trip a driver has approved
	// (status APPROVED). Returns nil if there is none.
	FindActiveByDriverID(ctx context.Context, driverID string) (*domain.Trip, error)
}
