package service

import (
	"context"

	"ride-trip/internal/domain"
)

//go:generate mockgen -destination=mocks/directory.go -package=mocks ride-trip/internal/service ProfileDirectory

// ProfileDirectory is one collection (customers or drivers) of the user directory.
type ProfileDirectory interface {
	FindOne(ctx context.Context, id string, fields []string) (*domain.UserProfile, error)
	SetActiveTrip(ctx context.Context, id, tripID string) error
	RemoveActiveTrip(ctx context.Context, id string) error
}

// Estimator prices a route.
type Estimator interface {
	Estimate(ctx context.Context, route []domain.Waypoint) (domain.Estimate, error)
}

// TripCache holds read-through trip snapshots.
type TripCache interface {
	GetTrip(ctx context.Context, tripID string) (*domain.Trip, error)
	SetTrip(ctx context.Context, trip *domain.Trip) error
	InvalidateTrip(ctx context.Context, tripID string) error
}
