// Package estimate computes distance, duration and cost figures for a route.
package estimate

import (
	"context"
	"errors"
	"math"

	"ride-trip/internal/domain"
)

const earthRadiusMeters = 6371000.0

// Defaults used when the config leaves a value unset.
const (
	DefaultAvgSpeedKmh   = 30.0
	DefaultCostPerMinute = 1.0
)

// ErrRouteTooShort is returned for a route with fewer than two waypoints.
var ErrRouteTooShort = errors.New("route must have at least 2 waypoints")

// Haversine estimates a route as the sum of great-circle legs between
// consecutive waypoints, driven at a constant average speed.
type Haversine struct {
	avgSpeedKmh   float64
	costPerMinute float64
}

// NewHaversine creates a Haversine estimator.
func NewHaversine(avgSpeedKmh, costPerMinute float64) *Haversine {
	if avgSpeedKmh <= 0 {
		avgSpeedKmh = DefaultAvgSpeedKmh
	}
	if costPerMinute <= 0 {
		costPerMinute = DefaultCostPerMinute
	}
	return &Haversine{avgSpeedKmh: avgSpeedKmh, costPerMinute: costPerMinute}
}

// Estimate returns the distance in meters, the duration in seconds and
// a cost of durationMinutes * costPerMinute.
func (h *Haversine) Estimate(ctx context.Context, route []domain.Waypoint) (domain.Estimate, error) {
	if len(route) < 2 {
		return domain.Estimate{}, ErrRouteTooShort
	}

	var meters float64
	for i := 1; i < len(route); i++ {
		meters += Distance(route[i-1], route[i])
	}
	meters = math.Round(meters)

	metersPerSecond := h.avgSpeedKmh * 1000 / 3600
	seconds := math.Round(meters / metersPerSecond)

	return domain.Estimate{
		Distance: meters,
		Duration: seconds,
		Cost:     Cost(seconds, h.costPerMinute),
	}, nil
}

// Cost prices a duration given in seconds.
func Cost(durationSeconds, costPerMinute float64) float64 {
	return durationSeconds / 60 * costPerMinute
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b domain.Waypoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}
