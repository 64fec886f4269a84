package domain

// Waypoint is one stop of a trip route. Route order is the slice order.
type Waypoint struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Name string  `json:"name,omitempty"`
}

// Estimate holds the precomputed figures stored on a trip at creation time.
type Estimate struct {
	Distance float64 // meters
	Duration float64 // seconds
	Cost     float64
}
