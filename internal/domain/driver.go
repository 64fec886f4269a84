package domain

// DriverSnapshot is a copy of the driver profile taken when the trip was approved.
// It is not refreshed afterwards.
type DriverSnapshot struct {
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	Surname  string   `json:"surname,omitempty"`
	Rating   *float64 `json:"rate,omitempty"`
	PhotoKey string   `json:"photoKey,omitempty"`
}

// DriverProfileFields is the projection requested from the directory when approving a trip.
var DriverProfileFields = []string{"name", "surname", "rate", "photoKey"}
